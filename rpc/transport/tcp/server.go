package tcp

import (
	"fmt"
	"net"
	"time"

	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/transport"
	"github.com/ValentinKolb/tKV/rpc/transport/base"
)

// serverConnector implements the IServerConnector interface for TCP sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "tcp"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	listener, err := net.Listen("tcp", config.Transport.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP socket: %v", err)
	}
	return listener, nil
}

// UpgradeConnection applies the TCP settings of the transport config to an accepted connection
func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.ServerConfig) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	cfg := config.Transport

	if err := tcpConn.SetNoDelay(cfg.TCPNoDelay); err != nil {
		return err
	}
	if cfg.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(cfg.WriteBufferSize); err != nil {
			return err
		}
	}
	if cfg.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(cfg.ReadBufferSize); err != nil {
			return err
		}
	}
	if err := setKeepAlive(tcpConn, cfg.TCPKeepAliveSec); err != nil {
		return err
	}
	if cfg.TCPLingerSec >= 0 {
		if err := tcpConn.SetLinger(cfg.TCPLingerSec); err != nil {
			return err
		}
	}
	return nil
}

// setKeepAlive enables keep-alive with the given period (0 = keep the os default)
func setKeepAlive(conn *net.TCPConn, periodSec int) error {
	if periodSec <= 0 {
		return nil
	}
	if err := conn.SetKeepAlive(true); err != nil {
		return err
	}
	return conn.SetKeepAlivePeriod(time.Duration(periodSec) * time.Second)
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPServerTransport creates a new TCP server transport
func NewTCPServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{})
}
