package tcp

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/transport"
)

// startEcho starts a server that answers every request with "<shard>:<request>"
func startEcho(t *testing.T) string {
	srv := NewTCPServerTransport()
	srv.RegisterHandler(func(shardId uint64, req []byte) []byte {
		return []byte(fmt.Sprintf("%d:%s", shardId, req))
	})

	done := make(chan error, 1)
	go func() {
		done <- srv.Listen(common.ServerConfig{
			TimeoutSecond: 5,
			Transport: common.ServerTransportConfig{
				Endpoint:       "127.0.0.1:0",
				WorkersPerConn: 4,
				TCPNoDelay:     true,
				TCPLingerSec:   -1,
			},
		})
	}()
	t.Cleanup(func() {
		_ = srv.Close()
		if err := <-done; err != nil {
			t.Errorf("Listen failed: %v", err)
		}
	})

	addressed := srv.(interface{ Addr() net.Addr })
	deadline := time.Now().Add(time.Second)
	for addressed.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return addressed.Addr().String()
}

func connect(t *testing.T, endpoint string) transport.IRPCClientTransport {
	client := NewTCPClientTransport()
	err := client.Connect(common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{endpoint},
			RetryCount:             2,
			ConnectionsPerEndpoint: 2,
			TCPNoDelay:             true,
		},
	})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSend(t *testing.T) {
	client := connect(t, startEcho(t))

	resp, err := client.Send(7, []byte("ping"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if string(resp) != "7:ping" {
		t.Errorf("Expected 7:ping, got %s", resp)
	}
}

func TestConcurrentSend(t *testing.T) {
	client := connect(t, startEcho(t))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := bytes.Repeat([]byte{byte('a' + i%26)}, i*100)
			resp, err := client.Send(uint64(i), req)
			if err != nil {
				t.Errorf("Send %d failed: %v", i, err)
				return
			}
			if want := fmt.Sprintf("%d:%s", i, req); string(resp) != want {
				t.Errorf("Response %d does not match its request", i)
			}
		}(i)
	}
	wg.Wait()
}

func TestConnectFails(t *testing.T) {
	client := NewTCPClientTransport()
	err := client.Connect(common.ClientConfig{
		Transport: common.ClientTransportConfig{Endpoints: []string{"127.0.0.1:1"}},
	})
	if err == nil {
		t.Errorf("Expected connect to a closed port to fail")
	}
	if err := client.Connect(common.ClientConfig{}); err == nil {
		t.Errorf("Expected connect without endpoints to fail")
	}
}
