package local

import (
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

// DefaultConnectTimeout is used if the client config has no timeout
const DefaultConnectTimeout = time.Second

// servers maps endpoint names to listening server transports of this process
var servers = xsync.NewMapOf[string, *localServerTransport]()

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// NewLocalServerTransport creates a server transport that is reachable by
// local client transports of the same process under its endpoint name.
func NewLocalServerTransport() transport.IRPCServerTransport {
	return &localServerTransport{done: make(chan struct{})}
}

type localServerTransport struct {
	handler  transport.ServerHandleFunc
	endpoint string

	once sync.Once
	done chan struct{}
}

func (t *localServerTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *localServerTransport) Listen(config common.ServerConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}
	t.endpoint = config.Transport.Endpoint
	if _, loaded := servers.LoadOrStore(t.endpoint, t); loaded {
		return fmt.Errorf("endpoint %s is already in use", t.endpoint)
	}
	<-t.done

	// only remove the own registration
	servers.Compute(t.endpoint, func(old *localServerTransport, loaded bool) (*localServerTransport, bool) {
		return old, old == t || !loaded
	})
	return nil
}

func (t *localServerTransport) Close() error {
	t.once.Do(func() { close(t.done) })
	return nil
}

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// NewLocalClientTransport creates a client transport that calls the handler of a local server transport directly
func NewLocalClientTransport() transport.IRPCClientTransport {
	return &localClientTransport{}
}

type localClientTransport struct {
	mu     sync.RWMutex
	server *localServerTransport
}

// Connect waits until a server listens on the first endpoint (at most the client timeout)
func (t *localClientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}
	endpoint := config.Transport.Endpoints[0]

	timeout := time.Duration(config.TimeoutSecond) * time.Second
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	deadline := time.Now().Add(timeout)

	for {
		if server, ok := servers.Load(endpoint); ok {
			t.mu.Lock()
			t.server = server
			t.mu.Unlock()
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no local server listening on %s", endpoint)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (t *localClientTransport) Send(shardId uint64, req []byte) ([]byte, error) {
	t.mu.RLock()
	server := t.server
	t.mu.RUnlock()

	if server == nil {
		return nil, fmt.Errorf("local transport not connected")
	}
	select {
	case <-server.done:
		return nil, fmt.Errorf("local server %s is closed", server.endpoint)
	default:
	}
	return server.handler(shardId, req), nil
}

func (t *localClientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.server = nil
	return nil
}
