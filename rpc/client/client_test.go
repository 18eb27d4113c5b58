package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/tKV/lib/table"
	tabletesting "github.com/ValentinKolb/tKV/lib/table/testing"
	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/serializer"
	"github.com/ValentinKolb/tKV/rpc/server"
	"github.com/ValentinKolb/tKV/rpc/transport"
	"github.com/ValentinKolb/tKV/rpc/transport/local"
	"github.com/ValentinKolb/tKV/rpc/transport/unix"
	"github.com/goccy/go-json"
)

var endpointCounter atomic.Uint64

// writeLayout stores layout as JSON layout file
func writeLayout(t testing.TB, layout table.Layout) string {
	raw, err := json.Marshal(layout)
	if err != nil {
		t.Fatalf("failed to encode layout: %v", err)
	}
	path := filepath.Join(t.TempDir(), "layout.json")
	if err := writeFile(path, raw); err != nil {
		t.Fatalf("failed to write layout: %v", err)
	}
	return path
}

// startServer starts a server with a single maple shard (id 1) on endpoint
func startServer(t testing.TB, endpoint string, layout table.Layout, srvTransport transport.IRPCServerTransport, s serializer.IRPCSerializer) {
	srv := server.NewRPCServer(common.ServerConfig{
		Shards:        []common.ServerShard{{ShardID: 1, Engine: common.EngineMaple}},
		LayoutFile:    writeLayout(t, layout),
		TimeoutSecond: 5,
		Transport:     common.ServerTransportConfig{Endpoint: endpoint},
		LogLevel:      "error",
	}, srvTransport, s)

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()
	t.Cleanup(func() {
		_ = srv.Close()
		if err := <-done; err != nil {
			t.Errorf("Serve failed: %v", err)
		}
	})
}

func clientConfig(endpoint string) common.ClientConfig {
	return common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{endpoint},
			RetryCount:             3,
			ConnectionsPerEndpoint: 1,
		},
	}
}

// localFactory serves every test database with its own server on the local transport
func localFactory(serializerName string) tabletesting.ProviderFactory {
	return func(t testing.TB, layout table.Layout) table.ITableProvider {
		s, err := serializer.New(serializerName)
		if err != nil {
			t.Fatalf("serializer: %v", err)
		}
		endpoint := fmt.Sprintf("client-test-%d", endpointCounter.Add(1))
		startServer(t, endpoint, layout, local.NewLocalServerTransport(), s)

		clientTransport := local.NewLocalClientTransport()
		provider, err := NewRPCConnector(1, clientConfig(endpoint), clientTransport, s)
		if err != nil {
			t.Fatalf("NewRPCConnector failed: %v", err)
		}
		t.Cleanup(func() { _ = clientTransport.Close() })
		return provider
	}
}

func TestLocalJSON(t *testing.T) {
	tabletesting.RunTableTests(t, "LocalJSON", localFactory("json"))
}

func TestLocalGOB(t *testing.T) {
	tabletesting.RunTableTests(t, "LocalGOB", localFactory("gob"))
}

func TestLocalBinary(t *testing.T) {
	tabletesting.RunTableTests(t, "LocalBinary", localFactory("binary"))
}

func TestUnixBinary(t *testing.T) {
	tabletesting.RunTableTests(t, "UnixBinary", func(t testing.TB, layout table.Layout) table.ITableProvider {
		s := serializer.NewBinarySerializer()
		// socket paths are limited to ~100 bytes, t.TempDir() can be too long
		dir, err := os.MkdirTemp("", "tkv")
		if err != nil {
			t.Fatalf("MkdirTemp failed: %v", err)
		}
		t.Cleanup(func() { _ = os.RemoveAll(dir) })
		endpoint := filepath.Join(dir, "tkv.sock")
		startServer(t, endpoint, layout, unix.NewUnixServerTransport(), s)

		clientTransport := unix.NewUnixClientTransport()
		var provider table.ITableProvider
		err = waitFor(func() (err error) {
			provider, err = NewRPCConnector(1, clientConfig(endpoint), clientTransport, s)
			return err
		})
		if err != nil {
			t.Fatalf("NewRPCConnector failed: %v", err)
		}
		t.Cleanup(func() { _ = clientTransport.Close() })
		return provider
	})
}

func TestUnknownShard(t *testing.T) {
	s := serializer.NewBinarySerializer()
	endpoint := fmt.Sprintf("client-test-%d", endpointCounter.Add(1))
	startServer(t, endpoint, tabletesting.Layout, local.NewLocalServerTransport(), s)

	provider, err := NewRPCConnector(42, clientConfig(endpoint), local.NewLocalClientTransport(), s)
	if err != nil {
		t.Fatalf("NewRPCConnector failed: %v", err)
	}
	if _, err := provider.HasTable("users"); !errors.Is(err, table.ErrInternal) {
		t.Errorf("Expected an internal error for an unknown shard, got %v", err)
	}
}

func TestConnectWithoutServer(t *testing.T) {
	config := clientConfig("nobody-listens-here")
	config.TimeoutSecond = 0
	if _, err := NewRPCConnector(1, config, local.NewLocalClientTransport(), serializer.NewJSONSerializer()); err == nil {
		t.Errorf("Expected connect to fail without a server")
	}
}
