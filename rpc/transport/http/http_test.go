package http

import (
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

// freeEndpoint returns a local address that was free a moment ago
func freeEndpoint(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	defer l.Close()
	return l.Addr().String()
}

func startServer(t *testing.T) string {
	endpoint := freeEndpoint(t)

	srv := NewHttpServerTransport()
	srv.RegisterHandler(func(shardId uint64, req []byte) []byte {
		return append([]byte(strings.ToUpper(string(req))), byte('0'+shardId))
	})

	done := make(chan error, 1)
	go func() {
		done <- srv.Listen(common.ServerConfig{
			TimeoutSecond: 5,
			Transport:     common.ServerTransportConfig{Endpoint: endpoint},
			LogLevel:      "debug",
		})
	}()
	t.Cleanup(func() {
		_ = srv.Close()
		if err := <-done; err != nil {
			t.Errorf("Listen failed: %v", err)
		}
	})

	// wait until the server accepts connections
	deadline := time.Now().Add(time.Second)
	for {
		conn, err := net.Dial("tcp", endpoint)
		if err == nil {
			_ = conn.Close()
			return endpoint
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSend(t *testing.T) {
	endpoint := startServer(t)

	client := NewHttpClientTransport()
	err := client.Connect(common.ClientConfig{
		TimeoutSecond: 5,
		Transport:     common.ClientTransportConfig{Endpoints: []string{endpoint}, RetryCount: 2},
	})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	resp, err := client.Send(3, []byte("ping"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if string(resp) != "PING3" {
		t.Errorf("Expected PING3, got %s", resp)
	}
}

func TestInvalidShard(t *testing.T) {
	endpoint := startServer(t)

	resp, err := http.Post("http://"+endpoint+"/abc", "application/octet-stream", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestMetrics(t *testing.T) {
	endpoint := startServer(t)
	metrics.GetOrCreateCounter(`tkv_http_test_total`).Inc()

	resp, err := http.Get("http://" + endpoint + "/metrics")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "tkv_http_test_total 1") {
		t.Errorf("Expected the test counter in the metrics, got %s", body)
	}
}

func TestSendWithoutConnect(t *testing.T) {
	if _, err := NewHttpClientTransport().Send(1, nil); err == nil {
		t.Errorf("Expected an error before Connect")
	}
}
