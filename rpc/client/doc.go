// Package client implements the RPC client of tKV.
// It provides implementations of the table.ITableProvider and table.ITableConnector
// interfaces that forward every operation to a shard of a remote server.
//
// Key Components:
//
//   - NewRPCConnector: Factory function that connects the transport and returns a
//     table provider for one shard. Its table connectors behave like local ones:
//     errors keep their return code (errors.Is works with the table sentinels) and
//     List reports every failure as table.ErrInvalidQuery.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:              []string{"localhost:8080"},
//	    RetryCount:             3,
//	    ConnectionsPerEndpoint: 1,
//	  },
//	}
//
//	provider, err := client.NewRPCConnector(1, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//	  log.Fatal(err)
//	}
//
//	users, _ := provider.GetTableConnector("users")
//	users.Set("u1", db.Record{"name": "Alice", "age": 30})
//	adults, _ := users.List(table.Query{
//	  Where: &table.Where{Key: "age", Operator: table.OpGreaterOrEqual, Value: 18},
//	})
//
// Iterate is served by a single List request, the records are yielded from memory.
//
// Performance Considerations:
//
//   - For applications that frequently send large payloads, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel requests.
//
//   - The choice of serializer significantly affects performance. The binary serializer
//     provides the best performance and smallest payload size.
//
// Thread Safety:
//
//	All client implementations are thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
