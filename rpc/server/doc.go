// Package server implements the RPC server of tKV.
// It maps shard IDs to table databases and translates RPC requests into
// calls on the table connectors of those databases.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that processes incoming requests against a table.ITableProvider.
//
//   - NewTableServerAdapter: Factory function creating the adapter for table operations.
//     Records and queries are transmitted as JSON, errors keep their table.RetCode.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
//   - LoadLayout: Reads the table layout (JSON, YAML or TOML) applied to every shard on open.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Shards: []common.ServerShard{
//	    {ShardID: 1, Engine: common.EngineMaple},
//	    {ShardID: 2, Engine: common.EngineBolt},
//	  },
//	  DataDir:       "./data",
//	  LayoutFile:    "layout.yaml",
//	  TimeoutSecond: 5,
//	  Transport:     common.ServerTransportConfig{Endpoint: "0.0.0.0:8080"},
//	  LogLevel:      "info",
//	}
//
//	s := server.NewRPCServer(config, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Shards use one of two engines:
//
//   - maple: in-memory, the data is lost when the server stops.
//   - bolt: persistent, stored in DataDir/shard-<id>.db.
//
// A layout file looks like this:
//
//	version: 2
//	tables:
//	  users:
//	    indexes:
//	      - keyPath: age
//	      - keyPath: address.city
//
// Every handled request is counted in tkv_requests_total and timed in
// tkv_request_duration_seconds (github.com/VictoriaMetrics/metrics).
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent requests
//	across multiple connections. Each request is processed independently.
//	Serve should be called only once.
package server
