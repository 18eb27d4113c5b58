// Package http implements an HTTP-based transport layer for the tKV RPC system.
// It provides concrete implementations of the transport interfaces defined in the
// parent package, enabling communication between clients and servers over HTTP.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport. Each request is posted to
//     the next endpoint (round-robin), failed attempts are retried on the next endpoint.
//     Endpoints may be given as URLs or as host:port.
//
//   - httpServerTransport: Implements IRPCServerTransport. It serves
//     POST /{shardId} with the serialized request as body and the serialized
//     response as answer, and GET /metrics with the request metrics of the server
//     in the Prometheus text format (github.com/VictoriaMetrics/metrics).
//
// Thread Safety:
//
//	The client transport is thread-safe and can be used concurrently. It uses
//	an atomic counter for the round-robin selection of server endpoints.
package http
