// Package transport defines the interfaces for RPC communication in tKV.
// It provides a common contract that all transport implementations must fulfill,
// so client and server are independent of the network protocol.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and request sending.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receives requests and routes them to the registered handler.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
// Implementations:
//
//   - http: POST /{shardId} per request, plus GET /metrics
//   - tcp / unix: framed, multiplexed socket connections (see package base)
//   - local: an in-process pair that calls the handler directly
package transport
