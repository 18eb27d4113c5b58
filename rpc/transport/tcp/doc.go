// Package tcp implements TCP socket-based transport for the tKV RPC system.
// It provides concrete implementations of the base package's connector
// interfaces for TCP connections.
//
// This package builds on the base package's transport functionality, inheriting its
// connection pooling, buffer reuse and request routing. See the base package
// documentation for the framing and the worker model.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector,
//     applies TCPNoDelay and keep-alive from the client config
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector,
//     applies TCPNoDelay, socket buffer sizes, keep-alive and linger from the server config
package tcp
