// Package unix implements a transport layer for the tKV RPC system using
// Unix domain sockets. It provides fast communication for processes running
// on the same machine.
//
// This package extends the base transport layer with Unix socket-specific connectors
// while inheriting connection pooling, request routing and error handling from the
// base package. The endpoint is the path of the socket file, a stale socket file is
// removed when the server starts.
package unix
