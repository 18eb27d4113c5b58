// Package rpc makes the tables of tKV available over the network. It acts as
// the communication layer between clients and servers, a remote table behaves
// like a local one, including the return codes of its errors.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP and an in-process transport).
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: The RPC implementation of table.ITableProvider and table.ITableConnector.
//
//   - server: The RPC server that maps shard IDs to table databases and
//     dispatches incoming requests to them.
package rpc
