package server

import (
	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/ValentinKolb/tKV/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle handles a request against the tables of a shard and returns a response.
	// If an error occurs, it is set in the response together with its return code.
	Handle(req *common.Message, provider table.ITableProvider) (resp *common.Message)
}

// IRPCServer serves the shards of a server over a transport
type IRPCServer interface {
	// Serve opens all shards and blocks until the transport is closed
	Serve() error
	// Close closes the transport and all shards
	Close() error
}
