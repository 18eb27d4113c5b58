package client

import (
	"fmt"

	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/serializer"
	"github.com/ValentinKolb/tKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
// Used by the RPC connector and the RPC table connector with composition pattern
type rpcClientAdapter struct {
	shardId    uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invoke sends req with the transport and serializer of the adapter
func (a *rpcClientAdapter) invoke(req *common.Message) (*common.Message, error) {
	return invokeRPCRequest(a.shardId, req, a.transport, a.serializer)
}

// invokeRPCRequest is a helper function used for all RPC Clients to send requests
// It takes a shard ID, a request message, a transport layer and a serializer as parameters
// It returns a response message and an error if any occurs.
// Errors of the server are returned as *table.Error with their original return code,
// transport and serialization failures are reported as internal errors.
func invokeRPCRequest(shardId uint64, req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, table.WrapError(table.RetCInternalError, "failed to serialize request", err)
	}

	// Send the request
	respBytes, err := transport.Send(shardId, reqBytes)
	if err != nil {
		return nil, table.WrapError(table.RetCInternalError, "failed to send request", err)
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := serializer.Deserialize(respBytes, resp); err != nil {
		return nil, table.WrapError(table.RetCInternalError, "failed to deserialize response", err)
	}

	// Check if the response is an error response
	if err := resp.ToError(); err != nil {
		return nil, err
	}
	if resp.MsgType == common.MsgTError {
		return nil, table.NewError(table.RetCInternalError, "unknown server error")
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, table.NewError(table.RetCInternalError,
			fmt.Sprintf("unexpected message type: %s, expected %s", resp.MsgType, req.MsgType))
	}

	return resp, nil
}
