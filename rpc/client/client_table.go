package client

import (
	"fmt"
	"iter"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/serializer"
	"github.com/ValentinKolb/tKV/rpc/transport"
	"github.com/goccy/go-json"
)

// NewRPCConnector creates a table provider for the database of a remote shard.
// The function takes a shard ID, a config, a transport and a serializer as parameters.
// The transport is connected before the provider is returned.
func NewRPCConnector(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (table.ITableProvider, error) {

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &rpcConnector{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

type rpcConnector struct {
	rpcClientAdapter
}

type rpcTable struct {
	rpcClientAdapter
	name string
}

// --------------------------------------------------------------------------
// Interface Methods (docu see table/interface.go)
// --------------------------------------------------------------------------

func (c *rpcConnector) HasTable(name string) (bool, error) {
	resp, err := c.invoke(common.NewHasTableRequest(name))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (c *rpcConnector) CreateTable(name string) error {
	_, err := c.invoke(common.NewCreateTableRequest(name))
	return err
}

func (c *rpcConnector) GetTableConnector(name string) (table.ITableConnector, error) {
	ok, err := c.HasTable(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, table.NewError(table.RetCTableNotFound, fmt.Sprintf("table %s does not exist", name))
	}
	return &rpcTable{rpcClientAdapter: c.rpcClientAdapter, name: name}, nil
}

func (t *rpcTable) Get(key string) (db.Record, bool, error) {
	resp, err := t.invoke(common.NewGetRequest(t.name, key))
	if err != nil || !resp.Ok {
		return nil, false, err
	}
	rec, err := decode[db.Record](resp.Value)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (t *rpcTable) Set(key string, value db.Record) (db.Record, error) {
	raw, err := encode(value)
	if err != nil {
		return nil, err
	}
	resp, err := t.invoke(common.NewSetRequest(t.name, key, raw))
	if err != nil {
		return nil, err
	}
	return decode[db.Record](resp.Value)
}

func (t *rpcTable) Add(value db.Record) (db.Record, error) {
	raw, err := encode(value)
	if err != nil {
		return nil, err
	}
	resp, err := t.invoke(common.NewAddRequest(t.name, raw))
	if err != nil {
		return nil, err
	}
	return decode[db.Record](resp.Value)
}

func (t *rpcTable) Delete(key string) error {
	_, err := t.invoke(common.NewDeleteRequest(t.name, key))
	return err
}

func (t *rpcTable) Clear() error {
	_, err := t.invoke(common.NewClearRequest(t.name))
	return err
}

func (t *rpcTable) List(q table.Query) ([]db.Record, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return nil, invalidQuery(err)
	}
	resp, err := t.invoke(common.NewListRequest(t.name, raw))
	if err != nil {
		return nil, invalidQuery(err)
	}
	recs, err := decode[[]db.Record](resp.Value)
	if err != nil {
		return nil, invalidQuery(err)
	}
	if recs == nil {
		recs = []db.Record{}
	}
	return recs, nil
}

// Iterate fetches the complete result with a single List request and yields it record by record
func (t *rpcTable) Iterate(q table.Query) iter.Seq2[db.Record, error] {
	return func(yield func(db.Record, error) bool) {
		recs, err := t.List(q)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, rec := range recs {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (t *rpcTable) Count(q table.Query) (int, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return 0, table.WrapError(table.RetCInvalidQuery, "invalid query", err)
	}
	resp, err := t.invoke(common.NewCountRequest(t.name, raw))
	if err != nil {
		return 0, err
	}
	return int(resp.Number), nil
}

func (t *rpcTable) CalculateSize() (int, error) {
	resp, err := t.invoke(common.NewSizeRequest(t.name))
	if err != nil {
		return 0, err
	}
	return int(resp.Number), nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func encode(rec db.Record) ([]byte, error) {
	if rec == nil {
		rec = db.Record{}
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, table.WrapError(table.RetCInternalError, "failed to encode record", err)
	}
	return raw, nil
}

func decode[T any](raw []byte) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, table.WrapError(table.RetCInternalError, "failed to decode response", err)
	}
	return v, nil
}

// invalidQuery reports every failure of a listing as the generic invalid query error
func invalidQuery(err error) error {
	if table.CodeOf(err) == table.RetCInvalidQuery {
		return err
	}
	return table.WrapError(table.RetCInvalidQuery, "invalid query", err)
}
