package server

import (
	"fmt"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/goccy/go-json"
)

func NewTableServerAdapter() IRPCServerAdapter {
	return &tableServerAdapterImpl{}
}

type tableServerAdapterImpl struct{}

func (adapter *tableServerAdapterImpl) Handle(req *common.Message, provider table.ITableProvider) *common.Message {
	// Check for nil provider
	if provider == nil {
		return common.NewErrorResponse("handler: table provider is nil")
	}

	// Provider operations
	switch req.MsgType {
	case common.MsgTTBLHas:
		ok, err := provider.HasTable(req.Table)
		return common.NewHasTableResponse(ok, err)
	case common.MsgTTBLCreate:
		err := provider.CreateTable(req.Table)
		return common.NewCreateTableResponse(err)
	case common.MsgTTBLGet, common.MsgTTBLSet, common.MsgTTBLAdd, common.MsgTTBLDelete,
		common.MsgTTBLClear, common.MsgTTBLList, common.MsgTTBLCount, common.MsgTTBLSize:
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC TableAdapter - Unsupported message type: %s", req.MsgType),
		)
	}

	// Table operations
	tbl, err := provider.GetTableConnector(req.Table)
	if err != nil {
		return errorResponse(req.MsgType, err)
	}

	switch req.MsgType {
	case common.MsgTTBLGet:
		rec, ok, err := tbl.Get(req.Key)
		if err != nil || !ok {
			return common.NewGetResponse(nil, false, err)
		}
		val, err := encode(rec)
		return common.NewGetResponse(val, err == nil, err)

	case common.MsgTTBLSet:
		rec, err := decodeRecord(req.Value)
		if err != nil {
			return errorResponse(req.MsgType, err)
		}
		rec, err = tbl.Set(req.Key, rec)
		if err != nil {
			return errorResponse(req.MsgType, err)
		}
		return common.NewSetResponse(encode(rec))

	case common.MsgTTBLAdd:
		rec, err := decodeRecord(req.Value)
		if err != nil {
			return errorResponse(req.MsgType, err)
		}
		rec, err = tbl.Add(rec)
		if err != nil {
			return errorResponse(req.MsgType, err)
		}
		return common.NewAddResponse(encode(rec))

	case common.MsgTTBLDelete:
		return common.NewDeleteResponse(tbl.Delete(req.Key))

	case common.MsgTTBLClear:
		return common.NewClearResponse(tbl.Clear())

	case common.MsgTTBLList:
		q, err := decodeQuery(req.Query)
		if err != nil {
			return errorResponse(req.MsgType, table.WrapError(table.RetCInvalidQuery, "invalid query", err))
		}
		recs, err := tbl.List(q)
		if err != nil {
			return errorResponse(req.MsgType, err)
		}
		if recs == nil {
			recs = []db.Record{}
		}
		return common.NewListResponse(encode(recs))

	case common.MsgTTBLCount:
		q, err := decodeQuery(req.Query)
		if err != nil {
			return errorResponse(req.MsgType, table.WrapError(table.RetCInvalidQuery, "invalid query", err))
		}
		return common.NewCountResponse(tbl.Count(q))

	default: // MsgTTBLSize
		return common.NewSizeResponse(tbl.CalculateSize())
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// errorResponse creates a response of type t that only carries err
func errorResponse(t common.MessageType, err error) *common.Message {
	msg := &common.Message{MsgType: t}
	msg.SetError(err)
	return msg
}

func encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, table.WrapError(table.RetCInternalError, "failed to encode response", err)
	}
	return b, nil
}

func decodeRecord(b []byte) (db.Record, error) {
	var rec db.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, table.WrapError(table.RetCInternalError, "failed to decode record", err)
	}
	if rec == nil {
		rec = db.Record{}
	}
	return rec, nil
}

// decodeQuery decodes a JSON query, an empty query selects all records
func decodeQuery(b []byte) (table.Query, error) {
	var q table.Query
	if len(b) == 0 {
		return q, nil
	}
	err := json.Unmarshal(b, &q)
	return q, err
}
