package common

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/goccy/go-json"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Table string `json:"table,omitempty"` // Used for: all table operations
	Key   string `json:"key,omitempty"`   // Used for: Get, Set, Delete
	Value []byte `json:"value,omitempty"` // JSON record for Set, Add (request) and Get, Set, Add (response), JSON array for List (response)
	Query []byte `json:"query,omitempty"` // JSON table.Query for List and Count

	// Response only fields
	Number    int64         `json:"number,omitempty"`    // Used for: Count, Size responses
	Ok        bool          `json:"ok,omitempty"`        // Used for: Get, HasTable responses
	Err       string        `json:"err,omitempty"`       // Empty if no error, otherwise contains the error message
	ErrCode   table.RetCode `json:"errCode,omitempty"`   // Return code of the error
	CauseCode table.RetCode `json:"causeCode,omitempty"` // Return code of the wrapped cause (e.g. IndexNotFound behind InvalidQuery)
}

// SetError stores err and its return codes in the message
func (m *Message) SetError(err error) {
	if err == nil {
		return
	}
	m.Err = err.Error()
	m.ErrCode = table.CodeOf(err)

	var tErr, cause *table.Error
	if !errors.As(err, &tErr) {
		return
	}
	// the code is transmitted separately, only the message text is kept
	m.Err = tErr.Msg
	if tErr.Cause != nil {
		m.Err += ": " + tErr.Cause.Error()
	}
	if errors.As(tErr.Cause, &cause) {
		m.CauseCode = cause.Code
	}
}

// ToError returns the error carried by the message as a *table.Error (nil if there is none).
// The return codes are preserved, so errors.Is works with the table sentinels.
func (m *Message) ToError() error {
	if m.Err == "" && m.ErrCode == table.RetCSuccess {
		return nil
	}
	code := m.ErrCode
	if code == table.RetCSuccess {
		code = table.RetCInternalError
	}
	var cause error
	if m.CauseCode != table.RetCSuccess && m.CauseCode != code {
		cause = table.NewError(m.CauseCode, m.CauseCode.String())
	}
	return table.WrapError(code, m.Err, cause)
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewHasTableRequest creates a new HasTable request
func NewHasTableRequest(tableName string) *Message {
	return &Message{
		MsgType: MsgTTBLHas,
		Table:   tableName,
	}
}

// NewHasTableResponse creates a new HasTable response
func NewHasTableResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTTBLHas,
		Ok:      ok,
	}
	msg.SetError(err)
	return msg
}

// NewCreateTableRequest creates a new CreateTable request
func NewCreateTableRequest(tableName string) *Message {
	return &Message{
		MsgType: MsgTTBLCreate,
		Table:   tableName,
	}
}

// NewCreateTableResponse creates a new CreateTable response
func NewCreateTableResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTTBLCreate,
	}
	msg.SetError(err)
	return msg
}

// NewGetRequest creates a new Get request
func NewGetRequest(tableName, key string) *Message {
	return &Message{
		MsgType: MsgTTBLGet,
		Table:   tableName,
		Key:     key,
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTTBLGet,
		Ok:      ok,
		Value:   value,
	}
	msg.SetError(err)
	return msg
}

// NewSetRequest creates a new Set request
func NewSetRequest(tableName, key string, value []byte) *Message {
	return &Message{
		MsgType: MsgTTBLSet,
		Table:   tableName,
		Key:     key,
		Value:   value,
	}
}

// NewSetResponse creates a new Set response
func NewSetResponse(value []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTTBLSet,
		Value:   value,
	}
	msg.SetError(err)
	return msg
}

// NewAddRequest creates a new Add request
func NewAddRequest(tableName string, value []byte) *Message {
	return &Message{
		MsgType: MsgTTBLAdd,
		Table:   tableName,
		Value:   value,
	}
}

// NewAddResponse creates a new Add response
func NewAddResponse(value []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTTBLAdd,
		Value:   value,
	}
	msg.SetError(err)
	return msg
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(tableName, key string) *Message {
	return &Message{
		MsgType: MsgTTBLDelete,
		Table:   tableName,
		Key:     key,
	}
}

// NewDeleteResponse creates a new Delete response
func NewDeleteResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTTBLDelete,
	}
	msg.SetError(err)
	return msg
}

// NewClearRequest creates a new Clear request
func NewClearRequest(tableName string) *Message {
	return &Message{
		MsgType: MsgTTBLClear,
		Table:   tableName,
	}
}

// NewClearResponse creates a new Clear response
func NewClearResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTTBLClear,
	}
	msg.SetError(err)
	return msg
}

// NewListRequest creates a new List request
func NewListRequest(tableName string, query []byte) *Message {
	return &Message{
		MsgType: MsgTTBLList,
		Table:   tableName,
		Query:   query,
	}
}

// NewListResponse creates a new List response
func NewListResponse(value []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTTBLList,
		Value:   value,
	}
	msg.SetError(err)
	return msg
}

// NewCountRequest creates a new Count request
func NewCountRequest(tableName string, query []byte) *Message {
	return &Message{
		MsgType: MsgTTBLCount,
		Table:   tableName,
		Query:   query,
	}
}

// NewCountResponse creates a new Count response
func NewCountResponse(n int, err error) *Message {
	msg := &Message{
		MsgType: MsgTTBLCount,
		Number:  int64(n),
	}
	msg.SetError(err)
	return msg
}

// NewSizeRequest creates a new CalculateSize request
func NewSizeRequest(tableName string) *Message {
	return &Message{
		MsgType: MsgTTBLSize,
		Table:   tableName,
	}
}

// NewSizeResponse creates a new CalculateSize response
func NewSizeResponse(size int, err error) *Message {
	msg := &Message{
		MsgType: MsgTTBLSize,
		Number:  int64(size),
	}
	msg.SetError(err)
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
		ErrCode: table.RetCInternalError,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTTBLHas:
		return "has"
	case MsgTTBLCreate:
		return "create"
	case MsgTTBLGet:
		return "get"
	case MsgTTBLSet:
		return "set"
	case MsgTTBLAdd:
		return "add"
	case MsgTTBLDelete:
		return "delete"
	case MsgTTBLClear:
		return "clear"
	case MsgTTBLList:
		return "list"
	case MsgTTBLCount:
		return "count"
	case MsgTTBLSize:
		return "size"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, mt := range MessageTypes {
		if mt.String() == s {
			*t = mt
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// ITableProvider operations

	MsgTTBLHas    // Check if a table exists
	MsgTTBLCreate // Create a table

	// ITableConnector operations

	MsgTTBLGet    // Get a record by key
	MsgTTBLSet    // Insert or replace a record
	MsgTTBLAdd    // Insert a record with a generated id
	MsgTTBLDelete // Delete a record
	MsgTTBLClear  // Delete all records of a table
	MsgTTBLList   // List the records matching a query
	MsgTTBLCount  // Count the records matching a query
	MsgTTBLSize   // Calculate the size of a table
)

// MessageTypes lists all message types that can be sent over the wire
var MessageTypes = []MessageType{
	MsgTSuccess, MsgTError,
	MsgTTBLHas, MsgTTBLCreate,
	MsgTTBLGet, MsgTTBLSet, MsgTTBLAdd, MsgTTBLDelete, MsgTTBLClear, MsgTTBLList, MsgTTBLCount, MsgTTBLSize,
}
