package serializer

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/ValentinKolb/tKV/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Set request
		*common.NewSetRequest("users", "u1", []byte(`{"name":"Alice"}`)),

		// Get response
		*common.NewGetResponse([]byte(`{"id":"u1","name":"Alice"}`), true, nil),

		// List request
		*common.NewListRequest("users", []byte(`{"where":{"key":"age","operator":">=","value":18},"limit":10}`)),

		// Count response
		*common.NewCountResponse(42, nil),

		// Negative numbers survive
		{MsgType: common.MsgTTBLSize, Number: -1},

		// Error response with cause
		*common.NewListResponse(nil, table.WrapError(table.RetCInvalidQuery, "invalid query", table.ErrIndexNotFound)),

		// Error response
		*common.NewErrorResponse("test error message"),

		// Message with all fields filled
		{
			MsgType:   common.MsgTTBLAdd,
			Table:     "users",
			Key:       "u1",
			Value:     []byte("value"),
			Query:     []byte("query"),
			Number:    7,
			Ok:        true,
			Err:       "boom",
			ErrCode:   table.RetCTableNotFound,
			CauseCode: table.RetCNotOpen,
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestDeserializeOverwrites tests that a reused message does not keep fields of the previous one
func TestDeserializeOverwrites(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			data, err := serializer.Serialize(common.Message{MsgType: common.MsgTTBLClear})
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			result := common.Message{Key: "stale", Value: []byte("stale"), Ok: true, Number: 3}
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if !reflect.DeepEqual(result, common.Message{MsgType: common.MsgTTBLClear}) {
				t.Errorf("Expected stale fields to be reset, got %+v", result)
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for _, msgType := range common.MessageTypes {
				data, err := serializer.Serialize(common.Message{MsgType: msgType})
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType, err)
					continue
				}

				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s", msgType, result.MsgType)
				}
			}
		})
	}
}

// TestErrorCodesSurvive tests that table errors can be matched with errors.Is after a round trip
func TestErrorCodesSurvive(t *testing.T) {
	sent := table.WrapError(table.RetCInvalidQuery, "invalid query", table.WrapError(table.RetCIndexNotFound, "index not found", nil))

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			data, err := serializer.Serialize(*common.NewListResponse(nil, sent))
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}
			var result common.Message
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			got := result.ToError()
			if !errors.Is(got, table.ErrInvalidQuery) {
				t.Errorf("Expected ErrInvalidQuery, got %v", got)
			}
			if !errors.Is(got, table.ErrIndexNotFound) {
				t.Errorf("Expected the cause ErrIndexNotFound, got %v", got)
			}
			if errors.Is(got, table.ErrTableNotFound) {
				t.Errorf("Did not expect ErrTableNotFound to match %v", got)
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Message with empty value slice but not nil",
			msg:  common.Message{MsgType: common.MsgTTBLSet, Key: "test", Value: []byte{}},
		},
		{
			name: "Message with empty query slice but not nil",
			msg:  common.Message{MsgType: common.MsgTTBLList, Query: []byte{}},
		},
		{
			name: "Message with Ok only",
			msg:  common.Message{MsgType: common.MsgTTBLHas, Ok: true},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var result common.Message
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			if !reflect.DeepEqual(tc.msg, result) {
				t.Errorf("Expected %+v, got %+v", tc.msg, result)
			}
			if (tc.msg.Value == nil) != (result.Value == nil) {
				t.Errorf("Value nil/non-nil mismatch: expected %v, got %v", tc.msg.Value, result.Value)
			}
		})
	}

	if _, err := serializer.Serialize(common.Message{ErrCode: 300}); err == nil {
		t.Errorf("Expected an error for a return code that does not fit into a byte")
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{"Empty data", []byte{}, true},
		{"Too short header", []byte{1, 0}, true},
		{"Valid header only", []byte{1, 0, 0}, false},
		{"Invalid length for table", []byte{3, 0, 1, 0, 0, 0, 5, 'a', 'b', 'c'}, true},
		{"Invalid length for value", []byte{5, 0, 4, 0, 0, 0, 10}, true},
		{"Missing number", []byte{10, 0, 16, 0, 0, 0}, true},
		{"Missing error code", []byte{2, 0, 128}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
