package serializer

import (
	"strings"
	"testing"

	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/goccy/go-json"
)

// benchmarkMessages returns a set of messages for targeted benchmarking
func benchmarkMessages() map[string]common.Message {
	record := func(size int) []byte {
		raw, _ := json.Marshal(map[string]any{"id": "u1", "payload": strings.Repeat("x", size)})
		return raw
	}

	return map[string]common.Message{
		"Empty": {
			MsgType: common.MsgTSuccess,
		},
		"Get": {
			MsgType: common.MsgTTBLGet,
			Table:   "users",
			Key:     "a1b2c3d4-e5f6-4711-8a9b-0c1d2e3f4a5b",
		},
		"SmallRecord": {
			MsgType: common.MsgTTBLSet,
			Table:   "users",
			Key:     "u1",
			Value:   record(16),
		},
		"LargeRecord": {
			MsgType: common.MsgTTBLSet,
			Table:   "users",
			Key:     "u1",
			Value:   record(1024), // ~1KB
		},
		"VeryLargeRecord": {
			MsgType: common.MsgTTBLSet,
			Table:   "users",
			Key:     "u1",
			Value:   record(1024 * 16), // ~16KB
		},
		"Query": {
			MsgType: common.MsgTTBLList,
			Table:   "users",
			Query:   []byte(`{"where":{"key":"age","operator":"between","value":[18,65]},"orderBy":{"key":"name","direction":"desc"},"limit":100,"offset":200}`),
		},
		"Count": {
			MsgType: common.MsgTTBLCount,
			Number:  123456,
		},
		"CompleteMessage": {
			MsgType:   common.MsgTTBLAdd,
			Table:     "users",
			Key:       "complete-test-key",
			Value:     record(64),
			Query:     []byte(`{"limit":1}`),
			Number:    20000,
			Ok:        true,
			Err:       "This is a test error message",
			ErrCode:   table.RetCInvalidQuery,
			CauseCode: table.RetCIndexNotFound,
		},
		"ErrorMessage": {
			MsgType: common.MsgTError,
			Err:     "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.",
			ErrCode: table.RetCInternalError,
		},
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various message types
func BenchmarkSerialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					_, err := serializer.Serialize(msg)
					if err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization for all implementations with various message types
func BenchmarkDeserialize(b *testing.B) {
	messages := benchmarkMessages()
	serializedData := make(map[string]map[string][]byte)

	// Pre-serialize all messages with all serializers
	for name, factory := range testSerializers {
		serializer := factory()
		serializedData[name] = make(map[string][]byte)

		for msgName, msg := range messages {
			data, err := serializer.Serialize(msg)
			if err != nil {
				b.Fatalf("Failed to serialize %s with %s: %v", msgName, name, err)
			}
			serializedData[name][msgName] = data
		}
	}

	// Benchmark deserialization
	for name, factory := range testSerializers {
		for msgName := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				data := serializedData[name][msgName]
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var msg common.Message
					err := serializer.Deserialize(data, &msg)
					if err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkSize measures and reports the serialized size for each message type
func BenchmarkSize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		serializer := factory()

		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				data, err := serializer.Serialize(msg)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}

				// Report the size as a custom metric
				b.ReportMetric(float64(len(data)), "bytes")

				// Minimal loop to satisfy benchmark requirements
				for i := 0; i < b.N; i++ {
					_ = data
				}
			})
		}
	}
}
