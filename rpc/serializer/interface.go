package serializer

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/tKV/rpc/common"
)

// IRPCSerializer is the interface for all Message Serializers
type IRPCSerializer interface {
	// Serialize serializes a Message into a byte array
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a byte array into msg.
	// All fields of msg are overwritten.
	Deserialize(b []byte, msg *common.Message) error
}

// Names lists the names accepted by New
var Names = []string{"json", "gob", "binary"}

// New returns the serializer with the given name (json, gob or binary)
func New(name string) (IRPCSerializer, error) {
	switch name {
	case "json":
		return NewJSONSerializer(), nil
	case "gob":
		return NewGOBSerializer(), nil
	case "binary":
		return NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s (expected one of: %s)", name, strings.Join(Names, ", "))
	}
}
