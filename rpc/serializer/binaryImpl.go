package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/ValentinKolb/tKV/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format:
//
//	[MsgType:1][flags:2][fields ...]
//
// Only fields with their flag set are written, in the order of the flags.
// Strings and byte slices are prefixed with their uint32 length, Number is
// an int64, the codes are single bytes and Ok is encoded by its flag alone.
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasTable     uint16 = 1 << 0
	hasKey       uint16 = 1 << 1
	hasValue     uint16 = 1 << 2
	hasQuery     uint16 = 1 << 3
	hasNumber    uint16 = 1 << 4
	hasOk        uint16 = 1 << 5
	hasErr       uint16 = 1 << 6
	hasErrCode   uint16 = 1 << 7
	hasCauseCode uint16 = 1 << 8
)

const headerSize = 3

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	if msg.ErrCode > 0xFF || msg.CauseCode > 0xFF {
		return nil, fmt.Errorf("return code out of range (%d, %d)", msg.ErrCode, msg.CauseCode)
	}

	result := make([]byte, headerSize, b.sizeBytes(msg))
	result[0] = byte(msg.MsgType)

	var flags uint16

	if msg.Table != "" {
		flags |= hasTable
		result = appendString(result, msg.Table)
	}
	if msg.Key != "" {
		flags |= hasKey
		result = appendString(result, msg.Key)
	}
	if msg.Value != nil {
		flags |= hasValue
		result = appendBytes(result, msg.Value)
	}
	if msg.Query != nil {
		flags |= hasQuery
		result = appendBytes(result, msg.Query)
	}
	if msg.Number != 0 {
		flags |= hasNumber
		result = binary.BigEndian.AppendUint64(result, uint64(msg.Number))
	}
	if msg.Ok {
		flags |= hasOk
	}
	if msg.Err != "" {
		flags |= hasErr
		result = appendString(result, msg.Err)
	}
	if msg.ErrCode != table.RetCSuccess {
		flags |= hasErrCode
		result = append(result, byte(msg.ErrCode))
	}
	if msg.CauseCode != table.RetCSuccess {
		flags |= hasCauseCode
		result = append(result, byte(msg.CauseCode))
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint16(result[1:3], flags)

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags := binary.BigEndian.Uint16(data[1:3])
	r := reader{data: data, pos: headerSize}

	if flags&hasTable != 0 {
		msg.Table = string(r.bytes("table"))
	}
	if flags&hasKey != 0 {
		msg.Key = string(r.bytes("key"))
	}
	if flags&hasValue != 0 {
		msg.Value = r.copyBytes("value")
	}
	if flags&hasQuery != 0 {
		msg.Query = r.copyBytes("query")
	}
	if flags&hasNumber != 0 {
		if raw := r.next(8, "number"); raw != nil {
			msg.Number = int64(binary.BigEndian.Uint64(raw))
		}
	}
	msg.Ok = flags&hasOk != 0
	if flags&hasErr != 0 {
		msg.Err = string(r.bytes("error"))
	}
	if flags&hasErrCode != 0 {
		if raw := r.next(1, "error code"); raw != nil {
			msg.ErrCode = table.RetCode(raw[0])
		}
	}
	if flags&hasCauseCode != 0 {
		if raw := r.next(1, "cause code"); raw != nil {
			msg.CauseCode = table.RetCode(raw[0])
		}
	}

	return r.err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerSize

	if msg.Table != "" {
		size += 4 + len(msg.Table)
	}
	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Query != nil {
		size += 4 + len(msg.Query)
	}
	if msg.Number != 0 {
		size += 8
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.ErrCode != table.RetCSuccess {
		size++
	}
	if msg.CauseCode != table.RetCSuccess {
		size++
	}

	return size
}

func appendString(dst []byte, s string) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(s)))
	return append(dst, s...)
}

func appendBytes(dst []byte, b []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}

// reader reads length prefixed fields, the first error stops all further reads
type reader struct {
	data []byte
	pos  int
	err  error
}

// next returns the next n bytes (nil after an error)
func (r *reader) next(n int, field string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("data too short for %s", field)
		return nil
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out
}

// bytes returns the next length prefixed field without copying
func (r *reader) bytes(field string) []byte {
	raw := r.next(4, field+" length")
	if raw == nil {
		return nil
	}
	return r.next(int(binary.BigEndian.Uint32(raw)), field+" data")
}

// copyBytes returns a copy of the next length prefixed field (empty, not nil, for length 0)
func (r *reader) copyBytes(field string) []byte {
	raw := r.bytes(field)
	if raw == nil {
		return nil
	}
	return append(make([]byte, 0, len(raw)), raw...)
}
