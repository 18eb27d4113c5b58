package keys

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Type tags, their numeric order defines the order between key kinds
const (
	tagArrayEnd byte = 0x00
	tagNumber   byte = 0x10
	tagDate     byte = 0x20
	tagString   byte = 0x30
	tagBinary   byte = 0x40
	tagArray    byte = 0x50

	escapeByte byte = 0xFF // follows a literal 0x00 inside strings and binaries
)

// ErrInvalidKey is returned for values that can not be used as a key
var ErrInvalidKey = errors.New("invalid key")

// --------------------------------------------------------------------------
// Normalization
// --------------------------------------------------------------------------

// Normalize converts a value into its canonical key representation.
// Numbers become float64, dates time.Time (UTC), strings string, binaries []byte
// and arrays []any of normalized keys. All other values are rejected with ErrInvalidKey.
func Normalize(v any) (any, error) {
	switch k := v.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrInvalidKey)
	case float64:
		return normalizeFloat(k)
	case float32:
		return normalizeFloat(float64(k))
	case int:
		return float64(k), nil
	case int8:
		return float64(k), nil
	case int16:
		return float64(k), nil
	case int32:
		return float64(k), nil
	case int64:
		return float64(k), nil
	case uint:
		return float64(k), nil
	case uint8:
		return float64(k), nil
	case uint16:
		return float64(k), nil
	case uint32:
		return float64(k), nil
	case uint64:
		return float64(k), nil
	case time.Time:
		return k.UTC(), nil
	case string:
		return k, nil
	case []byte:
		return k, nil
	case []any:
		out := make([]any, len(k))
		for i, e := range k {
			n, err := Normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}

	// typed slices and arrays ([]string, []int, ...)
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			n, err := Normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}

	return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidKey, v)
}

func normalizeFloat(f float64) (any, error) {
	if math.IsNaN(f) {
		return nil, fmt.Errorf("%w: NaN", ErrInvalidKey)
	}
	if f == 0 {
		return float64(0), nil // -0 == 0
	}
	return f, nil
}

// Valid reports whether v can be used as a key
func Valid(v any) bool {
	_, err := Normalize(v)
	return err == nil
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// Encode returns the order-preserving binary form of a key.
// For any two valid keys a and b: bytes.Compare(Encode(a), Encode(b)) == Compare(a, b).
// The encoding is self-delimiting, so encoded keys can be concatenated and split again.
func Encode(v any) ([]byte, error) {
	return Append(nil, v)
}

// MustEncode is like Encode but panics on invalid keys
func MustEncode(v any) []byte {
	b, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Append appends the encoded key to dst
func Append(dst []byte, v any) ([]byte, error) {
	n, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	return appendNormalized(dst, n), nil
}

func appendNormalized(dst []byte, v any) []byte {
	switch k := v.(type) {
	case float64:
		bits := math.Float64bits(k)
		if bits&(1<<63) != 0 {
			bits = ^bits
		} else {
			bits |= 1 << 63
		}
		dst = append(dst, tagNumber)
		return binary.BigEndian.AppendUint64(dst, bits)
	case time.Time:
		dst = append(dst, tagDate)
		return binary.BigEndian.AppendUint64(dst, uint64(k.UnixNano())^(1<<63))
	case string:
		dst = append(dst, tagString)
		return appendEscaped(dst, []byte(k))
	case []byte:
		dst = append(dst, tagBinary)
		return appendEscaped(dst, k)
	case []any:
		dst = append(dst, tagArray)
		for _, e := range k {
			dst = appendNormalized(dst, e)
		}
		return append(dst, tagArrayEnd)
	}
	// Normalize only produces the types above
	panic(fmt.Sprintf("keys: unexpected normalized type %T", v))
}

func appendEscaped(dst, b []byte) []byte {
	for _, c := range b {
		dst = append(dst, c)
		if c == 0x00 {
			dst = append(dst, escapeByte)
		}
	}
	return append(dst, 0x00)
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// Decode decodes the first key in b and returns it with the number of bytes consumed
func Decode(b []byte) (any, int, error) {
	if len(b) == 0 {
		return nil, 0, fmt.Errorf("%w: empty input", ErrInvalidKey)
	}
	switch b[0] {
	case tagNumber:
		if len(b) < 9 {
			return nil, 0, fmt.Errorf("%w: truncated number", ErrInvalidKey)
		}
		bits := binary.BigEndian.Uint64(b[1:9])
		if bits&(1<<63) != 0 {
			bits &^= 1 << 63
		} else {
			bits = ^bits
		}
		return math.Float64frombits(bits), 9, nil
	case tagDate:
		if len(b) < 9 {
			return nil, 0, fmt.Errorf("%w: truncated date", ErrInvalidKey)
		}
		nanos := int64(binary.BigEndian.Uint64(b[1:9]) ^ (1 << 63))
		return time.Unix(0, nanos).UTC(), 9, nil
	case tagString:
		raw, n, err := decodeEscaped(b[1:])
		if err != nil {
			return nil, 0, err
		}
		return string(raw), n + 1, nil
	case tagBinary:
		raw, n, err := decodeEscaped(b[1:])
		if err != nil {
			return nil, 0, err
		}
		return raw, n + 1, nil
	case tagArray:
		pos := 1
		arr := make([]any, 0)
		for {
			if pos >= len(b) {
				return nil, 0, fmt.Errorf("%w: unterminated array", ErrInvalidKey)
			}
			if b[pos] == tagArrayEnd {
				return arr, pos + 1, nil
			}
			e, n, err := Decode(b[pos:])
			if err != nil {
				return nil, 0, err
			}
			arr = append(arr, e)
			pos += n
		}
	default:
		return nil, 0, fmt.Errorf("%w: unknown tag 0x%02x", ErrInvalidKey, b[0])
	}
}

func decodeEscaped(b []byte) ([]byte, int, error) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != 0x00 {
			out = append(out, b[i])
			continue
		}
		if i+1 < len(b) && b[i+1] == escapeByte {
			out = append(out, 0x00)
			i++
			continue
		}
		return out, i + 1, nil
	}
	return nil, 0, fmt.Errorf("%w: unterminated string", ErrInvalidKey)
}

// Split returns the length of the first encoded key in b.
// It is used to separate composite index entries (index key || primary key).
func Split(b []byte) (int, error) {
	_, n, err := Decode(b)
	return n, err
}

// --------------------------------------------------------------------------
// Comparison
// --------------------------------------------------------------------------

// Compare compares two keys. It returns -1, 0 or 1.
func Compare(a, b any) (int, error) {
	ea, err := Encode(a)
	if err != nil {
		return 0, err
	}
	eb, err := Encode(b)
	if err != nil {
		return 0, err
	}
	return bytes.Compare(ea, eb), nil
}

// Equal reports whether a and b are valid keys and equal.
// Invalid keys are never equal to anything.
func Equal(a, b any) bool {
	c, err := Compare(a, b)
	return err == nil && c == 0
}
