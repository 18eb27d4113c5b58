package keys

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"
)

func TestOrder(t *testing.T) {
	// keys in ascending order
	ordered := []any{
		math.Inf(-1),
		-1000.5,
		-1,
		0,
		0.5,
		1,
		42,
		math.Inf(1),
		time.Unix(-10, 0),
		time.Unix(0, 0),
		time.Unix(1700000000, 0),
		"",
		"a",
		"a\x00",
		"a\x00b",
		"ab",
		"b",
		[]byte{},
		[]byte{0x00},
		[]byte{0x01},
		[]any{},
		[]any{1},
		[]any{1, "a"},
		[]any{2},
		[]any{"a"},
		[]any{"a", 1},
		[]any{"a\x00"},
		[]any{[]any{}},
	}

	for i := 0; i < len(ordered)-1; i++ {
		a, err := Encode(ordered[i])
		if err != nil {
			t.Fatalf("Encode(%v) failed: %v", ordered[i], err)
		}
		b, err := Encode(ordered[i+1])
		if err != nil {
			t.Fatalf("Encode(%v) failed: %v", ordered[i+1], err)
		}
		if bytes.Compare(a, b) >= 0 {
			t.Errorf("Expected %v < %v", ordered[i], ordered[i+1])
		}
	}
}

func TestNumberNormalization(t *testing.T) {
	same := []any{int(7), int8(7), int64(7), uint16(7), uint64(7), float32(7), float64(7)}
	for _, v := range same {
		if !Equal(v, 7.0) {
			t.Errorf("Expected %T(%v) to equal 7.0", v, v)
		}
	}

	if !Equal(math.Copysign(0, -1), 0) {
		t.Errorf("Expected -0 to equal 0")
	}

	if !Equal([]string{"a", "b"}, []any{"a", "b"}) {
		t.Errorf("Expected typed slices to equal []any")
	}
}

func TestInvalidKeys(t *testing.T) {
	invalid := []any{nil, true, false, math.NaN(), map[string]any{"a": 1}, struct{}{}, []any{1, nil}}
	for _, v := range invalid {
		if Valid(v) {
			t.Errorf("Expected %v (%T) to be invalid", v, v)
		}
		if _, err := Encode(v); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Expected ErrInvalidKey for %v, got %v", v, err)
		}
		if Equal(v, v) {
			t.Errorf("Invalid keys must never be equal")
		}
	}
}

func TestDecode(t *testing.T) {
	values := []any{
		-3.25,
		0.0,
		1e300,
		time.Unix(1700000000, 123).UTC(),
		"hello\x00world",
		[]byte{0x00, 0xFF, 0x00},
		[]any{1.0, "x", []any{2.0}},
	}

	for _, v := range values {
		enc, err := Encode(v)
		if err != nil {
			t.Fatalf("Encode(%v) failed: %v", v, err)
		}
		dec, n, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode(%v) failed: %v", v, err)
		}
		if n != len(enc) {
			t.Errorf("Expected %d bytes consumed, got %d", len(enc), n)
		}
		if !Equal(dec, v) {
			t.Errorf("Expected decoded %v to equal %v", dec, v)
		}
	}
}

func TestSplitComposite(t *testing.T) {
	indexKey := MustEncode("abc\x00")
	primaryKey := MustEncode([]any{"id", 7})
	composite := append(append([]byte{}, indexKey...), primaryKey...)

	n, err := Split(composite)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if !bytes.Equal(composite[:n], indexKey) {
		t.Errorf("Expected first part %x, got %x", indexKey, composite[:n])
	}
	if !bytes.Equal(composite[n:], primaryKey) {
		t.Errorf("Expected second part %x, got %x", primaryKey, composite[n:])
	}

	if _, err := Split([]byte{tagString, 'a'}); err == nil {
		t.Errorf("Expected error for unterminated string")
	}
}
