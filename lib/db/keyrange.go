package db

import (
	"bytes"
	"fmt"

	"github.com/ValentinKolb/tKV/lib/db/keys"
)

// KeyRange represents a continuous interval over keys.
// Records can be counted and iterated by key range in object stores and indexes.
// The bounds are stored in their encoded form, see the keys package.
type KeyRange struct {
	lower, upper         []byte // nil = unbounded
	lowerKey, upperKey   any
	lowerOpen, upperOpen bool
}

// Only creates a key range containing a single key.
func Only(key any) (*KeyRange, error) {
	enc, err := keys.Encode(key)
	if err != nil {
		return nil, err
	}
	return &KeyRange{lower: enc, upper: enc, lowerKey: key, upperKey: key}, nil
}

// LowerBound creates a key range with only a lower bound.
// If open is true the bound itself is excluded.
func LowerBound(lower any, open bool) (*KeyRange, error) {
	enc, err := keys.Encode(lower)
	if err != nil {
		return nil, err
	}
	return &KeyRange{lower: enc, lowerKey: lower, lowerOpen: open}, nil
}

// UpperBound creates a key range with only an upper bound.
// If open is true the bound itself is excluded.
func UpperBound(upper any, open bool) (*KeyRange, error) {
	enc, err := keys.Encode(upper)
	if err != nil {
		return nil, err
	}
	return &KeyRange{upper: enc, upperKey: upper, upperOpen: open}, nil
}

// Bound creates a key range with a lower and an upper bound.
// It fails with ErrInvalidRange if lower is greater than upper,
// or if both are equal and one of the bounds is open.
func Bound(lower, upper any, lowerOpen, upperOpen bool) (*KeyRange, error) {
	lo, err := keys.Encode(lower)
	if err != nil {
		return nil, err
	}
	hi, err := keys.Encode(upper)
	if err != nil {
		return nil, err
	}
	c := bytes.Compare(lo, hi)
	if c > 0 || (c == 0 && (lowerOpen || upperOpen)) {
		return nil, fmt.Errorf("%w: lower bound %v is not below upper bound %v", ErrInvalidRange, lower, upper)
	}
	return &KeyRange{
		lower: lo, upper: hi,
		lowerKey: lower, upperKey: upper,
		lowerOpen: lowerOpen, upperOpen: upperOpen,
	}, nil
}

// Lower returns the lower bound (nil if unbounded).
func (r *KeyRange) Lower() any { return r.lowerKey }

// Upper returns the upper bound (nil if unbounded).
func (r *KeyRange) Upper() any { return r.upperKey }

// LowerOpen returns false if the lower bound is included in the range.
func (r *KeyRange) LowerOpen() bool { return r.lowerOpen }

// UpperOpen returns false if the upper bound is included in the range.
func (r *KeyRange) UpperOpen() bool { return r.upperOpen }

// LowerBytes returns the encoded lower bound (nil if unbounded).
func (r *KeyRange) LowerBytes() []byte { return r.lower }

// UpperBytes returns the encoded upper bound (nil if unbounded).
func (r *KeyRange) UpperBytes() []byte { return r.upper }

// Includes reports whether key is inside the range.
func (r *KeyRange) Includes(key any) (bool, error) {
	enc, err := keys.Encode(key)
	if err != nil {
		return false, err
	}
	return r.IncludesEncoded(enc), nil
}

// IncludesEncoded is like Includes for an already encoded key.
// A nil range includes every key.
func (r *KeyRange) IncludesEncoded(enc []byte) bool {
	if r == nil {
		return true
	}
	return !r.BelowLower(enc) && !r.AboveUpper(enc)
}

// BelowLower reports whether enc lies before the lower bound.
func (r *KeyRange) BelowLower(enc []byte) bool {
	if r == nil || r.lower == nil {
		return false
	}
	c := bytes.Compare(enc, r.lower)
	return c < 0 || (c == 0 && r.lowerOpen)
}

// AboveUpper reports whether enc lies after the upper bound.
func (r *KeyRange) AboveUpper(enc []byte) bool {
	if r == nil || r.upper == nil {
		return false
	}
	c := bytes.Compare(enc, r.upper)
	return c > 0 || (c == 0 && r.upperOpen)
}

func (r *KeyRange) String() string {
	if r == nil {
		return "(-inf, +inf)"
	}
	lo, hi := "(-inf", "+inf)"
	if r.lower != nil {
		lo = fmt.Sprintf("[%v", r.lowerKey)
		if r.lowerOpen {
			lo = fmt.Sprintf("(%v", r.lowerKey)
		}
	}
	if r.upper != nil {
		hi = fmt.Sprintf("%v]", r.upperKey)
		if r.upperOpen {
			hi = fmt.Sprintf("%v)", r.upperKey)
		}
	}
	return lo + ", " + hi
}
