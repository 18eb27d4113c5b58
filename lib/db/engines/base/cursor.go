package base

import (
	"fmt"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/db/keys"
)

// cursorImpl implements db.Cursor over a store or index bucket.
//
// Index buckets hold composite keys (index key || primary key) that point to the
// primary key, so the record is read from the data bucket. Keys and records are
// decoded lazily.
type cursorImpl struct {
	bc        IBucketCursor
	data      IBucket // data bucket, only set for index cursors
	codec     *codec
	r         *db.KeyRange
	dir       db.Direction
	composite bool

	started bool
	done    bool
	err     error

	// current position
	key   []byte // encoded key in the source
	pk    []byte // encoded primary key
	value []byte // encoded record (store cursors only)
}

func newCursor(bc IBucketCursor, data IBucket, c *codec, r *db.KeyRange, dir db.Direction) *cursorImpl {
	return &cursorImpl{
		bc:        bc,
		data:      data,
		codec:     c,
		r:         r,
		dir:       dir,
		composite: data != nil,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.Cursor)
// --------------------------------------------------------------------------

func (c *cursorImpl) Next() bool {
	if c.done || c.err != nil {
		return false
	}

	var k, v []byte
	if !c.started {
		c.started = true
		k, v = c.seekStart()
	} else if c.dir == db.DirectionPrev {
		k, v = c.bc.Prev()
	} else {
		k, v = c.bc.Next()
	}

	for k != nil {
		sk := k
		if c.composite {
			n, err := keys.Split(k)
			if err != nil {
				c.err = fmt.Errorf("%w: %v", db.ErrCorrupted, err)
				return false
			}
			sk = k[:n]
		}

		if c.dir == db.DirectionPrev {
			if c.r.AboveUpper(sk) {
				k, v = c.bc.Prev()
				continue
			}
			if c.r.BelowLower(sk) {
				break
			}
		} else {
			if c.r.BelowLower(sk) {
				k, v = c.bc.Next()
				continue
			}
			if c.r.AboveUpper(sk) {
				break
			}
		}

		c.key = sk
		if c.composite {
			c.pk = v
			c.value = nil
		} else {
			c.pk = k
			c.value = v
		}
		return true
	}

	c.done = true
	c.key, c.pk, c.value = nil, nil, nil
	return false
}

func (c *cursorImpl) Advance(n int) bool {
	if n < 1 {
		c.err = fmt.Errorf("advance count must be positive, got %d", n)
		return false
	}
	for i := 0; i < n; i++ {
		if !c.Next() {
			return false
		}
	}
	return true
}

func (c *cursorImpl) Key() any {
	return c.decodeKey(c.key)
}

func (c *cursorImpl) PrimaryKey() any {
	return c.decodeKey(c.pk)
}

func (c *cursorImpl) Value() db.Record {
	if c.pk == nil || c.err != nil {
		return nil
	}
	raw := c.value
	if raw == nil && c.data != nil {
		raw = c.data.Get(c.pk)
		if raw == nil {
			c.err = fmt.Errorf("%w: index entry without record", db.ErrCorrupted)
			return nil
		}
	}
	rec, err := c.codec.decode(raw)
	if err != nil {
		c.err = err
		return nil
	}
	return rec
}

func (c *cursorImpl) Err() error {
	return c.err
}

func (c *cursorImpl) Close() error {
	c.done = true
	c.key, c.pk, c.value = nil, nil, nil
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// seekStart moves the bucket cursor to the first candidate of the range
func (c *cursorImpl) seekStart() ([]byte, []byte) {
	if c.dir == db.DirectionPrev {
		if c.r == nil || c.r.UpperBytes() == nil {
			return c.bc.Last()
		}
		upper := c.r.UpperBytes()
		// no encoded key has another encoded key as prefix, so upper||0xFF is
		// greater than every key (and composite key) starting with upper
		seek := append(append(make([]byte, 0, len(upper)+1), upper...), 0xFF)
		if k, _ := c.bc.Seek(seek); k == nil {
			return c.bc.Last()
		}
		return c.bc.Prev()
	}

	if c.r == nil || c.r.LowerBytes() == nil {
		return c.bc.First()
	}
	return c.bc.Seek(c.r.LowerBytes())
}

func (c *cursorImpl) decodeKey(enc []byte) any {
	if enc == nil {
		return nil
	}
	k, _, err := keys.Decode(enc)
	if err != nil {
		c.err = fmt.Errorf("%w: %v", db.ErrCorrupted, err)
		return nil
	}
	return k
}
