package ltable

import (
	"bytes"
	"errors"
	"iter"
	"sort"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/db/keys"
)

// errStopped ends the read transaction when the consumer stops early
var errStopped = errors.New("iteration stopped")

// scan returns the records selected by the plan as a lazy sequence.
//
// The sequence drives an engine cursor inside a single read transaction. It
// advances past offset records, applies the post-filter and stops after limit
// matches (0 = unbounded), when the cursor is exhausted or when the consumer
// stops. With a buffered sort, offset and limit slice the sorted matches. An error is yielded once as the last element. Every range over the
// sequence runs a new read transaction.
func scan(engine db.Engine, storeName string, p *plan) iter.Seq2[db.Record, error] {
	return func(yield func(db.Record, error) bool) {
		err := engine.View(func(tx db.Tx) error {
			store, err := tx.Store(storeName)
			if err != nil {
				return err
			}
			src, err := p.source(store)
			if err != nil {
				return err
			}
			cursor, err := src.OpenCursor(p.r, p.dir)
			if err != nil {
				return err
			}
			defer cursor.Close()

			if p.sortKey != "" {
				return p.sorted(cursor, yield)
			}
			return p.paginate(cursor, yield)
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield(nil, err)
		}
	}
}

// paginate yields the matching records of the cursor in cursor order.
// The offset advances the raw cursor, so records removed by the post-filter still count towards it.
func (p *plan) paginate(cursor db.Cursor, yield func(db.Record, error) bool) error {
	limit, offset := p.query.Limit, p.query.Offset

	if offset > 0 && !cursor.Advance(offset) {
		return cursor.Err()
	}

	yielded := 0
	for limit == 0 || yielded < limit {
		if !cursor.Next() {
			break
		}
		rec := cursor.Value()
		if rec == nil {
			break
		}
		if p.filter != nil && !p.filter(rec) {
			continue
		}
		yielded++
		if !yield(rec, nil) {
			return errStopped
		}
	}
	return cursor.Err()
}

// sorted buffers all matching records, orders them by the sort key and yields the requested page.
// Records without a valid key at the sort key are ordered after all others.
func (p *plan) sorted(cursor db.Cursor, yield func(db.Record, error) bool) error {
	type entry struct {
		rec db.Record
		key []byte // nil = no valid key
	}

	var entries []entry
	for cursor.Next() {
		rec := cursor.Value()
		if rec == nil {
			break
		}
		if p.filter != nil && !p.filter(rec) {
			continue
		}
		e := entry{rec: rec}
		if v, ok := rec.Lookup(p.sortKey); ok {
			if enc, err := keys.Encode(v); err == nil {
				e.key = enc
			}
		}
		entries = append(entries, e)
	}
	if err := cursor.Err(); err != nil {
		return err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].key, entries[j].key
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case p.sortDesc:
			return bytes.Compare(a, b) > 0
		default:
			return bytes.Compare(a, b) < 0
		}
	})

	start := min(p.query.Offset, len(entries))
	end := len(entries)
	if p.query.Limit > 0 {
		end = min(start+p.query.Limit, end)
	}
	for _, e := range entries[start:end] {
		if !yield(e.rec, nil) {
			return errStopped
		}
	}
	return nil
}
