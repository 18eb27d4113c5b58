package ltable

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/db/keys"
	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/goccy/go-json"
)

// plan is a compiled query. It is independent of a transaction and selects
// the source to scan, the key range, the scan direction and an optional post-filter.
type plan struct {
	query table.Query

	sourceKey string               // key path of the scanned source ("" = primary store)
	r         *db.KeyRange         // nil = full scan
	dir       db.Direction         // scan direction
	values    [][]byte             // distinct encoded values of in, not-in and !=
	filter    func(db.Record) bool // post-filter (nil = every record of the range matches)

	sortKey  string // buffered sort key, set if the order key differs from the scanned source
	sortDesc bool
}

// compile validates a query and builds its plan.
//
//   - ==           -> Only(v)
//   - > / >=       -> LowerBound(v, open / closed)
//   - < / <=       -> UpperBound(v, open / closed)
//   - between      -> Bound(v0, v1) (closed)
//   - !=, in, not-in -> full scan of the source with a post-filter
func compile(q table.Query) (*plan, error) {
	p := &plan{query: q, dir: db.DirectionNext}

	if q.Limit < 0 || q.Offset < 0 {
		return nil, table.WrapError(table.RetCInvalidQuery, "invalid query",
			fmt.Errorf("limit and offset must not be negative (limit=%d, offset=%d)", q.Limit, q.Offset))
	}

	if q.OrderBy != nil {
		switch q.OrderBy.Direction {
		case "", table.Asc:
		case table.Desc:
			p.dir = db.DirectionPrev
		default:
			return nil, table.WrapError(table.RetCInvalidQuery, "invalid query",
				fmt.Errorf("invalid order direction: %s", q.OrderBy.Direction))
		}
		p.sourceKey = q.OrderBy.Key
	}

	if q.Where == nil {
		return p, nil
	}

	w := q.Where
	switch {
	case w.Key == "":
		return nil, table.WrapError(table.RetCInvalidQuery, "invalid query", fmt.Errorf("where clause must have a key"))
	case w.Operator == "":
		return nil, table.WrapError(table.RetCInvalidQuery, "invalid query", fmt.Errorf("where clause must have an operator"))
	case w.Value == nil:
		return nil, table.WrapError(table.RetCInvalidQuery, "invalid query", fmt.Errorf("where clause must have a value"))
	case !w.Operator.Valid():
		return nil, table.WrapError(table.RetCUnsupportedOperator, "unsupported operator", fmt.Errorf("invalid operator: %s", w.Operator))
	}

	// the where key decides the source, ordering by another key needs a buffered sort
	p.sourceKey = w.Key
	if q.OrderBy != nil && q.OrderBy.Key != "" && q.OrderBy.Key != w.Key {
		p.sortKey = q.OrderBy.Key
		p.sortDesc = p.dir == db.DirectionPrev
		p.dir = db.DirectionNext
	}

	var err error
	switch {
	case w.Operator == table.OpBetween:
		var vals []any
		if vals, err = queryList(w.Value); err != nil {
			return nil, err
		}
		if len(vals) != 2 {
			return nil, table.WrapError(table.RetCInvalidQuery, "invalid query",
				fmt.Errorf("between requires exactly 2 values, got %d", len(vals)))
		}
		p.r, err = db.Bound(vals[0], vals[1], false, false)

	case w.Operator.IsRange():
		var v any
		if v, err = queryKey(w.Value); err != nil {
			return nil, err
		}
		switch w.Operator {
		case table.OpEqual:
			p.r, err = db.Only(v)
		case table.OpGreater, table.OpGreaterOrEqual:
			p.r, err = db.LowerBound(v, w.Operator == table.OpGreater)
		default:
			p.r, err = db.UpperBound(v, w.Operator == table.OpLess)
		}

	// the remaining operators scan the whole source with a post-filter
	case w.Operator == table.OpNotEqual:
		var v any
		if v, err = queryKey(w.Value); err != nil {
			return nil, err
		}
		p.values = [][]byte{keys.MustEncode(v)}
		p.filter = p.excludes(w.Key)

	default:
		var vals []any
		if vals, err = queryList(w.Value); err != nil {
			return nil, err
		}
		p.values = distinct(vals)
		if w.Operator == table.OpIn {
			p.filter = p.includes(w.Key)
		} else {
			p.filter = p.excludes(w.Key)
		}
	}
	if err != nil {
		return nil, table.WrapError(table.RetCInvalidQuery, "invalid query", err)
	}

	return p, nil
}

// source returns the store or index to scan
func (p *plan) source(store db.ObjectStore) (db.Source, error) {
	return sourceFor(store, p.sourceKey)
}

// sourceFor returns the primary store if key is its key path (or empty), otherwise the index named key
func sourceFor(store db.ObjectStore, key string) (db.Source, error) {
	if key == "" || key == store.KeyPath() {
		return store, nil
	}
	idx, err := store.Index(key)
	if err != nil {
		return nil, table.WrapError(table.RetCIndexNotFound, "index not found", err)
	}
	return idx, nil
}

// count returns the number of matching records in the source, so it equals the length of the
// unpaginated listing. in is counted as the sum of equality counts, != and not-in as the
// source total minus that sum.
func (p *plan) count(store db.ObjectStore) (int, error) {
	src, err := p.source(store)
	if err != nil {
		return 0, err
	}
	if p.filter == nil {
		return src.Count(p.r)
	}

	matching := 0
	for _, enc := range p.values {
		v, _, err := keys.Decode(enc)
		if err != nil {
			return 0, err
		}
		r, err := db.Only(v)
		if err != nil {
			return 0, err
		}
		n, err := src.Count(r)
		if err != nil {
			return 0, err
		}
		matching += n
	}

	if p.query.Where.Operator == table.OpIn {
		return matching, nil
	}
	total, err := src.Count(nil)
	if err != nil {
		return 0, err
	}
	return total - matching, nil
}

// --------------------------------------------------------------------------
// Post-filters
// --------------------------------------------------------------------------

func (p *plan) contains(rec db.Record, key string) bool {
	v, ok := rec.Lookup(key)
	if !ok {
		return false
	}
	enc, err := keys.Encode(v)
	if err != nil {
		return false
	}
	for _, val := range p.values {
		if bytes.Equal(enc, val) {
			return true
		}
	}
	return false
}

func (p *plan) includes(key string) func(db.Record) bool {
	return func(rec db.Record) bool {
		return p.contains(rec, key)
	}
}

func (p *plan) excludes(key string) func(db.Record) bool {
	return func(rec db.Record) bool {
		return !p.contains(rec, key)
	}
}

// --------------------------------------------------------------------------
// Value helpers
// --------------------------------------------------------------------------

// normalize converts a query value into the form it has in a stored record.
// Records are stored as JSON, so e.g. ints become float64 and dates become strings.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// queryKey normalizes a single where value and checks that it is a valid key
func queryKey(v any) (any, error) {
	n, err := normalize(v)
	if err != nil {
		return nil, table.WrapError(table.RetCInvalidQuery, "invalid query", err)
	}
	if _, err := keys.Encode(n); err != nil {
		return nil, table.WrapError(table.RetCInvalidQuery, "invalid query", fmt.Errorf("where value %v: %w", v, err))
	}
	return n, nil
}

// queryList normalizes a list of where values
func queryList(v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	if _, isBinary := v.([]byte); isBinary || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, table.WrapError(table.RetCInvalidQuery, "invalid query", fmt.Errorf("where value must be a list, got %T", v))
	}
	out := make([]any, rv.Len())
	for i := range out {
		k, err := queryKey(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = k
	}
	return out, nil
}

// distinct returns the encoded distinct values in their original order
func distinct(vals []any) [][]byte {
	seen := map[string]bool{}
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		enc := keys.MustEncode(v)
		if seen[string(enc)] {
			continue
		}
		seen[string(enc)] = true
		out = append(out, enc)
	}
	return out
}
