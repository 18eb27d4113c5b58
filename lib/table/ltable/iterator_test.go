package ltable

import (
	"fmt"
	"testing"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/table"
)

// sliceCursor iterates a fixed record slice and counts the steps taken
type sliceCursor struct {
	recs  []db.Record
	pos   int
	steps int
}

func (c *sliceCursor) Next() bool {
	if c.pos >= len(c.recs) {
		return false
	}
	c.pos++
	c.steps++
	return true
}

func (c *sliceCursor) Advance(n int) bool {
	for i := 0; i < n; i++ {
		if !c.Next() {
			return false
		}
	}
	return true
}

func (c *sliceCursor) Key() any         { return c.recs[c.pos-1]["age"] }
func (c *sliceCursor) PrimaryKey() any  { return c.recs[c.pos-1]["id"] }
func (c *sliceCursor) Value() db.Record { return c.recs[c.pos-1] }
func (c *sliceCursor) Err() error       { return nil }
func (c *sliceCursor) Close() error     { return nil }

func ids(out []db.Record) string {
	ids := make([]any, len(out))
	for i, rec := range out {
		ids[i] = rec["id"]
	}
	return fmt.Sprint(ids)
}

func ageCursor() *sliceCursor {
	return &sliceCursor{recs: []db.Record{
		{"id": "a", "age": 22.0},
		{"id": "b", "age": 25.0},
		{"id": "c", "age": 30.0},
		{"id": "d", "age": 31.0},
	}}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name  string
		query table.Query
		want  string
		steps int
	}{
		{"OffsetBeforeFilter", table.Query{Where: &table.Where{Key: "age", Operator: table.OpNotEqual, Value: 22}, Offset: 1}, "[b c d]", 4},
		{"OffsetSkipsFiltered", table.Query{Where: &table.Where{Key: "age", Operator: table.OpNotEqual, Value: 25}, Offset: 2}, "[c d]", 4},
		{"OffsetPastEnd", table.Query{Where: &table.Where{Key: "age", Operator: table.OpIn, Value: []any{22}}, Offset: 5}, "[]", 4},
		{"LimitStopsCursor", table.Query{Limit: 2}, "[a b]", 2},
		{"OffsetAndLimit", table.Query{Where: &table.Where{Key: "age", Operator: table.OpNotIn, Value: []any{30}}, Offset: 1, Limit: 2}, "[b d]", 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := compile(tc.query)
			if err != nil {
				t.Fatalf("compile(%s) failed: %v", tc.query, err)
			}
			cursor := ageCursor()
			out := make([]db.Record, 0)
			err = p.paginate(cursor, func(rec db.Record, err error) bool {
				out = append(out, rec)
				return true
			})
			if err != nil {
				t.Fatalf("paginate failed: %v", err)
			}
			if got := ids(out); got != tc.want {
				t.Errorf("Expected %s, got %s", tc.want, got)
			}
			if cursor.steps != tc.steps {
				t.Errorf("Expected the cursor to move %d times, got %d", tc.steps, cursor.steps)
			}
		})
	}
}
