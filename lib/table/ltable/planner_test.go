package ltable

import (
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/table"
)

func TestCompileRanges(t *testing.T) {
	tests := []struct {
		op      table.Operator
		value   any
		inside  []any
		outside []any
	}{
		{table.OpEqual, 5, []any{5.0}, []any{4.0, 6.0}},
		{table.OpGreater, 5, []any{5.5, 100.0}, []any{5.0, 1.0}},
		{table.OpGreaterOrEqual, 5, []any{5.0, 6.0}, []any{4.9}},
		{table.OpLess, "m", []any{"a", "lzz"}, []any{"m", "z"}},
		{table.OpLessOrEqual, "m", []any{"m"}, []any{"ma"}},
		{table.OpBetween, []int{1, 3}, []any{1.0, 2.0, 3.0}, []any{0.0, 3.1}},
	}

	for _, tc := range tests {
		if !tc.op.IsRange() {
			t.Errorf("Expected %s to be a range operator", tc.op)
		}
		p, err := compile(table.Query{Where: &table.Where{Key: "age", Operator: tc.op, Value: tc.value}})
		if err != nil {
			t.Fatalf("compile(%s) failed: %v", tc.op, err)
		}
		if p.r == nil || p.filter != nil {
			t.Fatalf("Expected %s to compile into a key range without filter", tc.op)
		}
		for _, v := range tc.inside {
			if ok, _ := p.r.Includes(v); !ok {
				t.Errorf("Expected range of %s %v to include %v", tc.op, tc.value, v)
			}
		}
		for _, v := range tc.outside {
			if ok, _ := p.r.Includes(v); ok {
				t.Errorf("Expected range of %s %v to exclude %v", tc.op, tc.value, v)
			}
		}
	}
}

func TestCompileFilters(t *testing.T) {
	for _, op := range []table.Operator{table.OpNotEqual, table.OpIn, table.OpNotIn} {
		if op.IsRange() {
			t.Errorf("Expected %s to need a post-filter", op)
		}
	}

	p, err := compile(table.Query{Where: &table.Where{Key: "age", Operator: table.OpIn, Value: []any{1, 2, 2.0, 3}}})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if p.r != nil || p.filter == nil {
		t.Fatalf("Expected in to compile into a full scan with filter")
	}
	if len(p.values) != 3 {
		t.Errorf("Expected 3 distinct values, got %d", len(p.values))
	}
	if !p.filter(db.Record{"age": 2.0}) || p.filter(db.Record{"age": 4.0}) || p.filter(db.Record{}) {
		t.Errorf("in filter does not match the expected records")
	}

	p, err = compile(table.Query{Where: &table.Where{Key: "age", Operator: table.OpNotEqual, Value: 2}})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if p.filter(db.Record{"age": 2.0}) || !p.filter(db.Record{"age": 3.0}) {
		t.Errorf("!= filter does not match the expected records")
	}

	p, err = compile(table.Query{Where: &table.Where{Key: "age", Operator: table.OpNotIn, Value: []any{2, 3}}})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if p.r != nil || p.filter(db.Record{"age": 3.0}) || !p.filter(db.Record{"age": 4.0}) {
		t.Errorf("not-in filter does not match the expected records")
	}
}

func TestCompileNormalizesValues(t *testing.T) {
	date := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p, err := compile(table.Query{Where: &table.Where{Key: "created", Operator: table.OpEqual, Value: date}})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	// records are stored as JSON, so a date is found by its string form
	if ok, _ := p.r.Includes(date.Format(time.RFC3339Nano)); !ok {
		t.Errorf("Expected the date to be normalized to its JSON string")
	}

	p, err = compile(table.Query{Where: &table.Where{Key: "n", Operator: table.OpEqual, Value: int64(7)}})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if ok, _ := p.r.Includes(7.0); !ok {
		t.Errorf("Expected ints to match their float64 form")
	}
}

func TestCompileOrder(t *testing.T) {
	p, _ := compile(table.Query{OrderBy: &table.OrderBy{Key: "age", Direction: table.Desc}})
	if p.sourceKey != "age" || p.dir != db.DirectionPrev || p.sortKey != "" {
		t.Errorf("Expected a reverse scan of the age index, got %+v", p)
	}

	p, _ = compile(table.Query{
		Where:   &table.Where{Key: "age", Operator: table.OpGreater, Value: 1},
		OrderBy: &table.OrderBy{Key: "age", Direction: table.Desc},
	})
	if p.sourceKey != "age" || p.dir != db.DirectionPrev || p.sortKey != "" {
		t.Errorf("Expected a reverse range scan of the age index, got %+v", p)
	}

	p, _ = compile(table.Query{
		Where:   &table.Where{Key: "age", Operator: table.OpGreater, Value: 1},
		OrderBy: &table.OrderBy{Key: "name", Direction: table.Desc},
	})
	if p.sourceKey != "age" || p.dir != db.DirectionNext || p.sortKey != "name" || !p.sortDesc {
		t.Errorf("Expected a forward scan of the age index sorted by name, got %+v", p)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		query table.Query
		want  error
	}{
		{table.Query{Offset: -1}, table.ErrInvalidQuery},
		{table.Query{OrderBy: &table.OrderBy{Key: "age", Direction: "sideways"}}, table.ErrInvalidQuery},
		{table.Query{Where: &table.Where{Key: "age", Operator: "like", Value: 1}}, table.ErrUnsupportedOperator},
		{table.Query{Where: &table.Where{Key: "age", Operator: table.OpIn, Value: []byte("ab")}}, table.ErrInvalidQuery},
		{table.Query{Where: &table.Where{Key: "age", Operator: table.OpEqual, Value: map[string]any{"a": 1}}}, table.ErrInvalidQuery},
		{table.Query{Where: &table.Where{Key: "age", Operator: table.OpBetween, Value: []any{1, 2, 3}}}, table.ErrInvalidQuery},
	}
	for _, tc := range tests {
		if _, err := compile(tc.query); !errors.Is(err, tc.want) {
			t.Errorf("compile(%s): expected %v, got %v", tc.query, tc.want, err)
		}
	}
}
