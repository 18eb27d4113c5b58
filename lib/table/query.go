package table

import (
	"fmt"
	"strings"
)

// Operator is a comparison operator of a where clause
type Operator string

const (
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpBetween        Operator = "between" // Value must be a list [lower, upper] (both inclusive)
	OpIn             Operator = "in"      // Value must be a list
	OpNotIn          Operator = "not-in"  // Value must be a list
)

// Operators lists all supported operators
var Operators = []Operator{
	OpEqual, OpNotEqual, OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual, OpBetween, OpIn, OpNotIn,
}

// Valid reports whether o is a supported operator
func (o Operator) Valid() bool {
	for _, op := range Operators {
		if op == o {
			return true
		}
	}
	return false
}

// IsRange reports whether the operator selects a single contiguous key range
func (o Operator) IsRange() bool {
	switch o {
	case OpEqual, OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual, OpBetween:
		return true
	default:
		return false
	}
}

// Direction is the order of a query result
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Where filters records by the value at a key path
type Where struct {
	Key      string   `json:"key"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// OrderBy orders records by the value at a key path
type OrderBy struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction,omitempty"`
}

// Query selects records of a table. The zero value selects all records.
type Query struct {
	Where   *Where   `json:"where,omitempty"`
	OrderBy *OrderBy `json:"orderBy,omitempty"`
	Limit   int      `json:"limit,omitempty"`  // 0 = unbounded
	Offset  int      `json:"offset,omitempty"` // number of cursor records to skip
}

func (q Query) String() string {
	var parts []string
	if q.Where != nil {
		parts = append(parts, fmt.Sprintf("where %s %s %v", q.Where.Key, q.Where.Operator, q.Where.Value))
	}
	if q.OrderBy != nil {
		dir := q.OrderBy.Direction
		if dir == "" {
			dir = Asc
		}
		parts = append(parts, fmt.Sprintf("order by %s %s", q.OrderBy.Key, dir))
	}
	if q.Limit > 0 {
		parts = append(parts, fmt.Sprintf("limit %d", q.Limit))
	}
	if q.Offset > 0 {
		parts = append(parts, fmt.Sprintf("offset %d", q.Offset))
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, " ")
}
