package testing

import (
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/goccy/go-json"
)

// ProviderFactory creates a new, empty and ready to use database with the given layout applied.
// Resources should be released with t.Cleanup.
type ProviderFactory func(t testing.TB, layout table.Layout) table.ITableProvider

// Layout is the table layout used by the test suite
var Layout = table.Layout{
	Version: 1,
	Tables: map[string]table.TableLayout{
		"users": {Indexes: []table.IndexLayout{
			{KeyPath: "age"},
			{KeyPath: "name"},
			{KeyPath: "address.city"},
		}},
		"empty": {},
	},
}

type user struct {
	id   string
	name string
	age  int
	city string // "" = no address
}

// users is the fixture of the users table
var users = []user{
	{"u01", "Alice", 30, "Berlin"},
	{"u02", "Bob", 25, "Ulm"},
	{"u03", "Carol", 35, "Berlin"},
	{"u04", "Dave", 30, "Hamburg"},
	{"u05", "Eve", 22, "Ulm"},
	{"u06", "Frank", 40, "Berlin"},
	{"u07", "Grace", 25, "Hamburg"},
	{"u08", "Heidi", 30, "Ulm"},
	{"u09", "Ivan", 28, "Berlin"},
	{"u10", "Judy", 33, ""},
}

func (u user) record() db.Record {
	rec := db.Record{"name": u.name, "age": u.age}
	if u.city != "" {
		rec["address"] = map[string]any{"city": u.city}
	}
	return rec
}

// RunTableTests runs a comprehensive test suite for a table.ITableProvider implementation.
func RunTableTests(t *testing.T, name string, factory ProviderFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Tables", func(t *testing.T) {
			testTables(t, factory(t, Layout))
		})

		t.Run("Add&Get", func(t *testing.T) {
			testAddGet(t, factory(t, Layout))
		})

		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(t, Layout))
		})

		t.Run("DeleteClear", func(t *testing.T) {
			testDeleteClear(t, factory(t, Layout))
		})

		t.Run("Operators", func(t *testing.T) {
			testOperators(t, filled(t, factory))
		})

		t.Run("Complements", func(t *testing.T) {
			testComplements(t, filled(t, factory))
		})

		t.Run("Ordering", func(t *testing.T) {
			testOrdering(t, filled(t, factory))
		})

		t.Run("Pagination", func(t *testing.T) {
			testPagination(t, filled(t, factory))
		})

		t.Run("NestedKeyPath", func(t *testing.T) {
			testNestedKeyPath(t, filled(t, factory))
		})

		t.Run("InvalidQueries", func(t *testing.T) {
			testInvalidQueries(t, filled(t, factory))
		})

		t.Run("Iterate", func(t *testing.T) {
			testIterate(t, filled(t, factory))
		})

		t.Run("CalculateSize", func(t *testing.T) {
			testCalculateSize(t, filled(t, factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func getTable(t testing.TB, provider table.ITableProvider, name string) table.ITableConnector {
	tbl, err := provider.GetTableConnector(name)
	if err != nil {
		t.Fatalf("GetTableConnector(%s) failed: %v", name, err)
	}
	return tbl
}

// filled returns the users table filled with the fixture
func filled(t testing.TB, factory ProviderFactory) table.ITableConnector {
	tbl := getTable(t, factory(t, Layout), "users")
	for _, u := range users {
		if _, err := tbl.Set(u.id, u.record()); err != nil {
			t.Fatalf("Set(%s) failed: %v", u.id, err)
		}
	}
	return tbl
}

func list(t testing.TB, tbl table.ITableConnector, q table.Query) []string {
	recs, err := tbl.List(q)
	if err != nil {
		t.Fatalf("List(%s) failed: %v", q, err)
	}
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i], _ = rec["id"].(string)
	}
	return out
}

func count(t testing.TB, tbl table.ITableConnector, q table.Query) int {
	n, err := tbl.Count(q)
	if err != nil {
		t.Fatalf("Count(%s) failed: %v", q, err)
	}
	return n
}

// expect returns the ids of the fixture users matching fn ordered by (age, id)
func expect(fn func(u user) bool) []string {
	matched := make([]user, 0)
	for _, u := range users {
		if fn(u) {
			matched = append(matched, u)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].age != matched[j].age {
			return matched[i].age < matched[j].age
		}
		return matched[i].id < matched[j].id
	})
	out := make([]string, len(matched))
	for i, u := range matched {
		out[i] = u.id
	}
	return out
}

func sorted(ids []string) []string {
	out := append([]string{}, ids...)
	sort.Strings(out)
	return out
}

func reversed(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

func equal(a, b []string) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// sameRecord compares records by their JSON form (numbers are returned as float64)
func sameRecord(a, b db.Record) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ra) == string(rb)
}

func where(key string, op table.Operator, value any) table.Query {
	return table.Query{Where: &table.Where{Key: key, Operator: op, Value: value}}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testTables(t *testing.T, provider table.ITableProvider) {
	for _, name := range []string{"users", "empty"} {
		if ok, err := provider.HasTable(name); err != nil || !ok {
			t.Errorf("Expected declared table %s to exist (err=%v)", name, err)
		}
	}

	if ok, _ := provider.HasTable("orders"); ok {
		t.Errorf("Expected undeclared table orders to be missing")
	}
	if _, err := provider.GetTableConnector("orders"); !errors.Is(err, table.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}

	if err := provider.CreateTable("orders"); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if ok, _ := provider.HasTable("orders"); !ok {
		t.Errorf("Expected created table to exist")
	}
	if err := provider.CreateTable("orders"); !errors.Is(err, table.ErrTableExists) {
		t.Errorf("Expected ErrTableExists, got %v", err)
	}

	orders := getTable(t, provider, "orders")
	if _, err := orders.Set("o1", db.Record{"total": 12.5}); err != nil {
		t.Errorf("Set on created table failed: %v", err)
	}
	if n := count(t, orders, table.Query{}); n != 1 {
		t.Errorf("Expected 1 record in created table, got %d", n)
	}
}

func testAddGet(t *testing.T, provider table.ITableProvider) {
	tbl := getTable(t, provider, "users")

	value := db.Record{"name": "Alice", "age": 30, "tags": []any{"a", "b"}}
	added, err := tbl.Add(value)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	id, ok := added["id"].(string)
	if !ok || id == "" {
		t.Fatalf("Expected Add to return a record with a generated id, got %v", added)
	}
	if _, ok := value["id"]; ok {
		t.Errorf("Add must not modify the passed value")
	}

	got, found, err := tbl.Get(id)
	if err != nil || !found {
		t.Fatalf("Expected added record to exist (found=%t, err=%v)", found, err)
	}
	if !sameRecord(got, added) {
		t.Errorf("Expected %v, got %v", added, got)
	}

	second, err := tbl.Add(value)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if second["id"] == id {
		t.Errorf("Expected unique ids, got %v twice", id)
	}

	if _, found, err := tbl.Get("missing"); found || err != nil {
		t.Errorf("Expected missing record (found=%t, err=%v)", found, err)
	}
}

func testSetGet(t *testing.T, provider table.ITableProvider) {
	tbl := getTable(t, provider, "users")

	value := db.Record{"name": "Bob", "age": 25, "id": "ignored"}
	stored, err := tbl.Set("bob", value)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if stored["id"] != "bob" {
		t.Errorf("Expected the key to override the id, got %v", stored["id"])
	}

	got, found, err := tbl.Get("bob")
	if err != nil || !found {
		t.Fatalf("Expected record bob to exist (found=%t, err=%v)", found, err)
	}
	want := db.Record{"name": "Bob", "age": 25, "id": "bob"}
	if !sameRecord(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	// replace
	if _, err := tbl.Set("bob", db.Record{"name": "Robert"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, _, _ = tbl.Get("bob")
	if !sameRecord(got, db.Record{"name": "Robert", "id": "bob"}) {
		t.Errorf("Expected the record to be replaced, got %v", got)
	}
	if n := count(t, tbl, where("age", table.OpEqual, 25)); n != 0 {
		t.Errorf("Expected the old index entry to be removed, got %d", n)
	}
}

func testDeleteClear(t *testing.T, provider table.ITableProvider) {
	empty := getTable(t, provider, "empty")
	if err := empty.Clear(); err != nil {
		t.Errorf("Clearing an empty table should succeed: %v", err)
	}
	if err := empty.Delete("missing"); err != nil {
		t.Errorf("Deleting a missing key should be a no-op: %v", err)
	}

	tbl := getTable(t, provider, "users")
	for _, u := range users[:3] {
		if _, err := tbl.Set(u.id, u.record()); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := tbl.Delete("u02"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found, _ := tbl.Get("u02"); found {
		t.Errorf("Expected u02 to be deleted")
	}
	if n := count(t, tbl, table.Query{}); n != 2 {
		t.Errorf("Expected 2 records after delete, got %d", n)
	}

	if err := tbl.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n := count(t, tbl, table.Query{}); n != 0 {
		t.Errorf("Expected 0 records after clear, got %d", n)
	}
	if ids := list(t, tbl, where("age", table.OpGreater, 0)); len(ids) != 0 {
		t.Errorf("Expected empty index after clear, got %v", ids)
	}
}

func testOperators(t *testing.T, tbl table.ITableConnector) {
	all := expect(func(u user) bool { return true })
	if ids := list(t, tbl, table.Query{}); !equal(sorted(ids), sorted(all)) {
		t.Errorf("Expected all users, got %v", ids)
	}
	if n := count(t, tbl, table.Query{}); n != len(users) {
		t.Errorf("Expected count() == %d, got %d", len(users), n)
	}

	tests := []struct {
		name  string
		query table.Query
		want  []string
	}{
		{"Equal", where("age", table.OpEqual, 30), expect(func(u user) bool { return u.age == 30 })},
		{"EqualMissing", where("age", table.OpEqual, 99), expect(func(u user) bool { return false })},
		{"NotEqual", where("age", table.OpNotEqual, 30), expect(func(u user) bool { return u.age != 30 })},
		{"Greater", where("age", table.OpGreater, 30), expect(func(u user) bool { return u.age > 30 })},
		{"GreaterOrEqual", where("age", table.OpGreaterOrEqual, 30), expect(func(u user) bool { return u.age >= 30 })},
		{"Less", where("age", table.OpLess, 28), expect(func(u user) bool { return u.age < 28 })},
		{"LessOrEqual", where("age", table.OpLessOrEqual, 28), expect(func(u user) bool { return u.age <= 28 })},
		{"Between", where("age", table.OpBetween, []any{25, 30}), expect(func(u user) bool { return u.age >= 25 && u.age <= 30 })},
		{"In", where("age", table.OpIn, []any{22, 35, 35, 99}), expect(func(u user) bool { return u.age == 22 || u.age == 35 })},
		{"NotIn", where("age", table.OpNotIn, []int{22, 35}), expect(func(u user) bool { return u.age != 22 && u.age != 35 })},
		{"ZeroValue", where("age", table.OpGreater, 0), expect(func(u user) bool { return true })},
		{"PrimaryKey", where("id", table.OpLessOrEqual, "u03"), []string{"u01", "u02", "u03"}},
		{"PrimaryKeyNotEqual", where("id", table.OpNotEqual, "u01"), sorted(expect(func(u user) bool { return u.id != "u01" }))},
		{"String", where("name", table.OpEqual, "Eve"), []string{"u05"}},
		{"StringRange", where("name", table.OpBetween, []string{"B", "D"}), []string{"u02", "u03"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ids := list(t, tbl, tc.query)
			if !equal(sorted(ids), sorted(tc.want)) {
				t.Errorf("Expected %v, got %v", tc.want, ids)
			}
			if n := count(t, tbl, tc.query); n != len(tc.want) {
				t.Errorf("Expected count %d, got %d", len(tc.want), n)
			}
		})
	}
}

func testComplements(t *testing.T, tbl table.ITableConnector) {
	total := count(t, tbl, table.Query{})

	for _, values := range [][]any{{30}, {25, 30}, {22, 28, 40}, {99}} {
		in := list(t, tbl, where("age", table.OpIn, values))
		notIn := list(t, tbl, where("age", table.OpNotIn, values))

		if len(in)+len(notIn) != total {
			t.Errorf("Expected in and not-in of %v to cover all %d records, got %d + %d", values, total, len(in), len(notIn))
		}
		seen := map[string]bool{}
		for _, id := range in {
			seen[id] = true
		}
		for _, id := range notIn {
			if seen[id] {
				t.Errorf("Record %s is part of in and not-in of %v", id, values)
			}
		}

		var eq []string
		for _, v := range values {
			eq = append(eq, list(t, tbl, where("age", table.OpEqual, v))...)
		}
		if !equal(sorted(eq), sorted(in)) {
			t.Errorf("Expected in %v to equal the union of == queries, got %v vs %v", values, in, eq)
		}

		if count(t, tbl, where("age", table.OpIn, values))+count(t, tbl, where("age", table.OpNotIn, values)) != total {
			t.Errorf("Expected counts of in and not-in of %v to add up to %d", values, total)
		}
	}

	ne := list(t, tbl, where("age", table.OpNotEqual, 25))
	eq := list(t, tbl, where("age", table.OpEqual, 25))
	if len(ne)+len(eq) != total {
		t.Errorf("Expected != and == to be complements, got %d + %d of %d", len(ne), len(eq), total)
	}
}

func testOrdering(t *testing.T, tbl table.ITableConnector) {
	byAge := expect(func(u user) bool { return true })

	asc := list(t, tbl, table.Query{OrderBy: &table.OrderBy{Key: "age", Direction: table.Asc}})
	if !equal(asc, byAge) {
		t.Errorf("Expected ascending order %v, got %v", byAge, asc)
	}

	desc := list(t, tbl, table.Query{OrderBy: &table.OrderBy{Key: "age", Direction: table.Desc}})
	if !equal(desc, reversed(byAge)) {
		t.Errorf("Expected descending order %v, got %v", reversed(byAge), desc)
	}

	// where and order by on the same key use the index order
	ranged := list(t, tbl, table.Query{
		Where:   &table.Where{Key: "age", Operator: table.OpLess, Value: 30},
		OrderBy: &table.OrderBy{Key: "age", Direction: table.Desc},
	})
	if want := reversed(expect(func(u user) bool { return u.age < 30 })); !equal(ranged, want) {
		t.Errorf("Expected %v, got %v", want, ranged)
	}

	// order by a key other than the where key
	byName := list(t, tbl, table.Query{
		Where:   &table.Where{Key: "age", Operator: table.OpGreaterOrEqual, Value: 30},
		OrderBy: &table.OrderBy{Key: "name", Direction: table.Desc},
	})
	if want := []string{"u10", "u08", "u06", "u04", "u03", "u01"}; !equal(byName, want) {
		t.Errorf("Expected %v, got %v", want, byName)
	}

	primary := list(t, tbl, table.Query{OrderBy: &table.OrderBy{Key: "id", Direction: table.Desc}})
	if want := reversed(sorted(byAge)); !equal(primary, want) {
		t.Errorf("Expected %v, got %v", want, primary)
	}
}

func testPagination(t *testing.T, tbl table.ITableConnector) {
	byAge := &table.Query{OrderBy: &table.OrderBy{Key: "age"}}

	// cursor is the unfiltered query scanning the same source in the same order,
	// nil if offset and limit slice the result directly
	cases := []struct {
		query  table.Query
		cursor *table.Query
	}{
		{table.Query{}, nil},
		{table.Query{OrderBy: &table.OrderBy{Key: "age"}}, nil},
		{table.Query{OrderBy: &table.OrderBy{Key: "age", Direction: table.Desc}}, nil},
		{where("age", table.OpGreaterOrEqual, 25), nil},
		{where("age", table.OpNotEqual, 30), byAge},
		{where("age", table.OpIn, []any{25, 30}), byAge},
		{where("age", table.OpNotIn, []any{22, 33}), byAge},
		{
			table.Query{
				Where:   &table.Where{Key: "age", Operator: table.OpNotIn, Value: []any{22}},
				OrderBy: &table.OrderBy{Key: "name"},
			},
			nil,
		},
	}

	for _, tc := range cases {
		full := list(t, tbl, tc.query)
		scanned := full
		if tc.cursor != nil {
			scanned = list(t, tbl, *tc.cursor)
		}
		for offset := 0; offset <= len(scanned)+1; offset++ {
			for limit := 0; limit <= 4; limit++ {
				q := tc.query
				q.Offset, q.Limit = offset, limit

				want := page(scanned, full, offset, limit)
				if got := list(t, tbl, q); !equal(got, want) {
					t.Errorf("Expected list(%s) == %v, got %v", q, want, got)
				}
			}
		}
	}

	// the offset skips cursor records before the filter runs
	q := where("age", table.OpNotEqual, 25)
	q.Offset = 2
	if ids, want := list(t, tbl, q), []string{"u09", "u01", "u04", "u08", "u10", "u03", "u06"}; !equal(ids, want) {
		t.Errorf("Expected list(%s) == %v, got %v", q, want, ids)
	}
	q.Limit = 2
	if ids, want := list(t, tbl, q), []string{"u09", "u01"}; !equal(ids, want) {
		t.Errorf("Expected list(%s) == %v, got %v", q, want, ids)
	}
}

// page skips offset ids of scanned, keeps the ids contained in matching and stops after limit
func page(scanned, matching []string, offset, limit int) []string {
	keep := make(map[string]bool, len(matching))
	for _, id := range matching {
		keep[id] = true
	}
	out := make([]string, 0)
	for _, id := range scanned[min(offset, len(scanned)):] {
		if limit > 0 && len(out) == limit {
			break
		}
		if keep[id] {
			out = append(out, id)
		}
	}
	return out
}

func testNestedKeyPath(t *testing.T, tbl table.ITableConnector) {
	ids := list(t, tbl, where("address.city", table.OpEqual, "Berlin"))
	if want := []string{"u01", "u03", "u06", "u09"}; !equal(ids, want) {
		t.Errorf("Expected %v, got %v", want, ids)
	}

	// records without the key are not part of the index
	byCity := table.Query{OrderBy: &table.OrderBy{Key: "address.city"}}
	if ids := list(t, tbl, byCity); len(ids) != len(users)-1 {
		t.Errorf("Expected %d records in the city index, got %d", len(users)-1, len(ids))
	}
	if n := count(t, tbl, byCity); n != len(users)-1 {
		t.Errorf("Expected count %d for the city index, got %d", len(users)-1, n)
	}
	notBerlin := where("address.city", table.OpNotEqual, "Berlin")
	if ids := list(t, tbl, notBerlin); !equal(ids, []string{"u04", "u07", "u02", "u05", "u08"}) {
		t.Errorf("Expected records outside Berlin in city order, got %v", ids)
	}
	// the complement is taken from the index, u10 has no city
	if n := count(t, tbl, notBerlin); n != 5 {
		t.Errorf("Expected count 5 for records outside Berlin, got %d", n)
	}
}

func testInvalidQueries(t *testing.T, tbl table.ITableConnector) {
	invalid := []struct {
		name  string
		query table.Query
		count error // expected from Count, List always fails with ErrInvalidQuery
	}{
		{"MissingKey", where("", table.OpEqual, 1), table.ErrInvalidQuery},
		{"MissingOperator", where("age", "", 1), table.ErrInvalidQuery},
		{"MissingValue", where("age", table.OpEqual, nil), table.ErrInvalidQuery},
		{"UnknownOperator", where("age", "~=", 1), table.ErrUnsupportedOperator},
		{"UnknownIndex", where("email", table.OpEqual, "x"), table.ErrIndexNotFound},
		{"InvalidValue", where("age", table.OpEqual, true), table.ErrInvalidQuery},
		{"BetweenOneValue", where("age", table.OpBetween, []any{1}), table.ErrInvalidQuery},
		{"BetweenReversed", where("age", table.OpBetween, []any{30, 20}), table.ErrInvalidQuery},
		{"InNoList", where("age", table.OpIn, 5), table.ErrInvalidQuery},
		{"UnknownOrderIndex", table.Query{OrderBy: &table.OrderBy{Key: "email"}}, table.ErrIndexNotFound},
		{"InvalidDirection", table.Query{OrderBy: &table.OrderBy{Key: "age", Direction: "up"}}, table.ErrInvalidQuery},
		{"NegativeLimit", table.Query{Limit: -1}, table.ErrInvalidQuery},
	}

	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tbl.List(tc.query); !errors.Is(err, table.ErrInvalidQuery) {
				t.Errorf("Expected List to fail with ErrInvalidQuery, got %v", err)
			}
			if _, err := tbl.Count(tc.query); !errors.Is(err, tc.count) {
				t.Errorf("Expected Count to fail with %v, got %v", tc.count, err)
			}
		})
	}
}

func testIterate(t *testing.T, tbl table.ITableConnector) {
	q := table.Query{OrderBy: &table.OrderBy{Key: "age"}}
	want := list(t, tbl, q)

	var got []string
	for rec, err := range tbl.Iterate(q) {
		if err != nil {
			t.Fatalf("Iterate failed: %v", err)
		}
		got = append(got, rec["id"].(string))
		if len(got) == 3 {
			break
		}
	}
	if !equal(got, want[:3]) {
		t.Errorf("Expected first 3 records %v, got %v", want[:3], got)
	}

	// a stopped iteration releases its transaction
	if _, err := tbl.Set("u11", db.Record{"name": "Mallory", "age": 50}); err != nil {
		t.Errorf("Set after stopped iteration failed: %v", err)
	}

	for _, err := range tbl.Iterate(where("email", table.OpEqual, "x")) {
		if !errors.Is(err, table.ErrInvalidQuery) {
			t.Errorf("Expected ErrInvalidQuery, got %v", err)
		}
	}
}

func testCalculateSize(t *testing.T, tbl table.ITableConnector) {
	recs, err := tbl.List(table.Query{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := 0
	for _, rec := range recs {
		raw, _ := json.Marshal(rec)
		want += len(raw)
	}

	size, err := tbl.CalculateSize()
	if err != nil {
		t.Fatalf("CalculateSize failed: %v", err)
	}
	if size != want {
		t.Errorf("Expected size %d, got %d", want, size)
	}

	if err := tbl.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if size, _ := tbl.CalculateSize(); size != 0 {
		t.Errorf("Expected size 0 for an empty table, got %d", size)
	}
}
