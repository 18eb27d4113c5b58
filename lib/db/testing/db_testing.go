package testing

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/tKV/lib/db"
)

// RunEngineTests runs a comprehensive test suite for an Engine implementation.
// The factory must return a new, empty engine on every call.
func RunEngineTests(t *testing.T, name string, factory db.EngineFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Upgrade", func(t *testing.T) {
			testUpgrade(t, open(t, factory))
		})

		t.Run("Put&Get", func(t *testing.T) {
			testPutGet(t, open(t, factory))
		})

		t.Run("ReadOnly", func(t *testing.T) {
			testReadOnly(t, open(t, factory))
		})

		t.Run("Rollback", func(t *testing.T) {
			testRollback(t, open(t, factory))
		})

		t.Run("KeyRanges", func(t *testing.T) {
			testKeyRanges(t, open(t, factory))
		})

		t.Run("Cursor", func(t *testing.T) {
			testCursor(t, open(t, factory))
		})

		t.Run("Indexes", func(t *testing.T) {
			testIndexes(t, open(t, factory))
		})

		t.Run("IndexRanges", func(t *testing.T) {
			testIndexRanges(t, open(t, factory))
		})

		t.Run("CreateIndexPopulates", func(t *testing.T) {
			testCreateIndexPopulates(t, open(t, factory))
		})

		t.Run("Clear", func(t *testing.T) {
			testClear(t, open(t, factory))
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("Concurrency", func(t *testing.T) {
			testConcurrency(t, open(t, factory))
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, open(t, factory))
		})

		t.Run("Closed", func(t *testing.T) {
			testClosed(t, open(t, factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, engine db.Engine, feature db.Feature) {
	if !engine.SupportsFeature(feature) {
		t.Skip()
	}
}

func open(t testing.TB, factory db.EngineFactory) db.Engine {
	engine, err := factory()
	if err != nil {
		t.Fatalf("Failed to open engine: %v", err)
	}
	return engine
}

// createStore creates an object store (and indexes) in a version change transaction
func createStore(t testing.TB, engine db.Engine, name, keyPath string, indexes ...string) {
	err := engine.Migrate(func(tx db.UpgradeTx) error {
		store, err := tx.CreateStore(name, keyPath)
		if err != nil {
			return err
		}
		for _, idx := range indexes {
			if _, err := store.CreateIndex(idx, idx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to create store %s: %v", name, err)
	}
}

// putAll writes all records in a single transaction
func putAll(t testing.TB, engine db.Engine, name string, records ...db.Record) {
	err := engine.Update(func(tx db.Tx) error {
		store, err := tx.Store(name)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if err := store.Put(rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to put records: %v", err)
	}
}

// collect returns the primary keys visited by a cursor over src
func collect(t testing.TB, engine db.Engine, store, index string, r *db.KeyRange, dir db.Direction) []any {
	var out []any
	err := engine.View(func(tx db.Tx) error {
		s, err := tx.Store(store)
		if err != nil {
			return err
		}
		var src db.Source = s
		if index != "" {
			if src, err = s.Index(index); err != nil {
				return err
			}
		}
		c, err := src.OpenCursor(r, dir)
		if err != nil {
			return err
		}
		defer c.Close()
		for c.Next() {
			out = append(out, c.PrimaryKey())
		}
		return c.Err()
	})
	if err != nil {
		t.Fatalf("Cursor failed: %v", err)
	}
	return out
}

func count(t testing.TB, engine db.Engine, store, index string, r *db.KeyRange) int {
	var n int
	err := engine.View(func(tx db.Tx) error {
		s, err := tx.Store(store)
		if err != nil {
			return err
		}
		var src db.Source = s
		if index != "" {
			if src, err = s.Index(index); err != nil {
				return err
			}
		}
		n, err = src.Count(r)
		return err
	})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	return n
}

func mustRange(t testing.TB) func(r *db.KeyRange, err error) *db.KeyRange {
	return func(r *db.KeyRange, err error) *db.KeyRange {
		if err != nil {
			t.Fatalf("Failed to create key range: %v", err)
		}
		return r
	}
}

func equalKeys(a, b []any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testUpgrade(t *testing.T, engine db.Engine) {
	defer engine.Close()

	version, err := engine.Version()
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if version != 0 {
		t.Errorf("Expected version 0 for a new database, got %d", version)
	}

	err = engine.Upgrade(1, func(tx db.UpgradeTx) error {
		store, err := tx.CreateStore("users", "id")
		if err != nil {
			return err
		}
		_, err = store.CreateIndex("age", "age")
		return err
	})
	if err != nil {
		t.Fatalf("Upgrade failed: %v", err)
	}

	if version, _ = engine.Version(); version != 1 {
		t.Errorf("Expected version 1, got %d", version)
	}

	err = engine.Upgrade(0, func(tx db.UpgradeTx) error { return nil })
	if !errors.Is(err, db.ErrVersion) {
		t.Errorf("Expected ErrVersion when downgrading, got %v", err)
	}

	// a failing upgrade must not change anything
	err = engine.Upgrade(2, func(tx db.UpgradeTx) error {
		if _, err := tx.CreateStore("orders", "id"); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	if err == nil {
		t.Errorf("Expected failing upgrade to return an error")
	}
	if version, _ = engine.Version(); version != 1 {
		t.Errorf("Expected version 1 after failed upgrade, got %d", version)
	}

	err = engine.Migrate(func(tx db.UpgradeTx) error {
		if tx.HasStore("orders") {
			t.Errorf("Store of failed upgrade should not exist")
		}
		if _, err := tx.CreateStore("users", "id"); !errors.Is(err, db.ErrStoreExists) {
			t.Errorf("Expected ErrStoreExists, got %v", err)
		}
		store, err := tx.Store("users")
		if err != nil {
			return err
		}
		if _, err := store.CreateIndex("age", "age"); !errors.Is(err, db.ErrIndexExists) {
			t.Errorf("Expected ErrIndexExists, got %v", err)
		}
		if names := store.IndexNames(); len(names) != 1 || names[0] != "age" {
			t.Errorf("Expected index names [age], got %v", names)
		}
		if store.KeyPath() != "id" {
			t.Errorf("Expected key path id, got %s", store.KeyPath())
		}
		if err := tx.DeleteStore("missing"); !errors.Is(err, db.ErrStoreNotFound) {
			t.Errorf("Expected ErrStoreNotFound, got %v", err)
		}
		return store.DeleteIndex("age")
	})
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	_ = engine.View(func(tx db.Tx) error {
		store, err := tx.Store("users")
		if err != nil {
			t.Fatalf("Expected store users: %v", err)
		}
		if _, err := store.Index("age"); !errors.Is(err, db.ErrIndexNotFound) {
			t.Errorf("Expected ErrIndexNotFound after DeleteIndex, got %v", err)
		}
		if _, err := tx.Store("orders"); !errors.Is(err, db.ErrStoreNotFound) {
			t.Errorf("Expected ErrStoreNotFound, got %v", err)
		}
		if _, err := store.CreateIndex("x", "x"); !errors.Is(err, db.ErrNotVersionChange) {
			t.Errorf("Expected ErrNotVersionChange outside of upgrade, got %v", err)
		}
		return nil
	})
}

func testPutGet(t *testing.T, engine db.Engine) {
	defer engine.Close()
	createStore(t, engine, "users", "id")

	putAll(t, engine, "users",
		db.Record{"id": "u1", "name": "Alice", "age": 30},
		db.Record{"id": "u2", "name": "Bob", "age": 25, "address": map[string]any{"city": "Ulm"}},
	)

	err := engine.Update(func(tx db.Tx) error {
		store, err := tx.Store("users")
		if err != nil {
			return err
		}

		rec, found, err := store.Get("u1")
		if err != nil || !found {
			t.Fatalf("Expected u1 to exist (found=%t, err=%v)", found, err)
		}
		if rec["name"] != "Alice" {
			t.Errorf("Expected name Alice, got %v", rec["name"])
		}
		if rec["age"] != float64(30) {
			t.Errorf("Expected numbers to be returned as float64, got %T", rec["age"])
		}

		rec, _, _ = store.Get("u2")
		if city, _ := rec.Lookup("address.city"); city != "Ulm" {
			t.Errorf("Expected nested value Ulm, got %v", city)
		}

		// overwrite
		if err := store.Put(db.Record{"id": "u1", "name": "Alicia"}); err != nil {
			t.Errorf("Put failed: %v", err)
		}
		rec, _, _ = store.Get("u1")
		if rec["name"] != "Alicia" {
			t.Errorf("Expected overwritten name Alicia, got %v", rec["name"])
		}
		if _, ok := rec["age"]; ok {
			t.Errorf("Put should replace the whole record")
		}

		if err := store.Add(db.Record{"id": "u1"}); !errors.Is(err, db.ErrKeyExists) {
			t.Errorf("Expected ErrKeyExists, got %v", err)
		}
		if err := store.Add(db.Record{"id": "u3", "name": "Carol"}); err != nil {
			t.Errorf("Add failed: %v", err)
		}

		if err := store.Put(db.Record{"name": "no key"}); !errors.Is(err, db.ErrMissingKey) {
			t.Errorf("Expected ErrMissingKey, got %v", err)
		}
		if err := store.Put(db.Record{"id": true}); !errors.Is(err, db.ErrMissingKey) {
			t.Errorf("Expected ErrMissingKey for invalid key, got %v", err)
		}

		if _, found, _ := store.Get("missing"); found {
			t.Errorf("Expected missing key to return found=false")
		}
		if _, _, err := store.Get(nil); err == nil {
			t.Errorf("Expected error for invalid key")
		}

		if err := store.Delete("u2"); err != nil {
			t.Errorf("Delete failed: %v", err)
		}
		if err := store.Delete("missing"); err != nil {
			t.Errorf("Deleting a missing key should not fail: %v", err)
		}
		if _, found, _ := store.Get("u2"); found {
			t.Errorf("Expected u2 to be deleted")
		}

		n, err := store.Count(nil)
		if err != nil || n != 2 {
			t.Errorf("Expected 2 records, got %d (%v)", n, err)
		}

		// mutating a returned record must not change the stored one
		rec, _, _ = store.Get("u3")
		rec["name"] = "changed"
		rec, _, _ = store.Get("u3")
		if rec["name"] != "Carol" {
			t.Errorf("Get should return a copy, got %v", rec["name"])
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func testReadOnly(t *testing.T, engine db.Engine) {
	defer engine.Close()
	createStore(t, engine, "items", "id")

	_ = engine.View(func(tx db.Tx) error {
		if tx.Writable() {
			t.Errorf("View transaction should not be writable")
		}
		store, err := tx.Store("items")
		if err != nil {
			t.Fatalf("Store failed: %v", err)
		}
		if err := store.Put(db.Record{"id": 1}); !errors.Is(err, db.ErrReadOnly) {
			t.Errorf("Expected ErrReadOnly for Put, got %v", err)
		}
		if err := store.Delete(1); !errors.Is(err, db.ErrReadOnly) {
			t.Errorf("Expected ErrReadOnly for Delete, got %v", err)
		}
		if err := store.Clear(); !errors.Is(err, db.ErrReadOnly) {
			t.Errorf("Expected ErrReadOnly for Clear, got %v", err)
		}
		return nil
	})
}

func testRollback(t *testing.T, engine db.Engine) {
	defer engine.Close()
	createStore(t, engine, "items", "id", "group")
	putAll(t, engine, "items", db.Record{"id": 1, "group": "a"})

	abort := fmt.Errorf("abort")
	err := engine.Update(func(tx db.Tx) error {
		store, err := tx.Store("items")
		if err != nil {
			return err
		}
		if err := store.Put(db.Record{"id": 2, "group": "b"}); err != nil {
			return err
		}
		if err := store.Delete(1); err != nil {
			return err
		}
		return abort
	})
	if !errors.Is(err, abort) {
		t.Fatalf("Expected abort error, got %v", err)
	}

	if keys := collect(t, engine, "items", "", nil, db.DirectionNext); !equalKeys(keys, []any{1.0}) {
		t.Errorf("Expected only record 1 after rollback, got %v", keys)
	}
	if n := count(t, engine, "items", "group", nil); n != 1 {
		t.Errorf("Expected 1 index entry after rollback, got %d", n)
	}
}

func testKeyRanges(t *testing.T, engine db.Engine) {
	defer engine.Close()
	createStore(t, engine, "numbers", "n")

	for i := 1; i <= 10; i++ {
		putAll(t, engine, "numbers", db.Record{"n": i})
	}

	must := mustRange(t)
	tests := []struct {
		name  string
		r     *db.KeyRange
		count int
	}{
		{"All", nil, 10},
		{"Only", must(db.Only(5)), 1},
		{"OnlyMissing", must(db.Only(42)), 0},
		{"LowerBound", must(db.LowerBound(5, false)), 6},
		{"LowerBoundOpen", must(db.LowerBound(5, true)), 5},
		{"UpperBound", must(db.UpperBound(3, false)), 3},
		{"UpperBoundOpen", must(db.UpperBound(3, true)), 2},
		{"Bound", must(db.Bound(3, 7, false, false)), 5},
		{"BoundOpen", must(db.Bound(3, 7, true, true)), 3},
		{"BoundLowerOpen", must(db.Bound(3, 7, true, false)), 4},
		{"OtherType", must(db.LowerBound("a", false)), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if n := count(t, engine, "numbers", "", tc.r); n != tc.count {
				t.Errorf("Expected count %d for %v, got %d", tc.count, tc.r, n)
			}
			if keys := collect(t, engine, "numbers", "", tc.r, db.DirectionNext); len(keys) != tc.count {
				t.Errorf("Expected %d records for %v, got %d", tc.count, tc.r, len(keys))
			}
			if keys := collect(t, engine, "numbers", "", tc.r, db.DirectionPrev); len(keys) != tc.count {
				t.Errorf("Expected %d records in reverse for %v, got %d", tc.count, tc.r, len(keys))
			}
		})
	}

	if _, err := db.Bound(7, 3, false, false); !errors.Is(err, db.ErrInvalidRange) {
		t.Errorf("Expected ErrInvalidRange for lower > upper, got %v", err)
	}
	if _, err := db.Bound(3, 3, true, false); !errors.Is(err, db.ErrInvalidRange) {
		t.Errorf("Expected ErrInvalidRange for empty open range, got %v", err)
	}
}

func testCursor(t *testing.T, engine db.Engine) {
	defer engine.Close()
	requireFeature(t, engine, db.FeatureReverseCursor)
	createStore(t, engine, "words", "w")

	putAll(t, engine, "words",
		db.Record{"w": "pear"},
		db.Record{"w": "apple"},
		db.Record{"w": "fig"},
		db.Record{"w": "banana"},
		db.Record{"w": 7},
	)

	// numbers sort before strings
	asc := collect(t, engine, "words", "", nil, db.DirectionNext)
	if !equalKeys(asc, []any{7.0, "apple", "banana", "fig", "pear"}) {
		t.Errorf("Unexpected ascending order: %v", asc)
	}

	desc := collect(t, engine, "words", "", nil, db.DirectionPrev)
	if !equalKeys(desc, []any{"pear", "fig", "banana", "apple", 7.0}) {
		t.Errorf("Unexpected descending order: %v", desc)
	}

	r := mustRange(t)(db.Bound("b", "g", false, false))
	if keys := collect(t, engine, "words", "", r, db.DirectionPrev); !equalKeys(keys, []any{"fig", "banana"}) {
		t.Errorf("Unexpected reverse range scan: %v", keys)
	}

	err := engine.View(func(tx db.Tx) error {
		store, err := tx.Store("words")
		if err != nil {
			return err
		}
		c, err := store.OpenCursor(nil, db.DirectionNext)
		if err != nil {
			return err
		}
		defer c.Close()

		if !c.Advance(2) {
			t.Fatalf("Advance(2) should find a record")
		}
		if c.Key() != "apple" {
			t.Errorf("Expected apple after Advance(2), got %v", c.Key())
		}
		if c.Value()["w"] != "apple" {
			t.Errorf("Expected value of apple, got %v", c.Value())
		}
		if !c.Next() || c.Key() != "banana" {
			t.Errorf("Expected banana after Next")
		}
		if c.Advance(10) {
			t.Errorf("Advance past the end should return false")
		}
		if c.Next() {
			t.Errorf("Next after the end should return false")
		}
		return c.Err()
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func testIndexes(t *testing.T, engine db.Engine) {
	defer engine.Close()
	createStore(t, engine, "users", "id", "age", "address.city")

	putAll(t, engine, "users",
		db.Record{"id": "c", "age": 30, "address": map[string]any{"city": "Berlin"}},
		db.Record{"id": "a", "age": 30},
		db.Record{"id": "b", "age": 20, "address": map[string]any{"city": "Ulm"}},
		db.Record{"id": "d", "name": "no age"},
		db.Record{"id": "e", "age": nil},
	)

	// equal index keys are ordered by primary key, records without a valid key are skipped
	if keys := collect(t, engine, "users", "age", nil, db.DirectionNext); !equalKeys(keys, []any{"b", "a", "c"}) {
		t.Errorf("Unexpected index order: %v", keys)
	}
	if keys := collect(t, engine, "users", "age", nil, db.DirectionPrev); !equalKeys(keys, []any{"c", "a", "b"}) {
		t.Errorf("Unexpected reverse index order: %v", keys)
	}
	if n := count(t, engine, "users", "address.city", nil); n != 2 {
		t.Errorf("Expected 2 entries in nested index, got %d", n)
	}

	// updating a record moves its index entry
	putAll(t, engine, "users", db.Record{"id": "a", "age": 10})
	if keys := collect(t, engine, "users", "age", nil, db.DirectionNext); !equalKeys(keys, []any{"a", "b", "c"}) {
		t.Errorf("Unexpected index order after update: %v", keys)
	}
	if n := count(t, engine, "users", "age", mustRange(t)(db.Only(30))); n != 1 {
		t.Errorf("Expected stale index entry to be removed, got %d entries for 30", n)
	}

	// deleting a record removes its index entries
	err := engine.Update(func(tx db.Tx) error {
		store, err := tx.Store("users")
		if err != nil {
			return err
		}
		return store.Delete("c")
	})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n := count(t, engine, "users", "address.city", nil); n != 1 {
		t.Errorf("Expected 1 entry in nested index after delete, got %d", n)
	}

	err = engine.View(func(tx db.Tx) error {
		store, err := tx.Store("users")
		if err != nil {
			return err
		}
		idx, err := store.Index("age")
		if err != nil {
			return err
		}
		c, err := idx.OpenCursor(nil, db.DirectionNext)
		if err != nil {
			return err
		}
		defer c.Close()
		if !c.Next() {
			t.Fatalf("Expected an index entry")
		}
		if c.Key() != 10.0 || c.PrimaryKey() != "a" {
			t.Errorf("Expected key 10 with primary key a, got %v / %v", c.Key(), c.PrimaryKey())
		}
		if c.Value()["id"] != "a" {
			t.Errorf("Expected record a, got %v", c.Value())
		}
		return c.Err()
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func testIndexRanges(t *testing.T, engine db.Engine) {
	defer engine.Close()
	createStore(t, engine, "scores", "id", "score")

	var records []db.Record
	for i := 0; i < 20; i++ {
		records = append(records, db.Record{"id": i, "score": i % 5})
	}
	putAll(t, engine, "scores", records...)

	must := mustRange(t)
	tests := []struct {
		name  string
		r     *db.KeyRange
		count int
	}{
		{"Only", must(db.Only(2)), 4},
		{"LowerBound", must(db.LowerBound(3, false)), 8},
		{"LowerBoundOpen", must(db.LowerBound(3, true)), 4},
		{"UpperBound", must(db.UpperBound(1, false)), 8},
		{"UpperBoundOpen", must(db.UpperBound(1, true)), 4},
		{"Bound", must(db.Bound(1, 3, false, true)), 8},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if n := count(t, engine, "scores", "score", tc.r); n != tc.count {
				t.Errorf("Expected count %d for %v, got %d", tc.count, tc.r, n)
			}
			asc := collect(t, engine, "scores", "score", tc.r, db.DirectionNext)
			desc := collect(t, engine, "scores", "score", tc.r, db.DirectionPrev)
			if len(asc) != tc.count || len(desc) != tc.count {
				t.Errorf("Expected %d records for %v, got %d / %d", tc.count, tc.r, len(asc), len(desc))
			}
			for i := range asc {
				if fmt.Sprint(asc[i]) != fmt.Sprint(desc[len(desc)-1-i]) {
					t.Errorf("Reverse scan is not the mirror of the forward scan: %v vs %v", asc, desc)
					break
				}
			}
		})
	}
}

func testCreateIndexPopulates(t *testing.T, engine db.Engine) {
	defer engine.Close()
	createStore(t, engine, "items", "id")
	putAll(t, engine, "items",
		db.Record{"id": 1, "color": "red"},
		db.Record{"id": 2, "color": "blue"},
		db.Record{"id": 3},
	)

	err := engine.Migrate(func(tx db.UpgradeTx) error {
		store, err := tx.Store("items")
		if err != nil {
			return err
		}
		_, err = store.CreateIndex("color", "color")
		return err
	})
	if err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}

	if keys := collect(t, engine, "items", "color", nil, db.DirectionNext); !equalKeys(keys, []any{2.0, 1.0}) {
		t.Errorf("Expected populated index [2 1], got %v", keys)
	}
}

func testClear(t *testing.T, engine db.Engine) {
	defer engine.Close()
	createStore(t, engine, "items", "id", "tag")
	putAll(t, engine, "items", db.Record{"id": 1, "tag": "x"}, db.Record{"id": 2, "tag": "y"})

	err := engine.Update(func(tx db.Tx) error {
		store, err := tx.Store("items")
		if err != nil {
			return err
		}
		return store.Clear()
	})
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if n := count(t, engine, "items", "", nil); n != 0 {
		t.Errorf("Expected empty store after Clear, got %d", n)
	}
	if n := count(t, engine, "items", "tag", nil); n != 0 {
		t.Errorf("Expected empty index after Clear, got %d", n)
	}

	// the store is still usable
	putAll(t, engine, "items", db.Record{"id": 3, "tag": "z"})
	if n := count(t, engine, "items", "tag", nil); n != 1 {
		t.Errorf("Expected 1 index entry after Clear and Put, got %d", n)
	}
}

func testSaveLoad(t *testing.T, factory db.EngineFactory) {
	source := open(t, factory)
	defer source.Close()
	requireFeature(t, source, db.FeatureSnapshot)

	err := source.Upgrade(3, func(tx db.UpgradeTx) error {
		store, err := tx.CreateStore("users", "id")
		if err != nil {
			return err
		}
		_, err = store.CreateIndex("name", "name")
		return err
	})
	if err != nil {
		t.Fatalf("Upgrade failed: %v", err)
	}

	const numRecords = 100
	var records []db.Record
	for i := 0; i < numRecords; i++ {
		records = append(records, db.Record{"id": fmt.Sprintf("user-%03d", i), "name": fmt.Sprintf("name-%d", i%10)})
	}
	putAll(t, source, "users", records...)

	var buf bytes.Buffer
	if err := source.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	target := open(t, factory)
	defer target.Close()
	createStore(t, target, "stale", "id")

	if err := target.Load(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if version, _ := target.Version(); version != 3 {
		t.Errorf("Expected version 3 after Load, got %d", version)
	}
	if n := count(t, target, "users", "", nil); n != numRecords {
		t.Errorf("Expected %d records after Load, got %d", numRecords, n)
	}
	if n := count(t, target, "users", "name", mustRange(t)(db.Only("name-3"))); n != 10 {
		t.Errorf("Expected 10 index entries for name-3, got %d", n)
	}
	_ = target.View(func(tx db.Tx) error {
		if tx.HasStore("stale") {
			t.Errorf("Load should replace the existing content")
		}
		return nil
	})

	if err := target.Load(bytes.NewReader([]byte("garbage"))); !errors.Is(err, db.ErrCorrupted) {
		t.Errorf("Expected ErrCorrupted for invalid snapshot, got %v", err)
	}
	if n := count(t, target, "users", "", nil); n != numRecords {
		t.Errorf("Failed Load should not change the content, got %d records", n)
	}
}

func testConcurrency(t *testing.T, engine db.Engine) {
	defer engine.Close()
	createStore(t, engine, "counter", "id")
	putAll(t, engine, "counter", db.Record{"id": "c", "n": 0})

	const (
		numWriters = 8
		numReaders = 8
		numOps     = 25
	)

	var wg sync.WaitGroup
	for w := 0; w < numWriters; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < numOps; i++ {
				err := engine.Update(func(tx db.Tx) error {
					store, err := tx.Store("counter")
					if err != nil {
						return err
					}
					rec, _, err := store.Get("c")
					if err != nil {
						return err
					}
					rec["n"] = rec["n"].(float64) + 1
					return store.Put(rec)
				})
				if err != nil {
					t.Errorf("Update failed: %v", err)
				}
			}
		}()
	}

	for r := 0; r < numReaders; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < numOps; i++ {
				_ = engine.View(func(tx db.Tx) error {
					store, err := tx.Store("counter")
					if err != nil {
						t.Errorf("Store failed: %v", err)
						return err
					}
					if _, found, err := store.Get("c"); !found || err != nil {
						t.Errorf("Expected counter to exist (err=%v)", err)
					}
					return nil
				})
			}
		}()
	}
	wg.Wait()

	_ = engine.View(func(tx db.Tx) error {
		store, _ := tx.Store("counter")
		rec, _, _ := store.Get("c")
		if rec["n"] != float64(numWriters*numOps) {
			t.Errorf("Expected counter %d (no lost updates), got %v", numWriters*numOps, rec["n"])
		}
		return nil
	})
}

func testInfo(t *testing.T, engine db.Engine) {
	defer engine.Close()
	err := engine.Upgrade(2, func(tx db.UpgradeTx) error {
		_, err := tx.CreateStore("a", "id")
		return err
	})
	if err != nil {
		t.Fatalf("Upgrade failed: %v", err)
	}
	putAll(t, engine, "a", db.Record{"id": 1}, db.Record{"id": 2})

	info := engine.GetInfo()
	if info.Version != 2 {
		t.Errorf("Expected version 2 in info, got %d", info.Version)
	}
	if info.Stores["a"] != 2 {
		t.Errorf("Expected 2 records for store a in info, got %d", info.Stores["a"])
	}
	if info.SizeBytes <= 0 {
		t.Errorf("Expected positive size, got %d", info.SizeBytes)
	}
	if !engine.SupportsFeature(db.FeatureSnapshot | db.FeatureReverseCursor) {
		t.Errorf("Expected snapshot and reverse cursor support")
	}
}

func testClosed(t *testing.T, engine db.Engine) {
	if err := engine.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Errorf("Closing twice should not fail: %v", err)
	}
	if err := engine.View(func(tx db.Tx) error { return nil }); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if _, err := engine.Version(); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Expected ErrClosed for Version, got %v", err)
	}
}
