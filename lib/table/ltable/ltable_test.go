package ltable

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/db/engines/bolt"
	"github.com/ValentinKolb/tKV/lib/db/engines/maple"
	"github.com/ValentinKolb/tKV/lib/table"
	tabletesting "github.com/ValentinKolb/tKV/lib/table/testing"
)

// opened returns a provider factory for the local connector on the engines created by factory
func opened(factory func(t testing.TB) db.EngineFactory) tabletesting.ProviderFactory {
	return func(t testing.TB, layout table.Layout) table.ITableProvider {
		conn := NewLocalConnector(factory(t), layout)
		if err := conn.Open(nil); err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	}
}

func TestMaple(t *testing.T) {
	tabletesting.RunTableTests(t, "Local(maple)", opened(func(t testing.TB) db.EngineFactory {
		return func() (db.Engine, error) { return maple.NewMapleDB(nil) }
	}))
}

func TestMapleCompressed(t *testing.T) {
	tabletesting.RunTableTests(t, "Local(maple,zstd)", opened(func(t testing.TB) db.EngineFactory {
		return func() (db.Engine, error) { return maple.NewMapleDB(&maple.DBOptions{Compression: true}) }
	}))
}

func TestBolt(t *testing.T) {
	tabletesting.RunTableTests(t, "Local(bolt)", opened(func(t testing.TB) db.EngineFactory {
		path := filepath.Join(t.TempDir(), "test.db")
		return func() (db.Engine, error) { return bolt.NewBoltDB(path, nil) }
	}))
}

// --------------------------------------------------------------------------
// Connector lifecycle and migrations
// --------------------------------------------------------------------------

// named returns a factory for a shared in-memory database, so it survives closing the connector
func named(t *testing.T) db.EngineFactory {
	name := t.Name()
	t.Cleanup(func() { maple.Drop(name) })
	return func() (db.Engine, error) {
		return maple.NewMapleDB(&maple.DBOptions{Name: name})
	}
}

func layoutV(version uint64, tables map[string][]string) table.Layout {
	l := table.Layout{Version: version, Tables: map[string]table.TableLayout{}}
	for name, keyPaths := range tables {
		var tl table.TableLayout
		for _, kp := range keyPaths {
			tl.Indexes = append(tl.Indexes, table.IndexLayout{KeyPath: kp})
		}
		l.Tables[name] = tl
	}
	return l
}

func openConn(t *testing.T, factory db.EngineFactory, layout table.Layout) table.IConnector {
	t.Helper()
	conn := NewLocalConnector(factory, layout)
	if err := conn.Open(nil); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return conn
}

func TestNotOpen(t *testing.T) {
	conn := NewLocalConnector(named(t), layoutV(1, map[string][]string{"users": nil}))

	if _, err := conn.HasTable("users"); !errors.Is(err, table.ErrNotOpen) {
		t.Errorf("Expected ErrNotOpen before Open, got %v", err)
	}
	if err := conn.CreateTable("orders"); !errors.Is(err, table.ErrNotOpen) {
		t.Errorf("Expected ErrNotOpen before Open, got %v", err)
	}

	if err := conn.Open(nil); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := conn.Open(nil); err != nil {
		t.Errorf("Opening twice should be a no-op, got %v", err)
	}

	users, err := conn.GetTableConnector("users")
	if err != nil {
		t.Fatalf("GetTableConnector failed: %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("Closing twice should be a no-op, got %v", err)
	}

	if _, _, err := users.Get("x"); !errors.Is(err, table.ErrNotOpen) {
		t.Errorf("Expected ErrNotOpen after Close, got %v", err)
	}
	if _, err := users.List(table.Query{}); !errors.Is(err, table.ErrInvalidQuery) || !errors.Is(err, table.ErrNotOpen) {
		t.Errorf("Expected ErrInvalidQuery caused by ErrNotOpen, got %v", err)
	}
}

func TestInvalidLayout(t *testing.T) {
	layouts := []table.Layout{
		layoutV(0, map[string][]string{"users": nil}),
		layoutV(1, map[string][]string{"users": {""}}),
		layoutV(1, map[string][]string{"users": {"age", "age"}}),
	}
	for _, l := range layouts {
		conn := NewLocalConnector(named(t), l)
		if err := conn.Open(nil); err == nil {
			t.Errorf("Expected Open to fail for layout %+v", l)
			_ = conn.Close()
		}
	}
}

func TestMigration(t *testing.T) {
	factory := named(t)

	conn := openConn(t, factory, layoutV(1, map[string][]string{
		"users":  {"age"},
		"orders": nil,
	}))
	users, _ := conn.GetTableConnector("users")
	for _, rec := range []db.Record{{"name": "Alice", "age": 30}, {"name": "Bob", "age": 25}} {
		if _, err := users.Add(rec); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if _, err := users.Count(table.Query{Where: &table.Where{Key: "name", Operator: table.OpEqual, Value: "Bob"}}); !errors.Is(err, table.ErrIndexNotFound) {
		t.Errorf("Expected ErrIndexNotFound for undeclared index, got %v", err)
	}
	_ = conn.Close()

	// version 2 adds the name index, drops the age index and the orders table
	conn = openConn(t, factory, layoutV(2, map[string][]string{
		"users":    {"name"},
		"products": {"price"},
	}))
	defer conn.Close()

	for name, want := range map[string]bool{"users": true, "products": true, "orders": false} {
		if ok, _ := conn.HasTable(name); ok != want {
			t.Errorf("Expected HasTable(%s) == %t", name, want)
		}
	}

	users, _ = conn.GetTableConnector("users")
	n, err := users.Count(table.Query{Where: &table.Where{Key: "name", Operator: table.OpEqual, Value: "Bob"}})
	if err != nil || n != 1 {
		t.Errorf("Expected the new index to be populated with existing records (n=%d, err=%v)", n, err)
	}
	if _, err := users.Count(table.Query{Where: &table.Where{Key: "age", Operator: table.OpEqual, Value: 30}}); !errors.Is(err, table.ErrIndexNotFound) {
		t.Errorf("Expected the dropped index to be gone, got %v", err)
	}
	if n, _ := users.Count(table.Query{}); n != 2 {
		t.Errorf("Expected records to survive the migration, got %d", n)
	}
}

func TestDowngrade(t *testing.T) {
	factory := named(t)

	conn := openConn(t, factory, layoutV(3, map[string][]string{"users": nil}))
	_ = conn.Close()

	conn = NewLocalConnector(factory, layoutV(2, map[string][]string{"users": nil}))
	if err := conn.Open(nil); !errors.Is(err, table.ErrVersion) {
		t.Errorf("Expected ErrVersion when opening with an older layout, got %v", err)
	}
	if _, err := conn.HasTable("users"); !errors.Is(err, table.ErrNotOpen) {
		t.Errorf("Expected a failed Open to leave the connector closed, got %v", err)
	}

	// same version, no migration runs
	conn = NewLocalConnector(factory, layoutV(3, map[string][]string{"other": nil}))
	ran := false
	err := conn.Open(func(h table.IMigrationHandle) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer conn.Close()
	if ran {
		t.Errorf("Migration must not run when the version is unchanged")
	}
}

func TestCustomMigration(t *testing.T) {
	factory := named(t)

	conn := openConn(t, factory, layoutV(1, map[string][]string{"users": nil}))
	users, _ := conn.GetTableConnector("users")
	if _, err := users.Set("u1", db.Record{"email": "a@example.com"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	_ = conn.Close()

	// a failing migration is rolled back
	conn = NewLocalConnector(factory, layoutV(2, map[string][]string{"users": nil}))
	boom := errors.New("boom")
	err := conn.Open(func(h table.IMigrationHandle) error {
		if err := h.DeleteTable("users"); err != nil {
			return err
		}
		return boom
	})
	if err == nil {
		t.Fatalf("Expected Open to fail")
	}

	conn = NewLocalConnector(factory, layoutV(2, map[string][]string{"users": nil}))
	err = conn.Open(func(h table.IMigrationHandle) error {
		if h.OldVersion() != 1 || h.NewVersion() != 2 {
			t.Errorf("Expected migration from 1 to 2, got %d to %d", h.OldVersion(), h.NewVersion())
		}
		if !h.HasTable("users") {
			t.Errorf("Expected the rolled back migration to keep the users table")
		}
		if err := h.DeleteTable("missing"); !errors.Is(err, table.ErrTableNotFound) {
			t.Errorf("Expected ErrTableNotFound, got %v", err)
		}
		if _, err := h.GetIndexes("missing"); !errors.Is(err, table.ErrTableNotFound) {
			t.Errorf("Expected ErrTableNotFound, got %v", err)
		}
		if err := h.CreateTable("users"); !errors.Is(err, table.ErrTableExists) {
			t.Errorf("Expected ErrTableExists, got %v", err)
		}
		if err := h.CreateIndex("users", "email"); err != nil {
			return err
		}
		if ok, _ := h.HasIndex("users", "email"); !ok {
			t.Errorf("Expected the created index to exist")
		}
		if err := h.DeleteIndex("users", "phone"); !errors.Is(err, table.ErrIndexNotFound) {
			t.Errorf("Expected ErrIndexNotFound, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer conn.Close()

	users, _ = conn.GetTableConnector("users")
	recs, err := users.List(table.Query{Where: &table.Where{Key: "email", Operator: table.OpEqual, Value: "a@example.com"}})
	if err != nil || len(recs) != 1 {
		t.Errorf("Expected the email index to find u1 (recs=%v, err=%v)", recs, err)
	}
}
