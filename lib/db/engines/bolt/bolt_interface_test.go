package bolt

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/tKV/lib/db"
	dbtesting "github.com/ValentinKolb/tKV/lib/db/testing"
)

// tempFactory returns a factory that creates a new database file in dir on every call
func tempFactory(dir string, opts *DBOptions) db.EngineFactory {
	var counter atomic.Int64
	return func() (db.Engine, error) {
		path := filepath.Join(dir, fmt.Sprintf("test-%d.db", counter.Add(1)))
		return NewBoltDB(path, opts)
	}
}

func Test(t *testing.T) {
	dbtesting.RunEngineTests(t, "BoltDB", tempFactory(t.TempDir(), nil))
}

func TestCompressed(t *testing.T) {
	dbtesting.RunEngineTests(t, "BoltDB(zstd)", tempFactory(t.TempDir(), &DBOptions{Compression: true, NoSync: true}))
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")

	engine, err := NewBoltDB(path, nil)
	if err != nil {
		t.Fatalf("Failed to open engine: %v", err)
	}
	if !engine.SupportsFeature(db.FeaturePersistent) {
		t.Errorf("Expected bolt engine to be persistent")
	}

	err = engine.Upgrade(4, func(tx db.UpgradeTx) error {
		store, err := tx.CreateStore("notes", "id")
		if err != nil {
			return err
		}
		if _, err := store.CreateIndex("tag", "tag"); err != nil {
			return err
		}
		return store.Put(db.Record{"id": 1, "tag": "go"})
	})
	if err != nil {
		t.Fatalf("Upgrade failed: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	engine, err = NewBoltDB(path, nil)
	if err != nil {
		t.Fatalf("Failed to reopen engine: %v", err)
	}
	defer engine.Close()

	if version, _ := engine.Version(); version != 4 {
		t.Errorf("Expected version 4 after reopen, got %d", version)
	}

	err = engine.View(func(tx db.Tx) error {
		store, err := tx.Store("notes")
		if err != nil {
			return err
		}
		idx, err := store.Index("tag")
		if err != nil {
			return err
		}
		r, err := db.Only("go")
		if err != nil {
			return err
		}
		n, err := idx.Count(r)
		if err != nil {
			return err
		}
		if n != 1 {
			t.Errorf("Expected 1 index entry after reopen, got %d", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestMissingPath(t *testing.T) {
	if _, err := NewBoltDB("", nil); err == nil {
		t.Errorf("Expected error for empty path")
	}
}

func Benchmark(b *testing.B) {
	dbtesting.RunEngineBenchmarks(b, "BoltDB", tempFactory(b.TempDir(), &DBOptions{NoSync: true}))
}
