package maple

import (
	"testing"

	"github.com/ValentinKolb/tKV/lib/db"
	dbtesting "github.com/ValentinKolb/tKV/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunEngineTests(t, "MapleDB", func() (db.Engine, error) {
		return NewMapleDB(nil)
	})
}

func TestCompressed(t *testing.T) {
	dbtesting.RunEngineTests(t, "MapleDB(zstd)", func() (db.Engine, error) {
		return NewMapleDB(&DBOptions{Compression: true})
	})
}

func TestNamedDatabase(t *testing.T) {
	defer Drop("shared")

	first, err := NewMapleDB(&DBOptions{Name: "shared"})
	if err != nil {
		t.Fatalf("Failed to open engine: %v", err)
	}
	defer first.Close()

	err = first.Upgrade(1, func(tx db.UpgradeTx) error {
		_, err := tx.CreateStore("items", "id")
		return err
	})
	if err != nil {
		t.Fatalf("Upgrade failed: %v", err)
	}

	second, err := NewMapleDB(&DBOptions{Name: "shared"})
	if err != nil {
		t.Fatalf("Failed to open engine: %v", err)
	}
	defer second.Close()

	if version, _ := second.Version(); version != 1 {
		t.Errorf("Expected second engine to see version 1, got %d", version)
	}

	Drop("shared")
	third, err := NewMapleDB(&DBOptions{Name: "shared"})
	if err != nil {
		t.Fatalf("Failed to open engine: %v", err)
	}
	defer third.Close()
	if version, _ := third.Version(); version != 0 {
		t.Errorf("Expected a dropped database to start empty, got version %d", version)
	}
}

func TestReadersSeeCommittedState(t *testing.T) {
	engine, err := NewMapleDB(nil)
	if err != nil {
		t.Fatalf("Failed to open engine: %v", err)
	}
	defer engine.Close()

	err = engine.Migrate(func(tx db.UpgradeTx) error {
		_, err := tx.CreateStore("items", "id")
		return err
	})
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	// a reader started before a write keeps its snapshot
	err = engine.View(func(rtx db.Tx) error {
		werr := engine.Update(func(tx db.Tx) error {
			store, err := tx.Store("items")
			if err != nil {
				return err
			}
			return store.Put(db.Record{"id": 1})
		})
		if werr != nil {
			t.Errorf("Update failed: %v", werr)
		}

		store, err := rtx.Store("items")
		if err != nil {
			return err
		}
		if n, _ := store.Count(nil); n != 0 {
			t.Errorf("Expected reader snapshot to be unchanged, got %d records", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func Benchmark(t *testing.B) {
	dbtesting.RunEngineBenchmarks(t, "MapleDB", func() (db.Engine, error) {
		return NewMapleDB(nil)
	})
}
