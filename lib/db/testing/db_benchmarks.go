package testing

import (
	"bytes"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/tKV/lib/db"
)

// RunEngineBenchmarks runs all benchmarks for an Engine implementation
func RunEngineBenchmarks(b *testing.B, name string, factory db.EngineFactory) {

	b.Run("Put", func(b *testing.B) {
		benchmarkPut(b, open(b, factory))
	})

	b.Run("PutIndexed", func(b *testing.B) {
		benchmarkPutIndexed(b, open(b, factory))
	})

	b.Run("PutBatch", func(b *testing.B) {
		benchmarkPutBatch(b, open(b, factory))
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, open(b, factory))
	})

	b.Run("IndexScan", func(b *testing.B) {
		benchmarkIndexScan(b, open(b, factory))
	})

	b.Run("Count", func(b *testing.B) {
		benchmarkCount(b, open(b, factory))
	})

	b.Run("SaveLoad", func(b *testing.B) {
		benchmarkSaveLoad(b, factory)
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, open(b, factory))
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// prepare creates the benchmark store and fills it with n records
func prepare(b *testing.B, engine db.Engine, n int) {
	createStore(b, engine, "bench", "id", "group")
	const batch = 1000
	for i := 0; i < n; i += batch {
		records := make([]db.Record, 0, batch)
		for j := i; j < i+batch && j < n; j++ {
			records = append(records, benchRecord(j))
		}
		putAll(b, engine, "bench", records...)
	}
}

func benchRecord(i int) db.Record {
	return db.Record{
		"id":    fmt.Sprintf("key-%d", i),
		"group": i % 100,
		"value": fmt.Sprintf("test-value-%d", i),
	}
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Put operation (one transaction per record)
func benchmarkPut(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		engine.Close()
	})
	createStore(b, engine, "bench", "id")

	var counter atomic.Int64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := int(counter.Add(1))
			_ = engine.Update(func(tx db.Tx) error {
				store, err := tx.Store("bench")
				if err != nil {
					return err
				}
				return store.Put(benchRecord(i))
			})
		}
	})
}

// Benchmark for Put operation with index maintenance
func benchmarkPutIndexed(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		engine.Close()
	})
	createStore(b, engine, "bench", "id", "group", "value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.Update(func(tx db.Tx) error {
			store, err := tx.Store("bench")
			if err != nil {
				return err
			}
			return store.Put(benchRecord(i))
		})
	}
}

// Benchmark for Put operation with 100 records per transaction
func benchmarkPutBatch(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		engine.Close()
	})
	createStore(b, engine, "bench", "id", "group")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.Update(func(tx db.Tx) error {
			store, err := tx.Store("bench")
			if err != nil {
				return err
			}
			for j := 0; j < 100; j++ {
				if err := store.Put(benchRecord(i*100 + j)); err != nil {
					return err
				}
			}
			return nil
		})
	}
}

// Parallel benchmarking for Get operation
func benchmarkGet(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		engine.Close()
	})

	numKeys := 10000
	prepare(b, engine, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := fmt.Sprintf("key-%d", counter%numKeys)
			_ = engine.View(func(tx db.Tx) error {
				store, err := tx.Store("bench")
				if err != nil {
					return err
				}
				_, _, err = store.Get(key)
				return err
			})
			counter++
		}
	})
}

// Benchmark for scanning a single index key (100 records)
func benchmarkIndexScan(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		engine.Close()
	})
	prepare(b, engine, 10000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, _ := db.Only(i % 100)
		_ = engine.View(func(tx db.Tx) error {
			store, err := tx.Store("bench")
			if err != nil {
				return err
			}
			idx, err := store.Index("group")
			if err != nil {
				return err
			}
			c, err := idx.OpenCursor(r, db.DirectionNext)
			if err != nil {
				return err
			}
			defer c.Close()
			for c.Next() {
				_ = c.Value()
			}
			return c.Err()
		})
	}
}

// Benchmark for counting an index range
func benchmarkCount(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		engine.Close()
	})
	prepare(b, engine, 10000)
	r, _ := db.Bound(10, 60, false, true)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.View(func(tx db.Tx) error {
			store, err := tx.Store("bench")
			if err != nil {
				return err
			}
			idx, err := store.Index("group")
			if err != nil {
				return err
			}
			_, err = idx.Count(r)
			return err
		})
	}
}

func benchmarkSaveLoad(b *testing.B, factory db.EngineFactory) {
	engine := open(b, factory)
	b.Cleanup(func() {
		engine.Close()
	})
	requireFeature(b, engine, db.FeatureSnapshot)

	// Create a database with some data
	prepare(b, engine, 10000)

	b.Run("Save", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			var buf bytes.Buffer
			_ = engine.Save(&buf)
		}
	})

	// Prepare a data buffer for Load benchmark
	var loadBuf bytes.Buffer
	_ = engine.Save(&loadBuf)
	data := loadBuf.Bytes()

	b.Run("Load", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			loadDB := open(b, factory)
			_ = loadDB.Load(bytes.NewReader(data))
			_ = loadDB.Close()
		}
	})
}

// Benchmark for mixed usage patterns (80% reads, 20% writes)
func benchmarkMixedUsage(b *testing.B, engine db.Engine) {
	b.Cleanup(func() {
		engine.Close()
	})

	numKeys := 10000
	prepare(b, engine, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		rng := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			i := rng.Intn(numKeys)
			if rng.Intn(100) < 80 {
				_ = engine.View(func(tx db.Tx) error {
					store, err := tx.Store("bench")
					if err != nil {
						return err
					}
					_, _, err = store.Get(fmt.Sprintf("key-%d", i))
					return err
				})
				continue
			}
			_ = engine.Update(func(tx db.Tx) error {
				store, err := tx.Store("bench")
				if err != nil {
					return err
				}
				return store.Put(benchRecord(i))
			})
		}
	})
}
