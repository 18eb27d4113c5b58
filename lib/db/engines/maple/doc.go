// Package maple implements an in-memory object-store engine.
// It provides a backend for the engines/base package, so it supports the full
// db.Engine interface (object stores, indexes, key ranges, cursors, snapshots).
//
// The package focuses on:
//   - Fast ordered access through B-trees (github.com/google/btree)
//   - Lock-free reads: readers work on an immutable committed state
//   - Atomic write transactions through copy-on-write
//   - Named databases that can be shared between engines of the same process
//
// Key Components:
//
//   - Bucket (internal): A node of the bucket tree. It stores ordered key-value
//     pairs in a B-tree and named nested buckets in a map. Cloning a bucket tree
//     is cheap because the B-trees are cloned lazily.
//
//   - database: The committed state of a database. Write transactions are
//     serialized by a mutex. Each write transaction clones the committed bucket
//     tree, applies its changes to the clone and publishes it with an atomic
//     pointer swap when it succeeds. A failed transaction simply drops its clone.
//
//   - registry: A concurrent map (github.com/puzpuzpuz/xsync) of named databases.
//     NewMapleDB(&DBOptions{Name: "users"}) opens the shared database "users",
//     every engine opened with the same name sees the same data. This mirrors
//     named databases in a browser and allows reopening an in-memory database
//     (e.g. to upgrade its schema). Drop removes a named database.
//
// Usage:
//
//	engine, err := maple.NewMapleDB(nil) // private database
//	if err != nil {
//		return err
//	}
//	defer engine.Close()
//
// Thread-safety: All engine methods are thread-safe. Cursors and stores are only
// valid inside the transaction callback they were obtained in.
package maple
