// Package base implements the object-store logic shared by all engines.
//
// An engine is built from an IBackend, which only has to provide nested buckets
// of ordered byte keys inside atomic transactions. Everything else (schema
// versioning, object stores, indexes, key ranges, cursors and snapshots) is
// implemented here once:
//
//	engine := base.NewEngine(backend, db.ImplBolt, &base.Options{Compression: true})
//
// Records are stored as JSON (optionally zstd compressed). Primary and index keys
// use the order-preserving encoding of the keys package, so all range scans are
// plain ordered bucket scans. An index entry is stored under the composite key
// (index key || primary key), which keeps entries with equal index keys unique
// and ordered by primary key.
package base
