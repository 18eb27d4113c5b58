package base

import "github.com/ValentinKolb/tKV/lib/db"

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IBackend defines the storage-specific operations an engine is built on.
// A backend provides nested buckets of ordered byte keys and values inside
// transactions. Write transactions must be atomic: if fn returns an error,
// none of its changes may become visible.
type IBackend interface {
	// GetName returns the name of the backend (e.g., "bolt", "maple")
	GetName() string

	// View runs fn in a read-only transaction
	View(fn func(tx IBackendTx) error) error

	// Update runs fn in a read-write transaction
	Update(fn func(tx IBackendTx) error) error

	// Features returns the features provided by the backend itself
	Features() db.Feature

	// SizeBytes returns the (estimated) size of the stored data
	SizeBytes() int

	// Close releases all resources of the backend
	Close() error
}

// IBackendTx is a backend transaction
type IBackendTx interface {
	// Bucket returns the bucket at the given path or nil if it does not exist
	Bucket(path ...[]byte) IBucket

	// CreateBucket creates the bucket at the given path (and all missing parents)
	// and returns it. Existing buckets are returned unchanged.
	CreateBucket(path ...[]byte) (IBucket, error)

	// DeleteBucket deletes the bucket at the given path with all nested buckets.
	// Missing buckets are ignored.
	DeleteBucket(path ...[]byte) error

	// Buckets returns the names of the buckets nested in the bucket at path
	// (the root if path is empty) in ascending order
	Buckets(path ...[]byte) [][]byte

	// Writable reports whether this is a read-write transaction
	Writable() bool
}

// IBucket is a set of ordered key value pairs.
// Values must not be empty. Slices returned by a bucket are only valid inside
// the transaction and must not be modified.
type IBucket interface {
	// Get returns the value for key or nil
	Get(key []byte) []byte

	// Put sets the value for key
	Put(key, value []byte) error

	// Delete removes key. Missing keys are ignored.
	Delete(key []byte) error

	// Cursor returns a cursor over the key value pairs of the bucket (nested buckets are skipped)
	Cursor() IBucketCursor
}

// IBucketCursor iterates over a bucket. All methods return a nil key when
// the cursor moved past the first or last pair.
type IBucketCursor interface {
	First() (key, value []byte)
	Last() (key, value []byte)
	// Seek moves to the first pair whose key is greater than or equal to seek
	Seek(seek []byte) (key, value []byte)
	Next() (key, value []byte)
	Prev() (key, value []byte)
}
