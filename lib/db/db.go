package db

import (
	"errors"
	"io"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple Implementation = "maple"
	ImplBolt  Implementation = "bolt"
)

// Feature represents engine features as bit flags
type Feature uint64

const (
	FeaturePersistent    Feature = 1 << iota // Data survives a restart
	FeatureSnapshot                          // Support for Save and Load operations
	FeatureReverseCursor                     // Support for DirectionPrev cursors
	FeatureCompression                       // Records are stored compressed
)

func (f Feature) String() string {
	switch f {
	case FeaturePersistent:
		return "Persistent"
	case FeatureSnapshot:
		return "Snapshot"
	case FeatureReverseCursor:
		return "ReverseCursor"
	case FeatureCompression:
		return "Compression"
	default:
		return "Unknown"
	}
}

type DatabaseInfo struct {
	SizeBytes         int            `json:"size_bytes"`
	DbType            Implementation `json:"db_type"`
	Version           uint64         `json:"version"`
	Stores            map[string]int `json:"stores"` // store name -> number of records
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// Direction defines the order in which a cursor visits records
type Direction uint8

const (
	DirectionNext Direction = iota // ascending key order
	DirectionPrev                  // descending key order
)

func (d Direction) String() string {
	if d == DirectionPrev {
		return "prev"
	}
	return "next"
}

// EngineFactory opens (or creates) an engine instance.
// It is used by the table connector to defer opening the engine until Open is called.
type EngineFactory func() (Engine, error)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	ErrClosed           = errors.New("engine closed")
	ErrStoreNotFound    = errors.New("object store not found")
	ErrStoreExists      = errors.New("object store already exists")
	ErrIndexNotFound    = errors.New("index not found")
	ErrIndexExists      = errors.New("index already exists")
	ErrKeyExists        = errors.New("key already exists")
	ErrMissingKey       = errors.New("record has no valid key at key path")
	ErrReadOnly         = errors.New("transaction is read-only")
	ErrNotVersionChange = errors.New("operation requires a version change transaction")
	ErrVersion          = errors.New("requested version is lower than the stored version")
	ErrInvalidRange     = errors.New("invalid key range")
	ErrCorrupted        = errors.New("corrupted data")
)

// --------------------------------------------------------------------------
// Engine Interface
// --------------------------------------------------------------------------

// Engine defines an ordered object-store database.
// Data is organized in object stores (tables keyed by a key path) with optional
// secondary indexes, all of which can be scanned with key ranges and cursors.
// All access happens inside transactions.
type Engine interface {

	// --------------------------------------------------------------------------
	// Schema Operations
	// --------------------------------------------------------------------------

	// Version returns the schema version of the database (0 for a new database).
	Version() (version uint64, err error)

	// Upgrade runs fn in an exclusive version change transaction and sets the schema
	// version to version if fn succeeds. Any error returned by fn rolls back all changes.
	// Upgrading to a version lower than the stored one fails with ErrVersion.
	Upgrade(version uint64, fn func(tx UpgradeTx) error) (err error)

	// Migrate runs fn in a version change transaction without touching the version.
	Migrate(fn func(tx UpgradeTx) error) (err error)

	// --------------------------------------------------------------------------
	// Transactions
	// --------------------------------------------------------------------------

	// View runs fn in a read-only transaction. Write operations fail with ErrReadOnly.
	// Multiple View transactions may run concurrently.
	View(fn func(tx Tx) error) (err error)

	// Update runs fn in a read-write transaction. Write transactions are serialized.
	// Any error returned by fn rolls back all changes.
	Update(fn func(tx Tx) error) (err error)

	// --------------------------------------------------------------------------
	// Persistence Operations
	// --------------------------------------------------------------------------

	// Save writes a snapshot of all stores, indexes and the version to w.
	Save(w io.Writer) (err error)

	// Load replaces the content of the database with a snapshot read from r.
	Load(r io.Reader) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the engine supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close closes the engine. Using the engine afterwards fails with ErrClosed.
	Close() (err error)
}

// Tx is a transaction scope. It is only valid inside the callback it was passed to.
type Tx interface {
	// StoreNames returns the names of all object stores in sorted order.
	StoreNames() []string
	// HasStore reports whether an object store exists.
	HasStore(name string) bool
	// Store returns the object store with the given name or ErrStoreNotFound.
	Store(name string) (ObjectStore, error)
	// Writable reports whether write operations are allowed.
	Writable() bool
}

// UpgradeTx is a version change transaction that can alter the schema.
type UpgradeTx interface {
	Tx
	// CreateStore creates an object store whose primary key is read from keyPath.
	CreateStore(name, keyPath string) (ObjectStore, error)
	// DeleteStore deletes an object store with all its records and indexes.
	DeleteStore(name string) error
}

// Source is the common read interface of object stores and indexes.
type Source interface {
	// Name returns the name of the store or index.
	Name() string
	// KeyPath returns the key path the source is ordered by.
	KeyPath() string
	// Count returns the number of records in the key range (nil = all records).
	Count(r *KeyRange) (int, error)
	// OpenCursor opens a cursor over the key range (nil = all records).
	OpenCursor(r *KeyRange, dir Direction) (Cursor, error)
}

// ObjectStore is a table of records ordered by their primary key.
type ObjectStore interface {
	Source

	// IndexNames returns the names of all indexes of the store in sorted order.
	IndexNames() []string
	// Index returns the index with the given name or ErrIndexNotFound.
	Index(name string) (Index, error)
	// CreateIndex creates and populates an index (only in version change transactions).
	CreateIndex(name, keyPath string) (Index, error)
	// DeleteIndex deletes an index (only in version change transactions).
	DeleteIndex(name string) error

	// Get returns the record stored under key.
	Get(key any) (rec Record, found bool, err error)
	// Put inserts or replaces a record. The key is read from the store key path.
	Put(rec Record) error
	// Add inserts a record and fails with ErrKeyExists if the key is taken.
	Add(rec Record) error
	// Delete removes the record stored under key. Missing keys are ignored.
	Delete(key any) error
	// Clear removes all records of the store.
	Clear() error
}

// Index is a secondary ordering of the records of a store.
// Records without a valid key at the index key path are not part of the index.
type Index interface {
	Source
}

// Cursor iterates over a source. It starts before the first record.
// A cursor is only valid inside the transaction it was opened in.
type Cursor interface {
	// Next moves the cursor to the next record and reports whether one exists.
	Next() bool
	// Advance moves the cursor n records forward (n >= 1) and reports whether a record exists there.
	Advance(n int) bool
	// Key returns the key of the current record in the source (index key for indexes).
	Key() any
	// PrimaryKey returns the primary key of the current record.
	PrimaryKey() any
	// Value returns the current record.
	Value() Record
	// Err returns the first error that stopped the cursor.
	Err() error
	// Close releases the cursor.
	Close() error
}
