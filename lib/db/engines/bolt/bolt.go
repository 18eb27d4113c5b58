package bolt

import (
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/db/engines/base"
	"go.etcd.io/bbolt"
)

// DBOptions configures the bolt engine behavior during initialization
type DBOptions struct {
	Timeout     time.Duration // Time to wait for the file lock (0 = wait forever)
	NoSync      bool          // Skip fsync after each commit (faster, unsafe on crash)
	Compression bool          // Compress records with zstd
}

// DefaultOptions returns the default bolt options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		Timeout: 5 * time.Second,
	}
}

// NewBoltDB opens (or creates) a persistent engine stored in the bbolt file at path
func NewBoltDB(path string, opts *DBOptions) (db.Engine, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if path == "" {
		return nil, fmt.Errorf("bolt engine requires a file path")
	}

	bdb, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: opts.Timeout,
		NoSync:  opts.NoSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	engine, err := base.NewEngine(&backend{db: bdb}, db.ImplBolt, &base.Options{
		Compression: opts.Compression,
	})
	if err != nil {
		_ = bdb.Close()
		return nil, err
	}

	base.Logger.Infof("opened bolt database %s", path)
	return engine, nil
}

// --------------------------------------------------------------------------
// Backend (docu see base.IBackend)
// --------------------------------------------------------------------------

type backend struct {
	db *bbolt.DB
}

func (b *backend) GetName() string {
	return "bolt"
}

func (b *backend) View(fn func(tx base.IBackendTx) error) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		return fn(&txImpl{tx: tx})
	})
}

func (b *backend) Update(fn func(tx base.IBackendTx) error) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return fn(&txImpl{tx: tx})
	})
}

func (b *backend) Features() db.Feature {
	return db.FeaturePersistent
}

func (b *backend) SizeBytes() int {
	size := 0
	_ = b.db.View(func(tx *bbolt.Tx) error {
		size = int(tx.Size())
		return nil
	})
	return size
}

func (b *backend) Close() error {
	return b.db.Close()
}

// --------------------------------------------------------------------------
// Transaction (docu see base.IBackendTx)
// --------------------------------------------------------------------------

type txImpl struct {
	tx *bbolt.Tx
}

func (t *txImpl) bucket(path [][]byte) *bbolt.Bucket {
	if len(path) == 0 {
		return nil
	}
	b := t.tx.Bucket(path[0])
	for _, p := range path[1:] {
		if b == nil {
			return nil
		}
		b = b.Bucket(p)
	}
	return b
}

func (t *txImpl) Bucket(path ...[]byte) base.IBucket {
	b := t.bucket(path)
	if b == nil {
		return nil
	}
	return &bucketImpl{b: b}
}

func (t *txImpl) CreateBucket(path ...[]byte) (base.IBucket, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("bucket path must not be empty")
	}
	b, err := t.tx.CreateBucketIfNotExists(path[0])
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket %s: %w", path[0], err)
	}
	for _, p := range path[1:] {
		if b, err = b.CreateBucketIfNotExists(p); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", p, err)
		}
	}
	return &bucketImpl{b: b}, nil
}

func (t *txImpl) DeleteBucket(path ...[]byte) error {
	if len(path) == 0 {
		return fmt.Errorf("bucket path must not be empty")
	}

	var err error
	if len(path) == 1 {
		err = t.tx.DeleteBucket(path[0])
	} else {
		parent := t.bucket(path[:len(path)-1])
		if parent == nil {
			return nil
		}
		err = parent.DeleteBucket(path[len(path)-1])
	}
	if errors.Is(err, bbolt.ErrBucketNotFound) {
		return nil
	}
	return err
}

func (t *txImpl) Buckets(path ...[]byte) [][]byte {
	var names [][]byte
	if len(path) == 0 {
		_ = t.tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			names = append(names, append([]byte(nil), name...))
			return nil
		})
		return names
	}

	b := t.bucket(path)
	if b == nil {
		return nil
	}
	_ = b.ForEach(func(k, v []byte) error {
		if v == nil { // nested bucket
			names = append(names, append([]byte(nil), k...))
		}
		return nil
	})
	return names
}

func (t *txImpl) Writable() bool {
	return t.tx.Writable()
}

// --------------------------------------------------------------------------
// Bucket (docu see base.IBucket)
// --------------------------------------------------------------------------

type bucketImpl struct {
	b *bbolt.Bucket
}

func (b *bucketImpl) Get(key []byte) []byte {
	return b.b.Get(key)
}

func (b *bucketImpl) Put(key, value []byte) error {
	if len(value) == 0 {
		return fmt.Errorf("value must not be empty")
	}
	return b.b.Put(key, value)
}

func (b *bucketImpl) Delete(key []byte) error {
	return b.b.Delete(key)
}

func (b *bucketImpl) Cursor() base.IBucketCursor {
	return &cursor{c: b.b.Cursor()}
}

// --------------------------------------------------------------------------
// Cursor (docu see base.IBucketCursor)
// --------------------------------------------------------------------------

// cursor wraps a bbolt cursor and skips nested buckets (nil values)
type cursor struct {
	c *bbolt.Cursor
}

func (c *cursor) skip(k, v []byte, move func() ([]byte, []byte)) ([]byte, []byte) {
	for k != nil && v == nil {
		k, v = move()
	}
	return k, v
}

func (c *cursor) First() ([]byte, []byte) {
	k, v := c.c.First()
	return c.skip(k, v, c.c.Next)
}

func (c *cursor) Last() ([]byte, []byte) {
	k, v := c.c.Last()
	return c.skip(k, v, c.c.Prev)
}

func (c *cursor) Seek(seek []byte) ([]byte, []byte) {
	k, v := c.c.Seek(seek)
	return c.skip(k, v, c.c.Next)
}

func (c *cursor) Next() ([]byte, []byte) {
	k, v := c.c.Next()
	return c.skip(k, v, c.c.Next)
}

func (c *cursor) Prev() ([]byte, []byte) {
	k, v := c.c.Prev()
	return c.skip(k, v, c.c.Prev)
}
