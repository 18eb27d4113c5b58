package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("db")

// Bucket layout
//
//	meta/                      version -> uint64
//	stores/<name>/meta/        keyPath -> key path, i:<index> -> index key path
//	stores/<name>/data/        encoded primary key -> encoded record
//	stores/<name>/idx/<index>/ encoded index key || encoded primary key -> encoded primary key
var (
	bucketMeta    = []byte("meta")
	bucketStores  = []byte("stores")
	bucketData    = []byte("data")
	bucketIndexes = []byte("idx")

	keyVersion     = []byte("version")
	keyKeyPath     = []byte("keyPath")
	keyIndexPrefix = "i:"
)

// Options configures the engine behavior during initialization
type Options struct {
	Compression bool // compress records with zstd
}

// DefaultOptions returns the default engine options
func DefaultOptions() *Options {
	return &Options{
		Compression: false,
	}
}

// engineImpl implements db.Engine on top of an IBackend
type engineImpl struct {
	backend IBackend
	impl    db.Implementation
	codec   *codec
	opts    Options
	closed  atomic.Bool
}

// --------------------------------------------------------------------------
// Engine Factory Method (used for bolt, maple, etc.)
// --------------------------------------------------------------------------

// NewEngine creates a new engine for the given backend
func NewEngine(backend IBackend, impl db.Implementation, opts *Options) (db.Engine, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	c, err := newCodec(opts.Compression)
	if err != nil {
		return nil, err
	}

	e := &engineImpl{
		backend: backend,
		impl:    impl,
		codec:   c,
		opts:    *opts,
	}

	// make sure the top level buckets exist
	err = backend.Update(func(tx IBackendTx) error {
		if _, err := tx.CreateBucket(bucketMeta); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketStores)
		return err
	})
	if err != nil {
		c.close()
		return nil, fmt.Errorf("failed to initialize %s engine: %w", backend.GetName(), err)
	}

	Logger.Debugf("created %s engine (compression=%t)", backend.GetName(), opts.Compression)
	return e, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.Engine)
// --------------------------------------------------------------------------

func (e *engineImpl) Version() (uint64, error) {
	if e.closed.Load() {
		return 0, db.ErrClosed
	}
	var version uint64
	err := e.backend.View(func(tx IBackendTx) error {
		version = readVersion(tx)
		return nil
	})
	return version, err
}

func (e *engineImpl) Upgrade(version uint64, fn func(tx db.UpgradeTx) error) error {
	if e.closed.Load() {
		return db.ErrClosed
	}
	return e.backend.Update(func(btx IBackendTx) error {
		current := readVersion(btx)
		if version < current {
			return fmt.Errorf("%w: %d < %d", db.ErrVersion, version, current)
		}

		Logger.Infof("upgrading database from version %d to %d", current, version)

		if err := fn(&txImpl{engine: e, btx: btx, upgrade: true}); err != nil {
			return err
		}

		meta := btx.Bucket(bucketMeta)
		if meta == nil {
			return fmt.Errorf("%w: meta bucket missing", db.ErrCorrupted)
		}
		return meta.Put(keyVersion, binary.BigEndian.AppendUint64(nil, version))
	})
}

func (e *engineImpl) Migrate(fn func(tx db.UpgradeTx) error) error {
	if e.closed.Load() {
		return db.ErrClosed
	}
	return e.backend.Update(func(btx IBackendTx) error {
		return fn(&txImpl{engine: e, btx: btx, upgrade: true})
	})
}

func (e *engineImpl) View(fn func(tx db.Tx) error) error {
	if e.closed.Load() {
		return db.ErrClosed
	}
	return e.backend.View(func(btx IBackendTx) error {
		return fn(&txImpl{engine: e, btx: btx})
	})
}

func (e *engineImpl) Update(fn func(tx db.Tx) error) error {
	if e.closed.Load() {
		return db.ErrClosed
	}
	return e.backend.Update(func(btx IBackendTx) error {
		return fn(&txImpl{engine: e, btx: btx})
	})
}

func (e *engineImpl) Save(w io.Writer) error {
	if e.closed.Load() {
		return db.ErrClosed
	}
	return e.backend.View(func(tx IBackendTx) error {
		return writeSnapshot(w, tx)
	})
}

func (e *engineImpl) Load(r io.Reader) error {
	if e.closed.Load() {
		return db.ErrClosed
	}
	return e.backend.Update(func(tx IBackendTx) error {
		return readSnapshot(r, tx)
	})
}

func (e *engineImpl) SupportsFeature(feature db.Feature) bool {
	return e.features()&feature == feature
}

func (e *engineImpl) GetInfo() db.DatabaseInfo {
	info := db.DatabaseInfo{
		DbType: e.impl,
		Stores: map[string]int{},
	}

	for f := db.FeaturePersistent; f <= db.FeatureCompression; f <<= 1 {
		if e.SupportsFeature(f) {
			info.SupportedFeatures = append(info.SupportedFeatures, f)
		}
	}

	if e.closed.Load() {
		return info
	}

	info.SizeBytes = e.backend.SizeBytes()
	_ = e.View(func(tx db.Tx) error {
		info.Version = readVersion(tx.(*txImpl).btx)
		for _, name := range tx.StoreNames() {
			store, err := tx.Store(name)
			if err != nil {
				continue
			}
			if n, err := store.Count(nil); err == nil {
				info.Stores[name] = n
			}
		}
		return nil
	})

	info.Metadata = map[string]interface{}{
		"backend":     e.backend.GetName(),
		"compression": e.opts.Compression,
	}
	return info
}

func (e *engineImpl) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	e.codec.close()
	return e.backend.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (e *engineImpl) features() db.Feature {
	f := e.backend.Features() | db.FeatureSnapshot | db.FeatureReverseCursor
	if e.opts.Compression {
		f |= db.FeatureCompression
	}
	return f
}

// readVersion reads the stored schema version (0 if none)
func readVersion(tx IBackendTx) uint64 {
	meta := tx.Bucket(bucketMeta)
	if meta == nil {
		return 0
	}
	v := meta.Get(keyVersion)
	if len(v) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(v)
}
