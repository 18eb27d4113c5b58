package base

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ValentinKolb/tKV/lib/db"
)

// txImpl implements db.Tx and db.UpgradeTx for a single backend transaction
type txImpl struct {
	engine  *engineImpl
	btx     IBackendTx
	upgrade bool
}

func (t *txImpl) StoreNames() []string {
	raw := t.btx.Buckets(bucketStores)
	names := make([]string, 0, len(raw))
	for _, n := range raw {
		names = append(names, string(n))
	}
	sort.Strings(names)
	return names
}

func (t *txImpl) HasStore(name string) bool {
	return t.btx.Bucket(bucketStores, []byte(name)) != nil
}

func (t *txImpl) Store(name string) (db.ObjectStore, error) {
	meta := t.btx.Bucket(storePath(name, bucketMeta)...)
	if meta == nil {
		return nil, fmt.Errorf("%w: %s", db.ErrStoreNotFound, name)
	}
	return loadStore(t, name, meta)
}

func (t *txImpl) Writable() bool {
	return t.btx.Writable()
}

func (t *txImpl) CreateStore(name, keyPath string) (db.ObjectStore, error) {
	if err := t.checkUpgrade(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("store name must not be empty")
	}
	if keyPath == "" {
		return nil, fmt.Errorf("key path of store %s must not be empty", name)
	}
	if t.HasStore(name) {
		return nil, fmt.Errorf("%w: %s", db.ErrStoreExists, name)
	}

	meta, err := t.btx.CreateBucket(storePath(name, bucketMeta)...)
	if err != nil {
		return nil, err
	}
	if err := meta.Put(keyKeyPath, []byte(keyPath)); err != nil {
		return nil, err
	}
	if _, err := t.btx.CreateBucket(storePath(name, bucketData)...); err != nil {
		return nil, err
	}
	if _, err := t.btx.CreateBucket(storePath(name, bucketIndexes)...); err != nil {
		return nil, err
	}

	Logger.Infof("created object store %s (keyPath=%s)", name, keyPath)
	return &storeImpl{tx: t, name: name, keyPath: keyPath, indexes: map[string]string{}}, nil
}

func (t *txImpl) DeleteStore(name string) error {
	if err := t.checkUpgrade(); err != nil {
		return err
	}
	if !t.HasStore(name) {
		return fmt.Errorf("%w: %s", db.ErrStoreNotFound, name)
	}
	if err := t.btx.DeleteBucket(bucketStores, []byte(name)); err != nil {
		return err
	}
	Logger.Infof("deleted object store %s", name)
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *txImpl) checkWritable() error {
	if !t.btx.Writable() {
		return db.ErrReadOnly
	}
	return nil
}

func (t *txImpl) checkUpgrade() error {
	if !t.upgrade {
		return db.ErrNotVersionChange
	}
	return t.checkWritable()
}

// storePath returns the bucket path of a store sub bucket
func storePath(name string, sub ...[]byte) [][]byte {
	return append([][]byte{bucketStores, []byte(name)}, sub...)
}

// loadStore reads the store definition from its meta bucket
func loadStore(t *txImpl, name string, meta IBucket) (*storeImpl, error) {
	keyPath := meta.Get(keyKeyPath)
	if keyPath == nil {
		return nil, fmt.Errorf("%w: store %s has no key path", db.ErrCorrupted, name)
	}
	s := &storeImpl{tx: t, name: name, keyPath: string(keyPath), indexes: map[string]string{}}

	c := meta.Cursor()
	for k, v := c.Seek([]byte(keyIndexPrefix)); k != nil && strings.HasPrefix(string(k), keyIndexPrefix); k, v = c.Next() {
		s.indexes[strings.TrimPrefix(string(k), keyIndexPrefix)] = string(v)
	}
	return s, nil
}
