package base

import (
	"fmt"
	"sort"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/db/keys"
)

// storeImpl implements db.ObjectStore
type storeImpl struct {
	tx      *txImpl
	name    string
	keyPath string
	indexes map[string]string // index name -> key path
}

// indexImpl implements db.Index
type indexImpl struct {
	store   *storeImpl
	name    string
	keyPath string
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.Source)
// --------------------------------------------------------------------------

func (s *storeImpl) Name() string    { return s.name }
func (s *storeImpl) KeyPath() string { return s.keyPath }

func (s *storeImpl) Count(r *db.KeyRange) (int, error) {
	return countRange(s.dataBucket(), r, false)
}

func (s *storeImpl) OpenCursor(r *db.KeyRange, dir db.Direction) (db.Cursor, error) {
	data := s.dataBucket()
	if data == nil {
		return nil, fmt.Errorf("%w: store %s has no data bucket", db.ErrCorrupted, s.name)
	}
	return newCursor(data.Cursor(), nil, s.tx.engine.codec, r, dir), nil
}

func (i *indexImpl) Name() string    { return i.name }
func (i *indexImpl) KeyPath() string { return i.keyPath }

func (i *indexImpl) Count(r *db.KeyRange) (int, error) {
	return countRange(i.store.indexBucket(i.name), r, true)
}

func (i *indexImpl) OpenCursor(r *db.KeyRange, dir db.Direction) (db.Cursor, error) {
	b := i.store.indexBucket(i.name)
	data := i.store.dataBucket()
	if b == nil || data == nil {
		return nil, fmt.Errorf("%w: index %s of store %s has no bucket", db.ErrCorrupted, i.name, i.store.name)
	}
	return newCursor(b.Cursor(), data, i.store.tx.engine.codec, r, dir), nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.ObjectStore)
// --------------------------------------------------------------------------

func (s *storeImpl) IndexNames() []string {
	names := make([]string, 0, len(s.indexes))
	for name := range s.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *storeImpl) Index(name string) (db.Index, error) {
	keyPath, ok := s.indexes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", db.ErrIndexNotFound, s.name, name)
	}
	return &indexImpl{store: s, name: name, keyPath: keyPath}, nil
}

func (s *storeImpl) CreateIndex(name, keyPath string) (db.Index, error) {
	if err := s.tx.checkUpgrade(); err != nil {
		return nil, err
	}
	if name == "" || keyPath == "" {
		return nil, fmt.Errorf("index name and key path must not be empty")
	}
	if _, ok := s.indexes[name]; ok {
		return nil, fmt.Errorf("%w: %s.%s", db.ErrIndexExists, s.name, name)
	}

	meta := s.tx.btx.Bucket(storePath(s.name, bucketMeta)...)
	if meta == nil {
		return nil, fmt.Errorf("%w: store %s has no meta bucket", db.ErrCorrupted, s.name)
	}
	if err := meta.Put([]byte(keyIndexPrefix+name), []byte(keyPath)); err != nil {
		return nil, err
	}
	idx, err := s.tx.btx.CreateBucket(storePath(s.name, bucketIndexes, []byte(name))...)
	if err != nil {
		return nil, err
	}
	s.indexes[name] = keyPath

	// populate the index from the existing records
	n := 0
	c := s.dataBucket().Cursor()
	for pk, v := c.First(); pk != nil; pk, v = c.Next() {
		rec, err := s.tx.engine.codec.decode(v)
		if err != nil {
			return nil, err
		}
		if enc, ok := indexKey(rec, keyPath); ok {
			// pk is owned by the backend, the index keeps its own copy
			pk = append([]byte(nil), pk...)
			if err := idx.Put(append(enc, pk...), pk); err != nil {
				return nil, err
			}
			n++
		}
	}

	Logger.Infof("created index %s.%s (keyPath=%s, entries=%d)", s.name, name, keyPath, n)
	return &indexImpl{store: s, name: name, keyPath: keyPath}, nil
}

func (s *storeImpl) DeleteIndex(name string) error {
	if err := s.tx.checkUpgrade(); err != nil {
		return err
	}
	if _, ok := s.indexes[name]; !ok {
		return fmt.Errorf("%w: %s.%s", db.ErrIndexNotFound, s.name, name)
	}
	meta := s.tx.btx.Bucket(storePath(s.name, bucketMeta)...)
	if meta == nil {
		return fmt.Errorf("%w: store %s has no meta bucket", db.ErrCorrupted, s.name)
	}
	if err := meta.Delete([]byte(keyIndexPrefix + name)); err != nil {
		return err
	}
	if err := s.tx.btx.DeleteBucket(storePath(s.name, bucketIndexes, []byte(name))...); err != nil {
		return err
	}
	delete(s.indexes, name)

	Logger.Infof("deleted index %s.%s", s.name, name)
	return nil
}

func (s *storeImpl) Get(key any) (db.Record, bool, error) {
	pk, err := keys.Encode(key)
	if err != nil {
		return nil, false, err
	}
	v := s.dataBucket().Get(pk)
	if v == nil {
		return nil, false, nil
	}
	rec, err := s.tx.engine.codec.decode(v)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (s *storeImpl) Put(rec db.Record) error {
	return s.put(rec, false)
}

func (s *storeImpl) Add(rec db.Record) error {
	return s.put(rec, true)
}

func (s *storeImpl) Delete(key any) error {
	if err := s.tx.checkWritable(); err != nil {
		return err
	}
	pk, err := keys.Encode(key)
	if err != nil {
		return err
	}
	data := s.dataBucket()
	old := data.Get(pk)
	if old == nil {
		return nil
	}
	if err := s.removeIndexEntries(pk, old); err != nil {
		return err
	}
	return data.Delete(pk)
}

func (s *storeImpl) Clear() error {
	if err := s.tx.checkWritable(); err != nil {
		return err
	}
	paths := [][][]byte{storePath(s.name, bucketData)}
	for name := range s.indexes {
		paths = append(paths, storePath(s.name, bucketIndexes, []byte(name)))
	}
	for _, p := range paths {
		if err := s.tx.btx.DeleteBucket(p...); err != nil {
			return err
		}
		if _, err := s.tx.btx.CreateBucket(p...); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *storeImpl) dataBucket() IBucket {
	return s.tx.btx.Bucket(storePath(s.name, bucketData)...)
}

func (s *storeImpl) indexBucket(name string) IBucket {
	return s.tx.btx.Bucket(storePath(s.name, bucketIndexes, []byte(name))...)
}

// put writes a record and maintains all indexes.
// The keys are read from the stored (encoded and decoded) form of the record,
// so the index entries always match what a later Get returns.
func (s *storeImpl) put(rec db.Record, noOverwrite bool) error {
	if err := s.tx.checkWritable(); err != nil {
		return err
	}

	codec := s.tx.engine.codec
	raw, err := codec.encode(rec)
	if err != nil {
		return err
	}
	stored, err := codec.decode(raw)
	if err != nil {
		return err
	}

	pk, ok := indexKey(stored, s.keyPath)
	if !ok {
		return fmt.Errorf("%w: %s (store %s)", db.ErrMissingKey, s.keyPath, s.name)
	}

	data := s.dataBucket()
	if old := data.Get(pk); old != nil {
		if noOverwrite {
			return fmt.Errorf("%w: %s", db.ErrKeyExists, s.name)
		}
		if err := s.removeIndexEntries(pk, old); err != nil {
			return err
		}
	}

	if err := data.Put(pk, raw); err != nil {
		return err
	}

	for name, keyPath := range s.indexes {
		enc, ok := indexKey(stored, keyPath)
		if !ok {
			continue
		}
		if err := s.indexBucket(name).Put(append(enc, pk...), pk); err != nil {
			return err
		}
	}
	return nil
}

// removeIndexEntries removes the index entries of the stored record raw
func (s *storeImpl) removeIndexEntries(pk, raw []byte) error {
	if len(s.indexes) == 0 {
		return nil
	}
	old, err := s.tx.engine.codec.decode(raw)
	if err != nil {
		return err
	}
	for name, keyPath := range s.indexes {
		enc, ok := indexKey(old, keyPath)
		if !ok {
			continue
		}
		if err := s.indexBucket(name).Delete(append(enc, pk...)); err != nil {
			return err
		}
	}
	return nil
}

// indexKey returns the encoded key at keyPath, ok is false if there is no valid key
func indexKey(rec db.Record, keyPath string) ([]byte, bool) {
	v, ok := rec.Lookup(keyPath)
	if !ok {
		return nil, false
	}
	enc, err := keys.Encode(v)
	if err != nil {
		return nil, false
	}
	return enc, true
}

// countRange counts the pairs of b inside r
func countRange(b IBucket, r *db.KeyRange, composite bool) (int, error) {
	if b == nil {
		return 0, fmt.Errorf("%w: missing bucket", db.ErrCorrupted)
	}
	c := newCursor(b.Cursor(), nil, nil, r, db.DirectionNext)
	c.composite = composite
	n := 0
	for c.Next() {
		n++
	}
	return n, c.Err()
}
