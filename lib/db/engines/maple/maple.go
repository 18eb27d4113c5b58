package maple

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/db/engines/base"
	"github.com/ValentinKolb/tKV/lib/db/engines/maple/internal"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Named databases
// --------------------------------------------------------------------------

// registry holds all named in-memory databases of the process.
// Engines opened with the same name share their data.
var registry = xsync.NewMapOf[string, *database]()

// database holds the committed state of an in-memory database
type database struct {
	writeMu sync.Mutex            // serializes write transactions
	state   atomic.Pointer[state] // committed state, never modified in place
}

// state is an immutable version of the database
type state struct {
	root *internal.Bucket
	size int // bytes used by all pairs and bucket names
}

func newDatabase() *database {
	d := &database{}
	d.state.Store(&state{root: internal.NewBucket()})
	return d
}

// Drop removes a named database from the process. Engines that are still open
// keep working on the dropped data, new engines start empty.
func Drop(name string) {
	if _, ok := registry.LoadAndDelete(name); ok {
		base.Logger.Infof("dropped in-memory database %s", name)
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// DBOptions configures the maple engine behavior during initialization
type DBOptions struct {
	Name        string // Name of a shared database ("" = private database)
	Compression bool   // Compress records with zstd
}

// DefaultOptions returns the default maple options
func DefaultOptions() *DBOptions {
	return &DBOptions{}
}

// NewMapleDB creates a new in-memory engine with the specified options (optional).
// All data is kept in B-trees. Write transactions work on a copy-on-write clone
// of the committed state, which is published atomically on success, so readers
// never block and never see partial writes.
func NewMapleDB(opts *DBOptions) (db.Engine, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	var data *database
	if opts.Name == "" {
		data = newDatabase()
	} else {
		data, _ = registry.LoadOrCompute(opts.Name, newDatabase)
	}

	return base.NewEngine(&backend{data: data}, db.ImplMaple, &base.Options{
		Compression: opts.Compression,
	})
}

// --------------------------------------------------------------------------
// Backend (docu see base.IBackend)
// --------------------------------------------------------------------------

type backend struct {
	data   *database
	closed atomic.Bool
}

func (b *backend) GetName() string {
	return "maple"
}

func (b *backend) View(fn func(tx base.IBackendTx) error) error {
	if b.closed.Load() {
		return db.ErrClosed
	}
	tx := &txImpl{st: b.data.state.Load()}
	defer tx.finish()
	return fn(tx)
}

func (b *backend) Update(fn func(tx base.IBackendTx) error) error {
	if b.closed.Load() {
		return db.ErrClosed
	}

	b.data.writeMu.Lock()
	defer b.data.writeMu.Unlock()

	committed := b.data.state.Load()
	next := &state{root: committed.root.Clone(), size: committed.size}

	tx := &txImpl{st: next, writable: true}
	err := fn(tx)
	tx.finish()
	if err != nil {
		return err
	}

	b.data.state.Store(next)
	return nil
}

func (b *backend) Features() db.Feature {
	return 0
}

func (b *backend) SizeBytes() int {
	return b.data.state.Load().size
}

func (b *backend) Close() error {
	b.closed.Store(true)
	return nil
}

// --------------------------------------------------------------------------
// Transaction (docu see base.IBackendTx)
// --------------------------------------------------------------------------

type txImpl struct {
	st       *state
	writable bool
	done     bool
}

func (tx *txImpl) finish() {
	tx.done = true
}

func (tx *txImpl) Bucket(path ...[]byte) base.IBucket {
	b := tx.st.root.Walk(path...)
	if b == nil || len(path) == 0 {
		return nil
	}
	return &bucketRef{tx: tx, b: b}
}

func (tx *txImpl) CreateBucket(path ...[]byte) (base.IBucket, error) {
	if err := tx.checkWritable(); err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("bucket path must not be empty")
	}
	cur := tx.st.root
	for _, p := range path {
		next, ok := cur.Children[string(p)]
		if !ok {
			next = internal.NewBucket()
			cur.Children[string(p)] = next
			tx.st.size += len(p)
		}
		cur = next
	}
	return &bucketRef{tx: tx, b: cur}, nil
}

func (tx *txImpl) DeleteBucket(path ...[]byte) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	if len(path) == 0 {
		return fmt.Errorf("bucket path must not be empty")
	}
	parent := tx.st.root.Walk(path[:len(path)-1]...)
	if parent == nil {
		return nil
	}
	name := string(path[len(path)-1])
	if child, ok := parent.Children[name]; ok {
		tx.st.size -= len(name) + child.Size()
		delete(parent.Children, name)
	}
	return nil
}

func (tx *txImpl) Buckets(path ...[]byte) [][]byte {
	b := tx.st.root.Walk(path...)
	if b == nil {
		return nil
	}
	return b.ChildNames()
}

func (tx *txImpl) Writable() bool {
	return tx.writable
}

func (tx *txImpl) checkWritable() error {
	if tx.done {
		return fmt.Errorf("transaction closed")
	}
	if !tx.writable {
		return db.ErrReadOnly
	}
	return nil
}

// --------------------------------------------------------------------------
// Bucket (docu see base.IBucket)
// --------------------------------------------------------------------------

type bucketRef struct {
	tx *txImpl
	b  *internal.Bucket
}

func (r *bucketRef) Get(key []byte) []byte {
	p, ok := r.b.Pairs.Get(internal.Pair{Key: key})
	if !ok {
		return nil
	}
	return p.Value
}

func (r *bucketRef) Put(key, value []byte) error {
	if err := r.tx.checkWritable(); err != nil {
		return err
	}
	if len(value) == 0 {
		return fmt.Errorf("value must not be empty")
	}

	// copy key and value to prevent memory corruption
	p := internal.Pair{
		Key:   append(make([]byte, 0, len(key)), key...),
		Value: append(make([]byte, 0, len(value)), value...),
	}
	if old, replaced := r.b.Pairs.ReplaceOrInsert(p); replaced {
		r.tx.st.size -= old.Size()
	}
	r.tx.st.size += p.Size()
	return nil
}

func (r *bucketRef) Delete(key []byte) error {
	if err := r.tx.checkWritable(); err != nil {
		return err
	}
	if old, ok := r.b.Pairs.Delete(internal.Pair{Key: key}); ok {
		r.tx.st.size -= old.Size()
	}
	return nil
}

func (r *bucketRef) Cursor() base.IBucketCursor {
	return &cursor{b: r.b}
}

// --------------------------------------------------------------------------
// Cursor (docu see base.IBucketCursor)
// --------------------------------------------------------------------------

// cursor remembers the current key and repositions with a tree lookup on every
// move, so it stays valid when the bucket is modified during iteration.
type cursor struct {
	b   *internal.Bucket
	cur []byte
}

func (c *cursor) set(p internal.Pair, ok bool) ([]byte, []byte) {
	if !ok {
		c.cur = nil
		return nil, nil
	}
	c.cur = p.Key
	return p.Key, p.Value
}

func (c *cursor) First() ([]byte, []byte) {
	return c.set(c.b.Pairs.Min())
}

func (c *cursor) Last() ([]byte, []byte) {
	return c.set(c.b.Pairs.Max())
}

func (c *cursor) Seek(seek []byte) ([]byte, []byte) {
	return c.set(c.b.Seek(seek))
}

func (c *cursor) Next() ([]byte, []byte) {
	if c.cur == nil {
		return nil, nil
	}
	return c.set(c.b.After(c.cur))
}

func (c *cursor) Prev() ([]byte, []byte) {
	if c.cur == nil {
		return nil, nil
	}
	return c.set(c.b.Before(c.cur))
}
