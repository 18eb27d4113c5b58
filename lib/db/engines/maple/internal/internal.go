package internal

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/google/btree"
)

// degree of the B-trees that store the pairs of a bucket
const degree = 32

// --------------------------------------------------------------------------
// Pair Type (key-value pair stored in a bucket)
// --------------------------------------------------------------------------

// Pair is a key-value pair of a bucket
type Pair struct {
	Key   []byte
	Value []byte
}

func (p Pair) String() string {
	return fmt.Sprintf("Pair{Key: %x, Value: %d bytes}", p.Key, len(p.Value))
}

// Size returns the number of bytes used by the pair
func (p Pair) Size() int {
	return len(p.Key) + len(p.Value)
}

func lessPair(a, b Pair) bool {
	return bytes.Compare(a.Key, b.Key) < 0
}

// --------------------------------------------------------------------------
// Bucket Type (ordered pairs and nested buckets)
// --------------------------------------------------------------------------

// Bucket holds ordered key-value pairs and named nested buckets.
// Buckets are not thread-safe. A committed bucket tree must only be read,
// writers work on a Clone.
type Bucket struct {
	Pairs    *btree.BTreeG[Pair]
	Children map[string]*Bucket
}

// NewBucket creates an empty bucket
func NewBucket() *Bucket {
	return &Bucket{
		Pairs:    btree.NewG[Pair](degree, lessPair),
		Children: map[string]*Bucket{},
	}
}

// Clone returns a copy of the bucket tree. The pair trees are cloned lazily
// (copy-on-write), so cloning only costs one allocation per bucket.
//
// Thread-safety: Clone must not be called concurrently with itself on the same tree,
// but the original tree can still be read while the clone is modified.
func (b *Bucket) Clone() *Bucket {
	c := &Bucket{
		Pairs:    b.Pairs.Clone(),
		Children: make(map[string]*Bucket, len(b.Children)),
	}
	for name, child := range b.Children {
		c.Children[name] = child.Clone()
	}
	return c
}

// Size returns the number of bytes used by all pairs of the bucket tree
func (b *Bucket) Size() int {
	size := 0
	b.Pairs.Ascend(func(p Pair) bool {
		size += p.Size()
		return true
	})
	for name, child := range b.Children {
		size += len(name) + child.Size()
	}
	return size
}

// ChildNames returns the names of the nested buckets in ascending order
func (b *Bucket) ChildNames() [][]byte {
	names := make([]string, 0, len(b.Children))
	for name := range b.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([][]byte, len(names))
	for i, name := range names {
		out[i] = []byte(name)
	}
	return out
}

// Walk returns the bucket at path (nil if it does not exist)
func (b *Bucket) Walk(path ...[]byte) *Bucket {
	cur := b
	for _, p := range path {
		next, ok := cur.Children[string(p)]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// --------------------------------------------------------------------------
// Positioning (used by the bucket cursors)
// --------------------------------------------------------------------------

// Seek returns the first pair with a key >= key
func (b *Bucket) Seek(key []byte) (Pair, bool) {
	var (
		found Pair
		ok    bool
	)
	b.Pairs.AscendGreaterOrEqual(Pair{Key: key}, func(p Pair) bool {
		found, ok = p, true
		return false
	})
	return found, ok
}

// After returns the first pair with a key > key
func (b *Bucket) After(key []byte) (Pair, bool) {
	var (
		found Pair
		ok    bool
	)
	b.Pairs.AscendGreaterOrEqual(Pair{Key: key}, func(p Pair) bool {
		if bytes.Equal(p.Key, key) {
			return true
		}
		found, ok = p, true
		return false
	})
	return found, ok
}

// Before returns the last pair with a key < key
func (b *Bucket) Before(key []byte) (Pair, bool) {
	var (
		found Pair
		ok    bool
	)
	b.Pairs.DescendLessOrEqual(Pair{Key: key}, func(p Pair) bool {
		if bytes.Equal(p.Key, key) {
			return true
		}
		found, ok = p, true
		return false
	})
	return found, ok
}
