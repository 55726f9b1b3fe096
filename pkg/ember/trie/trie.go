// Package trie implements a byte-wise prefix tree used for longest-prefix
// route matching.
//
// Lookup walks the tree one byte at a time following the path and remembers
// the deepest node that carries a value. Nodes keep a sorted index of their
// children's first bytes so the walk never allocates.
package trie

import "sort"

const linearScanMax = 8

// Trie maps string prefixes to values of type V.
//
// A Trie is built once and then only read: concurrent LookupPrefix calls are
// safe as long as no Add runs at the same time.
type Trie[V any] struct {
	root node[V]
	size int
}

type node[V any] struct {
	// indices holds the first byte of each child, in the same order as
	// children, kept sorted for binary search
	indices  []byte
	children []*node[V]

	value    V
	hasValue bool
}

// New returns an empty trie.
func New[V any]() *Trie[V] {
	return &Trie[V]{}
}

// Add registers v under prefix, replacing any previous value for the same
// prefix. The empty prefix matches every path.
func (t *Trie[V]) Add(prefix string, v V) {
	n := &t.root
	for i := 0; i < len(prefix); i++ {
		n = n.childOrCreate(prefix[i])
	}
	if !n.hasValue {
		t.size++
	}
	n.value = v
	n.hasValue = true
}

// LookupPrefix returns the value registered under the longest prefix of
// path, together with that prefix's length.
//
// Allocation behavior: 0 allocs/op
func (t *Trie[V]) LookupPrefix(path []byte) (V, int, bool) {
	var (
		best    V
		bestLen int
		found   bool
	)

	n := &t.root
	if n.hasValue {
		best, found = n.value, true
	}
	for i := 0; i < len(path); i++ {
		n = n.child(path[i])
		if n == nil {
			break
		}
		if n.hasValue {
			best, bestLen, found = n.value, i+1, true
		}
	}
	return best, bestLen, found
}

// Len returns the number of registered prefixes.
func (t *Trie[V]) Len() int {
	return t.size
}

func (n *node[V]) child(c byte) *node[V] {
	if len(n.indices) <= linearScanMax {
		for i, b := range n.indices {
			if b == c {
				return n.children[i]
			}
		}
		return nil
	}
	i := sort.Search(len(n.indices), func(i int) bool { return n.indices[i] >= c })
	if i < len(n.indices) && n.indices[i] == c {
		return n.children[i]
	}
	return nil
}

func (n *node[V]) childOrCreate(c byte) *node[V] {
	i := sort.Search(len(n.indices), func(i int) bool { return n.indices[i] >= c })
	if i < len(n.indices) && n.indices[i] == c {
		return n.children[i]
	}

	child := &node[V]{}
	n.indices = append(n.indices, 0)
	copy(n.indices[i+1:], n.indices[i:])
	n.indices[i] = c

	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = child
	return child
}
