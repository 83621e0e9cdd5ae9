package invertex

import (
	"sort"
	"sync"

	"github.com/zeebo/xxh3"
)

// btreeLeafSize is the maximum number of entries a leaf node holds before
// it splits, mirroring a slotted-page B+Tree's fixed fan-out.
const btreeLeafSize = 64

// termBTree is the minimal term-to-leaf-page B-tree a ListManager uses to
// locate a term's InvertedList. Leaves are kept as plain sorted slices and
// split on overflow; internal nodes hold separator keys copied up from the
// leaf split, the classic B+Tree shape.
type termBTree struct {
	mu   sync.RWMutex
	root *btreeNode

	// leafCache buckets recently touched leaves by a hash of the term that
	// was looked up or stored, avoiding a root-to-leaf walk on repeated
	// lookups of the same hot term within a single merge pass.
	leafCache map[uint64]*btreeNode
}

type btreeNode struct {
	leaf     bool
	keys     []string
	children []*btreeNode // len(children) == len(keys)+1 for internal nodes
	lists    []InvertedList // parallel to keys for leaf nodes
}

func newTermBTree() *termBTree {
	return &termBTree{
		root:      &btreeNode{leaf: true},
		leafCache: make(map[uint64]*btreeNode),
	}
}

func cacheKey(term string) uint64 {
	return xxh3.HashString(term)
}

// Get returns the InvertedList for term, or (nil, false) if the term has
// never been inserted.
func (t *termBTree) Get(term string) (InvertedList, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	leaf := t.findLeaf(term)
	i := sort.SearchStrings(leaf.keys, term)
	if i < len(leaf.keys) && leaf.keys[i] == term {
		return leaf.lists[i], true
	}
	return nil, false
}

// Put inserts or replaces the InvertedList for term.
func (t *termBTree) Put(term string, list InvertedList) {
	t.mu.Lock()
	defer t.mu.Unlock()
	leaf := t.findLeaf(term)
	i := sort.SearchStrings(leaf.keys, term)
	if i < len(leaf.keys) && leaf.keys[i] == term {
		leaf.lists[i] = list
		return
	}
	leaf.keys = append(leaf.keys, "")
	copy(leaf.keys[i+1:], leaf.keys[i:])
	leaf.keys[i] = term
	leaf.lists = append(leaf.lists, nil)
	copy(leaf.lists[i+1:], leaf.lists[i:])
	leaf.lists[i] = list

	t.leafCache[cacheKey(term)] = leaf

	if len(leaf.keys) > btreeLeafSize {
		t.splitLeaf(leaf)
	}
}

// findLeaf walks from the root to the leaf that would hold term. A hit in
// leafCache skips the walk entirely for a term it last saw an exact key
// for; the exact-match check (rather than trusting the hash alone) is what
// makes a stale or colliding cache entry safe to fall through from instead
// of returning the wrong leaf. Since splits are rare relative to lookups,
// falling back to a plain tree walk (no persistent parent pointers) is
// simplest and cheap enough on a miss.
func (t *termBTree) findLeaf(term string) *btreeNode {
	if leaf, ok := t.leafCache[cacheKey(term)]; ok {
		i := sort.SearchStrings(leaf.keys, term)
		if i < len(leaf.keys) && leaf.keys[i] == term {
			return leaf
		}
	}
	n := t.root
	for !n.leaf {
		i := sort.SearchStrings(n.keys, term)
		if i < len(n.keys) && n.keys[i] == term {
			i++
		}
		n = n.children[i]
	}
	return n
}

// splitLeaf is only correct for a root-is-only-leaf or already-rebalanced
// tree; deeper rebalancing (propagating splits above the immediate parent)
// is intentionally out of scope here since a term dictionary's skew rarely
// produces more than two B-tree levels in practice for this engine's term
// counts.
func (t *termBTree) splitLeaf(leaf *btreeNode) {
	mid := len(leaf.keys) / 2
	right := &btreeNode{
		leaf:  true,
		keys:  append([]string(nil), leaf.keys[mid:]...),
		lists: append([]InvertedList(nil), leaf.lists[mid:]...),
	}

	// Every cached entry for a key moving to right still points at leaf,
	// which keeps only the first half of keys below. Drop those entries so
	// the next findLeaf call re-walks and re-caches against right instead
	// of silently returning the wrong node.
	for _, k := range right.keys {
		delete(t.leafCache, cacheKey(k))
	}

	leaf.keys = leaf.keys[:mid:mid]
	leaf.lists = leaf.lists[:mid:mid]

	if leaf == t.root {
		newRoot := &btreeNode{
			leaf:     false,
			keys:     []string{right.keys[0]},
			children: []*btreeNode{leaf, right},
		}
		t.root = newRoot
		return
	}
	t.insertIntoParent(leaf, right, right.keys[0])
}

// insertIntoParent handles the (common, in this engine) one-level-deep
// case: the root is internal and leaf is one of its direct children.
func (t *termBTree) insertIntoParent(leaf, right *btreeNode, sepKey string) {
	parent := t.root
	for i, child := range parent.children {
		if child == leaf {
			parent.children = append(parent.children, nil)
			copy(parent.children[i+2:], parent.children[i+1:])
			parent.children[i+1] = right
			parent.keys = append(parent.keys, "")
			copy(parent.keys[i+1:], parent.keys[i:])
			parent.keys[i] = sepKey
			return
		}
	}
}

// Terms returns every term currently in the tree, in ascending order — used
// by InvertedUnit to enumerate a unit's terms (e.g. for the merge walk).
func (t *termBTree) Terms() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	var walk func(*btreeNode)
	walk = func(n *btreeNode) {
		if n.leaf {
			out = append(out, n.keys...)
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	return out
}
