package invertex

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// LockMode selects how Locker acquires tuple-grained locks for a batch of
// document IDs, mirroring the host transaction manager's own lock-mode
// taxonomy for inverted-index reads: a plain per-ID lock, a lock taken
// while building a result bitmap, a variant that also caches the object
// fetched for each ID, a whole-bitmap cache without individual locks, and a
// sorted variant that locks in document-ID order to bound deadlock cycles.
type LockMode int

const (
	LockNormal LockMode = iota
	LockGetByBitSet
	LockGetByBitSetCacheAllObject
	LockCacheAllObject
	LockBitSetSort
)

// Locker serializes per-document-ID access across concurrent readers and
// writers of the same section, acquiring locks in ascending document-ID
// order so two lockers racing over overlapping ID sets always converge on
// the same acquisition order and never deadlock.
type Locker struct {
	mu    sync.Mutex
	held  map[uint32]int // docID -> reference count
	avail *sync.Cond

	// bitmapCache remembers the materialized bitmap for an exact, sorted ID
	// set, keyed by idSetKey. Consulted by the two "CacheAllObject" modes so
	// a repeated lock request over the same ID set returns the same bitmap
	// object instead of rebuilding it.
	bitmapCache map[string]*roaring.Bitmap
}

// NewLocker creates an empty Locker.
func NewLocker() *Locker {
	l := &Locker{
		held:        make(map[uint32]int),
		bitmapCache: make(map[string]*roaring.Bitmap),
	}
	l.avail = sync.NewCond(&l.mu)
	return l
}

// idSetKey builds a map key identifying a sorted ID set, for bitmapCache.
func idSetKey(sorted []uint32) string {
	b := make([]byte, 4*len(sorted))
	for i, id := range sorted {
		binary.LittleEndian.PutUint32(b[i*4:], id)
	}
	return string(b)
}

// LockSet is a held group of document-ID locks, released together by
// Unlock.
type LockSet struct {
	locker *Locker
	ids    []uint32
}

// Lock acquires locks for every ID in ids (order-independent: Lock sorts
// them internally before acquiring) under the given LockMode, blocking
// while any of them is held by another caller. The five modes give genuinely
// different behavior, not just a different return value over the same
// acquisition:
//
//   - LockNormal: per-ID locks only, no bitmap returned.
//   - LockGetByBitSet: per-ID locks, plus a freshly materialized bitmap of
//     the locked IDs for the caller's immediate set operation.
//   - LockGetByBitSetCacheAllObject: per-ID locks, plus a bitmap remembered
//     in bitmapCache so a repeated lock over the same exact ID set returns
//     the same object instead of rebuilding it.
//   - LockCacheAllObject: no per-document locks at all — just the cached
//     bitmap for this ID set, for callers that only need a consistent
//     snapshot to read and don't intend to mutate anything under it.
//   - LockBitSetSort: per-ID locks, with the bitmap built by inserting IDs
//     one at a time in the same ascending order they were locked in, rather
//     than bulk-loaded — the explicit sorted-materialization path the other
//     bitmap modes don't need to guarantee.
func (l *Locker) Lock(mode LockMode, ids []uint32) (*LockSet, *roaring.Bitmap) {
	sorted := append([]uint32(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if mode == LockCacheAllObject {
		key := idSetKey(sorted)
		l.mu.Lock()
		bm, ok := l.bitmapCache[key]
		if !ok {
			bm = roaring.New()
			bm.AddMany(sorted)
			l.bitmapCache[key] = bm
		}
		l.mu.Unlock()
		return &LockSet{locker: l}, bm
	}

	l.mu.Lock()
	// Check the whole set and acquire it atomically under one held critical
	// section: checking all IDs free, then incrementing them, without ever
	// releasing l.mu in between. Splitting those into two separate loops
	// (check all, then increment all) would let two callers both observe an
	// ID as free before either increments it, double-locking it.
	for {
		conflict := false
		for _, id := range sorted {
			if l.held[id] > 0 {
				conflict = true
				break
			}
		}
		if !conflict {
			break
		}
		l.avail.Wait()
	}
	for _, id := range sorted {
		l.held[id]++
	}
	l.mu.Unlock()

	ls := &LockSet{locker: l, ids: sorted}

	switch mode {
	case LockBitSetSort:
		bm := roaring.New()
		for _, id := range sorted {
			bm.Add(id)
		}
		return ls, bm
	case LockGetByBitSet:
		bm := roaring.New()
		bm.AddMany(sorted)
		return ls, bm
	case LockGetByBitSetCacheAllObject:
		key := idSetKey(sorted)
		l.mu.Lock()
		bm, ok := l.bitmapCache[key]
		if !ok {
			bm = roaring.New()
			bm.AddMany(sorted)
			l.bitmapCache[key] = bm
		}
		l.mu.Unlock()
		return ls, bm
	default:
		return ls, nil
	}
}

// Unlock releases every ID in the set and wakes any waiter blocked on one
// of them.
func (ls *LockSet) Unlock() {
	ls.locker.mu.Lock()
	for _, id := range ls.ids {
		ls.locker.held[id]--
		if ls.locker.held[id] <= 0 {
			delete(ls.locker.held, id)
		}
	}
	ls.locker.mu.Unlock()
	ls.locker.avail.Broadcast()
}

// Unlocker is a narrower interface exposing only the release half of a
// LockSet, handed to callers (such as a deferred cleanup) that should not
// be able to re-lock.
type Unlocker interface {
	Unlock()
}

var _ Unlocker = (*LockSet)(nil)
