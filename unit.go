package invertex

import (
	"context"
	"sort"
	"sync"
)

// ResetMode selects how ListManager.Reset positions onto a key.
type ResetMode int

const (
	// ResetSearch is an exact match; Reset reports false if key is absent.
	ResetSearch ResetMode = iota
	// ResetCreate is an exact match that creates an empty Short list if key
	// is absent.
	ResetCreate
	// ResetLowerBound positions onto the first key >= the argument, used by
	// the merge walker to enumerate terms in order.
	ResetLowerBound
)

// InvertedUnit is one physical inverted file: a B-tree on term mapping to
// per-term InvertedLists. The host engine's leaf/overflow file, B-tree
// file and deleted-ID-block log are collapsed here into one in-memory
// termBTree, since physical paging is the external Buffer/Page
// collaborator's job (§6), not this unit's.
type InvertedUnit struct {
	mu  sync.RWMutex
	cfg EngineConfig

	tree *termBTree

	idCoderName, locCoderName string

	// expungeSinceVacuum tracks, per term, how many expunge-merges have
	// landed on it since the last vacuum, driving ListManager's vacuum
	// policy (§4.4 "Vacuum policy").
	expungeSinceVacuum map[string]int

	// approxSize stands in for the physical file size a real Buffer/Page
	// layer would report; InsertCurrent bumps it by a fixed per-posting
	// estimate so Section.Insert can compare against
	// InsertMergeFileSize/ExpungeMergeFileSize without an actual page
	// manager (out of scope per §1/§6).
	approxSize int64
}

// NewInvertedUnit creates an empty unit using the given coder names.
func NewInvertedUnit(cfg EngineConfig, idCoderName, locCoderName string) *InvertedUnit {
	return &InvertedUnit{
		cfg:                cfg,
		tree:               newTermBTree(),
		idCoderName:        idCoderName,
		locCoderName:       locCoderName,
		expungeSinceVacuum: make(map[string]int),
	}
}

// GetUpdateListManager returns a ListManager bound to this unit, ready for
// Reset/Next/GetInvertedList calls.
func (u *InvertedUnit) GetUpdateListManager() *ListManager {
	return &ListManager{unit: u}
}

// clear truncates the unit to empty without destroying it (mirrors the
// source's InvertedUnit.clear()).
func (u *InvertedUnit) clear() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.tree = newTermBTree()
	u.expungeSinceVacuum = make(map[string]int)
}

// terms returns every key currently stored, ascending — the merge walker's
// enumeration primitive.
func (u *InvertedUnit) terms() []string {
	return u.tree.Terms()
}

// approximateBytesPerPosting estimates a posting's on-disk footprint (doc-ID
// gap plus a short location list) for the size accounting InsertCurrent
// performs in lieu of a real page manager.
const approximateBytesPerPosting = 16

// Size returns the unit's approximate accumulated footprint.
func (u *InvertedUnit) Size() int64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.approxSize
}

// noteExpunge records one expunge-merge landing on term and reports whether
// the per-term count has crossed cfg.VacuumThreshold, in which case the
// caller should vacuum the list and the counter is cleared.
func (u *InvertedUnit) noteExpunge(term string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.expungeSinceVacuum[term]++
	if u.expungeSinceVacuum[term] >= u.cfg.VacuumThreshold {
		u.expungeSinceVacuum[term] = 0
		return true
	}
	return false
}

// ListManager finds, creates and walks lists inside one file unit by term,
// the update-side cursor that holds the "currently positioned" term and its
// InvertedList, mirroring the original engine's leaf-page pin.
type ListManager struct {
	unit *InvertedUnit

	// keys is the unit's full sorted term list, snapshotted lazily on the
	// first Next/ResetLowerBound call so a single walk sees a consistent
	// ordering even if other terms are inserted concurrently elsewhere in
	// the unit.
	keys    []string
	keyPos  int
	current string
	found   bool
}

// Reset positions the manager onto key per mode, returning whether the key
// now has an existing list (false for a freshly Create'd empty one is never
// returned — Create always reports true once positioned).
func (lm *ListManager) Reset(key string, mode ResetMode) bool {
	switch mode {
	case ResetSearch:
		_, ok := lm.unit.tree.Get(key)
		lm.current = key
		lm.found = ok
		return ok
	case ResetCreate:
		if _, ok := lm.unit.tree.Get(key); !ok {
			sl, err := NewShortList(lm.unit.cfg, lm.unit.idCoderName, lm.unit.locCoderName)
			if err == nil {
				lm.unit.tree.Put(key, sl)
			}
		}
		lm.current = key
		lm.found = true
		return true
	case ResetLowerBound:
		lm.keys = lm.unit.terms()
		lm.keyPos = sort.SearchStrings(lm.keys, key)
		if lm.keyPos >= len(lm.keys) {
			lm.current = ""
			lm.found = false
			return false
		}
		lm.current = lm.keys[lm.keyPos]
		lm.found = true
		return true
	}
	return false
}

// Next advances to the next key in sorted order (only meaningful after a
// ResetLowerBound positioning), reporting whether a further key exists.
func (lm *ListManager) Next() bool {
	if lm.keys == nil {
		lm.keys = lm.unit.terms()
		lm.keyPos = sort.SearchStrings(lm.keys, lm.current)
	}
	lm.keyPos++
	if lm.keyPos >= len(lm.keys) {
		lm.current = ""
		lm.found = false
		return false
	}
	lm.current = lm.keys[lm.keyPos]
	lm.found = true
	return true
}

// Key returns the term the manager is currently positioned on.
func (lm *ListManager) Key() string { return lm.current }

// GetInvertedList returns the InvertedList currently positioned on, or nil
// if Reset/Next left the manager unpositioned.
func (lm *ListManager) GetInvertedList() InvertedList {
	if !lm.found {
		return nil
	}
	list, _ := lm.unit.tree.Get(lm.current)
	return list
}

// GetIterator returns a ListIterator over the currently positioned list, or
// nil if unpositioned.
func (lm *ListManager) GetIterator() ListIterator {
	list := lm.GetInvertedList()
	if list == nil {
		return nil
	}
	return list.Iterator()
}

// InsertCurrent inserts a posting into the currently positioned list,
// transparently converting Short to Middle (and replacing the B-tree entry)
// when the Short list's Area has outgrown its cap.
func (lm *ListManager) InsertCurrent(cfg EngineConfig, docID uint32, positions []uint32) error {
	list := lm.GetInvertedList()
	if list == nil {
		return ErrKeyNotFound
	}
	if sl, ok := list.(*ShortList); ok {
		err := sl.InsertWithGrowth(cfg, docID, positions)
		if err == ErrListFull {
			converted, cerr := sl.Convert(cfg)
			if cerr != nil {
				return cerr
			}
			if converted == nil {
				return ErrListFull
			}
			lm.unit.tree.Put(lm.current, converted)
			return converted.Insert(docID, positions)
		}
		if err == nil {
			lm.unit.mu.Lock()
			lm.unit.approxSize += approximateBytesPerPosting
			lm.unit.mu.Unlock()
		}
		return err
	}
	err := list.Insert(docID, positions)
	if err == ErrListFull {
		converted, cerr := list.Convert(cfg)
		if cerr != nil {
			return cerr
		}
		if converted == nil {
			return ErrListFull
		}
		lm.unit.tree.Put(lm.current, converted)
		err = converted.Insert(docID, positions)
	}
	if err == nil {
		lm.unit.mu.Lock()
		lm.unit.approxSize += approximateBytesPerPosting
		lm.unit.mu.Unlock()
	}
	return err
}

// ExpungeCurrent removes docID's posting from the currently positioned
// list, vacuuming it if the unit's per-term expunge counter crosses
// cfg.VacuumThreshold.
func (lm *ListManager) ExpungeCurrent(docID uint32) bool {
	list := lm.GetInvertedList()
	if list == nil {
		return false
	}
	removed := list.Expunge(docID)
	if removed && lm.unit.noteExpunge(lm.current) {
		list.Vacuum()
	}
	return removed
}

// InvertedMultiUnit fans N Units for a distributed large index: insert
// routes to a caller-selected unit number, search fans every unit in
// through a MultiListIterator.
type InvertedMultiUnit struct {
	units []*InvertedUnit
}

// NewInvertedMultiUnit creates n units sharing cfg and coder names.
func NewInvertedMultiUnit(n int, cfg EngineConfig, idCoderName, locCoderName string) *InvertedMultiUnit {
	m := &InvertedMultiUnit{units: make([]*InvertedUnit, n)}
	for i := range m.units {
		m.units[i] = NewInvertedUnit(cfg, idCoderName, locCoderName)
	}
	return m
}

// UnitCount returns the number of large-index units.
func (m *InvertedMultiUnit) UnitCount() int { return len(m.units) }

// Unit returns the i'th unit, used for per-unit merge walking and insert
// routing by unit number.
func (m *InvertedMultiUnit) Unit(i int) *InvertedUnit { return m.units[i] }

// multiListManager composes per-unit ListManagers into a fan-in iterator,
// used by search when DistributedUnitCount > 1.
type multiListManager struct {
	subs []*ListManager
}

// GetUpdateListManager returns a fan-in manager positioned nowhere; callers
// must Reset it before use.
func (m *InvertedMultiUnit) GetUpdateListManager() *multiListManager {
	subs := make([]*ListManager, len(m.units))
	for i, u := range m.units {
		subs[i] = u.GetUpdateListManager()
	}
	return &multiListManager{subs: subs}
}

func (m *multiListManager) Reset(key string, mode ResetMode) bool {
	found := false
	for _, s := range m.subs {
		if s.Reset(key, mode) {
			found = true
		}
	}
	return found
}

func (m *multiListManager) GetIterator(ctx context.Context) ListIterator {
	iters := make([]ListIterator, 0, len(m.subs))
	for _, s := range m.subs {
		if it := s.GetIterator(); it != nil {
			iters = append(iters, it)
		}
	}
	if len(iters) == 0 {
		return newSliceIterator(nil)
	}
	if len(iters) == 1 {
		return iters[0]
	}
	return NewMultiListIterator(iters)
}

// InvertedBatch owns a BatchListMap and returns a manager that walks it in
// key order, the in-memory staging side used by InsertBatch mode before
// anything touches a file unit.
type InvertedBatch struct {
	mu  sync.Mutex
	cfg EngineConfig
	m   *BatchListMap
}

// NewInvertedBatch creates an empty batch bound to cfg (for its
// BatchSizeMax ceiling).
func NewInvertedBatch(cfg EngineConfig) *InvertedBatch {
	return &InvertedBatch{cfg: cfg, m: NewBatchListMap(cfg)}
}

// AddList returns the BatchList for key, creating an empty one if absent.
func (b *InvertedBatch) AddList(key string) *BatchList {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.m.GetOrCreate(key)
}

// ExceedsCeiling reports whether the batch's accounted size has crossed
// cfg.BatchSizeMax, the trigger for flushing the whole map to the large
// index and resetting it (§4.2.3).
func (b *InvertedBatch) ExceedsCeiling() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.m.TotalSize() >= b.cfg.BatchSizeMax
}

// Reset discards every batch list, used after a flush to the large index.
func (b *InvertedBatch) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m = NewBatchListMap(b.cfg)
}

// Terms returns every key in the batch map, ascending.
func (b *InvertedBatch) Terms() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.m.Terms()
}

// BatchListMap is the sorted in-memory map Term -> BatchList used to absorb
// inserts in bulk or in "batch mode" before writing to disk. Unlike a file
// unit, a term here has exactly one BatchList (the source's "chain of
// BatchLists per term" collapses naturally since BatchList itself has no
// hard size cap, see §4.2.3).
type BatchListMap struct {
	cfg     EngineConfig
	entries map[string]*BatchList
}

// NewBatchListMap creates an empty map.
func NewBatchListMap(cfg EngineConfig) *BatchListMap {
	return &BatchListMap{cfg: cfg, entries: make(map[string]*BatchList)}
}

// GetOrCreate returns key's BatchList, creating an empty one if absent.
func (bm *BatchListMap) GetOrCreate(key string) *BatchList {
	bl, ok := bm.entries[key]
	if !ok {
		bl = &BatchList{}
		bm.entries[key] = bl
	}
	return bl
}

// Get returns key's BatchList and whether it exists.
func (bm *BatchListMap) Get(key string) (*BatchList, bool) {
	bl, ok := bm.entries[key]
	return bl, ok
}

// Terms returns every key present, ascending.
func (bm *BatchListMap) Terms() []string {
	out := make([]string, 0, len(bm.entries))
	for k := range bm.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// TotalSize sums every entry's accounted byte size (see BatchList.byteSize
// and DESIGN.md Open Question Decision 3).
func (bm *BatchListMap) TotalSize() int64 {
	var total int64
	for _, bl := range bm.entries {
		total += bl.byteSize()
	}
	return total
}
