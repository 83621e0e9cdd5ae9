package invertex

import "context"

// listKind identifies which physical representation a term's postings
// currently use.
type listKind int

const (
	kindShort listKind = iota
	kindMiddle
	kindBatch
)

// Posting is one (docID, term-frequency, positions) tuple for one term, the
// in-memory shape every list representation converges to for iteration,
// merge and conversion, even though Short lists keep it bit-packed at rest.
type Posting struct {
	DocID     uint32
	TF        uint32
	Positions []uint32 // strictly ascending, 1-origin
}

// InvertedList is the per-term storage object a ListManager hands back from
// Create/Search/LowerBound: an insertable, iterable posting list in one of
// three representations. Short lives entirely inside one Area; Middle
// overflows into a chained sequence of fixed-size ID blocks once a Short
// list would exceed ShortListMaxUnitSize; Batch is the purely in-memory
// staging representation used before a term has ever been flushed to a
// file unit.
type InvertedList interface {
	Kind() listKind

	// Insert adds a posting for docID with the given ascending positions.
	// It returns ErrListFull if this representation cannot grow to
	// accommodate it (the caller must convert to the next representation
	// up and retry).
	Insert(docID uint32, positions []uint32) error

	// InsertList bulk-merges every posting of other into this list, used by
	// the merge daemon folding a small insert list into the large side.
	InsertList(ctx context.Context, other InvertedList) error

	// Expunge removes the posting for docID, if present. It reports
	// whether a posting was actually removed.
	Expunge(docID uint32) bool

	// ExpungeList removes every posting of other present in this list,
	// used by the merge daemon folding a small expunge list into the
	// large side, and returns the number actually removed.
	ExpungeList(ctx context.Context, other InvertedList) (int, error)

	// UndoExpunge re-inserts a previously removed posting exactly,
	// rolling back a failed delete.
	UndoExpunge(docID uint32, positions []uint32) error

	// Iterator returns a ListIterator over this list's postings.
	Iterator() ListIterator

	// Count returns the number of postings currently stored.
	Count() int

	// Convert returns a different representation if this list has outgrown
	// its current one (e.g. Short past ShortListMaxUnitSize), or nil if no
	// conversion is needed.
	Convert(cfg EngineConfig) (InvertedList, error)

	// Vacuum reclaims space inside the list: empty ID blocks are unlinked
	// in a Middle list; Short and Batch have nothing to reclaim.
	Vacuum()
}

// ShortList is the Area-backed representation, used for low- to
// medium-frequency terms.
type ShortList struct {
	area              *Area
	idCoder, locCoder string
}

// NewShortList creates an empty Short list with the given initial Area size.
func NewShortList(cfg EngineConfig, idCoderName, locCoderName string) (*ShortList, error) {
	area, err := NewArea(cfg.ShortListInitialUnitSize, idCoderName, locCoderName)
	if err != nil {
		return nil, err
	}
	return &ShortList{area: area, idCoder: idCoderName, locCoder: locCoderName}, nil
}

func (s *ShortList) Kind() listKind { return kindShort }

func (s *ShortList) Insert(docID uint32, positions []uint32) error {
	return s.area.AppendPosting(docID, positions)
}

func (s *ShortList) Count() int { return s.area.count }

func (s *ShortList) Iterator() ListIterator {
	return newPostingIterator(s.area.Postings())
}

func (s *ShortList) InsertList(ctx context.Context, other InvertedList) error {
	it := other.Iterator()
	for id, err := it.Find(ctx, 0); id != 0; id, err = it.Next(ctx) {
		if err != nil {
			return err
		}
		positions := drainPositions(it)
		if err := s.Insert(id, positions); err != nil {
			return err
		}
	}
	return nil
}

// Expunge rebuilds the Area without docID: Short lists are small enough
// (bounded by ShortListMaxUnitSize) that a full rewrite is cheaper than
// maintaining tombstones, unlike Middle's deferred ID-block unlink.
func (s *ShortList) Expunge(docID uint32) bool {
	postings := s.area.Postings()
	removed := false
	kept := postings[:0]
	for _, p := range postings {
		if p.DocID == docID {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	if !removed {
		return false
	}
	s.rebuild(kept)
	return true
}

func (s *ShortList) ExpungeList(ctx context.Context, other InvertedList) (int, error) {
	it := other.Iterator()
	n := 0
	for id, err := it.Find(ctx, 0); id != 0; id, err = it.Next(ctx) {
		if err != nil {
			return n, err
		}
		if s.Expunge(id) {
			n++
		}
	}
	return n, nil
}

func (s *ShortList) UndoExpunge(docID uint32, positions []uint32) error {
	postings := s.area.Postings()
	i := 0
	for i < len(postings) && postings[i].DocID < docID {
		i++
	}
	if i == len(postings) {
		return s.Insert(docID, positions)
	}
	if postings[i].DocID != docID {
		postings = append(postings[:i], append([]Posting{{DocID: docID, TF: uint32(len(positions)), Positions: positions}}, postings[i:]...)...)
		s.rebuild(postings)
	}
	return nil
}

func (s *ShortList) Vacuum() {}

// Convert promotes this Short list to a Middle list once its Area has
// grown to ShortListMaxUnitSize and a further insert would still not fit.
func (s *ShortList) Convert(cfg EngineConfig) (InvertedList, error) {
	if len(s.area.buf) < cfg.ShortListMaxUnitSize {
		return nil, nil
	}
	blockSize := cfg.IDBlockUnitSize
	return NewMiddleList(s.area.Postings(), blockSize), nil
}

func (s *ShortList) rebuild(postings []Posting) {
	area, _ := NewArea(len(s.area.buf), s.idCoder, s.locCoder)
	for _, p := range postings {
		_ = area.AppendPosting(p.DocID, p.Positions)
	}
	s.area = area
}

// growthTarget returns the next Area unit size to try when an insert
// overflows, following the teacher's SkipList.shrink-style doubling policy
// generalized to this engine's two-threshold scheme: double while under
// ShortListRegularUnitSize, grow by a fixed quarter past it, cap at
// ShortListMaxUnitSize.
func growthTarget(cfg EngineConfig, current int) int {
	if current >= cfg.ShortListMaxUnitSize {
		return current
	}
	var next int
	if current < cfg.ShortListRegularUnitSize {
		next = current * 2
	} else {
		next = current + current/4
	}
	if next > cfg.ShortListMaxUnitSize {
		next = cfg.ShortListMaxUnitSize
	}
	return next
}

// InsertWithGrowth attempts Insert, growing the Area on ErrListFull up to
// cfg.ShortListMaxUnitSize before giving up with ErrListFull (signaling the
// caller to convert this term to a Middle list).
func (s *ShortList) InsertWithGrowth(cfg EngineConfig, docID uint32, positions []uint32) error {
	err := s.Insert(docID, positions)
	for isListFull(err) {
		target := growthTarget(cfg, len(s.area.buf))
		if target == len(s.area.buf) {
			return ErrListFull
		}
		s.area.Grow(target)
		err = s.Insert(docID, positions)
	}
	return err
}

func isListFull(err error) bool {
	return err == ErrListFull
}

// drainPositions pulls the full LocationList off an iterator's current
// posting, used when bulk-copying postings between representations.
func drainPositions(it ListIterator) []uint32 {
	locs := it.GetLocationListIterator()
	var positions []uint32
	for {
		p, ok := locs.Next()
		if !ok {
			break
		}
		positions = append(positions, p)
	}
	return positions
}

// MiddleList is the overflow-chain representation for high-frequency terms:
// a sequence of fixed-size ID blocks (IDBlockUnitSize postings each),
// mirroring the original engine's ID/LOC/IDLOC page chain but collapsed here
// to a slice-of-blocks in-memory model; on-disk paging is the Buffer/Page
// abstraction's job, not the list representation's (see page.go's absence:
// this engine keeps pages as an external collaborator per the storage
// model's own description, the same way ListManager's B-tree is external).
// A block whose every posting has been expunged is marked to-delete rather
// than unlinked immediately, mirroring the deferred unlink the original
// engine drives from its per-unit undo log (see Vacuum).
type MiddleList struct {
	blockSize int
	blocks    []*middleBlock
	count     int
}

type middleBlock struct {
	postings []Posting // zero-value entries (see isTombstone) mark an expunged posting
	live     int       // count of non-tombstoned postings
	toDelete bool
}

// NewMiddleList converts an existing ascending posting list into Middle
// representation, chunked into fixed-size blocks, each recording its first
// document ID implicitly as blocks[i].postings[0].DocID for binary search.
func NewMiddleList(postings []Posting, blockSize int) *MiddleList {
	if blockSize <= 0 {
		blockSize = 16
	}
	m := &MiddleList{blockSize: blockSize}
	for i := 0; i < len(postings); i += blockSize {
		end := i + blockSize
		if end > len(postings) {
			end = len(postings)
		}
		block := append([]Posting(nil), postings[i:end]...)
		m.blocks = append(m.blocks, &middleBlock{postings: block, live: len(block)})
	}
	m.count = len(postings)
	return m
}

func (m *MiddleList) Kind() listKind { return kindMiddle }

func (m *MiddleList) Count() int { return m.count }

func (m *MiddleList) lastDocID() uint32 {
	for i := len(m.blocks) - 1; i >= 0; i-- {
		b := m.blocks[i]
		for j := len(b.postings) - 1; j >= 0; j-- {
			if b.postings[j].Positions != nil || b.postings[j].DocID != 0 {
				return b.postings[j].DocID
			}
		}
	}
	return 0
}

func (m *MiddleList) Insert(docID uint32, positions []uint32) error {
	if len(positions) == 0 {
		return newEngineError("middlelist.insert", KindBadArgument, ErrBadArgument)
	}
	if docID <= m.lastDocID() {
		return newEngineError("middlelist.insert", KindBadArgument, ErrBadArgument)
	}
	if len(m.blocks) == 0 || len(m.blocks[len(m.blocks)-1].postings) >= m.blockSize {
		m.blocks = append(m.blocks, &middleBlock{})
	}
	last := m.blocks[len(m.blocks)-1]
	last.postings = append(last.postings, Posting{DocID: docID, TF: uint32(len(positions)), Positions: positions})
	last.live++
	m.count++
	return nil
}

func (m *MiddleList) InsertList(ctx context.Context, other InvertedList) error {
	it := other.Iterator()
	for id, err := it.Find(ctx, 0); id != 0; id, err = it.Next(ctx) {
		if err != nil {
			return err
		}
		if err := m.Insert(id, drainPositions(it)); err != nil {
			return err
		}
	}
	return nil
}

// Expunge tombstones docID's posting within its block rather than
// compacting immediately; once every posting in a block is tombstoned the
// block is flagged toDelete for Vacuum to unlink.
func (m *MiddleList) Expunge(docID uint32) bool {
	for _, b := range m.blocks {
		for i := range b.postings {
			if b.postings[i].DocID == docID && b.live > 0 && !isTombstone(b.postings[i]) {
				b.postings[i] = Posting{}
				b.live--
				m.count--
				if b.live == 0 {
					b.toDelete = true
				}
				return true
			}
		}
	}
	return false
}

func isTombstone(p Posting) bool {
	return p.DocID == 0 && p.Positions == nil
}

func (m *MiddleList) ExpungeList(ctx context.Context, other InvertedList) (int, error) {
	it := other.Iterator()
	n := 0
	for id, err := it.Find(ctx, 0); id != 0; id, err = it.Next(ctx) {
		if err != nil {
			return n, err
		}
		if m.Expunge(id) {
			n++
		}
	}
	return n, nil
}

// UndoExpunge puts docID's posting back in document-ID order: into the
// block holding the first live posting above docID, or appended at the end
// when none is above it. The tombstone slot itself is not reused, since its
// block may already have been unlinked by Vacuum.
func (m *MiddleList) UndoExpunge(docID uint32, positions []uint32) error {
	for _, b := range m.blocks {
		for i, p := range b.postings {
			if isTombstone(p) || p.DocID < docID {
				continue
			}
			if p.DocID == docID {
				return nil
			}
			b.postings = append(b.postings[:i], append([]Posting{{DocID: docID, TF: uint32(len(positions)), Positions: positions}}, b.postings[i:]...)...)
			b.live++
			m.count++
			return nil
		}
	}
	return m.Insert(docID, positions)
}

// Vacuum unlinks every block flagged to-delete, draining the deferred
// tombstone log the way the original engine's expungeIdBlock() consumes its
// undo log of to-delete block first-doc-IDs.
func (m *MiddleList) Vacuum() {
	kept := m.blocks[:0]
	for _, b := range m.blocks {
		if b.toDelete {
			continue
		}
		kept = append(kept, b)
	}
	m.blocks = kept
}

func (m *MiddleList) Iterator() ListIterator {
	postings := make([]Posting, 0, m.count)
	for _, b := range m.blocks {
		for _, p := range b.postings {
			if isTombstone(p) {
				continue
			}
			postings = append(postings, p)
		}
	}
	return newPostingIterator(postings)
}

func (m *MiddleList) Convert(cfg EngineConfig) (InvertedList, error) {
	return nil, nil
}

// BatchList is the pure in-memory staging representation: a growable,
// always-sorted slice of postings held in a BatchListMap entry before the
// batch is merged into the large index.
type BatchList struct {
	postings []Posting
}

func (b *BatchList) Kind() listKind { return kindBatch }

func (b *BatchList) Count() int { return len(b.postings) }

func (b *BatchList) Insert(docID uint32, positions []uint32) error {
	i := 0
	for i < len(b.postings) && b.postings[i].DocID < docID {
		i++
	}
	if i < len(b.postings) && b.postings[i].DocID == docID {
		b.postings[i] = Posting{DocID: docID, TF: uint32(len(positions)), Positions: positions}
		return nil
	}
	b.postings = append(b.postings, Posting{})
	copy(b.postings[i+1:], b.postings[i:])
	b.postings[i] = Posting{DocID: docID, TF: uint32(len(positions)), Positions: positions}
	return nil
}

func (b *BatchList) InsertList(ctx context.Context, other InvertedList) error {
	it := other.Iterator()
	for id, err := it.Find(ctx, 0); id != 0; id, err = it.Next(ctx) {
		if err != nil {
			return err
		}
		if err := b.Insert(id, drainPositions(it)); err != nil {
			return err
		}
	}
	return nil
}

func (b *BatchList) Expunge(docID uint32) bool {
	for i, p := range b.postings {
		if p.DocID == docID {
			b.postings = append(b.postings[:i], b.postings[i+1:]...)
			return true
		}
	}
	return false
}

func (b *BatchList) ExpungeList(ctx context.Context, other InvertedList) (int, error) {
	it := other.Iterator()
	n := 0
	for id, err := it.Find(ctx, 0); id != 0; id, err = it.Next(ctx) {
		if err != nil {
			return n, err
		}
		if b.Expunge(id) {
			n++
		}
	}
	return n, nil
}

func (b *BatchList) UndoExpunge(docID uint32, positions []uint32) error {
	return b.Insert(docID, positions)
}

func (b *BatchList) Vacuum() {}

func (b *BatchList) Convert(cfg EngineConfig) (InvertedList, error) { return nil, nil }

func (b *BatchList) Iterator() ListIterator {
	return newPostingIterator(append([]Posting(nil), b.postings...))
}

// byteSize estimates the accounted size of this BatchList for
// BatchListMap's aggregate ceiling, following the source's approach of
// counting both payload and per-node bookkeeping (see DESIGN.md Open
// Question Decision 3): 12 bytes per posting header plus 4 bytes per
// position, plus a fixed 32-byte node overhead.
func (b *BatchList) byteSize() int64 {
	size := int64(32)
	for _, p := range b.postings {
		size += 12 + int64(len(p.Positions))*4
	}
	return size
}

// ConvertToShort drains a BatchList into a freshly created ShortList,
// performed when a term's batch entries are merged into the large index.
func (b *BatchList) ConvertToShort(ctx context.Context, cfg EngineConfig, idCoderName, locCoderName string) (*ShortList, error) {
	sl, err := NewShortList(cfg, idCoderName, locCoderName)
	if err != nil {
		return nil, err
	}
	for _, p := range b.postings {
		if err := sl.InsertWithGrowth(cfg, p.DocID, p.Positions); err != nil {
			return nil, err
		}
	}
	return sl, nil
}
