package invertex

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// InsertMode selects where InvertedSection.Insert stages a new document's
// postings (§4.6 step 2).
type InsertMode int

const (
	// InsertDelayed writes into the executor-side small insert unit,
	// leaving the large index untouched until a merge folds it in.
	InsertDelayed InsertMode = iota
	// InsertBatch writes into the section's in-memory BatchListMap,
	// flushed to the large index once it crosses BatchSizeMax.
	InsertBatch
	// InsertDirect writes straight into a large-index unit chosen by the
	// distribution policy, bypassing the small-index staging entirely.
	InsertDirect
)

// slotAssignment records enough state about one Expunge call to drive
// either ExpungeCommit or ExpungeRollBack (§4.6 Undo_* fields).
type slotAssignment struct {
	docID       uint32
	smallID     uint32      // 0 if the document was deleted directly, not via the expunge slot
	direct      bool        // true: removed straight from the small insert slot
	insertTerms []string    // terms physically removed from the small insert slot (direct case)
	posByTerm   map[string][]uint32
}

// InvertedSection is one indexed column: a large index, two small insert
// slots and (unless delete-flag mode is configured) two small expunge
// slots, an OtherInformationFile, and the flip/merge orchestration that
// lets writers never block on a list rewrite (§4.6).
type InvertedSection struct {
	mu sync.Mutex

	cfg EngineConfig
	tok *Tokenizer

	large *InvertedMultiUnit
	insertSlots  [2]*InvertedUnit
	expungeSlots [2]*InvertedUnit // nil entries if deleteFlags != nil
	deleteFlags  *DeleteFlagVector

	batch *InvertedBatch
	mode  InsertMode

	other *OtherInformationFile

	// expungeIDMaps/[Rev] implement assignDocumentID/convertToBigDocumentID
	// for each of the two section-local-renumbered expunge slots (§3).
	expungeIDMaps [2]map[uint32]uint32
	expungeIDRevs [2]map[uint32]uint32
	nextSmallID   [2]uint32

	merge *mergeWalk

	available bool
}

// NewInvertedSection creates a section with cfg.DistributedUnitCount
// large-index units, the given insert staging mode, and the given coder
// names.
func NewInvertedSection(cfg EngineConfig, tok *Tokenizer, mode InsertMode, idCoderName, locCoderName string) (*InvertedSection, error) {
	other, err := NewOtherInformationFile(cfg)
	if err != nil {
		return nil, err
	}
	s := &InvertedSection{
		cfg:       cfg,
		tok:       tok,
		large:     NewInvertedMultiUnit(cfg.DistributedUnitCount, cfg, idCoderName, locCoderName),
		mode:      mode,
		other:     other,
		available: true,
	}
	if mode == InsertDelayed {
		s.insertSlots[0] = NewInvertedUnit(cfg, idCoderName, locCoderName)
		s.insertSlots[1] = NewInvertedUnit(cfg, idCoderName, locCoderName)
		if cfg.ExpungeFlag {
			s.deleteFlags = NewDeleteFlagVector(1024)
		} else {
			s.expungeSlots[0] = NewInvertedUnit(cfg, idCoderName, locCoderName)
			s.expungeSlots[1] = NewInvertedUnit(cfg, idCoderName, locCoderName)
			s.expungeIDMaps[0] = make(map[uint32]uint32)
			s.expungeIDMaps[1] = make(map[uint32]uint32)
			s.expungeIDRevs[0] = make(map[uint32]uint32)
			s.expungeIDRevs[1] = make(map[uint32]uint32)
		}
	}
	if mode == InsertBatch {
		s.batch = NewInvertedBatch(cfg)
	}
	return s, nil
}

// Available reports whether the section is still legal to operate on; it
// becomes false exactly once, after a failed recovery path (§7 Fatal).
func (s *InvertedSection) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

func (s *InvertedSection) markUnavailable() {
	s.available = false
}

// pickInsertUnit chooses a large-index unit for a document being inserted
// directly (InsertDirect mode), following the section's distribution
// policy: always the OtherInformationFile's current InsertUnit, advancing
// it via ChangeUnit once the chosen unit's approximate size passes
// MaxFileSize (§4.6 changeUnit()).
func (s *InvertedSection) pickInsertUnit() int {
	unit := s.other.InsertUnit()
	if unit >= s.large.UnitCount() {
		unit = 0
	}
	if s.large.Unit(unit).Size() >= s.other.MaxFileSize() {
		s.other.ChangeUnit(s.large.UnitCount())
		unit = s.other.InsertUnit()
	}
	return unit
}

// Insert tokenizes text and writes one posting per term into the section's
// currently configured insert target, then records the document's length,
// score and features in the OtherInformationFile (§4.6 INSERT). It returns
// needMerge=true when the executor-side small insert unit has crossed
// InsertMergeFileSize and a merge should be scheduled (or, in synchronous
// mode, has already been run inline).
func (s *InvertedSection) Insert(ctx context.Context, docID uint32, text string, score float64, features FeatureSet) (needMerge bool, err error) {
	if !s.Available() {
		return false, ErrSectionUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	length, positions := s.tok.TokenizePositions(text)

	var inserted []string
	var unitNumber int
	rollback := func() {
		for _, term := range inserted {
			s.expungeTermFromInsertTarget(term, docID)
		}
	}

	switch s.mode {
	case InsertBatch:
		unitNumber = -1
		for term, pos := range positions {
			bl := s.batch.AddList(term)
			if err = bl.Insert(docID, pos); err != nil {
				rollback()
				return false, newEngineError("section.insert", KindBadArgument, err)
			}
			inserted = append(inserted, term)
		}
	case InsertDelayed:
		flip := s.other.FlipIndex()
		unit := s.insertSlots[flip]
		for term, pos := range positions {
			lm := unit.GetUpdateListManager()
			lm.Reset(term, ResetCreate)
			if err = lm.InsertCurrent(s.cfg, docID, pos); err != nil {
				rollback()
				return false, newEngineError("section.insert", KindBadArgument, err)
			}
			inserted = append(inserted, term)
		}
		s.other.NoteInsertSlot(flip, docID)
		unitNumber = -1
	default: // InsertDirect
		unitNumber = s.pickInsertUnit()
		unit := s.large.Unit(unitNumber)
		for term, pos := range positions {
			lm := unit.GetUpdateListManager()
			lm.Reset(term, ResetCreate)
			if err = lm.InsertCurrent(s.cfg, docID, pos); err != nil {
				rollback()
				return false, newEngineError("section.insert", KindBadArgument, err)
			}
			inserted = append(inserted, term)
		}
	}

	s.other.RecordDocument(docID, length, unitNumber, score, features)
	slog.Info("indexing document", slog.Int("docID", int(docID)), slog.Int("terms", len(inserted)))

	if s.mode == InsertBatch && s.batch.ExceedsCeiling() {
		if err := s.flushBatch(ctx); err != nil {
			return false, err
		}
	}
	if s.mode == InsertDelayed {
		flip := s.other.FlipIndex()
		if s.insertSlots[flip].Size() >= s.cfg.InsertMergeFileSize {
			needMerge = true
		}
		if !s.deleteFlagsMode() && s.expungeSlots[flip].Size() >= s.cfg.ExpungeMergeFileSize {
			needMerge = true
		}
		if needMerge && !s.cfg.IsAsyncMerge {
			if merr := s.syncMergeLocked(ctx); merr != nil {
				return needMerge, merr
			}
		}
	}
	return needMerge, nil
}

func (s *InvertedSection) deleteFlagsMode() bool { return s.deleteFlags != nil }

// expungeTermFromInsertTarget undoes a partial insert on rollback, removing
// docID's posting for term from whichever structure Insert just wrote to.
func (s *InvertedSection) expungeTermFromInsertTarget(term string, docID uint32) {
	switch s.mode {
	case InsertBatch:
		if bl, ok := s.batch.m.Get(term); ok {
			bl.Expunge(docID)
		}
	case InsertDelayed:
		lm := s.insertSlots[s.other.FlipIndex()].GetUpdateListManager()
		lm.Reset(term, ResetSearch)
		lm.ExpungeCurrent(docID)
	default:
		lm := s.large.Unit(s.pickInsertUnit()).GetUpdateListManager()
		lm.Reset(term, ResetSearch)
		lm.ExpungeCurrent(docID)
	}
}

// flushBatch drains every term's BatchList into the large index and resets
// the batch map, the "merge the entire map to the large index" step of
// §4.2.3.
func (s *InvertedSection) flushBatch(ctx context.Context) error {
	for _, term := range s.batch.Terms() {
		bl, ok := s.batch.m.Get(term)
		if !ok {
			continue
		}
		sl, err := bl.ConvertToShort(ctx, s.cfg, "void", "void")
		if err != nil {
			return newEngineError("section.flushbatch", KindTransientIO, err)
		}
		unit := s.large.Unit(0)
		lm := unit.GetUpdateListManager()
		if lm.Reset(term, ResetSearch) {
			if err := lm.GetInvertedList().InsertList(ctx, sl); err != nil {
				return newEngineError("section.flushbatch", KindTransientIO, err)
			}
		} else {
			lm.Reset(term, ResetCreate)
			if err := lm.GetInvertedList().InsertList(ctx, sl); err != nil {
				return newEngineError("section.flushbatch", KindTransientIO, err)
			}
		}
	}
	s.batch.Reset()
	return nil
}

// Expunge removes docID from the section. In delete-flag mode this just
// sets a bit; otherwise it tokenizes the document's own text again and
// either inserts into the executor-side expunge slot (document lives in
// the large index) or removes it directly from the executor-side small
// insert slot (document was never merged yet) (§4.6 EXPUNGE).
func (s *InvertedSection) Expunge(ctx context.Context, docID uint32, text string) (*slotAssignment, error) {
	if !s.Available() {
		return nil, ErrSectionUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deleteFlagsMode() {
		s.deleteFlags.Mark(docID)
		return &slotAssignment{docID: docID}, nil
	}

	flip := s.other.FlipIndex()
	_, positions := s.tok.TokenizePositions(text)
	minIns, maxIns := s.other.InsertSlotRange(flip)

	assign := &slotAssignment{docID: docID, posByTerm: positions}

	if minIns != 0 && docID >= minIns && docID <= maxIns {
		// Lives in the executor-side small insert slot: remove directly.
		unit := s.insertSlots[flip]
		for term := range positions {
			lm := unit.GetUpdateListManager()
			lm.Reset(term, ResetSearch)
			if lm.ExpungeCurrent(docID) {
				assign.insertTerms = append(assign.insertTerms, term)
			}
		}
		assign.direct = true
		return assign, nil
	}

	// Lives in the large index: insert into the executor-side expunge slot
	// under a section-local renumbered ID.
	smallID := s.assignExpungeID(flip, docID)
	unit := s.expungeSlots[flip]
	for term, pos := range positions {
		lm := unit.GetUpdateListManager()
		lm.Reset(term, ResetCreate)
		_ = lm.InsertCurrent(s.cfg, smallID, pos)
	}
	s.other.NoteExpungeSlot(flip, docID)
	assign.smallID = smallID
	return assign, nil
}

func (s *InvertedSection) assignExpungeID(flip int, bigID uint32) uint32 {
	if id, ok := s.expungeIDMaps[flip][bigID]; ok {
		return id
	}
	s.nextSmallID[flip]++
	id := s.nextSmallID[flip]
	s.expungeIDMaps[flip][bigID] = id
	s.expungeIDRevs[flip][id] = bigID
	return id
}

// ExpungeCommit finalizes a successful Expunge, draining the deferred
// to-delete ID-block log on whichever unit did the physical delete (§4.6).
func (s *InvertedSection) ExpungeCommit(assign *slotAssignment) {
	if assign == nil || s.deleteFlagsMode() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	flip := s.other.FlipIndex()
	var unit *InvertedUnit
	if assign.direct {
		unit = s.insertSlots[flip]
	} else {
		unit = s.expungeSlots[flip]
	}
	for _, term := range unit.terms() {
		lm := unit.GetUpdateListManager()
		lm.Reset(term, ResetSearch)
		if list := lm.GetInvertedList(); list != nil {
			list.Vacuum()
		}
	}
}

// ExpungeRollBack reverses a failed Expunge: undoing the small-expunge-slot
// assignment, or re-inserting each term's posting directly if the document
// was removed from the small insert slot (§4.6).
func (s *InvertedSection) ExpungeRollBack(assign *slotAssignment) {
	if assign == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deleteFlagsMode() {
		s.deleteFlags.Unmark(assign.docID)
		return
	}

	flip := s.other.FlipIndex()
	if assign.direct {
		unit := s.insertSlots[flip]
		for _, term := range assign.insertTerms {
			lm := unit.GetUpdateListManager()
			lm.Reset(term, ResetCreate)
			_ = lm.GetInvertedList().UndoExpunge(assign.docID, assign.posByTerm[term])
		}
		return
	}
	if assign.smallID != 0 {
		unit := s.expungeSlots[flip]
		for term := range assign.posByTerm {
			lm := unit.GetUpdateListManager()
			lm.Reset(term, ResetSearch)
			lm.ExpungeCurrent(assign.smallID)
		}
		delete(s.expungeIDMaps[flip], assign.docID)
		delete(s.expungeIDRevs[flip], assign.smallID)
	}
}

// mergeWalk is the resumable merge cursor (§9's MergeData / §4.6
// mergeList()): one call to Step processes one term's worth of work and
// reports whether more remains.
type mergeWalk struct {
	phase mergePhase
	lm    *ListManager
}

type mergePhase int

const (
	phaseExpunge mergePhase = iota
	phaseInsert
	phaseDone
)

// SyncMerge flips the section (if not already mid-merge) and drives
// mergeList to completion, the inline path Insert takes when
// EngineConfig.IsAsyncMerge is false or the caller invokes it directly
// (§4.6 syncMerge).
func (s *InvertedSection) SyncMerge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncMergeLocked(ctx)
}

func (s *InvertedSection) syncMergeLocked(ctx context.Context) error {
	if s.mode != InsertDelayed {
		return nil
	}
	if !s.other.IsProceeding() {
		s.openForMergeLocked()
	}
	for {
		more, err := s.mergeStepLocked(ctx)
		if err != nil {
			s.other.MergeCancel()
			s.recoverMerge()
			if IsFatal(err) {
				s.markUnavailable()
			}
			return err
		}
		if !more {
			break
		}
	}
	s.closeForMergeLocked()
	return nil
}

// openForMerge flips the section, putting the previous executor-side pair
// on the merge-daemon side while the executor starts writing into the
// now-empty other side.
func (s *InvertedSection) openForMergeLocked() {
	s.other.Flip()
	s.merge = &mergeWalk{phase: phaseExpunge}
	slog.Info("section merge started", slog.Int("flipIndex", s.other.FlipIndex()))
}

func (s *InvertedSection) closeForMergeLocked() {
	mergeFlip := 1 - s.other.FlipIndex()
	if !s.deleteFlagsMode() {
		s.expungeSlots[mergeFlip] = NewInvertedUnit(s.cfg, "void", "void")
		s.other.ResetExpungeSlot(mergeFlip)
		s.expungeIDMaps[mergeFlip] = make(map[uint32]uint32)
		s.expungeIDRevs[mergeFlip] = make(map[uint32]uint32)
		s.nextSmallID[mergeFlip] = 0
	}
	s.insertSlots[mergeFlip] = NewInvertedUnit(s.cfg, "void", "void")
	s.other.ResetInsertSlot(mergeFlip)
	s.other.MergeDone()
	s.merge = nil
	slog.Info("section merge finished")
}

// recoverMerge discards merge progress on cancellation or error, matching
// recoverAllPages conceptually: the merge-daemon side is left untouched so
// a retry can replay from scratch (idempotent replay per §4.6).
func (s *InvertedSection) recoverMerge() {
	s.merge = nil
}

// mergeStepLocked processes one term from the merge-daemon side: while in
// phaseExpunge it walks expungeSlots[mergeFlip] folding each term's
// deletions into the large index; once exhausted it walks
// insertSlots[mergeFlip] folding insertions in. It returns hasMore=false
// once both phases are drained.
func (s *InvertedSection) mergeStepLocked(ctx context.Context) (bool, error) {
	if s.other.IsCanceled() {
		return false, newEngineError("section.mergelist", KindCancel, ErrMergeCanceled)
	}
	mergeFlip := 1 - s.other.FlipIndex()

	if s.merge.phase == phaseExpunge && !s.deleteFlagsMode() {
		unit := s.expungeSlots[mergeFlip]
		if s.merge.lm == nil {
			s.merge.lm = unit.GetUpdateListManager()
			if !s.merge.lm.Reset("", ResetLowerBound) {
				s.merge.phase = phaseInsert
				s.merge.lm = nil
				return true, nil
			}
		}
		term := s.merge.lm.Key()
		expungeList := s.merge.lm.GetInvertedList()
		for u := 0; u < s.large.UnitCount(); u++ {
			target := s.large.Unit(u)
			lm := target.GetUpdateListManager()
			if lm.Reset(term, ResetSearch) {
				list := lm.GetInvertedList()
				translated := translateSmallExpungeIDs(expungeList, s.expungeIDRevs[mergeFlip])
				if _, err := list.ExpungeList(ctx, translated); err != nil {
					return false, err
				}
				if target.noteExpunge(term) {
					list.Vacuum()
				}
			}
		}
		if !s.merge.lm.Next() {
			s.merge.phase = phaseInsert
			s.merge.lm = nil
		}
		return true, nil
	}
	if s.merge.phase == phaseExpunge {
		// delete-flag mode has no expunge slot to fold in.
		s.merge.phase = phaseInsert
	}

	if s.merge.phase == phaseInsert {
		unit := s.insertSlots[mergeFlip]
		if s.merge.lm == nil {
			s.merge.lm = unit.GetUpdateListManager()
			if !s.merge.lm.Reset("", ResetLowerBound) {
				s.merge.phase = phaseDone
				s.merge.lm = nil
				return false, nil
			}
		}
		term := s.merge.lm.Key()
		insertList := s.merge.lm.GetInvertedList()
		target := s.large.Unit(s.other.InsertUnit())
		lm := target.GetUpdateListManager()
		lm.Reset(term, ResetCreate)
		if err := lm.GetInvertedList().InsertList(ctx, insertList); err != nil {
			return false, err
		}
		if !s.merge.lm.Next() {
			s.merge.phase = phaseDone
			s.merge.lm = nil
			return false, nil
		}
		return true, nil
	}

	return false, nil
}

// translateSmallExpungeIDs rewrites a section-local expunge list's document
// IDs back to their big document IDs before folding into the large index,
// undoing assignDocumentID's renumbering (§3).
func translateSmallExpungeIDs(list InvertedList, rev map[uint32]uint32) InvertedList {
	out := &BatchList{}
	it := list.Iterator()
	for id, err := it.Find(context.Background(), 0); id != 0 && err == nil; id, err = it.Next(context.Background()) {
		big := rev[id]
		if big == 0 {
			big = id
		}
		_ = out.Insert(big, drainPositions(it))
	}
	return out
}

// OtherInformation exposes the section's OtherInformationFile for
// search-side snapshotting.
func (s *InvertedSection) OtherInformation() *OtherInformationFile { return s.other }

// LargeIndex exposes the section's large-index multi-unit for search.
func (s *InvertedSection) LargeIndex() *InvertedMultiUnit { return s.large }

// DeleteFlags exposes the section's delete-flag vector, nil if not
// configured in delete-flag mode.
func (s *InvertedSection) DeleteFlags() *DeleteFlagVector { return s.deleteFlags }

// AllTerms returns every distinct term currently stored anywhere in the
// section — every large-index unit, both insert slots, and the batch map —
// ascending and de-duplicated. Used by a full-index snapshot (serialization)
// rather than any query path, so it doesn't need search.go's merge-aware
// iterator composition.
func (s *InvertedSection) AllTerms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	add := func(terms []string) {
		for _, t := range terms {
			seen[t] = struct{}{}
		}
	}
	for i := 0; i < s.large.UnitCount(); i++ {
		add(s.large.Unit(i).terms())
	}
	if s.mode == InsertDelayed {
		add(s.insertSlots[0].terms())
		add(s.insertSlots[1].terms())
	}
	if s.batch != nil {
		add(s.batch.Terms())
	}

	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// SearchIterator returns a ListIterator for querying term across the large
// index, plus the executor-side small insert/expunge slots in delayed mode,
// filtered by the delete flags in delete-flag mode. The InsertBatch map is
// not consulted: postings staged there are found only after the batch is
// flushed into the large index.
func (s *InvertedSection) SearchIterator(ctx context.Context, term string) (ListIterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var largeIter ListIterator
	if s.large.UnitCount() == 1 {
		lm := s.large.Unit(0).GetUpdateListManager()
		if lm.Reset(term, ResetSearch) {
			largeIter = lm.GetIterator()
		}
	} else {
		mlm := s.large.GetUpdateListManager()
		if mlm.Reset(term, ResetSearch) {
			largeIter = mlm.GetIterator(ctx)
		}
	}
	if largeIter == nil {
		largeIter = newSliceIterator(nil)
	}

	if s.mode != InsertDelayed {
		if s.deleteFlagsMode() {
			return NewDeleteFlagIterator(largeIter, s.deleteFlags), nil
		}
		return largeIter, nil
	}

	flip := s.other.FlipIndex()
	var result ListIterator = largeIter
	if !s.deleteFlagsMode() {
		_, maxExp := s.other.ExpungeSlotRange(flip)
		elm := s.expungeSlots[flip].GetUpdateListManager()
		var expungeIter ListIterator
		if elm.Reset(term, ResetSearch) {
			expungeIter = translateSmallExpungeIDsIterator(elm.GetInvertedList(), s.expungeIDRevs[flip])
		}
		if expungeIter != nil {
			result = NewListIteratorWithExpungeList(result, expungeIter)
		}
		_ = maxExp
	}

	_, maxIns := s.other.InsertSlotRange(flip)
	ilm := s.insertSlots[flip].GetUpdateListManager()
	if ilm.Reset(term, ResetSearch) {
		result = NewDelayListIterator(result, ilm.GetIterator(), maxIns)
	}
	if s.deleteFlagsMode() {
		result = NewDeleteFlagIterator(result, s.deleteFlags)
	}
	return result, nil
}

func translateSmallExpungeIDsIterator(list InvertedList, rev map[uint32]uint32) ListIterator {
	return translateSmallExpungeIDs(list, rev).Iterator()
}
