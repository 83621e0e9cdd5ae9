package invertex

import (
	"bytes"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// FeatureSet is an opaque, caller-defined byte blob attached to one
// document: the host row's extracted feature vector (e.g. column values
// used for secondary ranking), stored alongside the document's length and
// term-frequency totals so a search pass can score without a second trip to
// the host table.
type FeatureSet []byte

// MergeState tracks whether a section's background merge daemon is
// currently folding small indexes into the large one.
type MergeState int

const (
	NotMerging MergeState = iota
	Merging
	MergeCancel
)

// unitHeaderRange tracks the [min,max] document-ID span a small insert or
// expunge slot currently covers, used to decide whether an expunged
// document lives in the large index (insert into the expunge slot) or the
// small insert slot (delete it there directly).
type unitHeaderRange struct {
	min, max uint32
}

// docInfo is one document's fixed-width row plus variable-length region
// (§3 OtherInformationFile: normalized length, original length, unit
// number, per-section sizes, score adjustment, feature set).
type docInfo struct {
	length       int
	originalLen  int
	unitNumber   int
	score        float64
	sectionSizes []int
}

// OtherInformationFile holds everything about a section's documents that
// isn't posting-list data, plus the section-wide header the merge protocol
// relies on: flipIndex, mergeState, the large index's max document ID, and
// each small slot's [min,max] span (§4.7). Per-document FeatureSet images
// are transparently zstd-compressed past
// EngineConfig.FeatureSetCompressionThreshold bytes.
type OtherInformationFile struct {
	mu sync.RWMutex

	cfg EngineConfig

	docs        map[uint32]docInfo
	featureSets map[uint32][]byte // stored possibly-compressed
	compressed  map[uint32]bool

	totalDocs  int
	totalTerms int64

	// Section header fields (§4.7).
	flipIndex       int
	mergeState      MergeState
	fullMaxID       uint32
	insertRange     [2]unitHeaderRange
	expungeRange    [2]unitHeaderRange
	insertUnit      int
	maxFileSize     int64
	perUnitCounts   []int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewOtherInformationFile creates an empty file using cfg's compression
// threshold and distributed-unit count.
func NewOtherInformationFile(cfg EngineConfig) (*OtherInformationFile, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, newEngineError("otherinfo.new", KindFatal, err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, newEngineError("otherinfo.new", KindFatal, err)
	}
	return &OtherInformationFile{
		cfg:           cfg,
		docs:          make(map[uint32]docInfo),
		featureSets:   make(map[uint32][]byte),
		compressed:    make(map[uint32]bool),
		maxFileSize:   cfg.InitialMaxFileSize,
		perUnitCounts: make([]int64, cfg.DistributedUnitCount),
		encoder:       enc,
		decoder:       dec,
	}, nil
}

// RecordDocument stores a newly indexed document's length, assigned unit
// number and FeatureSet, and updates the running totals used for
// average-document-length normalization.
func (o *OtherInformationFile) RecordDocument(docID uint32, length int, unitNumber int, score float64, features FeatureSet) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.docs[docID] = docInfo{length: length, originalLen: length, unitNumber: unitNumber, score: score}
	o.totalDocs++
	o.totalTerms += int64(length)
	if docID > o.fullMaxID {
		o.fullMaxID = docID
	}
	if unitNumber >= 0 && unitNumber < len(o.perUnitCounts) {
		o.perUnitCounts[unitNumber]++
	}

	if len(features) >= o.cfg.FeatureSetCompressionThreshold {
		var buf bytes.Buffer
		o.encoder.Reset(&buf)
		_, _ = o.encoder.Write(features)
		_ = o.encoder.Close()
		o.featureSets[docID] = buf.Bytes()
		o.compressed[docID] = true
	} else {
		o.featureSets[docID] = append([]byte(nil), features...)
		o.compressed[docID] = false
	}
}

// RemoveDocument drops a document's stored length and FeatureSet. No code
// path in this package calls it: expunging a document and vacuuming a list
// leave the document's record in place.
func (o *OtherInformationFile) RemoveDocument(docID uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if d, ok := o.docs[docID]; ok {
		o.totalDocs--
		o.totalTerms -= int64(d.length)
		if d.unitNumber >= 0 && d.unitNumber < len(o.perUnitCounts) {
			o.perUnitCounts[d.unitNumber]--
		}
		delete(o.docs, docID)
		delete(o.featureSets, docID)
		delete(o.compressed, docID)
	}
}

// DocumentLength returns a document's stored term count.
func (o *OtherInformationFile) DocumentLength(docID uint32) (int, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	d, ok := o.docs[docID]
	return d.length, ok
}

// UnitNumber returns the large-index unit docID was assigned to at insert
// time.
func (o *OtherInformationFile) UnitNumber(docID uint32) (int, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	d, ok := o.docs[docID]
	return d.unitNumber, ok
}

// ScoreValue returns docID's recorded score adjustment.
func (o *OtherInformationFile) ScoreValue(docID uint32) (float64, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	d, ok := o.docs[docID]
	return d.score, ok
}

// SectionSize returns one of docID's recorded per-section sizes.
func (o *OtherInformationFile) SectionSize(docID uint32, index int) (int, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	d, ok := o.docs[docID]
	if !ok || index < 0 || index >= len(d.sectionSizes) {
		return 0, false
	}
	return d.sectionSizes[index], true
}

// Flip atomically swaps which small slot the executor writes to, moving the
// merge state to Merging. Called at the start of a merge pass (§4.6).
func (o *OtherInformationFile) Flip() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flipIndex = 1 - o.flipIndex
	o.mergeState = Merging
}

// FlipIndex returns which small slot (0 or 1) the executor currently
// inserts into.
func (o *OtherInformationFile) FlipIndex() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.flipIndex
}

// MergeDone clears the merge state back to NotMerging.
func (o *OtherInformationFile) MergeDone() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mergeState = NotMerging
}

// MergeCancel marks the in-progress merge as canceled.
func (o *OtherInformationFile) MergeCancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mergeState = MergeCancel
}

// IsCanceled reports whether the current merge pass has been canceled.
func (o *OtherInformationFile) IsCanceled() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.mergeState == MergeCancel
}

// IsProceeding reports whether a merge is currently in progress.
func (o *OtherInformationFile) IsProceeding() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.mergeState == Merging
}

// InsertUnit returns the large-index unit number new inserts currently
// target when the section is distributed.
func (o *OtherInformationFile) InsertUnit() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.insertUnit
}

// ChangeUnit advances InsertUnit to the next unit, wrapping to 0 and
// doubling MaxFileSize once every unit has been cycled through (§4.6
// changeUnit()).
func (o *OtherInformationFile) ChangeUnit(unitCount int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.insertUnit++
	if o.insertUnit >= unitCount {
		o.insertUnit = 0
		o.maxFileSize *= 2
	}
}

// MaxFileSize returns the current per-unit size ceiling used by ChangeUnit.
func (o *OtherInformationFile) MaxFileSize() int64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.maxFileSize
}

// PerUnitCount returns the number of documents currently assigned to unit i.
func (o *OtherInformationFile) PerUnitCount(i int) int64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if i < 0 || i >= len(o.perUnitCounts) {
		return 0
	}
	return o.perUnitCounts[i]
}

// FullMaxID returns the highest document ID ever passed to RecordDocument,
// whichever index the document was inserted into (the source's full.maxID
// header field).
func (o *OtherInformationFile) FullMaxID() uint32 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.fullMaxID
}

// NoteInsertSlot records docID as having landed in small insert slot idx
// (0 or 1), widening that slot's [min,max] span — the ins0/ins1.{min,max}ID
// header fields.
func (o *OtherInformationFile) NoteInsertSlot(idx int, docID uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r := &o.insertRange[idx]
	if r.min == 0 || docID < r.min {
		r.min = docID
	}
	if docID > r.max {
		r.max = docID
	}
}

// InsertSlotRange returns small insert slot idx's current [min,max] span.
func (o *OtherInformationFile) InsertSlotRange(idx int) (uint32, uint32) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r := o.insertRange[idx]
	return r.min, r.max
}

// ResetInsertSlot clears small insert slot idx's span, done after it has
// been folded into the large index by merge.
func (o *OtherInformationFile) ResetInsertSlot(idx int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.insertRange[idx] = unitHeaderRange{}
}

// NoteExpungeSlot and ExpungeSlotRange mirror the insert-slot accessors for
// the small expunge side.
func (o *OtherInformationFile) NoteExpungeSlot(idx int, docID uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r := &o.expungeRange[idx]
	if r.min == 0 || docID < r.min {
		r.min = docID
	}
	if docID > r.max {
		r.max = docID
	}
}

func (o *OtherInformationFile) ExpungeSlotRange(idx int) (uint32, uint32) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r := o.expungeRange[idx]
	return r.min, r.max
}

func (o *OtherInformationFile) ResetExpungeSlot(idx int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.expungeRange[idx] = unitHeaderRange{}
}

// AverageDocumentLength is the corpus-wide average used by BM25-style
// length normalization.
func (o *OtherInformationFile) AverageDocumentLength() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.totalDocs == 0 {
		return 0
	}
	return float64(o.totalTerms) / float64(o.totalDocs)
}

// FeatureSet returns a document's decompressed FeatureSet image.
func (o *OtherInformationFile) FeatureSet(docID uint32) (FeatureSet, error) {
	o.mu.RLock()
	raw, ok := o.featureSets[docID]
	compressed := o.compressed[docID]
	o.mu.RUnlock()
	if !ok {
		return nil, ErrKeyNotFound
	}
	if !compressed {
		return raw, nil
	}
	out, err := o.decoder.DecodeAll(raw, nil)
	if err != nil {
		return nil, newEngineError("otherinfo.featureset", KindTransientIO, err)
	}
	return out, nil
}

// TotalDocuments returns the number of documents currently recorded.
func (o *OtherInformationFile) TotalDocuments() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.totalDocs
}

// AllDocumentLengths returns a snapshot of every recorded document's ID and
// length, used by a full-index snapshot (serialization.go) and by query.go's
// NOT handling to enumerate every document ID.
func (o *OtherInformationFile) AllDocumentLengths() map[uint32]int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[uint32]int, len(o.docs))
	for docID, info := range o.docs {
		out[docID] = info.length
	}
	return out
}
