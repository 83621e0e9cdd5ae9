package invertex

// Area is the in-leaf growable buffer backing a Short list: document IDs
// are gap-coded growing from the tail of the buffer backward, while
// term-frequency/position data for those documents grows from the head
// forward. The two streams meet in the middle; when they would collide the
// Area grows (doubling up to ShortListRegularUnitSize, then growing by a
// quarter of its current size per step up to ShortListMaxUnitSize; the step
// past the regular size is proportional, not a fixed increment) or, past
// that ceiling, the list converts to Middle.
type Area struct {
	buf        []uint32
	headBits   int // bits used by the head (LOC) stream, growing upward
	tailBits   int // bits used by the tail (ID) stream, growing downward
	coder      Coder
	locCoder   Coder
	count      int    // number of postings stored
	lastDocID  uint32 // highest document ID appended, for gap coding
}

// NewArea allocates a new Area of the given size in 32-bit units, coding
// document-ID gaps and term-frequency/position data with the named coders.
func NewArea(unitSize int, idCoderName, locCoderName string) (*Area, error) {
	idCoder, ok := coderByName(idCoderName)
	if !ok {
		return nil, newEngineError("area.new", KindBadArgument, ErrBadArgument)
	}
	locCoder, ok := coderByName(locCoderName)
	if !ok {
		return nil, newEngineError("area.new", KindBadArgument, ErrBadArgument)
	}
	return &Area{
		buf:      make([]uint32, unitSize),
		coder:    idCoder,
		locCoder: locCoder,
	}, nil
}

func (a *Area) totalBits() int { return len(a.buf) * unitBits }

// freeBits is the room left between the head and tail streams.
func (a *Area) freeBits() int {
	return a.totalBits() - a.headBits - a.tailBits
}

// CanAppend reports whether nbits of head data plus the id-gap encoding of
// the given document ID would still fit without growing.
func (a *Area) CanAppend(docID uint32, locBits int) bool {
	idBits := a.coder.BitLength(uint64(docID - a.lastDocID))
	return a.freeBits() >= idBits+locBits
}

// locationValues packs a LocationList the way the head stream stores it:
// the term frequency first (count of positions, 0 for "no-location"), then
// each position as a gap from the previous one (the first position is a
// gap from zero, so "1-origin" just falls out of the encoding naturally).
func locationValues(positions []uint32) []uint64 {
	values := make([]uint64, 0, len(positions)+1)
	values = append(values, uint64(len(positions)))
	var prev uint32
	for _, p := range positions {
		values = append(values, uint64(p-prev))
		prev = p
	}
	return values
}

// AppendPosting writes one document's term-frequency and position gaps
// (see locationValues) growing the head forward, and the document-ID gap
// growing the tail backward. positions must be non-empty: a posting only
// exists because the term occurred at least once, and the codec layer
// never encodes a literal zero (§4.1, "zero is never a legal encoded
// value"), so an empty LocationList has no representation in this stream.
func (a *Area) AppendPosting(docID uint32, positions []uint32) error {
	if len(positions) == 0 {
		return newEngineError("area.appendposting", KindBadArgument, ErrBadArgument)
	}
	locValues := locationValues(positions)
	var locBits int
	for _, v := range locValues {
		locBits += a.locCoder.BitLength(v)
	}
	gap := uint64(docID)
	if a.count > 0 {
		gap = uint64(docID - a.lastDocID)
	}
	idBits := a.coder.BitLength(gap)
	if a.freeBits() < idBits+locBits {
		return ErrListFull
	}
	off := a.headBits
	for _, v := range locValues {
		a.locCoder.Append(v, a.buf, &off)
	}
	a.headBits = off

	a.coder.AppendBack(gap, a.buf, a.totalBits(), &a.tailBits)
	a.count++
	a.lastDocID = docID
	return nil
}

// Grow reallocates the Area to newUnitSize units (newUnitSize must be >=
// the current size), preserving both streams: the head stream is copied in
// place, the tail stream is moved so that it still ends at the (new) end of
// the buffer, keeping its tail-relative offsets unchanged.
func (a *Area) Grow(newUnitSize int) {
	if newUnitSize <= len(a.buf) {
		return
	}
	newBuf := make([]uint32, newUnitSize)
	// Head stream: copy bit-for-bit from the front, identical addressing.
	move(newBuf, 0, a.buf, 0, a.headBits)
	// Tail stream: its old tail-relative offsets are unchanged, but the
	// forward bit offset they map to shifts because totalBits grew.
	oldTotal := len(a.buf) * unitBits
	newTotal := newUnitSize * unitBits
	oldTailStart := oldTotal - a.tailBits
	newTailStart := newTotal - a.tailBits
	move(newBuf, newTailStart, a.buf, oldTailStart, a.tailBits)
	a.buf = newBuf
}

// Postings decodes the Area's two streams in lockstep and returns every
// posting in ascending document-ID order: the ID stream (tail, backward)
// gives the document IDs, and for each one the head (LOC) stream is
// decoded for exactly as many values as that posting wrote (1 + TF: the
// frequency itself, then one gap per position), so the two streams never
// need an explicit boundary marker between postings.
//
// AppendPosting lays the ID stream down with AppendBack, which grows it
// tail-first: the first posting's gap ends up at the highest address (the
// very end of the buffer) and the last posting's gap at the tail stream's
// start. GetBack is AppendBack's mirror — reading it from a fresh
// zero-distance offset yields values in the same order they were
// appended — so idOff must walk the tail stream with GetBack, not Get;
// reading forward with Get would decode the gaps in reverse insertion
// order and mis-pair every doc ID but the first with the wrong LOC data.
func (a *Area) Postings() []Posting {
	out := make([]Posting, 0, a.count)
	total := a.totalBits()
	idOff := 0
	locOff := 0
	var lastID uint32
	for i := 0; i < a.count; i++ {
		gap, ok := a.coder.GetBack(a.buf, total, &idOff)
		if !ok {
			break
		}
		docID := lastID + uint32(gap)
		lastID = docID

		tf, ok := a.locCoder.Get(a.buf, total, &locOff)
		if !ok {
			break
		}
		positions := make([]uint32, 0, tf)
		var prev uint32
		for j := uint64(0); j < tf; j++ {
			gapPos, ok := a.locCoder.Get(a.buf, total, &locOff)
			if !ok {
				break
			}
			prev += uint32(gapPos)
			positions = append(positions, prev)
		}
		out = append(out, Posting{DocID: docID, TF: uint32(tf), Positions: positions})
	}
	return out
}
