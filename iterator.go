package invertex

import "context"

// LocationListIterator walks the sorted position set of one (term, doc)
// pair. For a "no-location" configuration the iterator is simply empty,
// while GetTermFrequency on the owning ListIterator is still valid.
type LocationListIterator interface {
	// Next returns the next strictly-ascending 1-origin position, or
	// (0, false) past the end.
	Next() (uint32, bool)

	// Reset rewinds to the first position.
	Reset()
}

// positionIterator is the simplest conforming LocationListIterator: a
// materialized ascending slice, the same "no page chain to walk" shortcut
// postingIterator takes for document IDs.
type positionIterator struct {
	positions []uint32
	pos       int
}

func newPositionIterator(positions []uint32) *positionIterator {
	return &positionIterator{positions: positions, pos: -1}
}

func (p *positionIterator) Next() (uint32, bool) {
	p.pos++
	if p.pos >= len(p.positions) {
		p.pos = len(p.positions)
		return 0, false
	}
	return p.positions[p.pos], true
}

func (p *positionIterator) Reset() { p.pos = -1 }

var emptyLocationIterator = &positionIterator{}

// ListIterator is the read-side cursor contract every list representation
// (Short, Middle, Batch) and every composed iterator (delay, expunge-filtered,
// multi-unit fan-in) satisfies. Document IDs returned by successive calls are
// strictly ascending; 0 marks end-of-list, mirroring the codec layer's use of
// zero as the absent sentinel.
type ListIterator interface {
	// Find advances to the first document ID >= target and returns it, or 0
	// if none exists. Find(0) is equivalent to rewinding and reading the
	// first element.
	Find(ctx context.Context, target uint32) (uint32, error)

	// LowerBound is Find's strict form: the first document ID > target.
	LowerBound(ctx context.Context, target uint32) (uint32, error)

	// Next returns the document ID immediately after the cursor's current
	// position, or 0 at end-of-list. Calling Next before any Find/LowerBound
	// call is equivalent to LowerBound(ctx, 0).
	Next(ctx context.Context) (uint32, error)

	// Current returns the document ID the cursor currently rests on, or 0
	// if the cursor has not been positioned yet.
	Current() uint32

	// GetTermFrequency returns the TF recorded for the posting at Current.
	// 0 if the cursor isn't positioned or no TF was recorded.
	GetTermFrequency() uint32

	// GetLocationListIterator returns a cursor over the positions recorded
	// for the posting at Current, or an always-empty iterator for a
	// no-location list or an unpositioned cursor.
	GetLocationListIterator() LocationListIterator

	// Close releases any page pins the iterator holds open.
	Close() error
}

// postingIterator adapts a fully materialized, ascending []Posting (as
// produced by Batch, Middle and Short list representations, none of which
// exceed a few tens of thousands of entries) to ListIterator.
type postingIterator struct {
	postings []Posting
	pos      int // index of the element Current() refers to, -1 before first use
}

func newPostingIterator(postings []Posting) *postingIterator {
	return &postingIterator{postings: postings, pos: -1}
}

// newSliceIterator adapts a plain ascending document-ID slice with no TF or
// location data, used by tests and by composed iterators that only ever
// need the document-ID stream (e.g. an expunge list).
func newSliceIterator(ids []uint32) *postingIterator {
	postings := make([]Posting, len(ids))
	for i, id := range ids {
		postings[i] = Posting{DocID: id}
	}
	return newPostingIterator(postings)
}

func (s *postingIterator) Find(_ context.Context, target uint32) (uint32, error) {
	for i, p := range s.postings {
		if p.DocID >= target {
			s.pos = i
			return p.DocID, nil
		}
	}
	s.pos = len(s.postings)
	return 0, nil
}

func (s *postingIterator) LowerBound(ctx context.Context, target uint32) (uint32, error) {
	return s.Find(ctx, target+1)
}

func (s *postingIterator) Next(_ context.Context) (uint32, error) {
	s.pos++
	if s.pos >= len(s.postings) {
		s.pos = len(s.postings)
		return 0, nil
	}
	return s.postings[s.pos].DocID, nil
}

func (s *postingIterator) Current() uint32 {
	if s.pos < 0 || s.pos >= len(s.postings) {
		return 0
	}
	return s.postings[s.pos].DocID
}

func (s *postingIterator) GetTermFrequency() uint32 {
	if s.pos < 0 || s.pos >= len(s.postings) {
		return 0
	}
	return s.postings[s.pos].TF
}

func (s *postingIterator) GetLocationListIterator() LocationListIterator {
	if s.pos < 0 || s.pos >= len(s.postings) || len(s.postings[s.pos].Positions) == 0 {
		return emptyLocationIterator
	}
	return newPositionIterator(s.postings[s.pos].Positions)
}

func (s *postingIterator) Close() error { return nil }
