package invertex

import "context"

// DelayListIterator fans a small "delta" posting list in ahead of a large
// base list, routing each read to whichever side holds the next document
// ID, up to a maxDocumentID ceiling recorded when the delta list was frozen
// at flip time. Past that ceiling the delta side is exhausted and every
// further read falls through to base. This is how an executor-side small
// insert unit overlays a large index that predates it without rewriting
// the large index on every insert.
type DelayListIterator struct {
	base          ListIterator
	delta         ListIterator
	maxDocumentID uint32

	baseCur, deltaCur     uint32
	baseValid, deltaValid bool
	current               uint32
	fromDelta             bool // which side current came from, for TF/location passthrough
}

// NewDelayListIterator builds a fan-in of delta over base. maxDocumentID is
// the highest document ID the delta list can legally contain; document IDs
// above it are only ever served from base.
func NewDelayListIterator(base, delta ListIterator, maxDocumentID uint32) *DelayListIterator {
	return &DelayListIterator{base: base, delta: delta, maxDocumentID: maxDocumentID}
}

func (d *DelayListIterator) refillBase(ctx context.Context, after uint32) error {
	id, err := d.base.LowerBound(ctx, after)
	if err != nil {
		return err
	}
	d.baseCur, d.baseValid = id, id != 0
	return nil
}

func (d *DelayListIterator) refillDelta(ctx context.Context, after uint32) error {
	if after >= d.maxDocumentID {
		d.deltaCur, d.deltaValid = 0, false
		return nil
	}
	id, err := d.delta.LowerBound(ctx, after)
	if err != nil {
		return err
	}
	if id > d.maxDocumentID {
		id = 0
	}
	d.deltaCur, d.deltaValid = id, id != 0
	return nil
}

func (d *DelayListIterator) merged(ctx context.Context, after uint32) (uint32, error) {
	if err := d.refillBase(ctx, after); err != nil {
		return 0, err
	}
	if err := d.refillDelta(ctx, after); err != nil {
		return 0, err
	}
	var result uint32
	d.fromDelta = false
	switch {
	case d.baseValid && d.deltaValid:
		if d.baseCur <= d.deltaCur {
			result = d.baseCur
		} else {
			result = d.deltaCur
			d.fromDelta = true
		}
	case d.baseValid:
		result = d.baseCur
	case d.deltaValid:
		result = d.deltaCur
		d.fromDelta = true
	}
	d.current = result
	return result, nil
}

func (d *DelayListIterator) GetTermFrequency() uint32 {
	if d.current == 0 {
		return 0
	}
	if d.fromDelta {
		return d.delta.GetTermFrequency()
	}
	return d.base.GetTermFrequency()
}

func (d *DelayListIterator) GetLocationListIterator() LocationListIterator {
	if d.current == 0 {
		return emptyLocationIterator
	}
	if d.fromDelta {
		return d.delta.GetLocationListIterator()
	}
	return d.base.GetLocationListIterator()
}

func (d *DelayListIterator) Find(ctx context.Context, target uint32) (uint32, error) {
	if target == 0 {
		return d.merged(ctx, 0)
	}
	return d.merged(ctx, target-1)
}

func (d *DelayListIterator) LowerBound(ctx context.Context, target uint32) (uint32, error) {
	return d.merged(ctx, target)
}

func (d *DelayListIterator) Next(ctx context.Context) (uint32, error) {
	return d.merged(ctx, d.current)
}

func (d *DelayListIterator) Current() uint32 { return d.current }

func (d *DelayListIterator) Close() error {
	err1 := d.base.Close()
	err2 := d.delta.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// ListIteratorWithExpungeList wraps a base iterator and skips any document
// ID present in an expunge list (a list of deleted document IDs recorded
// separately from the base list, avoiding an in-place rewrite on delete).
type ListIteratorWithExpungeList struct {
	base    ListIterator
	expunge ListIterator
	current uint32
}

// NewListIteratorWithExpungeList wraps base, filtering out any document ID
// that also appears in expunge.
func NewListIteratorWithExpungeList(base, expunge ListIterator) *ListIteratorWithExpungeList {
	return &ListIteratorWithExpungeList{base: base, expunge: expunge}
}

func (l *ListIteratorWithExpungeList) isExpunged(ctx context.Context, id uint32) (bool, error) {
	if l.expunge == nil {
		return false, nil
	}
	found, err := l.expunge.Find(ctx, id)
	if err != nil {
		return false, err
	}
	return found == id, nil
}

func (l *ListIteratorWithExpungeList) advance(ctx context.Context, id uint32, err error, next func(context.Context, uint32) (uint32, error)) (uint32, error) {
	for {
		if err != nil || id == 0 {
			l.current = 0
			return 0, err
		}
		expunged, eerr := l.isExpunged(ctx, id)
		if eerr != nil {
			return 0, eerr
		}
		if !expunged {
			l.current = id
			return id, nil
		}
		id, err = next(ctx, id)
	}
}

func (l *ListIteratorWithExpungeList) Find(ctx context.Context, target uint32) (uint32, error) {
	id, err := l.base.Find(ctx, target)
	return l.advance(ctx, id, err, l.base.LowerBound)
}

func (l *ListIteratorWithExpungeList) LowerBound(ctx context.Context, target uint32) (uint32, error) {
	id, err := l.base.LowerBound(ctx, target)
	return l.advance(ctx, id, err, l.base.LowerBound)
}

func (l *ListIteratorWithExpungeList) Next(ctx context.Context) (uint32, error) {
	id, err := l.base.Next(ctx)
	return l.advance(ctx, id, err, func(c context.Context, after uint32) (uint32, error) {
		return l.base.Next(c)
	})
}

func (l *ListIteratorWithExpungeList) Current() uint32 { return l.current }

func (l *ListIteratorWithExpungeList) GetTermFrequency() uint32 {
	return l.base.GetTermFrequency()
}

func (l *ListIteratorWithExpungeList) GetLocationListIterator() LocationListIterator {
	return l.base.GetLocationListIterator()
}

func (l *ListIteratorWithExpungeList) Close() error {
	if l.expunge != nil {
		_ = l.expunge.Close()
	}
	return l.base.Close()
}

// MultiListIterator fans a term's posting lists in across several
// distributed file units into one ascending stream, used when a section's
// DistributedUnitCount configuration spreads postings across more than one
// large-index unit.
type MultiListIterator struct {
	units    []ListIterator
	cursors  []uint32
	valid    []bool
	current  uint32
	activeAt int // index into units that current came from, -1 if none
}

// NewMultiListIterator merges units, each already positioned at its own
// start.
func NewMultiListIterator(units []ListIterator) *MultiListIterator {
	return &MultiListIterator{
		units:    units,
		cursors:  make([]uint32, len(units)),
		valid:    make([]bool, len(units)),
		activeAt: -1,
	}
}

func (m *MultiListIterator) refillAll(ctx context.Context, after uint32) error {
	for i, u := range m.units {
		id, err := u.LowerBound(ctx, after)
		if err != nil {
			return err
		}
		m.cursors[i], m.valid[i] = id, id != 0
	}
	return nil
}

func (m *MultiListIterator) pickMin(ctx context.Context, after uint32) (uint32, error) {
	if err := m.refillAll(ctx, after); err != nil {
		return 0, err
	}
	best := uint32(0)
	found := false
	bestAt := -1
	for i := range m.units {
		if !m.valid[i] {
			continue
		}
		if !found || m.cursors[i] < best {
			best, found = m.cursors[i], true
			bestAt = i
		}
	}
	if !found {
		m.current = 0
		m.activeAt = -1
		return 0, nil
	}
	m.current = best
	m.activeAt = bestAt
	return best, nil
}

func (m *MultiListIterator) GetTermFrequency() uint32 {
	if m.activeAt < 0 {
		return 0
	}
	return m.units[m.activeAt].GetTermFrequency()
}

func (m *MultiListIterator) GetLocationListIterator() LocationListIterator {
	if m.activeAt < 0 {
		return emptyLocationIterator
	}
	return m.units[m.activeAt].GetLocationListIterator()
}

func (m *MultiListIterator) Find(ctx context.Context, target uint32) (uint32, error) {
	if target == 0 {
		return m.pickMin(ctx, 0)
	}
	return m.pickMin(ctx, target-1)
}

func (m *MultiListIterator) LowerBound(ctx context.Context, target uint32) (uint32, error) {
	return m.pickMin(ctx, target)
}

func (m *MultiListIterator) Next(ctx context.Context) (uint32, error) {
	return m.pickMin(ctx, m.current)
}

func (m *MultiListIterator) Current() uint32 { return m.current }

func (m *MultiListIterator) Close() error {
	var firstErr error
	for _, u := range m.units {
		if err := u.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
