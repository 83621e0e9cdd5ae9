package invertex

import (
	"context"

	"github.com/bits-and-blooms/bitset"
)

// DeleteFlagVector is the dense per-document delete-flag representation
// used when EngineConfig.ExpungeFlag is set: instead of tokenizing a
// deleted document and inserting its terms into a small expunge unit,
// expunge just sets one bit per deleted document ID. Every list iterator
// that reads through the large index must consult this vector (or an
// equivalent expunge list) before yielding a document ID to a caller.
type DeleteFlagVector struct {
	bits *bitset.BitSet
}

// NewDeleteFlagVector creates an empty vector sized for up to capacity
// document IDs (it grows past that automatically, the size is only a
// sizing hint).
func NewDeleteFlagVector(capacity uint) *DeleteFlagVector {
	return &DeleteFlagVector{bits: bitset.New(capacity)}
}

// Mark flags docID as deleted.
func (d *DeleteFlagVector) Mark(docID uint32) {
	d.bits.Set(uint(docID))
}

// Unmark clears docID's delete flag, used by InvertedSection.ExpungeRollBack
// to undo a delete-flag expunge.
func (d *DeleteFlagVector) Unmark(docID uint32) {
	d.bits.Clear(uint(docID))
}

// IsDeleted reports whether docID is currently flagged.
func (d *DeleteFlagVector) IsDeleted(docID uint32) bool {
	return d.bits.Test(uint(docID))
}

// Count returns the number of documents currently flagged deleted.
func (d *DeleteFlagVector) Count() uint {
	return d.bits.Count()
}

// deleteFlagIterator filters a ListIterator through a DeleteFlagVector,
// equivalent in effect to ListIteratorWithExpungeList but backed by the
// dense bitset representation instead of a second posting list.
type deleteFlagIterator struct {
	base    ListIterator
	flags   *DeleteFlagVector
	current uint32
}

// NewDeleteFlagIterator wraps base, skipping any document ID flagged
// deleted in flags.
func NewDeleteFlagIterator(base ListIterator, flags *DeleteFlagVector) ListIterator {
	return &deleteFlagIterator{base: base, flags: flags}
}

func (d *deleteFlagIterator) skip(id uint32, err error, next func() (uint32, error)) (uint32, error) {
	for {
		if err != nil || id == 0 {
			d.current = 0
			return 0, err
		}
		if !d.flags.IsDeleted(id) {
			d.current = id
			return id, nil
		}
		id, err = next()
	}
}

func (d *deleteFlagIterator) Find(ctx context.Context, target uint32) (uint32, error) {
	id, err := d.base.Find(ctx, target)
	return d.skip(id, err, func() (uint32, error) { return d.base.Next(ctx) })
}

func (d *deleteFlagIterator) LowerBound(ctx context.Context, target uint32) (uint32, error) {
	id, err := d.base.LowerBound(ctx, target)
	return d.skip(id, err, func() (uint32, error) { return d.base.Next(ctx) })
}

func (d *deleteFlagIterator) Next(ctx context.Context) (uint32, error) {
	id, err := d.base.Next(ctx)
	return d.skip(id, err, func() (uint32, error) { return d.base.Next(ctx) })
}

func (d *deleteFlagIterator) Current() uint32 { return d.current }

func (d *deleteFlagIterator) GetTermFrequency() uint32 { return d.base.GetTermFrequency() }

func (d *deleteFlagIterator) GetLocationListIterator() LocationListIterator {
	return d.base.GetLocationListIterator()
}

func (d *deleteFlagIterator) Close() error { return d.base.Close() }
