package invertex

// BitBuffer implements the bit-granular get/set/move primitives that the
// codec layer (codec.go) and the Short/Middle list representations
// (area.go) build on. Every higher layer only ever calls through here, so
// a bug here would otherwise show up as an inexplicable corruption three
// layers up.
//
// Addressing convention: a buffer is a []uint32 treated as one contiguous
// bit string, bit 0 being the least-significant bit of buf[0], bit 31 its
// most-significant bit, bit 32 the least-significant bit of buf[1], and so
// on — little-endian within each 32-bit unit, increasing unit index moving
// to higher bit offsets. "Backward" (tail-oriented) addressing used by the
// Short list's doc-ID stream is expressed in terms of the same forward
// primitives by computing the mirrored forward offset from the total bit
// length; see bitBack.

const unitBits = 32

// bitLength returns the number of bits needed to hold v. Codec callers
// never encode v == 0 (it is the reserved "absent" sentinel value), but
// bitLength(0) still returns 1 so callers that measure before checking for
// the sentinel don't panic.
func bitLength(v uint64) int {
	if v == 0 {
		return 1
	}
	n := 0
	for v > 0 {
		n++
		v >>= 1
	}
	return n
}

// bitBack mirrors a tail-relative bit offset into the forward addressing
// space used by get/set/move, given the total number of bits available and
// the length of the value being read or written at that offset.
func bitBack(totalBits, bitOffsetFromTail, nbits int) int {
	return totalBits - bitOffsetFromTail - nbits
}

// get reads nbits (<= 64) starting at forward bit offset bitOff from buf.
func get(buf []uint32, bitOff, nbits int) uint64 {
	if nbits == 0 {
		return 0
	}
	var result uint64
	filled := 0
	for filled < nbits {
		unitIdx := (bitOff + filled) / unitBits
		bitInUnit := (bitOff + filled) % unitBits
		avail := unitBits - bitInUnit
		take := nbits - filled
		if take > avail {
			take = avail
		}
		chunk := (uint64(buf[unitIdx]) >> uint(bitInUnit)) & maskBits(take)
		result |= chunk << uint(filled)
		filled += take
	}
	return result
}

// set writes the low nbits (<= 64) of v at forward bit offset bitOff in buf.
// Bits of buf outside [bitOff, bitOff+nbits) are left untouched.
func set(buf []uint32, bitOff, nbits int, v uint64) {
	if nbits == 0 {
		return
	}
	v &= maskBits(nbits)
	written := 0
	for written < nbits {
		unitIdx := (bitOff + written) / unitBits
		bitInUnit := (bitOff + written) % unitBits
		avail := unitBits - bitInUnit
		take := nbits - written
		if take > avail {
			take = avail
		}
		chunkMask := uint32(maskBits(take))
		chunk := uint32(v>>uint(written)) & chunkMask
		buf[unitIdx] = (buf[unitIdx] &^ (chunkMask << uint(bitInUnit))) | (chunk << uint(bitInUnit))
		written += take
	}
}

// getBack reads nbits ending bitOffsetFromTail bits before the end of a
// totalBits-long buffer — i.e. the tail-oriented mirror of get.
func getBack(buf []uint32, totalBits, bitOffsetFromTail, nbits int) uint64 {
	return get(buf, bitBack(totalBits, bitOffsetFromTail, nbits), nbits)
}

// setBack is the tail-oriented mirror of set.
func setBack(buf []uint32, totalBits, bitOffsetFromTail, nbits int, v uint64) {
	set(buf, bitBack(totalBits, bitOffsetFromTail, nbits), nbits, v)
}

// setOff zero-fills the half-open forward bit range [bitOff1, bitOff2).
// bitOff1 may be greater than bitOff2, in which case the range is empty.
func setOff(buf []uint32, bitOff1, bitOff2 int) {
	for bitOff1 < bitOff2 {
		take := bitOff2 - bitOff1
		if take > 64 {
			take = 64
		}
		set(buf, bitOff1, take, 0)
		bitOff1 += take
	}
}

// isZero reports whether every bit in [bitOff, end) of buf is zero.
func isZero(buf []uint32, end, bitOff int) bool {
	for bitOff < end {
		take := end - bitOff
		if take > 64 {
			take = 64
		}
		if get(buf, bitOff, take) != 0 {
			return false
		}
		bitOff += take
	}
	return true
}

// move copies nbits from src at srcOff to dst at dstOff, forward
// addressing, correctly handling the case where dst and src are the same
// backing array and the ranges overlap (this is what the Short list's
// growth path needs when it slides the doc-ID tail backward to make room
// for new LOC data growing from the head).
func move(dst []uint32, dstOff int, src []uint32, srcOff, nbits int) {
	if nbits == 0 {
		return
	}
	sameBuffer := sameBacking(dst, src)
	overlapsForward := sameBuffer && dstOff > srcOff && dstOff < srcOff+nbits
	if overlapsForward {
		// Copy high-to-low so we never clobber source bits we haven't
		// read yet (dst is ahead of src).
		remaining := nbits
		for remaining > 0 {
			chunk := remaining
			if chunk > 64 {
				chunk = 64
			}
			srcChunkOff := srcOff + remaining - chunk
			dstChunkOff := dstOff + remaining - chunk
			v := get(src, srcChunkOff, chunk)
			set(dst, dstChunkOff, chunk, v)
			remaining -= chunk
		}
		return
	}
	// Safe to copy low-to-high: either non-overlapping, different
	// backing arrays, or dst is behind/at src (copying forward never
	// clobbers unread source bits in that case).
	copied := 0
	for copied < nbits {
		chunk := nbits - copied
		if chunk > 64 {
			chunk = 64
		}
		v := get(src, srcOff+copied, chunk)
		set(dst, dstOff+copied, chunk, v)
		copied += chunk
	}
}

func maskBits(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(n)) - 1
}

// sameBacking reports whether two uint32 slices share the same underlying
// array (by comparing the address of their first element), which is the
// condition move needs to decide whether an overlap is possible at all.
func sameBacking(a, b []uint32) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	return &a[0] == &b[0]
}
