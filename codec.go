package invertex

// Coder is the per-value codec contract: read and write unsigned integers
// (and their gaps) into a flat []uint32 buffer, forward-from-head or
// backward-from-tail, addressed in bits. Concrete coders are looked up by
// name (coderByName) so a list's persisted format can name which one it
// used. VoidCoder is the uncompressed reference implementation, GolombCoder
// and GammaCoder compressing ones, mirroring codesearch's gamma-coded
// posting-list deltas and erigon-lib's varint-delta encoders.
type Coder interface {
	// Name identifies the coder for lookup and for persisted format tags.
	Name() string

	// BitLength returns the number of bits append will use to encode value.
	BitLength(value uint64) int

	// Append writes value forward into buf starting at *bitOffset, and
	// advances *bitOffset past it.
	Append(value uint64, buf []uint32, bitOffset *int)

	// AppendChecked is Append's space-checked form: it writes nothing and
	// returns false if value would not fit in maxBits total.
	AppendChecked(value uint64, buf []uint32, maxBits int, bitOffset *int) bool

	// AppendBack is the tail-oriented mirror of Append: buf is addressed as
	// a totalBits-long tail-growing region, and *bitOffset (the distance
	// already consumed from the tail) is advanced.
	AppendBack(value uint64, buf []uint32, totalBits int, bitOffset *int)

	// AppendBackChecked is AppendBack's checked form.
	AppendBackChecked(value uint64, buf []uint32, totalBits, maxBits int, bitOffset *int) bool

	// Get reads one value forward from *bitOffset, advancing it past the
	// value read. It returns ok == false at stream end (a decoded zero,
	// which is never a legal encoded value) or when *bitOffset has reached
	// totalBits.
	Get(buf []uint32, totalBits int, bitOffset *int) (value uint64, ok bool)

	// GetBack is the tail-oriented mirror of Get.
	GetBack(buf []uint32, totalBits int, bitOffset *int) (value uint64, ok bool)
}

// coderRegistry backs coderByName; coders register themselves in init().
var coderRegistry = map[string]Coder{}

func registerCoder(c Coder) { coderRegistry[c.Name()] = c }

// coderByName looks up a registered Coder by its persisted name tag.
func coderByName(name string) (Coder, bool) {
	c, ok := coderRegistry[name]
	return c, ok
}

func init() {
	registerCoder(VoidCoder{})
	registerCoder(NewGolombCoder(4))
	registerCoder(GammaCoder{})
}

// ═══════════════════════════════════════════════════════════════════════
// Void coder: fixed 32-bit raw words, the reference uncompressed codec.
// ═══════════════════════════════════════════════════════════════════════

// VoidCoder writes every value as a raw 32-bit word at the given bit
// alignment, handling the unit-crossing cases via the shared bit-move
// primitives in bitbuffer.go. It never compresses, and is the baseline
// every compressing coder is tested against for round-trip correctness.
type VoidCoder struct{}

func (VoidCoder) Name() string { return "void" }

func (VoidCoder) BitLength(uint64) int { return 32 }

func (VoidCoder) Append(value uint64, buf []uint32, bitOffset *int) {
	set(buf, *bitOffset, 32, value)
	*bitOffset += 32
}

func (c VoidCoder) AppendChecked(value uint64, buf []uint32, maxBits int, bitOffset *int) bool {
	if *bitOffset+32 > maxBits {
		return false
	}
	c.Append(value, buf, bitOffset)
	return true
}

func (VoidCoder) AppendBack(value uint64, buf []uint32, totalBits int, bitOffset *int) {
	setBack(buf, totalBits, *bitOffset, 32, value)
	*bitOffset += 32
}

func (c VoidCoder) AppendBackChecked(value uint64, buf []uint32, totalBits, maxBits int, bitOffset *int) bool {
	if *bitOffset+32 > maxBits {
		return false
	}
	c.AppendBack(value, buf, totalBits, bitOffset)
	return true
}

func (VoidCoder) Get(buf []uint32, totalBits int, bitOffset *int) (uint64, bool) {
	if *bitOffset+32 > totalBits {
		return 0, false
	}
	v := get(buf, *bitOffset, 32)
	if v == 0 {
		return 0, false
	}
	*bitOffset += 32
	return v, true
}

func (VoidCoder) GetBack(buf []uint32, totalBits int, bitOffset *int) (uint64, bool) {
	if *bitOffset+32 > totalBits {
		return 0, false
	}
	v := getBack(buf, totalBits, *bitOffset, 32)
	if v == 0 {
		return 0, false
	}
	*bitOffset += 32
	return v, true
}

// ═══════════════════════════════════════════════════════════════════════
// Gamma coder: Elias γ-coding, the posting-delta codec the corpus's
// google-codesearch index uses (see DESIGN.md).
// ═══════════════════════════════════════════════════════════════════════

// GammaCoder implements Elias γ-coding: a value v (>=1) is written as
// unary(bitLength(v)-1) zero bits, a 1 separator bit, then the low
// bitLength(v)-1 bits of v.
type GammaCoder struct{}

func (GammaCoder) Name() string { return "gamma" }

func (GammaCoder) BitLength(value uint64) int {
	n := bitLength(value)
	return 2*n - 1
}

func (GammaCoder) Append(value uint64, buf []uint32, bitOffset *int) {
	n := bitLength(value)
	// n-1 zero bits (already zero in a fresh buffer; still clear them in
	// case of reuse), then a 1, then the low n-1 bits of value.
	setOff(buf, *bitOffset, *bitOffset+n-1)
	*bitOffset += n - 1
	set(buf, *bitOffset, 1, 1)
	*bitOffset++
	if n > 1 {
		set(buf, *bitOffset, n-1, value)
		*bitOffset += n - 1
	}
}

func (c GammaCoder) AppendChecked(value uint64, buf []uint32, maxBits int, bitOffset *int) bool {
	if *bitOffset+c.BitLength(value) > maxBits {
		return false
	}
	c.Append(value, buf, bitOffset)
	return true
}

func (c GammaCoder) AppendBack(value uint64, buf []uint32, totalBits int, bitOffset *int) {
	n := c.BitLength(value)
	tmp := make([]uint32, (n+63)/32+1)
	off := 0
	c.Append(value, tmp, &off)
	moveBackFromForward(buf, totalBits, bitOffset, tmp, n)
}

func (c GammaCoder) AppendBackChecked(value uint64, buf []uint32, totalBits, maxBits int, bitOffset *int) bool {
	if *bitOffset+c.BitLength(value) > maxBits {
		return false
	}
	c.AppendBack(value, buf, totalBits, bitOffset)
	return true
}

func (c GammaCoder) Get(buf []uint32, totalBits int, bitOffset *int) (uint64, bool) {
	start := *bitOffset
	n := 1
	for start+n-1 < totalBits && get(buf, start+n-1, 1) == 0 {
		n++
		if start+n-1 >= totalBits {
			return 0, false
		}
	}
	pos := start + n // skip the n-1 zero bits and the 1 separator
	if pos-1 >= totalBits {
		return 0, false
	}
	var value uint64 = 1
	if n > 1 {
		if pos+n-1 > totalBits {
			return 0, false
		}
		low := get(buf, pos, n-1)
		value = (uint64(1) << uint(n-1)) | low
	}
	if value == 0 {
		return 0, false
	}
	*bitOffset = pos + n - 1
	return value, true
}

func (c GammaCoder) GetBack(buf []uint32, totalBits int, bitOffset *int) (uint64, bool) {
	// Materialize the remaining tail into a forward-addressed scratch
	// buffer and decode forward from the front of it; simplest correct
	// way to reuse the forward decoder for the mirrored address space.
	remaining := totalBits - *bitOffset
	if remaining <= 0 {
		return 0, false
	}
	scratch := make([]uint32, (remaining+31)/32)
	move(scratch, 0, buf, bitBack(totalBits, totalBits-*bitOffset, remaining), remaining)
	off := 0
	v, ok := c.Get(scratch, remaining, &off)
	if !ok {
		return 0, false
	}
	*bitOffset += off
	return v, true
}

// moveBackFromForward copies the first n bits of a forward-addressed tmp
// buffer into buf's tail-relative address space at *bitOffset, then
// advances *bitOffset by n. Shared by every variable-length coder's
// AppendBack (Gamma, Golomb) since they build the value forward first.
func moveBackFromForward(buf []uint32, totalBits int, bitOffset *int, tmp []uint32, n int) {
	dstOff := bitBack(totalBits, *bitOffset, n)
	move(buf, dstOff, tmp, 0, n)
	*bitOffset += n
}

// ═══════════════════════════════════════════════════════════════════════
// Golomb coder: Golomb-Rice coding with a configurable parameter b,
// matching spec §4.1's "Golomb-b=N" coder family.
// ═══════════════════════════════════════════════════════════════════════

// GolombCoder implements Golomb coding with divisor m = 2^k (Rice coding):
// quotient = value / m written in unary, remainder = value % m written in
// k bits. Good for geometrically-distributed gaps, which document ID and
// position deltas typically are.
type GolombCoder struct {
	k int // m = 1<<k
	m uint64
}

// NewGolombCoder returns a Rice coder with divisor 2^k.
func NewGolombCoder(k int) GolombCoder {
	return GolombCoder{k: k, m: uint64(1) << uint(k)}
}

func (c GolombCoder) Name() string { return "golomb" }

func (c GolombCoder) BitLength(value uint64) int {
	q := value >> uint(c.k)
	return int(q) + 1 + c.k
}

func (c GolombCoder) Append(value uint64, buf []uint32, bitOffset *int) {
	q := value >> uint(c.k)
	r := value & (c.m - 1)
	// q zero bits then a 1 (unary quotient), then k remainder bits.
	setOff(buf, *bitOffset, *bitOffset+int(q))
	*bitOffset += int(q)
	set(buf, *bitOffset, 1, 1)
	*bitOffset++
	if c.k > 0 {
		set(buf, *bitOffset, c.k, r)
		*bitOffset += c.k
	}
}

func (c GolombCoder) AppendChecked(value uint64, buf []uint32, maxBits int, bitOffset *int) bool {
	if *bitOffset+c.BitLength(value) > maxBits {
		return false
	}
	c.Append(value, buf, bitOffset)
	return true
}

func (c GolombCoder) AppendBack(value uint64, buf []uint32, totalBits int, bitOffset *int) {
	n := c.BitLength(value)
	tmp := make([]uint32, (n+63)/32+1)
	off := 0
	c.Append(value, tmp, &off)
	moveBackFromForward(buf, totalBits, bitOffset, tmp, n)
}

func (c GolombCoder) AppendBackChecked(value uint64, buf []uint32, totalBits, maxBits int, bitOffset *int) bool {
	if *bitOffset+c.BitLength(value) > maxBits {
		return false
	}
	c.AppendBack(value, buf, totalBits, bitOffset)
	return true
}

func (c GolombCoder) Get(buf []uint32, totalBits int, bitOffset *int) (uint64, bool) {
	start := *bitOffset
	q := 0
	for {
		if start+q >= totalBits {
			return 0, false
		}
		if get(buf, start+q, 1) == 1 {
			break
		}
		q++
	}
	pos := start + q + 1
	var r uint64
	if c.k > 0 {
		if pos+c.k > totalBits {
			return 0, false
		}
		r = get(buf, pos, c.k)
		pos += c.k
	}
	value := (uint64(q) << uint(c.k)) | r
	if value == 0 {
		return 0, false
	}
	*bitOffset = pos
	return value, true
}

func (c GolombCoder) GetBack(buf []uint32, totalBits int, bitOffset *int) (uint64, bool) {
	remaining := totalBits - *bitOffset
	if remaining <= 0 {
		return 0, false
	}
	scratch := make([]uint32, (remaining+31)/32)
	move(scratch, 0, buf, bitBack(totalBits, totalBits-*bitOffset, remaining), remaining)
	off := 0
	v, ok := c.Get(scratch, remaining, &off)
	if !ok {
		return 0, false
	}
	*bitOffset += off
	return v, true
}

// ═══════════════════════════════════════════════════════════════════════
// Batch (gap-coding) helpers shared by every coder: store differences
// values[i] - oldValue so posting lists store gaps (spec §4.1).
// ═══════════════════════════════════════════════════════════════════════

// AppendGaps gap-codes values (which must be strictly ascending and all
// greater than oldValue) forward into buf starting at *bitOffset, storing
// values[i] - values[i-1] (values[0] - oldValue for the first element) so
// a posting list's doc IDs or positions compress as small deltas.
func AppendGaps(c Coder, oldValue uint64, values []uint64, buf []uint32, bitOffset *int) {
	prev := oldValue
	for _, v := range values {
		c.Append(v-prev, buf, bitOffset)
		prev = v
	}
}

// GetGaps reads count gap-coded values forward from *bitOffset, starting
// from oldValue, and returns their absolute values.
func GetGaps(c Coder, oldValue uint64, count int, buf []uint32, totalBits int, bitOffset *int) ([]uint64, bool) {
	values := make([]uint64, 0, count)
	prev := oldValue
	for i := 0; i < count; i++ {
		gap, ok := c.Get(buf, totalBits, bitOffset)
		if !ok {
			return nil, false
		}
		prev += gap
		values = append(values, prev)
	}
	return values, true
}
