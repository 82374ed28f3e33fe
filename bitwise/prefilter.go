package bitwise

// MaxChunkLength is int(32 bit) / (2 bit/base) = 16 bases: the packed
// prefix must fit in a uint32 window register used by the scanner.
const MaxChunkLength = 16

// MinKmerLength is the smallest k-mer length this tool will accept.
const MinKmerLength = 8

// ChunkLength returns L = min(k, MaxChunkLength).
func ChunkLength(k int) int {
	if k > MaxChunkLength {
		return MaxChunkLength
	}
	return k
}

// MaxChunkArray returns 2^(2L) - 1, used both as the prefilter's
// bitmask and as its sentinel all-ones value.
func MaxChunkArray(chunkLength int) uint32 {
	return uint32(1)<<(2*chunkLength) - 1
}

// Prefilter is a bitset over the packed 2L-bit prefix of a k-mer. A
// bit set to 1 means "some tracked k-mer has this prefix". The
// all-ones value (Sentinel) is treated as an unconditional hit rather
// than a membership test: at k >= 16 a poly-G prefix collapses onto
// this value, and treating it as always-hit keeps the exact map
// lookup downstream as the real gate instead of special-casing it here.
type Prefilter struct {
	chunkLength int
	sentinel    uint32
	bits        []byte
}

// New builds a Prefilter sized for the given chunk length.
func New(chunkLength int) *Prefilter {
	sentinel := MaxChunkArray(chunkLength)
	return &Prefilter{
		chunkLength: chunkLength,
		sentinel:    sentinel,
		bits:        make([]byte, uint64(sentinel)+1),
	}
}

// Reset zeroes every entry.
func (p *Prefilter) Reset() {
	for i := range p.bits {
		p.bits[i] = 0
	}
}

// pack computes the packed 2L-bit value of the first chunkLength bytes
// of s.
func (p *Prefilter) pack(s string) uint32 {
	var w uint32
	for i := 0; i < p.chunkLength; i++ {
		w = (w << 2) | uint32(Encode(s[i]))
	}
	return w
}

// Insert marks the prefix of mer as present, unless it is the
// sentinel (which is already treated as an unconditional hit).
func (p *Prefilter) Insert(mer string) {
	w := p.pack(mer)
	if w != p.sentinel {
		p.bits[w] = 1
	}
}

// Query reports whether packed (a full 2L-bit prefix value, already
// masked) should be treated as a possible hit.
func (p *Prefilter) Query(packed uint32) bool {
	return p.bits[packed] == 1 || packed == p.sentinel
}

// Mask returns the bitmask used to keep a rolling window to 2L bits.
func (p *Prefilter) Mask() uint32 {
	return p.sentinel
}

// Sentinel returns the all-ones prefix value.
func (p *Prefilter) Sentinel() uint32 {
	return p.sentinel
}
