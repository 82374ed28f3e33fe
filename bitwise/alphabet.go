package bitwise

// Package bitwise provides the 2-bit DNA encoding and the prefilter
// ("chunk array") used to cheaply reject most k-mer windows before an
// exact map lookup.

// Encoding used throughout: T=0, C=1, A=2, G=3. Unrecognised bytes
// (anything that isn't A/C/G) encode the same as T. This mirrors the
// dna2bit lookup table in the original tool, which never errors on
// unknown bases.
const (
	baseT = 0
	baseC = 1
	baseA = 2
	baseG = 3
)

var dna2bit [128]byte

func init() {
	dna2bit['T'] = baseT
	dna2bit['C'] = baseC
	dna2bit['A'] = baseA
	dna2bit['G'] = baseG
}

// Encode returns the 2-bit code for a single ASCII base.
func Encode(b byte) byte {
	if b >= 128 {
		return baseT
	}
	return dna2bit[b]
}

// ReverseComplement reverses s and swaps A<->T, C<->G. Bytes outside
// {A,C,G,T} pass through unchanged, matching the tolerance of Encode.
func ReverseComplement(s string) string {
	n := len(s)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[n-1-i] = complement(s[i])
	}
	return string(out)
}

func complement(b byte) byte {
	switch b {
	case 'A':
		return 'T'
	case 'T':
		return 'A'
	case 'C':
		return 'G'
	case 'G':
		return 'C'
	default:
		return b
	}
}
