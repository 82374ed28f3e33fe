// Package vector loads the single FASTA record that describes the
// transgenic vector sequence being searched for, and derives the
// per-position k-mer map and seed counters the rest of the pipeline
// needs.
package vector

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/hirsakai/geneditscan/bitwise"
)

// PosPair is the forward/reverse-complement k-mer pair recorded at one
// vector position.
type PosPair struct {
	Mer    string
	RevMer string
}

// Vector holds the circularised, upper-cased vector sequence together
// with the position->k-mer map and the seeded (zero-valued) per-mer
// count table used to gate the FASTQ scanner's exact lookups.
type Vector struct {
	Array     string          // circularised sequence
	OrigLen   int             // length before circularisation
	KmerLen   int
	PosPairs  map[int]PosPair // position -> (mer, revMer), 0 <= i < OrigLen
	SeedCount map[string]uint64
}

// Load reads the first FASTA record in fname, builds the circularised
// vector array and its position->k-mer map, and seeds SeedCount with
// every k-mer (forward and reverse-complement) found along the way.
// It is fatal if the record is shorter than k.
func Load(fname string, k int) (*Vector, error) {
	seq, err := readFirstRecord(fname)
	if err != nil {
		return nil, err
	}
	seq = strings.ToUpper(seq)

	if len(seq) < k {
		return nil, fmt.Errorf("vector is shorter than k-mer (%d < %d)", len(seq), k)
	}

	origLen := len(seq)
	circular := seq + seq[:k-1]

	v := &Vector{
		Array:     circular,
		OrigLen:   origLen,
		KmerLen:   k,
		PosPairs:  make(map[int]PosPair, origLen),
		SeedCount: make(map[string]uint64),
	}

	for i := 0; i < origLen; i++ {
		mer := circular[i : i+k]
		revMer := bitwise.ReverseComplement(mer)
		v.SeedCount[mer] = 0
		v.SeedCount[revMer] = 0
		v.PosPairs[i] = PosPair{Mer: mer, RevMer: revMer}
	}

	return v, nil
}

// BuildPrefilter inserts every seeded k-mer's prefix into a fresh
// Prefilter sized for chunkLength.
func (v *Vector) BuildPrefilter(chunkLength int) *bitwise.Prefilter {
	pf := bitwise.New(chunkLength)
	for mer := range v.SeedCount {
		pf.Insert(mer)
	}
	return pf
}

// readFirstRecord reads lines until the second '>' header or EOF,
// returning the concatenated, trimmed sequence of the first record.
// Only the first FASTA record is consumed; anything after a second
// header line is ignored.
func readFirstRecord(fname string) (string, error) {
	fd, err := os.Open(fname)
	if err != nil {
		return "", fmt.Errorf("can't open vector file %s: %w", fname, err)
	}
	defer fd.Close()

	var seq strings.Builder
	scanner := bufio.NewScanner(fd)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	seenHeader := false
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.HasPrefix(line, ">") {
			if seenHeader {
				break
			}
			seenHeader = true
			continue
		}
		seq.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("can't read vector file %s: %w", fname, err)
	}

	return seq.String(), nil
}
