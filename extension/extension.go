// Package extension derives, for every FDR-significant vector
// position, the set of flanking base-pair rows that feed the second
// G-test pass: counts of each distinct (left, right) flank observed
// around the position's k-mer in mutant and wild-type reads.
package extension

import (
	"sort"

	"github.com/hirsakai/geneditscan/bitwise"
	"github.com/hirsakai/geneditscan/fastqscan"
	"github.com/hirsakai/geneditscan/vector"
)

// Row is one flank pair observed at a significant position, with its
// mutant and wild-type occurrence counts.
type Row struct {
	Left, Right   string
	MutantCount   uint64
	WildTypeCount uint64
}

// Position holds every flank row collected at one FDR-significant
// vector position, ordered by descending mutant count (ties broken by
// left-then-right flank text, for determinism).
type Position struct {
	Index int // index into the original position list, 0-based
	Mer   string
	Rows  []Row
}

// SeedFlanks builds the seed map that fastqscan.ScanExtension scans
// against: every significant position's forward k-mer, and (when it
// differs) its reverse complement, each mapped to an initially empty
// flank-pair slice.
func SeedFlanks(v *vector.Vector, significant []int) map[string][]fastqscan.FlankPair {
	seed := make(map[string][]fastqscan.FlankPair)
	for _, pos := range significant {
		pair := v.PosPairs[pos]
		seed[pair.Mer] = nil
		seed[pair.RevMer] = nil
	}
	return seed
}

// countFlanks tallies occurrences of each distinct flank pair in pairs.
func countFlanks(pairs []fastqscan.FlankPair) map[fastqscan.FlankPair]uint64 {
	counts := make(map[fastqscan.FlankPair]uint64)
	for _, p := range pairs {
		counts[p]++
	}
	return counts
}

// reorientMinus re-expresses a reverse-complement-strand flank pair in
// the forward-strand orientation of the k-mer it was recorded against:
// (left, right) on the minus strand corresponds to
// (revComp(right), revComp(left)) on the plus strand.
func reorientMinus(p fastqscan.FlankPair) fastqscan.FlankPair {
	return fastqscan.FlankPair{
		Left:  bitwise.ReverseComplement(p.Right),
		Right: bitwise.ReverseComplement(p.Left),
	}
}

// Derive builds one Position per significant vector position, from
// that position's forward and reverse-complement flank-pair
// observations in both sample classes. Positions are returned in the
// same order as the significant slice.
func Derive(v *vector.Vector, significant []int, mutantPairs, wildPairs map[string][]fastqscan.FlankPair) []Position {
	out := make([]Position, len(significant))
	for idx, pos := range significant {
		pair := v.PosPairs[pos]

		mutantCounts := collectOriented(pair.Mer, pair.RevMer, mutantPairs)
		wildCounts := collectOriented(pair.Mer, pair.RevMer, wildPairs)

		// Rows are mutant-anchored: a flank pair with zero mutant
		// occurrences never becomes a row, even if wild-type reads
		// observed it.
		rows := make([]Row, 0, len(mutantCounts))
		for k := range mutantCounts {
			rows = append(rows, Row{
				Left:          k.Left,
				Right:         k.Right,
				MutantCount:   mutantCounts[k],
				WildTypeCount: wildCounts[k],
			})
		}
		sort.Slice(rows, func(a, b int) bool {
			if rows[a].MutantCount != rows[b].MutantCount {
				return rows[a].MutantCount > rows[b].MutantCount
			}
			if rows[a].Left != rows[b].Left {
				return rows[a].Left < rows[b].Left
			}
			return rows[a].Right < rows[b].Right
		})

		out[idx] = Position{Index: pos, Mer: pair.Mer, Rows: rows}
	}
	return out
}

// collectOriented merges the forward k-mer's flank counts with the
// reverse-complement k-mer's flank counts (re-oriented to the forward
// strand), unless the two k-mers are identical (a palindromic k-mer),
// in which case only the forward counts are used.
func collectOriented(mer, revMer string, pairs map[string][]fastqscan.FlankPair) map[fastqscan.FlankPair]uint64 {
	counts := countFlanks(pairs[mer])
	if revMer == mer {
		return counts
	}
	for k, v := range countFlanks(pairs[revMer]) {
		counts[reorientMinus(k)] += v
	}
	return counts
}
