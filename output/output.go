// Package output writes the three GenEditScan report files: the
// per-position statistics table, the extension ("outside") table, and
// the two per-mer frequency dumps.
package output

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/hirsakai/geneditscan/extension"
	"github.com/hirsakai/geneditscan/gtest"
)

// PositionStat is one row of the statistics table.
type PositionStat struct {
	Pos              int // 0-based; written 1-based
	Base             byte
	Mutant, WildType uint64
	Scored           gtest.Scored
}

// ExtensionRow pairs one extension.Row with its scored G-test result,
// plus the parent position it belongs to.
type ExtensionRow struct {
	Position  extension.Position
	TableSize int
	PosFreq   PositionStat
	Rows      []ScoredRow
}

// ScoredRow is one flank-pair row together with its second-pass score.
type ScoredRow struct {
	extension.Row
	Scored gtest.Scored
}

// float32Text formats f with float32 precision, matching the original
// tool's 32-bit-float text output.
func float32Text(f float64) string {
	return strconv.FormatFloat(float64(float32(f)), 'g', 7, 32)
}

// WriteStatistics writes "<prefix>.statistics.txt".
func WriteStatistics(prefix string, k int, rows []PositionStat) error {
	f, err := os.Create(prefix + ".statistics.txt")
	if err != nil {
		return fmt.Errorf("can't create statistics file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "#K-mer\t%d\n", k)
	fmt.Fprint(w, "#Pos\tSeq\tMutant\tWildType\tGval\tPval\tFDR\tBonferroni\n")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%c\t%d\t%d\t%s\t%s\t%s\t%s\n",
			r.Pos+1, r.Base, r.Mutant, r.WildType,
			float32Text(r.Scored.G), float32Text(r.Scored.P),
			float32Text(r.Scored.FDR), float32Text(r.Scored.Bonferroni))
	}
	return w.Flush()
}

// WriteOutside writes "<prefix>.outside.txt".
func WriteOutside(prefix string, k int, fdrThreshold float64, bases int, rows []ExtensionRow) error {
	f, err := os.Create(prefix + ".outside.txt")
	if err != nil {
		return fmt.Errorf("can't create outside file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "#K-mer\t%d\tFDR\t%s\tBases\t%d\n", k, float32Text(fdrThreshold), bases)

	for _, r := range rows {
		mer := r.Position.Mer
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
			r.PosFreq.Pos+1, r.TableSize, mer,
			r.PosFreq.Mutant, r.PosFreq.WildType,
			float32Text(r.PosFreq.Scored.G), float32Text(r.PosFreq.Scored.P),
			float32Text(r.PosFreq.Scored.FDR), float32Text(r.PosFreq.Scored.Bonferroni))

		for _, row := range r.Rows {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
				row.Left, row.Right, row.MutantCount, row.WildTypeCount,
				row.Left+mer+row.Right,
				float32Text(row.Scored.G), float32Text(row.Scored.P),
				float32Text(row.Scored.FDR), float32Text(row.Scored.Bonferroni))
		}
	}
	return w.Flush()
}

// WriteMerFreq writes "<prefix>.<label>.merFreq.txt" with lines sorted
// lexicographically by k-mer.
func WriteMerFreq(prefix, label string, counts map[string]uint64) error {
	f, err := os.Create(prefix + "." + label + ".merFreq.txt")
	if err != nil {
		return fmt.Errorf("can't create %s merFreq file: %w", label, err)
	}
	defer f.Close()

	mers := make([]string, 0, len(counts))
	for mer := range counts {
		mers = append(mers, mer)
	}
	sort.Strings(mers)

	w := bufio.NewWriter(f)
	for _, mer := range mers {
		fmt.Fprintf(w, "%s\t%d\n", mer, counts[mer])
	}
	return w.Flush()
}
