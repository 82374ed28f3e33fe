// Package gtest implements the Williams-corrected G-test of
// independence used to score each vector position (and, in the
// extension phase, each flanking base pair) for mutant/wild-type
// enrichment, plus the Bonferroni and Benjamini-Hochberg corrections
// applied across all positions or rows.
package gtest

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// pValueGuard is the G-value above which the p-value underflows float32
// and is reported as exactly zero, matching the original tool's
// underflow guard around its chi-square-complement call.
const pValueGuard = 170.0

// chiSquared1 is shared across every call since its only parameter
// (one degree of freedom) never changes.
var chiSquared1 = distuv.ChiSquared{K: 1}

// chiSquareComplement mirrors chdtrc(1, g): the probability that a
// chi-square(1) variate exceeds g.
func chiSquareComplement(g float64) float64 {
	switch {
	case g <= 0:
		return 1
	case g >= pValueGuard:
		return 0
	default:
		return 1 - chiSquared1.CDF(g)
	}
}

func xlogx(x float64) float64 {
	if x == 0 {
		return 0
	}
	return x * math.Log(x)
}

// Engine holds the mutant/wild-type totals (across all files of each
// sample class) that every G-test in one analysis phase is measured
// against.
type Engine struct {
	mutantTotal float64
	wildTotal   float64
}

// New constructs an Engine from the total k-mer-window counts seen
// while scanning the mutant and wild-type files.
func New(mutantTotal, wildTotal uint64) *Engine {
	return &Engine{mutantTotal: float64(mutantTotal), wildTotal: float64(wildTotal)}
}

// Result is the outcome of a single G-test: the (possibly
// Williams-corrected) G statistic and its chi-square(1) p-value.
// FDR and Bonferroni are filled in separately once every Result in a
// batch is known.
type Result struct {
	G, P float64
}

// adjustedG computes the Williams-corrected G statistic for mutant
// count m against wild-type count w, given the engine's totals M, W.
func (e *Engine) adjustedG(m, w float64) float64 {
	M, W := e.mutantTotal, e.wildTotal
	mPrime := M - m
	wPrime := W - w
	match := m + w
	notMatch := mPrime + wPrime
	N := M + W

	q1 := xlogx(m) + xlogx(mPrime) + xlogx(w) + xlogx(wPrime)
	q2 := xlogx(M) + xlogx(W) + xlogx(match) + xlogx(notMatch)
	q3 := xlogx(N)
	g := 2 * (q1 - q2 + q3)

	qcomm := (N/M + N/W - 1) / (6 * N)
	var q float64
	if match == 0 {
		q = 1 + qcomm*(N/notMatch-1)
	} else {
		q = 1 + qcomm*(N/match+N/notMatch-1)
	}
	// G is non-negative; an independent table can leave a tiny negative
	// rounding residue, which is reported as 0.
	if g < 0 {
		return 0
	}
	return g / q
}

// test runs the directional G-test for one (mutant, wild-type) count
// pair. enriched reports whether the enrichment condition held; when
// it didn't, G=0 and P=1 as specified.
func (e *Engine) test(m, w float64, enriched bool) Result {
	if !enriched {
		return Result{G: 0, P: 1}
	}
	g := e.adjustedG(m, w)
	return Result{G: g, P: chiSquareComplement(g)}
}

// MatchTest runs the match-phase directional filter: mutant*W > wild*M.
func (e *Engine) MatchTest(mutantCount, wildCount uint64) Result {
	m, w := float64(mutantCount), float64(wildCount)
	return e.test(m, w, m*e.wildTotal > w*e.mutantTotal)
}

// ExtensionTest runs the extension-phase directional filter:
// mutant*W >= wild*M (note >=, unlike MatchTest).
func (e *Engine) ExtensionTest(mutantCount, wildCount uint64) Result {
	m, w := float64(mutantCount), float64(wildCount)
	return e.test(m, w, m*e.wildTotal >= w*e.mutantTotal)
}

// Scored is one tested row together with its final corrections.
type Scored struct {
	Result
	FDR, Bonferroni float64
}

// memoKey identifies a (mutant, wild-type) count pair for the G-test
// memoisation described by the spec: identical pairs reuse G, P, and
// (for match rows) Bonferroni.
type memoKey struct{ m, w uint64 }

// ScoreMatch runs MatchTest over every position's (mutant, wild-type)
// frequency pair, memoised by count pair, and returns the
// Bonferroni-and-BH-corrected result for each position in the same
// order as the inputs.
func (e *Engine) ScoreMatch(mutantFreq, wildFreq []uint64) []Scored {
	n := len(mutantFreq)
	results := make([]Result, n)
	memo := make(map[memoKey]Result)

	for i := 0; i < n; i++ {
		key := memoKey{mutantFreq[i], wildFreq[i]}
		if r, ok := memo[key]; ok {
			results[i] = r
			continue
		}
		r := e.MatchTest(mutantFreq[i], wildFreq[i])
		memo[key] = r
		results[i] = r
	}

	bon := bonferroni(results, n)
	fdr := benjaminiHochberg(pValues(results))

	scored := make([]Scored, n)
	for i := range results {
		scored[i] = Scored{Result: results[i], FDR: fdr[i], Bonferroni: bon[i]}
	}
	return scored
}

// ScoreExtensionRow runs ExtensionTest for one flank-pair row, reusing
// a per-position memo cache keyed by count pair (the spec requires
// memoisation "within one position", not globally).
func (e *Engine) ScoreExtensionRow(mutantCount, wildCount uint64, memo map[memoKey]Result) Result {
	key := memoKey{mutantCount, wildCount}
	if r, ok := memo[key]; ok {
		return r
	}
	r := e.ExtensionTest(mutantCount, wildCount)
	memo[key] = r
	return r
}

// NewExtensionMemo creates the per-position memo cache for
// ScoreExtensionRow.
func NewExtensionMemo() map[memoKey]Result {
	return make(map[memoKey]Result)
}

func pValues(results []Result) []float64 {
	p := make([]float64, len(results))
	for i, r := range results {
		p[i] = r.P
	}
	return p
}

// bonferroni computes min(1, p*n) for each result, where n is the
// total count passed in (the number of positions, or for extension
// rows the total number of extension rows across all positions).
func bonferroni(results []Result, n int) []float64 {
	ret := make([]float64, len(results))
	for i, r := range results {
		ret[i] = math.Min(1, r.P*float64(n))
	}
	return ret
}

// Bonferroni exposes the same min(1, p*n) correction for external
// callers (the extension phase applies it against the cross-position
// row count rather than per-position results).
func Bonferroni(p float64, n int) float64 {
	return math.Min(1, p*float64(n))
}

// benjaminiHochberg computes the *raw* BH value for each p-value: no
// monotone enforcement step is applied afterwards, matching the
// original tool's exact (and not fully standard) behaviour.
func benjaminiHochberg(pvals []float64) []float64 {
	n := len(pvals)
	if n == 0 {
		return nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return pvals[idx[a]] < pvals[idx[b]] })

	fdr := make([]float64, n)
	nf := float64(n)

	prevP := pvals[idx[0]]
	prevFDR := math.Min(prevP*nf, 1)
	rank := 1.0

	for _, i := range idx {
		p := pvals[i]
		if p == prevP {
			fdr[i] = prevFDR
		} else {
			prevP = p
			prevFDR = math.Min(p*nf/rank, 1)
			fdr[i] = prevFDR
		}
		rank++
	}
	return fdr
}

// BenjaminiHochberg is exported so the extension phase can run the
// same raw BH walk jointly across every row from every significant
// position.
func BenjaminiHochberg(pvals []float64) []float64 {
	return benjaminiHochberg(pvals)
}
