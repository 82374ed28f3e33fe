package gtest

import (
	"math"
	"testing"
)

func TestMatchTestNoEnrichmentGivesZeroGOneP(t *testing.T) {
	e := New(100, 100)
	r := e.MatchTest(5, 5) // m*W == w*M, not strictly greater
	if r.G != 0 || r.P != 1 {
		t.Errorf("MatchTest(5,5) = %+v, want G=0 P=1", r)
	}
}

func TestMatchTestEnrichedGivesPositiveG(t *testing.T) {
	e := New(100, 100)
	r := e.MatchTest(10, 1)
	if r.G <= 0 {
		t.Errorf("MatchTest(10,1).G = %v, want > 0", r.G)
	}
	if r.P < 0 || r.P > 1 {
		t.Errorf("MatchTest(10,1).P = %v, out of [0,1]", r.P)
	}
}

func TestExtensionTestUsesNonStrictFilter(t *testing.T) {
	e := New(100, 100)
	// m*W == w*M means equal mutant/wild-type proportions, so the
	// underlying contingency table is exactly independent and G is 0
	// either way; what this exercises is that ExtensionTest's >=
	// filter takes the "enriched" branch on equality instead of
	// short-circuiting to G=0,P=1 by rejection (MatchTest's strict >
	// does short-circuit here).
	match := e.MatchTest(5, 5)
	ext := e.ExtensionTest(5, 5)
	if match.G != 0 || match.P != 1 {
		t.Fatalf("MatchTest(5,5) = %+v, want G=0 P=1 (strict filter rejects on equality)", match)
	}
	if ext.G != 0 || ext.P != 1 {
		t.Fatalf("ExtensionTest(5,5) = %+v, want G=0 P=1 (independent table)", ext)
	}

	// Wild-type strictly enriched: both filters must reject.
	wildEnriched := e.MatchTest(1, 10)
	if wildEnriched.G != 0 || wildEnriched.P != 1 {
		t.Errorf("MatchTest(1,10) = %+v, want G=0 P=1 (mutant not enriched)", wildEnriched)
	}
	wildEnrichedExt := e.ExtensionTest(1, 10)
	if wildEnrichedExt.G != 0 || wildEnrichedExt.P != 1 {
		t.Errorf("ExtensionTest(1,10) = %+v, want G=0 P=1 (mutant not enriched)", wildEnrichedExt)
	}
}

func TestChiSquareComplementGuards(t *testing.T) {
	if got := chiSquareComplement(0); got != 1 {
		t.Errorf("chiSquareComplement(0) = %v, want 1", got)
	}
	if got := chiSquareComplement(-5); got != 1 {
		t.Errorf("chiSquareComplement(-5) = %v, want 1", got)
	}
	if got := chiSquareComplement(170); got != 0 {
		t.Errorf("chiSquareComplement(170) = %v, want 0", got)
	}
	if got := chiSquareComplement(1000); got != 0 {
		t.Errorf("chiSquareComplement(1000) = %v, want 0", got)
	}
}

func TestScoreMatchMemoisesIdenticalPairs(t *testing.T) {
	e := New(1000, 1000)
	mutant := []uint64{10, 10, 3}
	wild := []uint64{1, 1, 1}

	scored := e.ScoreMatch(mutant, wild)
	if scored[0].G != scored[1].G || scored[0].P != scored[1].P {
		t.Errorf("identical (mutant, wild) pairs produced different G/P: %+v vs %+v", scored[0], scored[1])
	}
}

func TestScoreMatchResultsWithinUnitInterval(t *testing.T) {
	e := New(500, 500)
	mutant := []uint64{0, 1, 50, 500}
	wild := []uint64{0, 1, 2, 0}

	for _, s := range e.ScoreMatch(mutant, wild) {
		if s.P < 0 || s.P > 1 {
			t.Errorf("P = %v out of [0,1]", s.P)
		}
		if s.FDR < 0 || s.FDR > 1 {
			t.Errorf("FDR = %v out of [0,1]", s.FDR)
		}
		if s.Bonferroni < 0 || s.Bonferroni > 1 {
			t.Errorf("Bonferroni = %v out of [0,1]", s.Bonferroni)
		}
	}
}

func TestBenjaminiHochbergTiesShareFDR(t *testing.T) {
	pvals := []float64{0.5, 0.1, 0.1, 0.01}
	fdr := BenjaminiHochberg(pvals)
	if fdr[1] != fdr[2] {
		t.Errorf("tied p-values got different FDR: %v vs %v", fdr[1], fdr[2])
	}
}

func TestBenjaminiHochbergRawNoMonotoneEnforcement(t *testing.T) {
	// p ascending: 0.01 (rank1), 0.3 (rank2), 0.31 (rank3) over n=3.
	// raw BH: min(1, 0.01*3/1)=0.03, min(1,0.3*3/2)=0.45, min(1,0.31*3/3)=0.31
	// The third value (0.31) is smaller than the second (0.45): this is
	// intentionally non-monotone and must be preserved verbatim.
	pvals := []float64{0.01, 0.3, 0.31}
	fdr := BenjaminiHochberg(pvals)

	want := []float64{0.03, 0.45, 0.31}
	for i := range want {
		if math.Abs(fdr[i]-want[i]) > 1e-9 {
			t.Errorf("fdr[%d] = %v, want %v", i, fdr[i], want[i])
		}
	}
}

func TestBonferroni(t *testing.T) {
	if got := Bonferroni(0.1, 5); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Bonferroni(0.1,5) = %v, want 0.5", got)
	}
	if got := Bonferroni(0.5, 10); got != 1 {
		t.Errorf("Bonferroni(0.5,10) = %v, want 1 (clamped)", got)
	}
}

func TestScoreExtensionRowMemoisation(t *testing.T) {
	e := New(1000, 1000)
	memo := NewExtensionMemo()

	r1 := e.ScoreExtensionRow(9, 0, memo)
	r2 := e.ScoreExtensionRow(9, 0, memo)
	if r1 != r2 {
		t.Errorf("ScoreExtensionRow did not return an identical cached result: %+v vs %+v", r1, r2)
	}
	if len(memo) != 1 {
		t.Errorf("memo has %d entries, want 1", len(memo))
	}
}
