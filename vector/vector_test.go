package vector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hirsakai/geneditscan/bitwise"
)

func writeFasta(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCircularisesAndSeeds(t *testing.T) {
	dir := t.TempDir()
	path := writeFasta(t, dir, "vector.fa", ">v\nACGTACGTACGT\n")

	v, err := Load(path, 8)
	if err != nil {
		t.Fatal(err)
	}
	if v.OrigLen != 12 {
		t.Fatalf("OrigLen = %d, want 12", v.OrigLen)
	}
	if len(v.Array) != 12+8-1 {
		t.Fatalf("Array length = %d, want %d", len(v.Array), 12+8-1)
	}
	if v.Array[:12] != "ACGTACGTACGT" || v.Array[12:] != "ACGTACG" {
		t.Fatalf("Array = %q not circularised correctly", v.Array)
	}
	if len(v.PosPairs) != v.OrigLen {
		t.Fatalf("PosPairs has %d entries, want %d", len(v.PosPairs), v.OrigLen)
	}
	for i := 0; i < v.OrigLen; i++ {
		pair := v.PosPairs[i]
		if bitwise.ReverseComplement(pair.Mer) != pair.RevMer {
			t.Errorf("position %d: RevMer is not the reverse complement of Mer", i)
		}
		if _, ok := v.SeedCount[pair.Mer]; !ok {
			t.Errorf("position %d: Mer not seeded", i)
		}
		if _, ok := v.SeedCount[pair.RevMer]; !ok {
			t.Errorf("position %d: RevMer not seeded", i)
		}
	}
}

func TestLoadOnlyFirstRecord(t *testing.T) {
	dir := t.TempDir()
	path := writeFasta(t, dir, "vector.fa", ">v1\nAAAAAAAA\n>v2\nCCCCCCCC\n")

	v, err := Load(path, 8)
	if err != nil {
		t.Fatal(err)
	}
	if v.OrigLen != 8 {
		t.Fatalf("OrigLen = %d, want 8 (second record must be ignored)", v.OrigLen)
	}
}

func TestLoadUppercases(t *testing.T) {
	dir := t.TempDir()
	path := writeFasta(t, dir, "vector.fa", ">v\nacgtacgtacgt\n")

	v, err := Load(path, 8)
	if err != nil {
		t.Fatal(err)
	}
	if v.Array[:12] != "ACGTACGTACGT" {
		t.Fatalf("Array = %q, want upper-case", v.Array[:12])
	}
}

func TestLoadShorterThanKIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeFasta(t, dir, "vector.fa", ">v\nACGT\n")

	if _, err := Load(path, 8); err == nil {
		t.Fatal("expected an error when the vector is shorter than k")
	}
}

func TestBuildPrefilterInsertsEverySeededKmer(t *testing.T) {
	dir := t.TempDir()
	path := writeFasta(t, dir, "vector.fa", ">v\nAAAAAAAAAAAA\n")

	v, err := Load(path, 8)
	if err != nil {
		t.Fatal(err)
	}
	pf := v.BuildPrefilter(bitwise.ChunkLength(8))
	for mer := range v.SeedCount {
		packed := uint32(0)
		for i := 0; i < 8; i++ {
			packed = (packed << 2) | uint32(bitwise.Encode(mer[i]))
		}
		if !pf.Query(packed) {
			t.Errorf("prefilter does not recognise seeded k-mer %q", mer)
		}
	}
}
