package bitwise

import "testing"

func TestChunkLength(t *testing.T) {
	cases := []struct{ k, want int }{
		{8, 8},
		{16, 16},
		{20, 16},
		{32, 16},
	}
	for _, c := range cases {
		if got := ChunkLength(c.k); got != c.want {
			t.Errorf("ChunkLength(%d) = %d, want %d", c.k, got, c.want)
		}
	}
}

func TestMaxChunkArray(t *testing.T) {
	if got := MaxChunkArray(8); got != 65535 {
		t.Errorf("MaxChunkArray(8) = %d, want 65535", got)
	}
}

func TestPrefilterInsertQuery(t *testing.T) {
	pf := New(8)
	pf.Insert("ACGTACGT")

	packed := pf.pack("ACGTACGT")
	if !pf.Query(packed) {
		t.Error("Query returned false for an inserted prefix")
	}

	other := pf.pack("TTTTTTTT")
	if pf.Query(other) {
		t.Error("Query returned true for a prefix that was never inserted")
	}
}

func TestPrefilterSentinelAlwaysHits(t *testing.T) {
	pf := New(8)
	if !pf.Query(pf.Sentinel()) {
		t.Error("Query on the sentinel value must always report true")
	}
}

func TestPrefilterReset(t *testing.T) {
	pf := New(8)
	pf.Insert("ACGTACGT")
	pf.Reset()
	if pf.Query(pf.pack("ACGTACGT")) {
		t.Error("Reset did not clear a previously inserted prefix")
	}
}
