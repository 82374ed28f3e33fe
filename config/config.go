// Package config holds the kmer subcommand's resolved options:
// parsed flag values, validation, and the constants derived from them.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/hirsakai/geneditscan/bitwise"
)

// Options is the fully resolved, validated configuration for one run.
type Options struct {
	VectorFile  string
	MutantFiles []string
	WildFiles   []string

	KmerLen       int
	FDRThreshold  float64
	BasesEachSide int
	OutPrefix     string
	Threads       int
	MaxReadLen    int
	BatchSize     int
	LogInterval   int
}

// Raw mirrors the flags as cobra parses them, before validation and
// comma-splitting.
type Raw struct {
	Vector   string
	Mutant   string
	Wild     string
	Kmer     int
	FDR      float64
	Bases    int
	Out      string
	Threads  int
	Length   int
	Read     int
	Interval int
}

// Resolve validates r and fills in derived defaults, returning a ready
// Options or an error describing the first problem found.
func Resolve(r Raw) (*Options, error) {
	if r.Vector == "" {
		return nil, fmt.Errorf("--vector is required")
	}
	if r.Mutant == "" {
		return nil, fmt.Errorf("--mutant is required")
	}
	if r.Wild == "" {
		return nil, fmt.Errorf("--wild is required")
	}
	if r.Kmer < bitwise.MinKmerLength {
		return nil, fmt.Errorf("--kmer must be >= %d, got %d", bitwise.MinKmerLength, r.Kmer)
	}
	if r.Threads < 0 {
		return nil, fmt.Errorf("--threads must be >= 0")
	}

	threads := r.Threads
	if threads == 0 {
		threads = runtime.NumCPU()
	}

	return &Options{
		VectorFile:    r.Vector,
		MutantFiles:   splitFiles(r.Mutant),
		WildFiles:     splitFiles(r.Wild),
		KmerLen:       r.Kmer,
		FDRThreshold:  r.FDR,
		BasesEachSide: r.Bases,
		OutPrefix:     r.Out,
		Threads:       threads,
		MaxReadLen:    r.Length,
		BatchSize:     r.Read,
		LogInterval:   r.Interval,
	}, nil
}

func splitFiles(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ChunkLength returns min(KmerLen, bitwise.MaxChunkLength).
func (o *Options) ChunkLength() int { return bitwise.ChunkLength(o.KmerLen) }

// OuterInnerSplit derives the outer (per-file) and inner (per-batch)
// parallelism degrees from the thread budget and file count, per the
// orchestrator's suggested split: outer = min(files, threads),
// inner = max(1, threads/outer).
func (o *Options) OuterInnerSplit(files int) (outer, inner int) {
	outer = o.Threads
	if files < outer {
		outer = files
	}
	if outer < 1 {
		outer = 1
	}
	inner = o.Threads / outer
	if inner < 1 {
		inner = 1
	}
	return outer, inner
}

// Settings renders the settings-echo block printed at the start of a
// run, mirroring the original tool's startup banner.
func (o *Options) Settings(version string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "GenEditScan %s\n", version)
	fmt.Fprintf(&b, "vector: %s\n", o.VectorFile)
	fmt.Fprintf(&b, "mutant: %s\n", strings.Join(o.MutantFiles, ","))
	fmt.Fprintf(&b, "wild-type: %s\n", strings.Join(o.WildFiles, ","))
	fmt.Fprintf(&b, "kmer: %d\n", o.KmerLen)
	fmt.Fprintf(&b, "fdr: %g\n", o.FDRThreshold)
	fmt.Fprintf(&b, "bases: %d\n", o.BasesEachSide)
	fmt.Fprintf(&b, "out: %s\n", o.OutPrefix)
	fmt.Fprintf(&b, "threads: %d\n", o.Threads)
	fmt.Fprintf(&b, "max read length: %d\n", o.MaxReadLen)
	fmt.Fprintf(&b, "batch size: %d\n", o.BatchSize)
	fmt.Fprintf(&b, "log interval: %d\n", o.LogInterval)
	return b.String()
}

// Elapsed formats the duration since start as a human sentence, e.g.
// "1 hour 3 minutes 12 seconds (3792 seconds)", matching the original
// tool's startup-to-completion elapsed-time summary.
func Elapsed(start time.Time, now time.Time) string {
	d := now.Sub(start)
	totalSeconds := int64(d.Seconds())

	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	var b strings.Builder
	if hours == 1 {
		fmt.Fprintf(&b, "%d hour ", hours)
	} else if hours > 1 {
		fmt.Fprintf(&b, "%d hours ", hours)
	}
	if minutes == 1 {
		fmt.Fprintf(&b, "%d minute ", minutes)
	} else if minutes > 1 {
		fmt.Fprintf(&b, "%d minutes ", minutes)
	}
	if seconds == 1 {
		fmt.Fprintf(&b, "%d second ", seconds)
	} else if seconds > 1 {
		fmt.Fprintf(&b, "%d seconds ", seconds)
	}
	fmt.Fprintf(&b, "(%d seconds)", totalSeconds)
	return b.String()
}
