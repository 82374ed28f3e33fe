// Package fastqscan streams gzipped FASTQ files and slides a k-mer
// window over every sufficiently long read, using the bitwise
// prefilter to cheaply skip windows before an exact map lookup. It
// implements both analysis modes: match (count occurrences of each
// tracked k-mer) and extension (collect flanking base pairs around
// tracked k-mers).
package fastqscan

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/hirsakai/geneditscan/bitwise"
)

// Options configures batching, progress reporting, and the degree of
// inner (per read-batch) parallelism used while scanning one file.
type Options struct {
	KmerLen         int
	ChunkLength     int
	MaxReadLen      int
	BatchSize       int // fastq_read_lines
	LogInterval     uint64
	InnerParallel   int
	BasesEachSide   int // only used by ScanExtension
}

// ProgressFunc is called every LogInterval reads with the file name
// and the running read count for that file.
type ProgressFunc func(file string, reads uint64)

// FlankPair is a (left, right) pair of flanking bases observed around
// a tracked k-mer, in read-forward orientation at the time it was
// recorded.
type FlankPair struct {
	Left  string
	Right string
}

// MatchResult is one file's contribution to the shared per-mer count
// table. TotalWindows is the number of k-mer windows examined
// (merTotalCounter in the original tool): one per slide position, not
// one per base.
type MatchResult struct {
	Counts       map[string]uint64
	TotalWindows uint64
	TotalReads   uint64
}

// ExtensionResult is one file's contribution to the shared per-mer
// flank-pair table. TotalWindows counts examined k-mer windows, as in
// MatchResult.
type ExtensionResult struct {
	Pairs        map[string][]FlankPair
	TotalWindows uint64
	TotalReads   uint64
}

func openGzip(fname string) (io.ReadCloser, error) {
	fd, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("can't open %s: %w", fname, err)
	}
	gz, err := pgzip.NewReader(fd)
	if err != nil {
		fd.Close()
		return nil, fmt.Errorf("can't gunzip %s: %w", fname, err)
	}
	return &gzipReadCloser{gz: gz, fd: fd}, nil
}

type gzipReadCloser struct {
	gz *pgzip.Reader
	fd *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }
func (g *gzipReadCloser) Close() error {
	g.gz.Close()
	return g.fd.Close()
}

// readBatches walks fname's four-line FASTQ records, gating each
// sequence with keep, and invokes onBatch once a batch reaches
// opt.BatchSize sequences and once more (possibly short) at EOF.
func readBatches(fname string, opt Options, keep func(string) bool, onBatch func([]string) error) error {
	rc, err := openGzip(fname)
	if err != nil {
		return err
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), opt.MaxReadLen*4+1024)

	var lines [4]string
	nLine := 0
	batch := make([]string, 0, opt.BatchSize)

	for scanner.Scan() {
		line := scanner.Text()
		lines[nLine] = line
		nLine++
		if nLine < 4 {
			continue
		}
		nLine = 0

		if len(lines[0]) == 0 || lines[0][0] != '@' || len(lines[2]) == 0 || lines[2][0] != '+' {
			return fmt.Errorf("malformed FASTQ record in %s: %q", fname, lines[0])
		}

		if keep(lines[1]) {
			batch = append(batch, lines[1])
			if len(batch) >= opt.BatchSize {
				if err := onBatch(batch); err != nil {
					return err
				}
				batch = batch[:0]
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("can't read %s: %w", fname, err)
	}
	if nLine != 0 {
		return fmt.Errorf("truncated FASTQ record in %s", fname)
	}

	return onBatch(batch)
}

// chunks splits [0,n) into at most parts contiguous ranges.
func chunks(n, parts int) [][2]int {
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	if parts == 0 {
		return nil
	}
	ret := make([][2]int, 0, parts)
	base := n / parts
	rem := n % parts
	start := 0
	for i := 0; i < parts; i++ {
		size := base
		if i < rem {
			size++
		}
		if size == 0 {
			continue
		}
		ret = append(ret, [2]int{start, start + size})
		start += size
	}
	return ret
}

// ScanMatch scans fname in match mode: for every window whose
// prefilter prefix is a possible hit and whose exact k-mer is present
// in seed, the local counter for that k-mer is incremented.
func ScanMatch(ctx context.Context, fname string, pf *bitwise.Prefilter, seed map[string]uint64, opt Options, progress ProgressFunc) (*MatchResult, error) {
	result := &MatchResult{Counts: make(map[string]uint64, len(seed))}
	var readCounter uint64

	keep := func(seq string) bool { return len(seq) >= opt.KmerLen }

	err := readBatches(fname, opt, keep, func(batch []string) error {
		if len(batch) == 0 {
			return nil
		}
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for _, rng := range chunks(len(batch), opt.InnerParallel) {
			rng := rng
			g.Go(func() error {
				local := make(map[string]uint64)
				var bases uint64
				for i := rng[0]; i < rng[1]; i++ {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					n := atomic.AddUint64(&readCounter, 1)
					if progress != nil && opt.LogInterval > 0 && n%opt.LogInterval == 0 {
						progress(fname, n)
					}
					bases += matchWindow(batch[i], opt.KmerLen, opt.ChunkLength, pf, seed, local)
				}
				mu.Lock()
				for mer, c := range local {
					result.Counts[mer] += c
				}
				atomic.AddUint64(&result.TotalWindows, bases)
				mu.Unlock()
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}
	result.TotalReads = readCounter
	return result, nil
}

// matchWindow slides a k-mer window across read, crediting local for
// every exact hit, and returns the number of windows examined.
func matchWindow(read string, k, chunkLength int, pf *bitwise.Prefilter, seed map[string]uint64, local map[string]uint64) uint64 {
	n := len(read)
	if n < k {
		return 0
	}

	var w uint32
	for i := 0; i < chunkLength-1; i++ {
		w = (w << 2) | uint32(bitwise.Encode(read[i]))
	}

	var examined uint64
	mask := pf.Mask()
	for j := 0; j <= n-k; j++ {
		w = ((w << 2) | uint32(bitwise.Encode(read[chunkLength-1+j]))) & mask
		if pf.Query(w) {
			mer := read[j : j+k]
			if _, ok := seed[mer]; ok {
				local[mer]++
			}
		}
		examined++
	}
	return examined
}

// ScanExtension scans fname in extension mode: for every window whose
// exact k-mer is present in seed, the (left, right) flank of length
// BasesEachSide is appended to that k-mer's local flank list.
func ScanExtension(ctx context.Context, fname string, pf *bitwise.Prefilter, seed map[string][]FlankPair, opt Options, progress ProgressFunc) (*ExtensionResult, error) {
	result := &ExtensionResult{Pairs: make(map[string][]FlankPair, len(seed))}
	var readCounter uint64

	b := opt.BasesEachSide
	k := opt.KmerLen
	keep := func(seq string) bool { return len(seq) > k+2*b }

	err := readBatches(fname, opt, keep, func(batch []string) error {
		if len(batch) == 0 {
			return nil
		}
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for _, rng := range chunks(len(batch), opt.InnerParallel) {
			rng := rng
			g.Go(func() error {
				local := make(map[string][]FlankPair)
				var bases uint64
				for i := rng[0]; i < rng[1]; i++ {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					n := atomic.AddUint64(&readCounter, 1)
					if progress != nil && opt.LogInterval > 0 && n%opt.LogInterval == 0 {
						progress(fname, n)
					}
					bases += extensionWindow(batch[i], k, b, opt.ChunkLength, pf, seed, local)
				}
				mu.Lock()
				for mer, pairs := range local {
					result.Pairs[mer] = append(result.Pairs[mer], pairs...)
				}
				atomic.AddUint64(&result.TotalWindows, bases)
				mu.Unlock()
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}
	result.TotalReads = readCounter
	return result, nil
}

// extensionWindow slides a k-mer window across read, recording a
// flank pair for every exact hit, and returns the number of windows
// examined. The window range is shifted by b on each side so flanks
// always exist.
func extensionWindow(read string, k, b, chunkLength int, pf *bitwise.Prefilter, seed map[string][]FlankPair, local map[string][]FlankPair) uint64 {
	n := len(read)

	var w uint32
	for i := 0; i < chunkLength-1; i++ {
		w = (w << 2) | uint32(bitwise.Encode(read[i]))
	}
	for j := 0; j < b; j++ {
		w = (w << 2) | uint32(bitwise.Encode(read[chunkLength-1+j]))
	}

	var examined uint64
	mask := pf.Mask()
	for j := b; j <= n-k-b; j++ {
		w = ((w << 2) | uint32(bitwise.Encode(read[chunkLength-1+j]))) & mask
		if pf.Query(w) {
			mer := read[j : j+k]
			if _, ok := seed[mer]; ok {
				left := read[j-b : j]
				right := read[j+k : j+k+b]
				local[mer] = append(local[mer], FlankPair{Left: left, Right: right})
			}
		}
		examined++
	}
	return examined
}
