// Command kmer detects transgenic vector integration sites by
// comparing k-mer occurrence statistics between mutant and wild-type
// read sets.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hirsakai/geneditscan/bitwise"
	"github.com/hirsakai/geneditscan/config"
	"github.com/hirsakai/geneditscan/extension"
	"github.com/hirsakai/geneditscan/fastqscan"
	"github.com/hirsakai/geneditscan/gtest"
	"github.com/hirsakai/geneditscan/logging"
	"github.com/hirsakai/geneditscan/match"
	"github.com/hirsakai/geneditscan/output"
	"github.com/hirsakai/geneditscan/vector"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var raw config.Raw
	var showVersion bool

	cmd := &cobra.Command{
		Use:   "kmer",
		Short: "Detect transgenic vector integration sites from mutant/wild-type FASTQ reads",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Println(version)
				return nil
			}
			return run(raw)
		},
		SilenceUsage: true,
	}

	f := cmd.Flags()
	f.StringVarP(&raw.Vector, "vector", "v", "", "FASTA vector file (required)")
	f.StringVarP(&raw.Mutant, "mutant", "m", "", "comma-separated mutant FASTQ.gz files (required)")
	f.StringVarP(&raw.Wild, "wild", "w", "", "comma-separated wild-type FASTQ.gz files (required)")
	f.IntVarP(&raw.Kmer, "kmer", "k", 20, "k-mer length, must be >= 8")
	f.Float64VarP(&raw.FDR, "fdr", "f", 0.01, "FDR threshold for extension phase")
	f.IntVarP(&raw.Bases, "bases", "b", 5, "flank length each side")
	f.StringVarP(&raw.Out, "out", "o", "out_prefix", "output prefix")
	f.IntVarP(&raw.Threads, "threads", "t", 0, "thread budget (0 = all)")
	f.IntVarP(&raw.Length, "length", "l", 512, "maximum read length")
	f.IntVarP(&raw.Read, "read", "r", 10_000_000, "batch size in reads")
	f.IntVarP(&raw.Interval, "interval", "i", 1_000_000, "progress interval")
	f.BoolVar(&showVersion, "version", false, "print version and exit")

	return cmd
}

func run(raw config.Raw) error {
	start := time.Now()

	opts, err := config.Resolve(raw)
	if err != nil {
		return err
	}

	stdout := logging.New()
	stderr := logging.NewStderr()
	fmt.Print(opts.Settings(version))
	defer func() {
		fmt.Printf("Elapsed time: %s\n", config.Elapsed(start, time.Now()))
	}()

	v, err := vector.Load(opts.VectorFile, opts.KmerLen)
	if err != nil {
		stderr.Error(err)
		return err
	}

	chunkLen := opts.ChunkLength()
	pf := v.BuildPrefilter(chunkLen)

	matchOpts := fastqscan.Options{
		KmerLen:     opts.KmerLen,
		ChunkLength: chunkLen,
		MaxReadLen:  opts.MaxReadLen,
		BatchSize:   opts.BatchSize,
		LogInterval: uint64(opts.LogInterval),
	}

	ctx := context.Background()

	mutantMatch, err := scanMatchFiles(ctx, opts.MutantFiles, pf, v.SeedCount, matchOpts, opts, stdout)
	if err != nil {
		stderr.Error(err)
		return err
	}
	wildMatch, err := scanMatchFiles(ctx, opts.WildFiles, pf, v.SeedCount, matchOpts, opts, stdout)
	if err != nil {
		stderr.Error(err)
		return err
	}

	freq := match.Derive(v, mutantMatch.Counts, wildMatch.Counts)

	engine := gtest.New(mutantMatch.TotalWindows, wildMatch.TotalWindows)
	scored := engine.ScoreMatch(freq.Mutant, freq.WildType)

	stats := make([]output.PositionStat, v.OrigLen)
	var significant []int
	for i := 0; i < v.OrigLen; i++ {
		stats[i] = output.PositionStat{
			Pos:      i,
			Base:     v.Array[i],
			Mutant:   freq.Mutant[i],
			WildType: freq.WildType[i],
			Scored:   scored[i],
		}
		if scored[i].FDR <= opts.FDRThreshold {
			significant = append(significant, i)
		}
	}

	if err := output.WriteStatistics(opts.OutPrefix, opts.KmerLen, stats); err != nil {
		stderr.Error(err)
		return err
	}
	if err := output.WriteMerFreq(opts.OutPrefix, "mutant", mutantMatch.Counts); err != nil {
		stderr.Error(err)
		return err
	}
	if err := output.WriteMerFreq(opts.OutPrefix, "wildtype", wildMatch.Counts); err != nil {
		stderr.Error(err)
		return err
	}

	if len(significant) == 0 {
		stdout.Info("no positions below FDR threshold; skipping extension phase")
		return nil
	}

	extSeed := extension.SeedFlanks(v, significant)
	extOpts := fastqscan.Options{
		KmerLen:       opts.KmerLen,
		ChunkLength:   chunkLen,
		MaxReadLen:    opts.MaxReadLen,
		BatchSize:     opts.BatchSize,
		LogInterval:   uint64(opts.LogInterval),
		BasesEachSide: opts.BasesEachSide,
	}

	mutantExt, err := scanExtensionFiles(ctx, opts.MutantFiles, pf, extSeed, extOpts, opts, stdout)
	if err != nil {
		stderr.Error(err)
		return err
	}
	wildExt, err := scanExtensionFiles(ctx, opts.WildFiles, pf, extSeed, extOpts, opts, stdout)
	if err != nil {
		stderr.Error(err)
		return err
	}

	positions := extension.Derive(v, significant, mutantExt.Pairs, wildExt.Pairs)

	rows, _ := scoreExtensionRows(engine, positions)

	extRows := make([]output.ExtensionRow, len(positions))
	for i, pos := range positions {
		extRows[i] = output.ExtensionRow{
			Position:  pos,
			TableSize: len(pos.Rows),
			PosFreq:   stats[pos.Index],
			Rows:      rows[i],
		}
	}

	if err := output.WriteOutside(opts.OutPrefix, opts.KmerLen, opts.FDRThreshold, opts.BasesEachSide, extRows); err != nil {
		stderr.Error(err)
		return err
	}

	return nil
}

// scanMatchFiles fans out ScanMatch over files (the orchestrator's
// outer parallel level) and merges every file's local result into one
// shared MatchResult under a mutex. The shared count table starts with
// every seeded k-mer at zero.
func scanMatchFiles(ctx context.Context, files []string, pf *bitwise.Prefilter, seed map[string]uint64, opt fastqscan.Options, cfg *config.Options, log *logrus.Logger) (*fastqscan.MatchResult, error) {
	outer, inner := cfg.OuterInnerSplit(len(files))
	opt.InnerParallel = inner

	shared := &fastqscan.MatchResult{Counts: make(map[string]uint64, len(seed))}
	for mer := range seed {
		shared.Counts[mer] = 0
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(outer)
	for _, fname := range files {
		fname := fname
		g.Go(func() error {
			r, err := fastqscan.ScanMatch(gctx, fname, pf, seed, opt, func(f string, n uint64) {
				logging.Progress(log, f, n)
			})
			if err != nil {
				return err
			}
			mu.Lock()
			match.MergeCounts(shared.Counts, r.Counts)
			shared.TotalWindows += r.TotalWindows
			shared.TotalReads += r.TotalReads
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return shared, nil
}

// scanExtensionFiles is the extension-phase analogue of
// scanMatchFiles.
func scanExtensionFiles(ctx context.Context, files []string, pf *bitwise.Prefilter, seed map[string][]fastqscan.FlankPair, opt fastqscan.Options, cfg *config.Options, log *logrus.Logger) (*fastqscan.ExtensionResult, error) {
	outer, inner := cfg.OuterInnerSplit(len(files))
	opt.InnerParallel = inner

	shared := &fastqscan.ExtensionResult{Pairs: make(map[string][]fastqscan.FlankPair, len(seed))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(outer)
	for _, fname := range files {
		fname := fname
		g.Go(func() error {
			r, err := fastqscan.ScanExtension(gctx, fname, pf, seed, opt, func(f string, n uint64) {
				logging.Progress(log, f, n)
			})
			if err != nil {
				return err
			}
			mu.Lock()
			for mer, pairs := range r.Pairs {
				shared.Pairs[mer] = append(shared.Pairs[mer], pairs...)
			}
			shared.TotalWindows += r.TotalWindows
			shared.TotalReads += r.TotalReads
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return shared, nil
}

// scoreExtensionRows runs the second-pass G-test over every row of
// every significant position, with per-position memoisation, then
// computes the joint BH FDR and Bonferroni across all rows.
func scoreExtensionRows(engine *gtest.Engine, positions []extension.Position) ([][]output.ScoredRow, int) {
	total := 0
	for _, p := range positions {
		total += len(p.Rows)
	}

	results := make([]gtest.Result, 0, total)
	index := make([][2]int, 0, total) // position index, row index

	for pi, p := range positions {
		memo := gtest.NewExtensionMemo()
		for ri, row := range p.Rows {
			r := engine.ScoreExtensionRow(row.MutantCount, row.WildTypeCount, memo)
			results = append(results, r)
			index = append(index, [2]int{pi, ri})
		}
	}

	pvals := make([]float64, len(results))
	for i, r := range results {
		pvals[i] = r.P
	}
	fdrs := gtest.BenjaminiHochberg(pvals)

	out := make([][]output.ScoredRow, len(positions))
	for i, p := range positions {
		out[i] = make([]output.ScoredRow, len(p.Rows))
	}
	for i, r := range results {
		pi, ri := index[i][0], index[i][1]
		out[pi][ri] = output.ScoredRow{
			Row: positions[pi].Rows[ri],
			Scored: gtest.Scored{
				Result:     r,
				FDR:        fdrs[i],
				Bonferroni: gtest.Bonferroni(r.P, total),
			},
		}
	}
	return out, total
}
