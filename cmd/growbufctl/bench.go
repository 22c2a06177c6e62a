package main

import (
	"fmt"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/joshuapare/growbuf/bytebuf"
	"github.com/joshuapare/growbuf/internal/logger"
	"github.com/joshuapare/growbuf/metrics"
	"github.com/joshuapare/growbuf/rawmem"
)

var (
	benchTotal   string
	benchChunk   string
	benchRounds  int
	benchPool    string
	benchMetrics bool
)

func init() {
	cmd := newBenchCmd()
	cmd.Flags().StringVar(&benchTotal, "total", "64MB", "Bytes appended per round")
	cmd.Flags().StringVar(&benchChunk, "chunk", "1KB", "Bytes per append call")
	cmd.Flags().IntVar(&benchRounds, "rounds", 3, "Number of rounds")
	cmd.Flags().StringVar(&benchPool, "pool", "none", "Reuse buffers between rounds: none, sync, multi or lb")
	cmd.Flags().BoolVar(&benchMetrics, "metrics", false, "Print Prometheus metrics after the run")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Measure append throughput",
		Long: `The bench command fills buffers with fixed size appends and reports the
throughput together with how often the allocation had to grow.

Example:
  growbufctl bench --total 256MB --chunk 4KB
  growbufctl bench --allocator heap --pool lb --metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchCmd()
		},
	}
}

type benchConfig struct {
	Total  int
	Chunk  int
	Rounds int
	Pool   string
}

// BenchResult summarizes a bench run.
type BenchResult struct {
	Allocator   string        `json:"allocator"`
	Total       int           `json:"total_bytes"`
	Chunk       int           `json:"chunk_bytes"`
	Rounds      int           `json:"rounds"`
	Pool        string        `json:"pool"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	BytesPerSec float64       `json:"bytes_per_sec"`
	FinalCap    int           `json:"final_cap"`
	Stats       rawmem.Stats  `json:"allocator_stats"`
}

func runBenchCmd() error {
	total, err := parseSize("total", benchTotal)
	if err != nil {
		return err
	}
	chunk, err := parseSize("chunk", benchChunk)
	if err != nil {
		return err
	}
	if benchRounds <= 0 {
		return fmt.Errorf("--rounds must be positive, got %d", benchRounds)
	}
	a, err := newAllocator(allocator)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewAllocatorCollector(a, allocator))

	cfg := benchConfig{Total: int(total), Chunk: int(chunk), Rounds: benchRounds, Pool: benchPool}
	printVerbose("Appending %s in %s chunks, %d rounds\n",
		total.HumanReadable(), chunk.HumanReadable(), benchRounds)

	res, err := runBench(a, metrics.NewPoolMetrics(reg), cfg)
	if err != nil {
		return err
	}
	res.Allocator = allocator
	logger.Info("bench finished",
		"allocator", res.Allocator, "elapsed", res.Elapsed, "grows", res.Stats.Grows, "moves", res.Stats.Moves)

	if jsonOut {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		printInfo("Allocator:   %s\n", res.Allocator)
		printInfo("Pool:        %s\n", res.Pool)
		printInfo("Appended:    %s x %d rounds in %s chunks\n",
			formatBytes(int64(res.Total)), res.Rounds, formatBytes(int64(res.Chunk)))
		printInfo("Elapsed:     %s\n", res.Elapsed)
		printInfo("Throughput:  %s/s\n", formatBytes(int64(res.BytesPerSec)))
		printInfo("Final cap:   %s\n", formatBytes(int64(res.FinalCap)))
		printInfo("Allocs:      %s\n", formatNumber(res.Stats.Allocs))
		printInfo("Grows:       %s (%s in place, %s moved)\n",
			formatNumber(res.Stats.Grows), formatNumber(res.Stats.InPlace), formatNumber(res.Stats.Moves))
	}

	if benchMetrics {
		return writeMetrics(reg)
	}
	return nil
}

// bufferSource hands out buffers for one round and takes them back afterwards.
type bufferSource struct {
	get func() *bytebuf.Buffer
	put func(*bytebuf.Buffer)
}

func newBufferSource(kind string, a rawmem.Allocator, mw bytebuf.MetricsWriter) (bufferSource, error) {
	switch kind {
	case "", "none":
		return bufferSource{
			get: func() *bytebuf.Buffer { return bytebuf.NewWithAllocator(a) },
			put: (*bytebuf.Buffer).Release,
		}, nil
	case "sync":
		p := &bytebuf.Pool{Allocator: a, Metrics: mw}
		return bufferSource{get: p.Get, put: p.Put}, nil
	case "multi":
		p := &bytebuf.MultiPool{Size: 4, Allocator: a, Metrics: mw}
		return bufferSource{get: p.Get, put: p.Put}, nil
	case "lb":
		p := &bytebuf.LBPool{Size: 4, Allocator: a, Metrics: mw}
		return bufferSource{get: p.Get, put: func(b *bytebuf.Buffer) { p.Put(b) }}, nil
	default:
		return bufferSource{}, fmt.Errorf("unknown pool %q (want none, sync, multi or lb)", kind)
	}
}

// runBench appends cfg.Total bytes in cfg.Chunk sized calls, cfg.Rounds times.
func runBench(a *rawmem.Tracked, mw bytebuf.MetricsWriter, cfg benchConfig) (BenchResult, error) {
	res := BenchResult{Total: cfg.Total, Chunk: cfg.Chunk, Rounds: cfg.Rounds, Pool: cfg.Pool}
	src, err := newBufferSource(cfg.Pool, a, mw)
	if err != nil {
		return res, err
	}
	chunk := make([]byte, cfg.Chunk)
	for i := range chunk {
		chunk[i] = byte(i)
	}

	start := time.Now()
	for round := 0; round < cfg.Rounds; round++ {
		b := src.get()

		for left := cfg.Total; left > 0; left -= cfg.Chunk {
			if err := b.Append(chunk[:min(left, cfg.Chunk)]); err != nil {
				b.Release()
				return res, fmt.Errorf("round %d: %w", round+1, err)
			}
		}
		if b.Len() != cfg.Total {
			return res, fmt.Errorf("round %d: buffer holds %d bytes, want %d", round+1, b.Len(), cfg.Total)
		}
		res.FinalCap = b.Cap()
		src.put(b)
	}
	res.Elapsed = time.Since(start)
	if secs := res.Elapsed.Seconds(); secs > 0 {
		res.BytesPerSec = float64(cfg.Total) * float64(cfg.Rounds) / secs
	}
	res.Stats = a.Stats()
	return res, nil
}

// parseSize parses a size flag such as 64MB. Zero and sizes above 1GB are rejected.
func parseSize(flag, s string) (datasize.ByteSize, error) {
	var n datasize.ByteSize
	if err := n.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid --%s %q: %w", flag, s, err)
	}
	if n == 0 || n > datasize.GB {
		return 0, fmt.Errorf("--%s must be between 1B and 1GB, got %s", flag, n.HumanReadable())
	}
	return n, nil
}

func writeMetrics(g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(stdout, mf); err != nil {
			return err
		}
	}
	return nil
}
