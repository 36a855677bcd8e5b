// Package main provides bigqueue-bench, an in-process throughput benchmark
// for package bigqueue.
//
// Unlike a harness that shells out to an external profiling tool, this
// benchmark drives the library directly: it measures push/pop throughput at
// a range of record sizes and SPSC channel throughput with a real producer
// and consumer goroutine, then writes a markdown report.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	flag "github.com/spf13/pflag"

	qfs "github.com/arenafile/bigqueue/internal/fs"
	"github.com/arenafile/bigqueue/pkg/bigqueue"
)

// Config holds all benchmark configuration.
type Config struct {
	OutDir      string
	PushPopN    int
	ChannelN    int
	ArenaSize   int64
	PayloadSize []int
}

// BenchResult holds a single benchmark result.
type BenchResult struct {
	Label   string
	Ops     int
	Elapsed time.Duration
}

func (r BenchResult) opsPerSec() float64 {
	return float64(r.Ops) / r.Elapsed.Seconds()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := Config{}

	fs := flag.NewFlagSet("bigqueue-bench", flag.ExitOnError)

	fs.StringVar(&cfg.OutDir, "out", ".benchmarks", "output directory for the report")
	fs.IntVar(&cfg.PushPopN, "pushpop-n", 200_000, "number of records for the push/pop benchmark")
	fs.IntVar(&cfg.ChannelN, "channel-n", 500_000, "number of records for the SPSC channel benchmark")
	fs.Int64Var(&cfg.ArenaSize, "arena-size", bigqueue.DefaultArenaSize, "arena size in bytes")

	sizesStr := fs.String("payload-sizes", "20,256,4096", "comma-separated list of payload sizes in bytes")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, "Usage: bigqueue-bench [flags]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	for _, s := range strings.Split(*sizesStr, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}

		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid payload size %q: %w", s, err)
		}

		cfg.PayloadSize = append(cfg.PayloadSize, n)
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var results []BenchResult

	for _, size := range cfg.PayloadSize {
		r, err := benchPushPop(cfg, size)
		if err != nil {
			return fmt.Errorf("push/pop benchmark (size=%d): %w", size, err)
		}

		results = append(results, r...)
	}

	channelResult, err := benchChannel(cfg)
	if err != nil {
		return fmt.Errorf("channel benchmark: %w", err)
	}

	results = append(results, channelResult)

	report := renderReport(results)

	fmt.Print(report)

	timestamp := time.Now().UTC().Format("20060102-150405")
	outFile := filepath.Join(cfg.OutDir, fmt.Sprintf("bigqueue_bench_%s.md", timestamp))

	// Written atomically: a benchmark run killed mid-write must never leave a
	// truncated report behind for a later run to trip over.
	return qfs.NewReal().WriteFileAtomic(outFile, []byte(report), 0o644)
}

func benchPushPop(cfg Config, payloadSize int) ([]BenchResult, error) {
	dir, err := os.MkdirTemp("", "bigqueue-bench-pushpop-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	q, err := bigqueue.OpenWithConfig(dir, true, bigqueue.Config{
		ArenaSize:      cfg.ArenaSize,
		MaxArenasInMem: bigqueue.DefaultMaxArenasInMem,
	})
	if err != nil {
		return nil, err
	}
	defer q.Close()

	payload := make([]byte, payloadSize)

	pushStart := time.Now()

	for i := 0; i < cfg.PushPopN; i++ {
		if err := q.Push(payload); err != nil {
			return nil, fmt.Errorf("push %d: %w", i, err)
		}
	}

	pushElapsed := time.Since(pushStart)

	popStart := time.Now()

	for i := 0; i < cfg.PushPopN; i++ {
		if _, err := q.Pop(); err != nil {
			return nil, fmt.Errorf("pop %d: %w", i, err)
		}
	}

	popElapsed := time.Since(popStart)

	return []BenchResult{
		{Label: fmt.Sprintf("push (payload=%dB)", payloadSize), Ops: cfg.PushPopN, Elapsed: pushElapsed},
		{Label: fmt.Sprintf("pop (payload=%dB)", payloadSize), Ops: cfg.PushPopN, Elapsed: popElapsed},
	}, nil
}

func benchChannel(cfg Config) (BenchResult, error) {
	dir, err := os.MkdirTemp("", "bigqueue-bench-channel-*")
	if err != nil {
		return BenchResult{}, err
	}
	defer os.RemoveAll(dir)

	sender, receiver, err := bigqueue.Channel(dir, true)
	if err != nil {
		return BenchResult{}, err
	}
	defer sender.Close()

	payload := make([]byte, 20)

	var wg sync.WaitGroup

	wg.Add(2)

	var produceErr, consumeErr error

	start := time.Now()

	go func() {
		defer wg.Done()

		for i := 0; i < cfg.ChannelN; i++ {
			if err := sender.Enqueue(payload); err != nil {
				produceErr = err

				return
			}
		}
	}()

	go func() {
		defer wg.Done()

		consumed := 0
		for consumed < cfg.ChannelN {
			err := receiver.Dequeue()
			if err == bigqueue.ErrQueueEmpty { //nolint:errorlint
				runtime.Gosched()

				continue
			}

			if err != nil {
				consumeErr = err

				return
			}

			consumed++
		}
	}()

	wg.Wait()

	elapsed := time.Since(start)

	if produceErr != nil {
		return BenchResult{}, produceErr
	}

	if consumeErr != nil {
		return BenchResult{}, consumeErr
	}

	return BenchResult{Label: "SPSC channel (20B payload)", Ops: cfg.ChannelN, Elapsed: elapsed}, nil
}

func renderReport(results []BenchResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## bigqueue-bench %s\n\n", time.Now().UTC().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("- %s/%s, GOMAXPROCS=%d\n\n", runtime.GOOS, runtime.GOARCH, runtime.GOMAXPROCS(0)))
	sb.WriteString("| benchmark | ops | elapsed | ops/sec |\n")
	sb.WriteString("|---|---:|---:|---:|\n")

	for _, r := range results {
		sb.WriteString(fmt.Sprintf("| %s | %d | %s | %.0f |\n", r.Label, r.Ops, r.Elapsed.Round(time.Millisecond), r.opsPerSec()))
	}

	return sb.String()
}
