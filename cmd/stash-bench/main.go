// Package main provides stash-bench, a concurrent workload driver for
// stashtable.
//
// It reads a HuJSON config describing the table size and workload mix,
// runs each configured goroutine count for the configured duration, and
// writes a JSON report atomically.
//
// Usage:
//
//	stash-bench [--config bench.json] [--out results.json]
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	natomic "github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"
	"github.com/tailscale/hujson"

	"github.com/olliNiinivaara/stashtable/pkg/stashtable"
)

var (
	errCapacityNotPositive = errors.New("capacity must be positive")
	errKeySpaceNotPositive = errors.New("key_space must be positive")
	errDurationNotPositive = errors.New("duration must be positive")
	errNoGoroutineCounts   = errors.New("goroutines list is empty")
	errMixEmpty            = errors.New("workload mix has no weight")
)

// Config holds all benchmark configuration.
type Config struct {
	// Capacity of the benchmarked table.
	Capacity int `json:"capacity"`

	// KeySpace is the number of distinct keys the workload draws from.
	KeySpace int `json:"key_space"`

	// Goroutines lists the concurrency levels to run, one round each.
	Goroutines []int `json:"goroutines"`

	// DurationMS is the measured duration per round, in milliseconds.
	DurationMS int `json:"duration_ms"`

	// Mix weights for the per-op workload mix.
	InsertWeight int `json:"insert_weight"`
	FindWeight   int `json:"find_weight"`
	UpdateWeight int `json:"update_weight"`
	DeleteWeight int `json:"delete_weight"`
}

// DefaultConfig returns a balanced read-mostly configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:     1 << 16,
		KeySpace:     1 << 15,
		Goroutines:   []int{1, 2, 4, runtime.GOMAXPROCS(0)},
		DurationMS:   1000,
		InsertWeight: 10,
		FindWeight:   70,
		UpdateWeight: 15,
		DeleteWeight: 5,
	}
}

// RoundResult is the outcome of one concurrency level.
type RoundResult struct {
	Goroutines int     `json:"goroutines"`
	Ops        uint64  `json:"ops"`
	Seconds    float64 `json:"seconds"`
	OpsPerSec  float64 `json:"ops_per_sec"`
}

// Report is the JSON document written after a run.
type Report struct {
	Config   Config        `json:"config"`
	Started  time.Time     `json:"started"`
	Go       string        `json:"go"`
	MaxProcs int           `json:"maxprocs"`
	Rounds   []RoundResult `json:"rounds"`
}

func main() {
	flags := flag.NewFlagSet("stash-bench", flag.ExitOnError)
	configPath := flags.String("config", "", "HuJSON config `file` (defaults baked in)")
	outPath := flags.String("out", "stash-bench.json", "report output `file`")
	_ = flags.Parse(os.Args[1:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	report := Report{
		Config:   cfg,
		Started:  time.Now().UTC(),
		Go:       runtime.Version(),
		MaxProcs: runtime.GOMAXPROCS(0),
	}

	for _, n := range cfg.Goroutines {
		round := runRound(cfg, n)
		report.Rounds = append(report.Rounds, round)
		fmt.Printf("goroutines=%-3d ops=%-12d %.0f ops/s\n", n, round.Ops, round.OpsPerSec)
	}

	if err := writeReport(*outPath, report); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fmt.Printf("report written to %s\n", *outPath)
}

// loadConfig reads a HuJSON config file, or returns defaults when path is
// empty. Unset fields keep their default values.
func loadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	if cfg.Capacity < 1 {
		return errCapacityNotPositive
	}

	if cfg.DurationMS < 1 {
		return errDurationNotPositive
	}

	if len(cfg.Goroutines) == 0 {
		return errNoGoroutineCounts
	}

	if cfg.InsertWeight+cfg.FindWeight+cfg.UpdateWeight+cfg.DeleteWeight <= 0 {
		return errMixEmpty
	}

	if cfg.KeySpace < 1 {
		return errKeySpaceNotPositive
	}

	return nil
}

// runRound measures one concurrency level against a fresh table prefilled
// to half the key space.
func runRound(cfg Config, goroutines int) RoundResult {
	table := stashtable.New[int, int](cfg.Capacity)

	for k := range cfg.KeySpace / 2 {
		table.Insert(k, k)
	}

	duration := time.Duration(cfg.DurationMS) * time.Millisecond
	total := cfg.InsertWeight + cfg.FindWeight + cfg.UpdateWeight + cfg.DeleteWeight

	var ops atomic.Uint64

	stop := make(chan struct{})

	var wg sync.WaitGroup

	start := time.Now()

	for w := range goroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			rng := rand.New(rand.NewPCG(uint64(w)+1, uint64(w)<<32|0x5bd1))

			var local uint64

			for {
				select {
				case <-stop:
					ops.Add(local)

					return
				default:
				}

				k := rng.IntN(cfg.KeySpace)

				switch n := rng.IntN(total); {
				case n < cfg.InsertWeight:
					table.Insert(k, k)
				case n < cfg.InsertWeight+cfg.FindWeight:
					ref := table.FindIndex(k)
					table.WithFound(k, ref, func(*int) {})
				case n < cfg.InsertWeight+cfg.FindWeight+cfg.UpdateWeight:
					table.WithValue(k, func(v *int) { *v++ })
				default:
					table.Delete(k)
				}

				local++
			}
		}()
	}

	time.Sleep(duration)
	close(stop)
	wg.Wait()

	elapsed := time.Since(start)
	n := ops.Load()

	return RoundResult{
		Goroutines: goroutines,
		Ops:        n,
		Seconds:    elapsed.Seconds(),
		OpsPerSec:  float64(n) / elapsed.Seconds(),
	}
}

// writeReport marshals the report and writes it atomically so a crashed or
// interrupted run never leaves a truncated file behind.
func writeReport(path string, report Report) error {
	buf, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	buf = append(buf, '\n')

	if err := natomic.WriteFile(path, bytes.NewReader(buf)); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}
