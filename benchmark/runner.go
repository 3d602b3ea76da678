package benchmark

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/netgraf/pmap"
)

// Run drives a PMap[uint64, uint64] through SET-then-GET trials at
// each configured key count and reports throughput and p50 latency.
func Run() {
	cfg := ParseConfig()
	var results []BenchmarkResult

	for _, keyCount := range cfg.KeyCounts {
		dir := cfg.Dir
		if dir == "" {
			tmp, err := os.MkdirTemp("", "pmap-bench")
			if err != nil {
				log.Fatalf("failed to create temp dir: %v", err)
			}
			dir = tmp
			defer os.RemoveAll(tmp)
		}

		fmt.Printf("\nRunning benchmark: keys=%d dir=%s\n", keyCount, dir)
		results = append(results, runTrial(dir, keyCount))
	}

	PrintResultsTable(results)
	if err := SaveResultsToCSV(cfg.CSVPath, results); err != nil {
		log.Fatalf("failed to save CSV: %v", err)
	}
	if err := PlotResults(results, filepath.Dir(cfg.CSVPath)); err != nil {
		fmt.Printf("plotting failed: %v\n", err)
	}
}

func runTrial(dir string, keyCount int) BenchmarkResult {
	m := pmap.New[uint64, uint64](dir, "bench")
	defer m.Close()

	setLatencies := make([]time.Duration, keyCount)
	start := time.Now()
	for i := 0; i < keyCount; i++ {
		t0 := time.Now()
		m.Set(uint64(i), uint64(i))
		setLatencies[i] = time.Since(t0)
	}
	setElapsed := time.Since(start)

	getLatencies := make([]time.Duration, keyCount)
	start = time.Now()
	for i := 0; i < keyCount; i++ {
		t0 := time.Now()
		m.Get(uint64(i))
		getLatencies[i] = time.Since(t0)
	}
	getElapsed := time.Since(start)

	return BenchmarkResult{
		KeyCount: keyCount,
		SetRPS:   float64(keyCount) / setElapsed.Seconds(),
		GetRPS:   float64(keyCount) / getElapsed.Seconds(),
		SetP50:   p50Micros(setLatencies),
		GetP50:   p50Micros(getLatencies),
	}
}

func p50Micros(latencies []time.Duration) float64 {
	if len(latencies) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return float64(sorted[len(sorted)/2].Microseconds())
}
