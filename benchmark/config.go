package benchmark

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// Config controls a benchmark run: how many keys per trial and where
// results land.
type Config struct {
	KeyCounts []int
	Dir       string
	CSVPath   string
}

func ParseConfig() *Config {
	var keyCountsStr string
	var dir string
	var csvPath string

	flag.StringVar(&keyCountsStr, "keycounts", "10000,50000,100000", "Comma-separated list of key counts")
	flag.StringVar(&dir, "dir", "", "Directory for the benchmark table's backing files (temp dir if empty)")
	flag.StringVar(&csvPath, "csv", "benchmark_results.csv", "Path to CSV output file")
	flag.Parse()

	return &Config{
		KeyCounts: parseKeyCounts(keyCountsStr),
		Dir:       dir,
		CSVPath:   csvPath,
	}
}

func parseKeyCounts(s string) []int {
	var result []int
	parts := strings.Split(s, ",")
	for _, part := range parts {
		val, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			fmt.Printf("Warning: invalid key count '%s', skipping\n", part)
			continue
		}
		result = append(result, val)
	}
	return result
}
