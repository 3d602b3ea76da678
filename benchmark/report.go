package benchmark

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// BenchmarkResult holds one trial's throughput and latency numbers for
// a given key count.
type BenchmarkResult struct {
	KeyCount int
	SetRPS   float64
	GetRPS   float64
	SetP50   float64
	GetP50   float64
}

func SaveResultsToCSV(filename string, results []BenchmarkResult) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{"KeyCount", "SET RPS", "SET p50 (us)", "GET RPS", "GET p50 (us)"})
	for _, r := range results {
		w.Write([]string{
			strconv.Itoa(r.KeyCount),
			fmt.Sprintf("%.2f", r.SetRPS),
			fmt.Sprintf("%.3f", r.SetP50),
			fmt.Sprintf("%.2f", r.GetRPS),
			fmt.Sprintf("%.3f", r.GetP50),
		})
	}
	return nil
}

func PrintResultsTable(results []BenchmarkResult) {
	fmt.Printf("\n%-10s | %-12s | %-10s | %-12s | %-10s\n", "Keys", "SET RPS", "SET p50us", "GET RPS", "GET p50us")
	fmt.Println(strings.Repeat("-", 62))
	for _, r := range results {
		fmt.Printf("%-10d | %-12.2f | %-10.3f | %-12.2f | %-10.3f\n",
			r.KeyCount, r.SetRPS, r.SetP50, r.GetRPS, r.GetP50)
	}
}
