// Command pmap-bench drives the benchmark package's SET/GET trials
// against a PMap table and reports throughput to stdout, CSV, and PNG.
package main

import "github.com/netgraf/pmap/benchmark"

func main() {
	benchmark.Run()
}
