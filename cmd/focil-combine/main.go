// Command focil-combine merges the chunk artifacts of a finished (or
// partially finished) analysis run into a single parquet dataset and
// prints the summary report.
//
// Usage:
//
//	focil-combine -input-dir results/chunks -output results/combined.parquet
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/eth2030/focil-analysis/analysis"
	"github.com/eth2030/focil-analysis/artifact"
	"github.com/eth2030/focil-analysis/log"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("focil-combine", flag.ContinueOnError)

	inputDir := fs.String("input-dir", "results/chunks", "directory containing chunk artifacts")
	output := fs.String("output", "results/combined.parquet", "path for the combined parquet file")
	verbosity := fs.Int("verbosity", 2, "log level 0-4 (0=errors only, 4=debug)")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	logger := log.New(log.VerbosityToLevel(*verbosity))
	log.SetDefault(logger)

	rows, err := artifact.Combine(*inputDir, *output)
	if err != nil {
		logger.Error("combine failed", "err", err)
		return 1
	}
	logger.Info("combined chunk artifacts", "rows", len(rows), "output", *output)

	analysis.WriteSummary(os.Stdout, rows)
	return 0
}
