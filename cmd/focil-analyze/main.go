// Command focil-analyze runs the chunked FOCIL censorship analysis over
// a historical block range.
//
// Usage:
//
//	focil-analyze -config config/config.yaml [flags]
//
// Flags:
//
//	-config       Path to the YAML configuration file
//	-start-block  Override the configured start block
//	-end-block    Override the configured end block (exclusive)
//	-chunk-size   Override blocks per output chunk
//	-parallel     Number of chunks processed concurrently
//	-output-dir   Directory for chunk artifacts
//	-format       Artifact format: parquet, csv or both
//	-resume       Skip chunks whose artifact already exists
//	-verbosity    Log level 0-4 (default: 2)
//	-version      Print version and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eth2030/focil-analysis/analysis"
	"github.com/eth2030/focil-analysis/config"
	"github.com/eth2030/focil-analysis/log"
	"github.com/eth2030/focil-analysis/store"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.3.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string) int {
	fs := flag.NewFlagSet("focil-analyze", flag.ContinueOnError)

	configPath := fs.String("config", "config/config.yaml", "path to YAML configuration")
	startBlock := fs.Uint64("start-block", 0, "override start block")
	endBlock := fs.Uint64("end-block", 0, "override end block (exclusive)")
	chunkSize := fs.Int("chunk-size", 0, "override blocks per chunk")
	parallel := fs.Int("parallel", 0, "number of parallel chunk workers")
	outputDir := fs.String("output-dir", "", "override chunk artifact directory")
	format := fs.String("format", "", "artifact format: parquet, csv or both")
	resume := fs.Bool("resume", false, "skip chunks whose artifact already exists")
	verbosity := fs.Int("verbosity", 2, "log level 0-4 (0=errors only, 4=debug)")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if *showVersion {
		fmt.Printf("focil-analyze %s (commit %s)\n", version, commit)
		return 0
	}

	logger := log.New(log.VerbosityToLevel(*verbosity))
	log.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		return 1
	}

	// CLI overrides take precedence over file values.
	if *startBlock > 0 {
		cfg.Analysis.StartBlock = *startBlock
	}
	if *endBlock > 0 {
		cfg.Analysis.EndBlock = *endBlock
	}
	if *chunkSize > 0 {
		cfg.Analysis.ChunkSizeBlocks = *chunkSize
	}
	if *parallel > 0 {
		cfg.Workers = *parallel
	}
	if *outputDir != "" {
		cfg.Output.ResultsDir = *outputDir
	}
	if *format != "" {
		cfg.Output.Format = *format
	}
	if *resume {
		cfg.Resume = true
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		return 1
	}

	totalBlocks := cfg.Analysis.EndBlock - cfg.Analysis.StartBlock
	logger.Info("focil-analyze starting",
		"version", version,
		"start_block", cfg.Analysis.StartBlock,
		"end_block", cfg.Analysis.EndBlock,
		"total_blocks", totalBlocks,
		"chunk_size", cfg.Analysis.ChunkSizeBlocks,
		"workers", cfg.Workers,
		"resume", cfg.Resume,
		"output_dir", cfg.Output.ResultsDir,
		"format", cfg.Output.Format,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src := store.NewClickHouse(cfg.ClickHouse, logger)
	runner := analysis.NewRunner(cfg, src, logger)

	stats, err := runner.Run(ctx)
	logger.Info("run finished",
		"completed", stats.Completed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"dropped_records", src.DroppedRecords(),
	)
	if err != nil {
		logger.Error("run failed", "err", err)
		return 1
	}
	return 0
}
