// runner.go fans the analysis out over block-range chunks. Chunks are
// independent: each loads its own padded data window and writes its own
// artifact, so they can run on parallel workers with no shared state.
// A chunk whose artifact already exists is skipped when resuming; since
// artifact writes are atomic, re-running after a crash is idempotent.
package analysis

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/eth2030/focil-analysis/artifact"
	"github.com/eth2030/focil-analysis/config"
	"github.com/eth2030/focil-analysis/log"
	"github.com/eth2030/focil-analysis/store"
)

// ErrChunksFailed reports that one or more chunks produced no artifact.
var ErrChunksFailed = errors.New("analysis: some chunks failed")

// chunk is one unit of fan-out work.
type chunk struct {
	index int
	start uint64
	end   uint64
}

// Runner executes a chunked analysis run.
type Runner struct {
	cfg    config.Config
	src    store.Source
	logger *log.Logger
}

// NewRunner creates a Runner over the given source.
func NewRunner(cfg config.Config, src store.Source, logger *log.Logger) *Runner {
	return &Runner{cfg: cfg, src: src, logger: logger.Module("runner")}
}

// RunStats summarizes a chunked run.
type RunStats struct {
	Completed int
	Skipped   int
	Failed    int
}

// Run processes every chunk of the configured block range and returns
// run statistics. Individual chunk failures are logged and counted, not
// fatal; ErrChunksFailed is returned at the end if any chunk failed, so
// callers can exit non-zero while completed chunks stay on disk for a
// later resumed run. Context cancellation aborts outstanding chunks
// without committing partial output.
func (r *Runner) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats

	pending := r.pendingChunks(&stats)
	if len(pending) == 0 {
		r.logger.Info("all chunks already processed")
		return stats, nil
	}
	r.logger.Info("processing chunks",
		"pending", len(pending),
		"skipped", stats.Skipped,
		"workers", r.cfg.Workers,
	)

	var completed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for _, c := range pending {
		c := c
		g.Go(func() error {
			if err := r.runChunk(gctx, c); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				r.logger.Error("chunk failed", "chunk", c.index,
					"start", c.start, "end", c.end, "err", err)
				failed.Add(1)
				return nil
			}
			completed.Add(1)
			return nil
		})
	}
	err := g.Wait()

	stats.Completed = int(completed.Load())
	stats.Failed = int(failed.Load())
	if err != nil {
		return stats, err
	}
	if stats.Failed > 0 {
		return stats, ErrChunksFailed
	}
	return stats, nil
}

// pendingChunks splits the configured range into chunks, dropping any
// whose artifact already exists when resume is enabled.
func (r *Runner) pendingChunks(stats *RunStats) []chunk {
	var pending []chunk
	size := uint64(r.cfg.Analysis.ChunkSizeBlocks)
	index := 0
	for start := r.cfg.Analysis.StartBlock; start < r.cfg.Analysis.EndBlock; start += size {
		end := start + size
		if end > r.cfg.Analysis.EndBlock {
			end = r.cfg.Analysis.EndBlock
		}
		c := chunk{index: index, start: start, end: end}
		index++

		if r.cfg.Resume && artifact.ChunkDone(r.cfg.Output.ResultsDir, c.index, c.start, c.end, r.cfg.Output.Format) {
			r.logger.Info("skipping completed chunk", "chunk", c.index,
				"start", c.start, "end", c.end)
			stats.Skipped++
			continue
		}
		pending = append(pending, c)
	}
	return pending
}

// runChunk analyzes one chunk and commits its artifact.
func (r *Runner) runChunk(ctx context.Context, c chunk) error {
	logger := r.logger.With("chunk", c.index)
	logger.Info("processing blocks", "start", c.start, "end", c.end)

	rows, err := AnalyzeRange(ctx, r.src, r.cfg.Analysis, logger, c.start, c.end)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.New("analysis: chunk produced no rows")
	}

	if err := artifact.WriteChunk(r.cfg.Output.ResultsDir, c.index, c.start, c.end, rows, r.cfg.Output.Format); err != nil {
		return err
	}
	logger.Info("chunk complete", "rows", len(rows))
	return nil
}
