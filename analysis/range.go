// range.go loads one chunk's padded data window from the store and runs
// the aggregator over the nominal block range. Each chunk requests a
// slightly wider raw window than its output range (extra blocks for
// delay offsets and follow-up inclusion checks, extra seconds of mempool
// for percentile and dwell lookback) so its first and last blocks
// compute identically to a single uninterrupted run.
package analysis

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/focil-analysis/config"
	"github.com/eth2030/focil-analysis/log"
	"github.com/eth2030/focil-analysis/mempool"
	"github.com/eth2030/focil-analysis/store"
	"github.com/eth2030/focil-analysis/types"
)

// blockPadding is how many blocks beyond the nominal range are fetched
// on each side: delay offsets reach 2 blocks back, inclusion rate checks
// reach 3 blocks forward.
const blockPadding = 3

// mempoolPaddingSecs is slack added around the computed mempool time
// range to absorb clock granularity at the store.
const mempoolPaddingSecs = 2

// AnalyzeRange computes metrics rows for blocks in [start, end). A range
// with no chain data yields no rows and no error; the caller decides
// whether an empty chunk is worth an artifact.
func AnalyzeRange(ctx context.Context, src store.Source, cfg config.AnalysisConfig,
	logger *log.Logger, start, end uint64) ([]types.BlockMetrics, error) {

	padStart := uint64(0)
	if start > blockPadding {
		padStart = start - blockPadding
	}
	padEnd := end + blockPadding

	blocks, err := src.Blocks(ctx, padStart, padEnd)
	if err != nil {
		return nil, fmt.Errorf("analysis: load blocks %d-%d: %w", padStart, padEnd, err)
	}
	if len(blocks) == 0 {
		logger.Warn("no blocks found for range", "start", start, "end", end)
		return nil, nil
	}

	// The mempool window must reach far enough back before the earliest
	// block for the percentile window and the dwell cap, and far enough
	// forward past the last block for its own observation window.
	lookback := cfg.PercentileWindowSecs
	if cfg.MaxDwellTimeSecs > lookback {
		lookback = cfg.MaxDwellTimeSecs
	}
	minTS := blocks[0].Timestamp + cfg.TimeWindowStartSecs - lookback - mempoolPaddingSecs
	maxTS := blocks[len(blocks)-1].Timestamp + cfg.TimeWindowEndSecs + mempoolPaddingSecs

	observations, err := src.MempoolObservations(ctx, minTS, maxTS)
	if err != nil {
		return nil, fmt.Errorf("analysis: load mempool %d-%d: %w", minTS, maxTS, err)
	}
	if len(observations) == 0 {
		logger.Warn("no mempool observations in window", "from", minTS, "to", maxTS)
	}

	included, err := src.IncludedTransactions(ctx, padStart, padEnd)
	if err != nil {
		// Without inclusion data every mempool transaction looks
		// pending; metrics degrade but the chunk still computes.
		logger.Warn("could not fetch inclusion data", "err", err)
		included = map[uint64][]common.Hash{}
	}

	window := mempool.NewWindow(observations)
	logReplacementActivity(logger, window, included)

	agg := NewAggregator(cfg, logger, blocks, window, included, padStart)

	rows := make([]types.BlockMetrics, 0, end-start)
	for n := start; n < end; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := agg.ProcessBlock(n)
		if row == nil {
			logger.Warn("block missing from chain data", "block", n)
			continue
		}
		rows = append(rows, *row)
	}
	return rows, nil
}

// logReplacementActivity resolves replacements across the whole chunk
// window once, for reporting only: same-fee cancellations versus true
// fee bumps, and the replaced-version volume. Candidate selection does
// its own per-evaluation resolution.
func logReplacementActivity(logger *log.Logger, window *mempool.Window, included map[uint64][]common.Hash) {
	includedSet := make(map[common.Hash]struct{})
	for _, hashes := range included {
		for _, h := range hashes {
			includedSet[h] = struct{}{}
		}
	}
	stats := mempool.ResolveReplacements(window.All(), includedSet).Stats
	logger.Info("replacement activity",
		"slots", stats.Slots,
		"replaced", stats.Replaced,
		"same_fee", stats.SameFee,
		"fee_increase", stats.FeeIncrease,
		"fee_decrease", stats.FeeDecrease,
		"max_versions", stats.MaxVersions,
	)
}
