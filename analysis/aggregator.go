// Package analysis orchestrates the per-block censorship analysis: for
// every evaluation block it re-slices the chunk's mempool window, flags
// censored transactions at three delay offsets, packs the six inclusion
// list variants and measures how much of each list the chain included on
// its own.
//
// Blocks are processed strictly in ascending order. The on-chain
// inclusion index and the active-sender set are order-dependent rolling
// accumulators scoped to one chunk; nothing is shared across chunks.
package analysis

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/focil-analysis/censorship"
	"github.com/eth2030/focil-analysis/config"
	"github.com/eth2030/focil-analysis/focil"
	"github.com/eth2030/focil-analysis/log"
	"github.com/eth2030/focil-analysis/mempool"
	"github.com/eth2030/focil-analysis/types"
)

// Aggregator computes per-block metrics over one chunk's data. It holds
// the chunk-scoped rolling state and is not safe for concurrent use;
// parallelism lives at the chunk level, one Aggregator per chunk.
type Aggregator struct {
	cfg        config.AnalysisConfig
	logger     *log.Logger
	classifier *censorship.Classifier

	window          *mempool.Window
	blocks          map[uint64]*types.Block
	includedByBlock map[uint64][]common.Hash
	obsByHash       map[common.Hash]*types.MempoolObservation

	// running is the monotone on-chain inclusion set, grown block by
	// block as processing advances. runningNext is the next block whose
	// inclusions have not been absorbed yet.
	running     map[common.Hash]struct{}
	runningNext uint64

	// activeSenders accumulates senders with at least one inclusion in a
	// block strictly before the one being processed.
	activeSenders map[common.Address]struct{}
	activeNext    uint64
}

// NewAggregator builds an Aggregator over one chunk's loaded data.
// firstBlock is the lowest fetched block number (the padded range
// start); rolling state is seeded from there.
func NewAggregator(cfg config.AnalysisConfig, logger *log.Logger, blocks []*types.Block,
	window *mempool.Window, included map[uint64][]common.Hash, firstBlock uint64) *Aggregator {

	blockMap := make(map[uint64]*types.Block, len(blocks))
	for _, b := range blocks {
		blockMap[b.Number] = b
	}
	obsByHash := make(map[common.Hash]*types.MempoolObservation, window.Len())
	for _, obs := range window.All() {
		obsByHash[obs.Hash] = obs
	}

	return &Aggregator{
		cfg:    cfg,
		logger: logger,
		classifier: censorship.New(censorship.Config{
			FeePercentile:        cfg.FeePercentile,
			PercentileWindowSecs: cfg.PercentileWindowSecs,
			MinDwellSecs:         cfg.DwellTimeSecs,
			MaxDwellSecs:         cfg.MaxDwellTimeSecs,
			RequireType2:         cfg.RequireType2,
			GasCapacityCheck:     cfg.GasCapacityCheck,
			ActiveSenderFilter:   cfg.ActiveSenderFilter,
		}),
		window:          window,
		blocks:          blockMap,
		includedByBlock: included,
		obsByHash:       obsByHash,
		running:         make(map[common.Hash]struct{}),
		runningNext:     firstBlock,
		activeSenders:   make(map[common.Address]struct{}),
		activeNext:      firstBlock,
	}
}

// advance rolls the accumulators forward for evaluation block n: the
// inclusion set absorbs every block through n, the active-sender set
// absorbs every block strictly before n. Processing out of order would
// corrupt both, hence the strict ascending iteration in AnalyzeRange.
func (a *Aggregator) advance(n uint64) {
	for b := a.activeNext; b < n; b++ {
		for _, h := range a.includedByBlock[b] {
			if obs, ok := a.obsByHash[h]; ok {
				a.activeSenders[obs.Sender] = struct{}{}
			}
		}
	}
	if n > a.activeNext {
		a.activeNext = n
	}
	for b := a.runningNext; b <= n; b++ {
		for _, h := range a.includedByBlock[b] {
			a.running[h] = struct{}{}
		}
	}
	if n+1 > a.runningNext {
		a.runningNext = n + 1
	}
}

// ProcessBlock evaluates one block and returns its metrics row. The row
// is emitted with well-defined zero values when the mempool window is
// empty for the block; a data gap is not an error.
func (a *Aggregator) ProcessBlock(n uint64) *types.BlockMetrics {
	block := a.blocks[n]
	if block == nil {
		return nil
	}
	a.advance(n)

	ts := block.Timestamp
	row := &types.BlockMetrics{
		BlockNumber:     n,
		BlockTimestamp:  ts,
		BaseFee:         block.BaseFee.Uint64(),
		GasUsed:         block.GasUsed,
		GasLimit:        block.GasLimit,
		IncludedTxCount: int32(block.IncludedTxCount),
	}

	windowSlice := a.window.Slice(ts+a.cfg.TimeWindowStartSecs, ts+a.cfg.TimeWindowEndSecs)
	row.MempoolUniqueTxsInWindow = int32(len(windowSlice))
	row.MempoolCoverageOfNextBlock = a.nextBlockCoverage(n, windowSlice)

	for delay := 0; delay <= types.MaxDelay; delay++ {
		targetNum := n - uint64(delay)
		if targetNum > n { // underflow near genesis
			continue
		}
		target := a.blocks[targetNum]

		// Top fee: the window of block N-delay, packed against the
		// evaluation block's base fee.
		topFee := &focil.InclusionList{Strategy: types.StrategyTopFee, Delay: delay}
		if target != nil {
			topFee = focil.BuildTopFee(a.window, delay, target.Timestamp,
				a.cfg.TimeWindowStartSecs, a.cfg.TimeWindowEndSecs,
				block.BaseFee, a.running)
		}
		a.record(row, topFee, n)

		// Censored: the censorship snapshot at block N-delay,
		// re-validated against the evaluation block's base fee.
		var snapshot []*types.CensoredTransaction
		if target != nil {
			snapshot = a.classifier.Flag(a.window, censorship.Evaluation{
				Target:        target,
				Prev:          a.blocks[targetNum-1],
				Included:      a.running,
				ActiveSenders: a.activeSenders,
			})
		}
		if delay == 1 {
			row.CensoredDetectedCount = int32(len(snapshot))
		}
		censoredList := focil.BuildCensored(snapshot, delay, block.BaseFee, a.running)
		a.record(row, censoredList, n)
	}

	return row
}

// record stores a packed list's cells, including its retrospective
// inclusion rate, into the metrics row.
func (a *Aggregator) record(row *types.BlockMetrics, list *focil.InclusionList, n uint64) {
	row.SetVariant(list.Delay, list.Strategy, types.VariantMetrics{
		TxCount:       int32(list.TxCount()),
		SizeBytes:     int64(list.TotalBytes),
		InclusionRate: a.inclusionRate(list, n),
	})
}

// inclusionRate measures what share of the list the chain included on
// its own within the next delay+1 blocks (N+1 for delay 0 through
// N+delay+1 for delay 2). Purely retrospective: nothing is enforced,
// the rate quantifies how redundant the list would have been. Returns
// nil when the list is empty or no follow-up block data exists.
func (a *Aggregator) inclusionRate(list *focil.InclusionList, n uint64) *float64 {
	if list.TxCount() == 0 {
		return nil
	}
	futureIncluded := make(map[common.Hash]struct{})
	for b := n + 1; b <= n+uint64(list.Delay)+1; b++ {
		for _, h := range a.includedByBlock[b] {
			futureIncluded[h] = struct{}{}
		}
	}
	if len(futureIncluded) == 0 {
		return nil
	}
	hit := 0
	for _, h := range list.Hashes() {
		if _, ok := futureIncluded[h]; ok {
			hit++
		}
	}
	rate := float64(hit) / float64(list.TxCount()) * 100
	return &rate
}

// nextBlockCoverage returns the percentage of block N+1's included
// transactions that were visible in block N's mempool window.
func (a *Aggregator) nextBlockCoverage(n uint64, windowSlice []*types.MempoolObservation) float64 {
	next := a.includedByBlock[n+1]
	if len(next) == 0 {
		return 0
	}
	inWindow := make(map[common.Hash]struct{}, len(windowSlice))
	for _, obs := range windowSlice {
		inWindow[obs.Hash] = struct{}{}
	}
	overlap := 0
	for _, h := range next {
		if _, ok := inWindow[h]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(next)) * 100
}
