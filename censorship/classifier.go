// classifier.go implements the multi-predicate censorship rule. A
// canonical transaction is censored at block N when, all at once, it
// was fee-eligible, competitively tipped, had dwelled at least one slot,
// was not superseded by its own sender, was not on chain, and (in the
// FOCIL-compliant variant) was an EIP-1559 transaction that plausibly
// fit the gas headroom of the blocks around N.
package censorship

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/focil-analysis/mempool"
	"github.com/eth2030/focil-analysis/types"
)

// Config holds the classifier parameters. The percentile and dwell
// bounds are configuration rather than constants: the methodology has
// used both the 25th and 50th percentile, and both capped and uncapped
// dwell windows, across published iterations.
type Config struct {
	// FeePercentile is the competitiveness bar in (0, 1).
	FeePercentile float64

	// PercentileWindowSecs is the trailing window the bar is computed over.
	PercentileWindowSecs int64

	// MinDwellSecs is the minimum mempool dwell before a transaction can
	// be called censored (default 12, one slot).
	MinDwellSecs int64

	// MaxDwellSecs caps the dwell window; older entries are treated as
	// abandoned rather than censored. Zero disables the cap.
	MaxDwellSecs int64

	// RequireType2 restricts candidates to EIP-1559 transactions. The
	// highest-raw-fee mempool entries are disproportionately legacy-type
	// spam that never mines; without this filter they dominate the lists.
	RequireType2 bool

	// GasCapacityCheck requires the candidate to fit the gas headroom of
	// both the previous and the evaluation block.
	GasCapacityCheck bool

	// ActiveSenderFilter requires the sender to have at least one
	// transaction included in an earlier block. Sender activity is
	// observable from blocks already produced, so the filter uses no
	// forward-looking data.
	ActiveSenderFilter bool
}

// Classifier flags censored transactions for evaluation blocks.
type Classifier struct {
	cfg Config
}

// New creates a Classifier with the given configuration.
func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Evaluation bundles the chain context a censorship determination needs.
// Everything in it is visible at or before the evaluation block.
type Evaluation struct {
	// Target is the block censorship is evaluated at.
	Target *types.Block

	// Prev is the block before Target; nil when unavailable, which
	// disables the gas capacity check for this evaluation.
	Prev *types.Block

	// Included is the set of hashes on chain across the evaluation
	// extent (previous block through the aggregator's current block).
	Included map[common.Hash]struct{}

	// ActiveSenders is the set of senders with at least one inclusion in
	// a block before the aggregator's current block.
	ActiveSenders map[common.Address]struct{}
}

// Flag returns the canonical transactions censored at ev.Target, sorted
// by hash for determinism. The result is a pure function of the window
// contents at or before the target timestamp, the inclusion set and the
// classifier parameters; repeated calls with identical inputs yield
// identical output, and nothing after the target block is consulted.
func (c *Classifier) Flag(window *mempool.Window, ev Evaluation) []*types.CensoredTransaction {
	ts := ev.Target.Timestamp
	baseFee := ev.Target.BaseFee

	trailing := window.Slice(ts-c.cfg.PercentileWindowSecs, ts)
	threshold := FeeThreshold(trailing, baseFee, c.cfg.FeePercentile)
	if threshold == nil {
		return nil
	}

	// Candidates must have dwelled at least MinDwellSecs and at most
	// MaxDwellSecs before ts, so only a bounded trailing slice of the
	// window can qualify. Replacements are resolved over that slice
	// against the inclusion set as of the evaluation point; versions
	// first seen after ts do not exist yet from the block's viewpoint.
	candFrom := window.Start()
	if c.cfg.MaxDwellSecs > 0 {
		candFrom = ts - c.cfg.MaxDwellSecs
	}
	resolution := mempool.ResolveReplacements(window.Slice(candFrom, ts), ev.Included)

	var flagged []*types.CensoredTransaction
	for _, tx := range resolution.Canonical {
		// Replaced versions never appear in Canonical, which is what
		// keeps superseded fee bumps out of the censored set.
		if !tx.FOCILValid(baseFee) {
			continue
		}
		tip := tx.EffectiveTip(baseFee)
		if tip.Cmp(threshold) < 0 {
			continue
		}
		if tx.FirstSeen >= ts {
			continue
		}
		dwell := ts - tx.FirstSeen
		if dwell < c.cfg.MinDwellSecs {
			continue
		}
		if c.cfg.MaxDwellSecs > 0 && dwell > c.cfg.MaxDwellSecs {
			continue
		}
		if _, onChain := ev.Included[tx.Hash]; onChain {
			continue
		}
		if c.cfg.RequireType2 && tx.TxType != types.TxTypeDynamicFee {
			continue
		}
		if c.cfg.GasCapacityCheck {
			if ev.Prev == nil {
				continue
			}
			if tx.GasLimit > ev.Prev.GasHeadroom() || tx.GasLimit > ev.Target.GasHeadroom() {
				continue
			}
		}
		if c.cfg.ActiveSenderFilter {
			if _, active := ev.ActiveSenders[tx.Sender]; !active {
				continue
			}
		}

		flagged = append(flagged, &types.CensoredTransaction{
			CanonicalTransaction: tx,
			EffectiveTip:         tip,
			Threshold:            threshold,
			DwellSecs:            dwell,
		})
	}

	sort.Slice(flagged, func(i, j int) bool {
		return flagged[i].Hash.Cmp(flagged[j].Hash) < 0
	})
	return flagged
}
