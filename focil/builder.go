// builder.go packs ordered candidates into a byte-budgeted inclusion
// list and implements the two candidate-selection strategies:
//
//   - topfee: every FOCIL-valid EIP-1559 transaction from the target
//     block's mempool time window, highest effective tip first.
//   - censored: the censorship snapshot for the target block,
//     re-validated against the evaluation block's base fee.
package focil

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/eth2030/focil-analysis/mempool"
	"github.com/eth2030/focil-analysis/types"
)

// Pack fills a list from candidates in the given order. A candidate is
// included iff it still fits the byte budget; one that does not fit is
// skipped and the scan continues, because a later smaller transaction
// may still fit after an earlier large one was passed over. The relative
// order of selected entries is preserved.
func Pack(candidates []*types.MempoolObservation, maxBytes uint64) ([]*types.MempoolObservation, uint64) {
	var (
		entries []*types.MempoolObservation
		total   uint64
	)
	for _, tx := range candidates {
		if tx.Size == 0 || total+tx.Size > maxBytes {
			continue
		}
		entries = append(entries, tx)
		total += tx.Size
	}
	return entries, total
}

// sortByEffectiveTip orders observations by effective tip at the given
// base fee, descending, with hash order as a deterministic tie-break.
func sortByEffectiveTip(observations []*types.MempoolObservation, baseFee *uint256.Int) {
	tips := make(map[common.Hash]*uint256.Int, len(observations))
	for _, obs := range observations {
		tips[obs.Hash] = obs.EffectiveTip(baseFee)
	}
	sort.Slice(observations, func(i, j int) bool {
		if c := tips[observations[i].Hash].Cmp(tips[observations[j].Hash]); c != 0 {
			return c > 0
		}
		return observations[i].Hash.Cmp(observations[j].Hash) < 0
	})
}

// BuildTopFee builds the top-fee strategy list for an evaluation block.
// window is the chunk's mempool window; targetTS is the timestamp of
// block N-delay (the list's data horizon); winStart/winEnd bound the
// slice relative to targetTS; baseFee is the evaluation block's base
// fee; alreadyIncluded holds every hash on chain through the evaluation
// block.
func BuildTopFee(window *mempool.Window, delay int, targetTS int64, winStart, winEnd int64,
	baseFee *uint256.Int, alreadyIncluded map[common.Hash]struct{}) *InclusionList {

	seen := window.Slice(targetTS+winStart, targetTS+winEnd)

	candidates := make([]*types.MempoolObservation, 0, len(seen))
	for _, obs := range seen {
		if !obs.FOCILValid(baseFee) {
			continue
		}
		if obs.TxType != types.TxTypeDynamicFee {
			continue
		}
		if _, onChain := alreadyIncluded[obs.Hash]; onChain {
			continue
		}
		candidates = append(candidates, obs)
	}
	sortByEffectiveTip(candidates, baseFee)

	entries, total := Pack(candidates, MAX_BYTES_PER_INCLUSION_LIST)
	return &InclusionList{
		Strategy:   types.StrategyTopFee,
		Delay:      delay,
		Entries:    entries,
		TotalBytes: total,
	}
}

// BuildCensored builds the censored strategy list for an evaluation
// block from a censorship snapshot taken at block N-delay. Snapshot
// entries must still be fee-eligible against the evaluation block's
// base fee, and entries that reached the chain in the meantime are
// dropped.
func BuildCensored(censored []*types.CensoredTransaction, delay int,
	baseFee *uint256.Int, alreadyIncluded map[common.Hash]struct{}) *InclusionList {

	candidates := make([]*types.MempoolObservation, 0, len(censored))
	for _, tx := range censored {
		if !tx.FOCILValid(baseFee) {
			continue
		}
		if _, onChain := alreadyIncluded[tx.Hash]; onChain {
			continue
		}
		candidates = append(candidates, tx.MempoolObservation)
	}
	sortByEffectiveTip(candidates, baseFee)

	entries, total := Pack(candidates, MAX_BYTES_PER_INCLUSION_LIST)
	return &InclusionList{
		Strategy:   types.StrategyCensored,
		Delay:      delay,
		Entries:    entries,
		TotalBytes: total,
	}
}
