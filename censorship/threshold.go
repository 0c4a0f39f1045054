// Package censorship flags mempool transactions that met every
// eligibility, competitiveness and dwell criterion at a block yet are
// absent from the chain. The classifier is a pure function of data
// visible at or before the evaluation block; nothing here looks into
// the future.
package censorship

import (
	"sort"

	"github.com/holiman/uint256"

	"github.com/eth2030/focil-analysis/types"
)

// FeeThreshold computes the competitiveness bar for an evaluation block:
// the given percentile of effective priority fees among FOCIL-valid
// observations first seen in the trailing window. Observations whose max
// fee does not cover the base fee are excluded so underpriced entries
// cannot drag the threshold down to zero.
//
// The percentile is resolved by lower nearest rank on the ascending fee
// order (index floor(p*(n-1))). Returns nil when the trailing window
// holds no FOCIL-valid observations.
func FeeThreshold(observations []*types.MempoolObservation, baseFee *uint256.Int, percentile float64) *uint256.Int {
	fees := make([]*uint256.Int, 0, len(observations))
	for _, obs := range observations {
		if obs.FOCILValid(baseFee) {
			fees = append(fees, obs.EffectiveTip(baseFee))
		}
	}
	if len(fees) == 0 {
		return nil
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i].Cmp(fees[j]) < 0 })

	idx := int(percentile * float64(len(fees)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(fees) {
		idx = len(fees) - 1
	}
	return fees[idx]
}
