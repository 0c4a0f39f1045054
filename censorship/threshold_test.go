package censorship

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/eth2030/focil-analysis/types"
)

func feeObs(id byte, maxFee, priorityFee uint64) *types.MempoolObservation {
	return &types.MempoolObservation{
		Hash:        common.Hash{id},
		MaxFee:      uint256.NewInt(maxFee),
		PriorityFee: uint256.NewInt(priorityFee),
	}
}

func TestFeeThresholdMedian(t *testing.T) {
	// Tips 1..5 at base fee 10; median (p=0.5) over 5 entries is index
	// floor(0.5*4) = 2, fee 3.
	obs := []*types.MempoolObservation{
		feeObs(1, 100, 1),
		feeObs(2, 100, 2),
		feeObs(3, 100, 3),
		feeObs(4, 100, 4),
		feeObs(5, 100, 5),
	}
	got := FeeThreshold(obs, uint256.NewInt(10), 0.5)
	if got == nil || got.Uint64() != 3 {
		t.Errorf("threshold = %v, want 3", got)
	}
}

func TestFeeThresholdLowerNearestRank(t *testing.T) {
	// Four entries, p=0.5: index floor(0.5*3) = 1, the lower of the two
	// middle values.
	obs := []*types.MempoolObservation{
		feeObs(1, 100, 10),
		feeObs(2, 100, 20),
		feeObs(3, 100, 30),
		feeObs(4, 100, 40),
	}
	got := FeeThreshold(obs, uint256.NewInt(10), 0.5)
	if got == nil || got.Uint64() != 20 {
		t.Errorf("threshold = %v, want 20 (lower nearest rank)", got)
	}
}

func TestFeeThresholdExcludesUnderpriced(t *testing.T) {
	// The underpriced entry must not drag the percentile down.
	obs := []*types.MempoolObservation{
		feeObs(1, 5, 1), // max fee below base fee, not FOCIL-valid
		feeObs(2, 100, 7),
	}
	got := FeeThreshold(obs, uint256.NewInt(10), 0.5)
	if got == nil || got.Uint64() != 7 {
		t.Errorf("threshold = %v, want 7 with underpriced entry excluded", got)
	}
}

func TestFeeThresholdEmpty(t *testing.T) {
	if got := FeeThreshold(nil, uint256.NewInt(10), 0.5); got != nil {
		t.Errorf("threshold over empty window = %v, want nil", got)
	}

	onlyInvalid := []*types.MempoolObservation{feeObs(1, 5, 1)}
	if got := FeeThreshold(onlyInvalid, uint256.NewInt(10), 0.5); got != nil {
		t.Errorf("threshold with no valid observations = %v, want nil", got)
	}
}

func TestFeeThresholdSingleObservation(t *testing.T) {
	obs := []*types.MempoolObservation{feeObs(1, 100, 9)}
	got := FeeThreshold(obs, uint256.NewInt(10), 0.25)
	if got == nil || got.Uint64() != 9 {
		t.Errorf("threshold = %v, want 9", got)
	}
}
