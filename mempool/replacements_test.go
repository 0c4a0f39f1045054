package mempool

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/eth2030/focil-analysis/types"
)

var testSender = common.Address{0xaa}

func version(id byte, nonce uint64, maxFee uint64, firstSeen int64) *types.MempoolObservation {
	return &types.MempoolObservation{
		Hash:      common.Hash{id},
		Sender:    testSender,
		Nonce:     nonce,
		MaxFee:    uint256.NewInt(maxFee),
		FirstSeen: firstSeen,
	}
}

func noIncluded() map[common.Hash]struct{} {
	return map[common.Hash]struct{}{}
}

func TestResolveSingleton(t *testing.T) {
	obs := version(1, 0, 100, 10)
	res := ResolveReplacements([]*types.MempoolObservation{obs}, noIncluded())

	if len(res.Canonical) != 1 {
		t.Fatalf("canonical count = %d, want 1", len(res.Canonical))
	}
	if res.Canonical[0].Hash != obs.Hash {
		t.Errorf("canonical hash = %v, want %v", res.Canonical[0].Hash, obs.Hash)
	}
	if res.Canonical[0].Versions != 1 {
		t.Errorf("versions = %d, want 1", res.Canonical[0].Versions)
	}
	if res.Stats.Slots != 0 {
		t.Errorf("stats slots = %d, want 0 for a never-replaced slot", res.Stats.Slots)
	}
}

func TestResolveHighestFeeWins(t *testing.T) {
	low := version(1, 5, 100, 10)
	high := version(2, 5, 200, 20)

	res := ResolveReplacements([]*types.MempoolObservation{low, high}, noIncluded())

	if len(res.Canonical) != 1 {
		t.Fatalf("canonical count = %d, want 1", len(res.Canonical))
	}
	if res.Canonical[0].Hash != high.Hash {
		t.Errorf("canonical = %v, want highest-fee version %v", res.Canonical[0].Hash, high.Hash)
	}
	if !res.IsReplaced(low.Hash) {
		t.Error("superseded version not marked replaced")
	}
	if res.IsReplaced(high.Hash) {
		t.Error("surviving version marked replaced")
	}
	if res.Canonical[0].Versions != 2 {
		t.Errorf("versions = %d, want 2", res.Canonical[0].Versions)
	}
}

func TestResolveIncludedWinsOverFee(t *testing.T) {
	// The chain included the low-fee version: ground truth beats fees.
	low := version(1, 5, 100, 10)
	high := version(2, 5, 200, 20)
	included := map[common.Hash]struct{}{low.Hash: {}}

	res := ResolveReplacements([]*types.MempoolObservation{low, high}, included)

	if res.Canonical[0].Hash != low.Hash {
		t.Errorf("canonical = %v, want included version %v", res.Canonical[0].Hash, low.Hash)
	}
	if !res.IsReplaced(high.Hash) {
		t.Error("non-included version should be marked replaced")
	}
}

func TestResolveFeeTieLatestFirstSeenWins(t *testing.T) {
	early := version(1, 5, 100, 10)
	late := version(2, 5, 100, 30)

	res := ResolveReplacements([]*types.MempoolObservation{late, early}, noIncluded())

	if res.Canonical[0].Hash != late.Hash {
		t.Errorf("canonical = %v, want latest-seen version %v", res.Canonical[0].Hash, late.Hash)
	}
}

func TestResolveFullTieGreatestHashWins(t *testing.T) {
	a := version(1, 5, 100, 10)
	b := version(2, 5, 100, 10)

	res := ResolveReplacements([]*types.MempoolObservation{a, b}, noIncluded())

	if res.Canonical[0].Hash != b.Hash {
		t.Errorf("canonical = %v, want greatest hash %v", res.Canonical[0].Hash, b.Hash)
	}

	// Input order must not matter.
	res2 := ResolveReplacements([]*types.MempoolObservation{b, a}, noIncluded())
	if res2.Canonical[0].Hash != b.Hash {
		t.Error("resolution depends on input order")
	}
}

func TestResolveDistinctSlotsUntouched(t *testing.T) {
	n0 := version(1, 0, 100, 10)
	n1 := version(2, 1, 50, 10)

	res := ResolveReplacements([]*types.MempoolObservation{n0, n1}, noIncluded())

	if len(res.Canonical) != 2 {
		t.Fatalf("canonical count = %d, want 2", len(res.Canonical))
	}
	if len(res.Replaced) != 0 {
		t.Errorf("replaced count = %d, want 0", len(res.Replaced))
	}
}

func TestResolveStats(t *testing.T) {
	// Slot A: fee bump 100 -> 200. Slot B: same-fee re-broadcast.
	a1 := version(1, 0, 100, 10)
	a2 := version(2, 0, 200, 20)
	b1 := version(3, 1, 50, 10)
	b2 := version(4, 1, 50, 20)
	b3 := version(5, 1, 50, 30)

	res := ResolveReplacements([]*types.MempoolObservation{a1, a2, b1, b2, b3}, noIncluded())

	s := res.Stats
	if s.Slots != 2 {
		t.Errorf("slots = %d, want 2", s.Slots)
	}
	if s.Replaced != 3 {
		t.Errorf("replaced = %d, want 3", s.Replaced)
	}
	if s.FeeIncrease != 1 {
		t.Errorf("fee increases = %d, want 1", s.FeeIncrease)
	}
	if s.SameFee != 1 {
		t.Errorf("same-fee slots = %d, want 1", s.SameFee)
	}
	if s.MaxVersions != 3 {
		t.Errorf("max versions = %d, want 3", s.MaxVersions)
	}
}

func TestResolveCanonicalOrderDeterministic(t *testing.T) {
	obs := []*types.MempoolObservation{
		version(9, 0, 100, 10),
		version(3, 1, 100, 10),
		version(7, 2, 100, 10),
	}
	res := ResolveReplacements(obs, noIncluded())

	for i := 1; i < len(res.Canonical); i++ {
		if res.Canonical[i-1].Hash.Cmp(res.Canonical[i].Hash) >= 0 {
			t.Fatalf("canonical output not hash-sorted at index %d", i)
		}
	}
}
