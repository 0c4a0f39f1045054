package mempool

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/eth2030/focil-analysis/types"
)

func obsAt(id byte, firstSeen int64) *types.MempoolObservation {
	return &types.MempoolObservation{
		Hash:      common.Hash{id},
		MaxFee:    uint256.NewInt(100),
		FirstSeen: firstSeen,
	}
}

func TestWindowSliceInclusiveBounds(t *testing.T) {
	w := NewWindow([]*types.MempoolObservation{
		obsAt(1, 10),
		obsAt(2, 20),
		obsAt(3, 30),
		obsAt(4, 40),
	})

	got := w.Slice(20, 30)
	if len(got) != 2 {
		t.Fatalf("slice [20,30] returned %d observations, want 2", len(got))
	}
	if got[0].FirstSeen != 20 || got[1].FirstSeen != 30 {
		t.Errorf("slice bounds not inclusive: got FirstSeen %d and %d",
			got[0].FirstSeen, got[1].FirstSeen)
	}
}

func TestWindowSliceEmpty(t *testing.T) {
	w := NewWindow([]*types.MempoolObservation{obsAt(1, 10)})

	if got := w.Slice(11, 20); got != nil {
		t.Errorf("slice past the data returned %d observations, want none", len(got))
	}
	if got := w.Slice(20, 11); got != nil {
		t.Errorf("inverted slice returned %d observations, want none", len(got))
	}
}

func TestWindowSortsUnorderedInput(t *testing.T) {
	w := NewWindow([]*types.MempoolObservation{
		obsAt(3, 30),
		obsAt(1, 10),
		obsAt(2, 20),
	})

	all := w.All()
	for i := 1; i < len(all); i++ {
		if all[i-1].FirstSeen > all[i].FirstSeen {
			t.Fatalf("window not sorted at index %d", i)
		}
	}
	if w.Start() != 10 {
		t.Errorf("Start = %d, want 10", w.Start())
	}
}

func TestWindowStartEmpty(t *testing.T) {
	w := NewWindow(nil)
	if w.Start() != 0 {
		t.Errorf("Start of empty window = %d, want 0", w.Start())
	}
	if w.Len() != 0 {
		t.Errorf("Len of empty window = %d, want 0", w.Len())
	}
}
