// memory.go implements Source over in-memory fixtures. Used by tests
// and by offline replays of previously exported data.
package store

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/focil-analysis/types"
)

// Memory is a deterministic in-memory Source.
type Memory struct {
	blocks       []*types.Block
	observations []*types.MempoolObservation
	included     map[uint64][]common.Hash
}

// NewMemory creates a Memory source. The inputs are retained, not
// copied; callers must not mutate them afterwards.
func NewMemory(blocks []*types.Block, observations []*types.MempoolObservation, included map[uint64][]common.Hash) *Memory {
	return &Memory{
		blocks:       blocks,
		observations: observations,
		included:     included,
	}
}

// Blocks implements Source.
func (m *Memory) Blocks(_ context.Context, start, end uint64) ([]*types.Block, error) {
	var out []*types.Block
	for _, b := range m.blocks {
		if b.Number >= start && b.Number < end {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// MempoolObservations implements Source.
func (m *Memory) MempoolObservations(_ context.Context, fromTS, toTS int64) ([]*types.MempoolObservation, error) {
	var out []*types.MempoolObservation
	for _, o := range m.observations {
		if o.FirstSeen >= fromTS && o.FirstSeen < toTS {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstSeen != out[j].FirstSeen {
			return out[i].FirstSeen < out[j].FirstSeen
		}
		return out[i].Hash.Cmp(out[j].Hash) < 0
	})
	return out, nil
}

// IncludedTransactions implements Source.
func (m *Memory) IncludedTransactions(_ context.Context, start, end uint64) (map[uint64][]common.Hash, error) {
	out := make(map[uint64][]common.Hash)
	for number, hashes := range m.included {
		if number >= start && number < end {
			out[number] = append([]common.Hash(nil), hashes...)
		}
	}
	return out, nil
}
