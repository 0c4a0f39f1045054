// Package store is the boundary to the external historical data store.
// The engine issues only bulk range reads (blocks by number, mempool
// observations by time, included transactions by block range); all
// correlation between the tables happens in-process because the backing
// store does not support distributed joins.
package store

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/focil-analysis/types"
)

// Source supplies the raw inputs for a chunk of analysis. Implementations
// must return data sorted as documented; the aggregator relies on it.
type Source interface {
	// Blocks returns chain blocks with start <= number < end, ordered by
	// ascending block number. A gap in the range is not an error.
	Blocks(ctx context.Context, start, end uint64) ([]*types.Block, error)

	// MempoolObservations returns one observation per transaction hash
	// seen in [fromTS, toTS), ordered by ascending FirstSeen. Repeated
	// sightings of the same hash are collapsed into FirstSeen/LastSeen;
	// distinct versions of the same (sender, nonce) slot remain separate
	// observations.
	MempoolObservations(ctx context.Context, fromTS, toTS int64) ([]*types.MempoolObservation, error)

	// IncludedTransactions returns the hashes included on-chain for each
	// block with start <= number < end.
	IncludedTransactions(ctx context.Context, start, end uint64) (map[uint64][]common.Hash, error)
}
