// Package focil builds retrospective inclusion lists (EIP-7805). Lists
// are mock: size-capped, fee-ordered candidate sets reconstructed per
// historical block to measure what a FOCIL committee could have
// demanded, never enforced against anything.
package focil

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/focil-analysis/types"
)

// Constants from EIP-7805.
const (
	// MAX_BYTES_PER_INCLUSION_LIST is the max byte size of IL transactions (8 KiB).
	MAX_BYTES_PER_INCLUSION_LIST = 8192
)

// InclusionList is one packed list variant for an evaluation block.
// Entries preserve the candidate ordering (effective tip descending)
// among the transactions that fit the byte budget. Never mutated after
// construction.
type InclusionList struct {
	Strategy string
	Delay    int

	Entries    []*types.MempoolObservation
	TotalBytes uint64
}

// TxCount returns the number of transactions in the list.
func (il *InclusionList) TxCount() int {
	return len(il.Entries)
}

// Hashes returns the transaction hashes of all entries.
func (il *InclusionList) Hashes() []common.Hash {
	hashes := make([]common.Hash, len(il.Entries))
	for i, e := range il.Entries {
		hashes[i] = e.Hash
	}
	return hashes
}
