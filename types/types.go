// Package types defines the core data model for the FOCIL censorship
// analysis pipeline: mempool observations, chain blocks, resolved
// canonical transactions, and the per-block metrics row emitted as the
// analysis output.
//
// All values are read-only snapshots scoped to the processing of a
// single block or mempool window. Fee fields use 256-bit integers
// because fee caps are user-supplied and routinely exceed 64 bits.
package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Transaction type identifiers (EIP-2718 envelope types).
const (
	TxTypeLegacy     = 0
	TxTypeAccessList = 1
	TxTypeDynamicFee = 2 // EIP-1559
)

// MempoolObservation is an immutable record of one transaction version as
// seen in the mempool stream. Multiple observations may share the same
// (Sender, Nonce) pair; those represent replacement events for the same
// logical slot and are collapsed by the replacement resolver.
type MempoolObservation struct {
	Hash        common.Hash
	Sender      common.Address
	Nonce       uint64
	MaxFee      *uint256.Int // gas fee cap, wei
	PriorityFee *uint256.Int // gas tip cap, wei
	TxType      uint8
	Size        uint64 // encoded transaction size in bytes
	GasLimit    uint64
	FirstSeen   int64 // unix seconds, earliest sighting
	LastSeen    int64 // unix seconds, latest sighting
}

// FOCILValid reports whether the observation would be eligible for
// inclusion at the given base fee (max fee covers the base fee).
func (o *MempoolObservation) FOCILValid(baseFee *uint256.Int) bool {
	return o.MaxFee != nil && o.MaxFee.Cmp(baseFee) >= 0
}

// EffectiveTip returns min(PriorityFee, MaxFee-baseFee), the tip actually
// realizable under EIP-1559 pricing. Returns zero when the max fee does
// not cover the base fee.
func (o *MempoolObservation) EffectiveTip(baseFee *uint256.Int) *uint256.Int {
	if !o.FOCILValid(baseFee) {
		return uint256.NewInt(0)
	}
	headroom := new(uint256.Int).Sub(o.MaxFee, baseFee)
	if o.PriorityFee == nil || o.PriorityFee.Cmp(headroom) > 0 {
		return headroom
	}
	return new(uint256.Int).Set(o.PriorityFee)
}

// Block is the ground-truth chain record for one execution block.
type Block struct {
	Number          uint64
	Timestamp       int64 // unix seconds
	BaseFee         *uint256.Int
	IncludedTxCount int
	GasUsed         uint64
	GasLimit        uint64
}

// GasHeadroom returns the unused gas capacity of the block.
func (b *Block) GasHeadroom() uint64 {
	if b.GasUsed >= b.GasLimit {
		return 0
	}
	return b.GasLimit - b.GasUsed
}

// CanonicalTransaction is the single surviving version of a (sender,
// nonce) slot after replacement resolution: either the version that was
// actually included on-chain, or the highest-fee version observed.
type CanonicalTransaction struct {
	*MempoolObservation

	// Versions is the total number of observed versions for the slot,
	// including this one. 1 means the slot was never replaced.
	Versions int
}

// CensoredTransaction is a canonical transaction flagged as censored at
// some evaluation block, carrying the predicate inputs used so the
// determination can be audited and re-validated at later blocks.
type CensoredTransaction struct {
	*CanonicalTransaction

	// EffectiveTip is the tip realizable at the evaluation block's base fee.
	EffectiveTip *uint256.Int

	// Threshold is the percentile fee threshold the tip was compared against.
	Threshold *uint256.Int

	// DwellSecs is how long the transaction had been observable in the
	// mempool at the evaluation block's timestamp.
	DwellSecs int64
}
