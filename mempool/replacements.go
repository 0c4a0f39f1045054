// replacements.go resolves nonce replacements. Multiple mempool
// submissions sharing (sender, nonce) are versions of one logical slot;
// exactly one survives. The surviving version is the one the chain
// actually included when any version was included, otherwise the
// highest-fee version: a replaced low-fee version was superseded by the
// sender's own action and must not be counted as censored.
package mempool

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/focil-analysis/types"
)

// slotKey identifies one logical transaction slot.
type slotKey struct {
	sender common.Address
	nonce  uint64
}

// Resolution is the outcome of replacement resolution over a window.
type Resolution struct {
	// Canonical holds the surviving version per (sender, nonce) slot.
	Canonical []*types.CanonicalTransaction

	// Replaced holds every superseded hash. These are excluded from
	// censorship consideration entirely.
	Replaced map[common.Hash]struct{}

	// Stats summarizes the replacement activity for reporting.
	Stats ReplacementStats
}

// IsReplaced reports whether the hash was superseded by another version.
func (r *Resolution) IsReplaced(h common.Hash) bool {
	_, ok := r.Replaced[h]
	return ok
}

// ReplacementStats is reporting-only detail about replacement behavior
// in a window. It does not influence candidate selection.
type ReplacementStats struct {
	Slots       int // slots with more than one observed version
	Replaced    int // versions superseded
	SameFee     int // slots whose final fee equals the first version's (cancellations)
	FeeIncrease int // true replace-by-fee bumps
	FeeDecrease int // unusual, possibly error correction
	MaxVersions int // most versions observed for a single slot
}

// ResolveReplacements groups the observations by (sender, nonce) and
// resolves each group. included is the set of hashes known to be on
// chain anywhere in the chunk's padded range; the network's ordering
// decision is ground truth once it has happened.
func ResolveReplacements(observations []*types.MempoolObservation, included map[common.Hash]struct{}) *Resolution {
	groups := make(map[slotKey][]*types.MempoolObservation)
	for _, obs := range observations {
		k := slotKey{sender: obs.Sender, nonce: obs.Nonce}
		groups[k] = append(groups[k], obs)
	}

	res := &Resolution{
		Canonical: make([]*types.CanonicalTransaction, 0, len(groups)),
		Replaced:  make(map[common.Hash]struct{}),
	}

	for _, group := range groups {
		canonical := ResolveGroup(group, included)
		res.Canonical = append(res.Canonical, canonical)

		if len(group) == 1 {
			continue
		}
		res.Stats.Slots++
		res.Stats.Replaced += len(group) - 1
		if len(group) > res.Stats.MaxVersions {
			res.Stats.MaxVersions = len(group)
		}
		for _, obs := range group {
			if obs.Hash != canonical.Hash {
				res.Replaced[obs.Hash] = struct{}{}
			}
		}

		first := earliestVersion(group)
		switch canonical.MaxFee.Cmp(first.MaxFee) {
		case 0:
			res.Stats.SameFee++
		case 1:
			res.Stats.FeeIncrease++
		case -1:
			res.Stats.FeeDecrease++
		}
	}

	// Deterministic output order regardless of map iteration.
	sort.Slice(res.Canonical, func(i, j int) bool {
		return res.Canonical[i].Hash.Cmp(res.Canonical[j].Hash) < 0
	})
	return res
}

// ResolveGroup picks the canonical version of one (sender, nonce) group.
// If any version was included on-chain that version wins. Otherwise the
// highest max-fee version wins; ties go to the most recently observed,
// then to the lexicographically greatest hash. The hash fallback exists
// only for reproducibility with coarse timestamps, it reflects no
// real-world precedence.
func ResolveGroup(group []*types.MempoolObservation, included map[common.Hash]struct{}) *types.CanonicalTransaction {
	best := group[0]
	bestIncluded := isIncluded(best, included)

	for _, obs := range group[1:] {
		obsIncluded := isIncluded(obs, included)
		switch {
		case obsIncluded && !bestIncluded:
			best, bestIncluded = obs, true
		case obsIncluded == bestIncluded && versionLess(best, obs):
			best = obs
		}
	}

	return &types.CanonicalTransaction{
		MempoolObservation: best,
		Versions:           len(group),
	}
}

func isIncluded(obs *types.MempoolObservation, included map[common.Hash]struct{}) bool {
	_, ok := included[obs.Hash]
	return ok
}

// versionLess reports whether b supersedes a under the replacement
// policy: higher max fee, then later first sighting, then greater hash.
func versionLess(a, b *types.MempoolObservation) bool {
	if c := a.MaxFee.Cmp(b.MaxFee); c != 0 {
		return c < 0
	}
	if a.FirstSeen != b.FirstSeen {
		return a.FirstSeen < b.FirstSeen
	}
	return a.Hash.Cmp(b.Hash) < 0
}

func earliestVersion(group []*types.MempoolObservation) *types.MempoolObservation {
	first := group[0]
	for _, obs := range group[1:] {
		if obs.FirstSeen < first.FirstSeen ||
			(obs.FirstSeen == first.FirstSeen && obs.Hash.Cmp(first.Hash) < 0) {
			first = obs
		}
	}
	return first
}
