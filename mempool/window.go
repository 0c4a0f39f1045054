// Package mempool provides the in-process view of the observed mempool
// stream: a time-ordered window that the aggregator re-slices per block,
// and the nonce replacement resolver that collapses multiple versions of
// the same (sender, nonce) slot into one canonical transaction.
package mempool

import (
	"sort"

	"github.com/eth2030/focil-analysis/types"
)

// Window is a time-ordered set of mempool observations covering one
// chunk's padded time range. Slicing is a binary search over the sorted
// backing slice, so per-block re-slicing never copies.
type Window struct {
	observations []*types.MempoolObservation // sorted by FirstSeen asc
}

// NewWindow builds a Window from observations. The input is sorted in
// place by (FirstSeen, Hash) if not already ordered.
func NewWindow(observations []*types.MempoolObservation) *Window {
	if !sort.SliceIsSorted(observations, func(i, j int) bool {
		return observations[i].FirstSeen < observations[j].FirstSeen
	}) {
		sort.Slice(observations, func(i, j int) bool {
			if observations[i].FirstSeen != observations[j].FirstSeen {
				return observations[i].FirstSeen < observations[j].FirstSeen
			}
			return observations[i].Hash.Cmp(observations[j].Hash) < 0
		})
	}
	return &Window{observations: observations}
}

// Len returns the number of observations in the window.
func (w *Window) Len() int {
	return len(w.observations)
}

// Start returns the earliest FirstSeen in the window, or 0 when empty.
func (w *Window) Start() int64 {
	if len(w.observations) == 0 {
		return 0
	}
	return w.observations[0].FirstSeen
}

// All returns the full backing slice. Callers must not mutate it.
func (w *Window) All() []*types.MempoolObservation {
	return w.observations
}

// Slice returns the observations first seen within [from, to], both
// bounds inclusive. The returned slice shares the window's backing
// array.
func (w *Window) Slice(from, to int64) []*types.MempoolObservation {
	lo := sort.Search(len(w.observations), func(i int) bool {
		return w.observations[i].FirstSeen >= from
	})
	hi := sort.Search(len(w.observations), func(i int) bool {
		return w.observations[i].FirstSeen > to
	})
	if lo >= hi {
		return nil
	}
	return w.observations[lo:hi]
}
