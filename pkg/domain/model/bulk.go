package model

import (
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
)

// BulkEntry is the per-target result of a bulk membership operation
type BulkEntry struct {
	Target  types.RocketUserID
	Outcome Outcome[bool]
}

// BulkResult aggregates per-target outcomes of a bulk operation. Entries
// preserve request order and hold exactly one entry per requested target.
type BulkResult struct {
	entries []BulkEntry
	index   map[types.RocketUserID]int
}

// NewBulkResult creates an empty BulkResult sized for n targets
func NewBulkResult(n int) *BulkResult {
	return &BulkResult{
		entries: make([]BulkEntry, 0, n),
		index:   make(map[types.RocketUserID]int, n),
	}
}

// Set records the outcome for a target. A repeated target overwrites its
// previous outcome in place, keeping the original position.
func (x *BulkResult) Set(target types.RocketUserID, outcome Outcome[bool]) {
	if i, ok := x.index[target]; ok {
		x.entries[i].Outcome = outcome
		return
	}
	x.index[target] = len(x.entries)
	x.entries = append(x.entries, BulkEntry{Target: target, Outcome: outcome})
}

// Get returns the outcome recorded for a target
func (x *BulkResult) Get(target types.RocketUserID) (Outcome[bool], bool) {
	i, ok := x.index[target]
	if !ok {
		return Outcome[bool]{}, false
	}
	return x.entries[i].Outcome, true
}

// Entries returns the recorded entries in request order
func (x *BulkResult) Entries() []BulkEntry {
	out := make([]BulkEntry, len(x.entries))
	copy(out, x.entries)
	return out
}

// Len returns the number of recorded entries
func (x *BulkResult) Len() int {
	return len(x.entries)
}

// FailedCount returns the number of failed entries
func (x *BulkResult) FailedCount() int {
	var n int
	for _, e := range x.entries {
		if e.Outcome.IsFailed() {
			n++
		}
	}
	return n
}
