// Package scheduler is C3: it drives the rename pipeline in bottom-up
// rounds, partitions each round's ready functions into token-budgeted
// batches, and dispatches them to the oracle coordinator with bounded
// concurrency.
package scheduler

import "time"

// Progress is emitted to the caller's callback after every batch.
type Progress struct {
	BatchIndex int
	BatchCount int
	Processed  int
	Total      int

	// Mapped counts functions that received a rename mapping (possibly
	// one with no renames) back from the oracle or cache; Unmapped counts functions that were
	// processed (and so won't be retried) but produced no mapping,
	// either because a batch failed or the oracle returned nothing for
	// that function.
	Mapped   int
	Unmapped int

	InputTokens  int
	OutputTokens int
	Errors       int
	Elapsed      time.Duration
	CurrentLabel string
}

// ProgressFunc receives a Progress record after each batch completes. May
// be nil.
type ProgressFunc func(Progress)
