// Package counter provides the keyed atomic counters behind item-ID
// sequence numbers and storage-box rollover. The store is the only mutable
// shared state in the engine: its single mutating operation is an atomic
// increment, so concurrent registrations can never observe or emit the same
// number for a key, and no number is skipped.
package counter

import (
	"context"
	"fmt"
)

// Store issues strictly increasing numbers per key, starting at 1.
type Store interface {
	// Next atomically increments the counter for key and returns the new
	// value. The first call for a key returns 1.
	Next(ctx context.Context, key string) (int64, error)
	Close() error
}

// IDKey builds the counter key for item-ID sequences: one counter per
// facility, date, and acceptance hour.
func IDKey(facilityID, date string, hour int) string {
	return fmt.Sprintf("id/%s/%s/%d", facilityID, date, hour)
}

// BoxKey builds the counter key for default-slot assignments: one counter
// per facility and date. Old keys are simply never incremented again once
// the date changes.
func BoxKey(facilityID, date string) string {
	return fmt.Sprintf("box/%s/%s", facilityID, date)
}
