package relocate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"github.com/jeonglab2/lost-items-desktop/internal/service"
)

// ErrAlreadyRunning means another relocation batch holds the run lock.
// Overlapping runs are refused outright: interleaved partial updates to the
// same item are not merge-safe, even though each update is idempotent.
var ErrAlreadyRunning = errors.New("relocation batch already running")

// Runner executes a relocation batch end to end: snapshot the stored items,
// plan moves, and apply them one by one. A file lock serializes runs across
// processes.
type Runner struct {
	storage   service.Storage
	scheduler *Scheduler
	lock      *flock.Flock
}

// NewRunner creates a Runner guarding its batches with a lock file at
// lockPath.
func NewRunner(storage service.Storage, scheduler *Scheduler, lockPath string) *Runner {
	return &Runner{
		storage:   storage,
		scheduler: scheduler,
		lock:      flock.New(lockPath),
	}
}

// Run executes one batch as of the given timestamp. A failure applying one
// item's move is recorded in the report and does not stop the rest.
func (r *Runner) Run(ctx context.Context, asOf time.Time) (*Report, error) {
	ok, err := r.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("relocate: acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			slog.Warn("failed to release relocation run lock", "error", err)
		}
	}()

	items, err := r.storage.GetItemsInStorage(ctx)
	if err != nil {
		return nil, fmt.Errorf("relocate: load items: %w", err)
	}

	report := r.scheduler.Relocate(items, asOf)

	applied := report.Moves[:0]
	for _, move := range report.Moves {
		if err := r.storage.UpdateStorageLocation(ctx, move.ItemID, move.To); err != nil {
			report.Failures = append(report.Failures, Failure{ItemID: move.ItemID, Err: err})
			slog.Error("failed to relocate item",
				"item_id", move.ItemID, "to", move.To, "error", err)
			continue
		}
		applied = append(applied, move)
	}
	report.Moves = applied

	slog.Info("relocation batch complete",
		"batch_id", report.BatchID,
		"as_of", asOf,
		"moved", len(report.Moves),
		"skipped", report.Skipped,
		"failed", len(report.Failures))

	return report, nil
}
