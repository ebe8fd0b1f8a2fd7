// Package relocate implements the scheduled bulk move of items from their
// initial storage slot to long-term storage after the dwell period.
package relocate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeonglab2/lost-items-desktop/internal/idgen"
	"github.com/jeonglab2/lost-items-desktop/internal/model"
	"github.com/jeonglab2/lost-items-desktop/internal/slot"
)

// DwellPeriod is how long an item stays in its initial slot before the
// scheduler moves it to long-term storage.
const DwellPeriod = 7 * 24 * time.Hour

var (
	// defaultLocation matches an initial default slot: yy-mm-dd-nn.
	defaultLocation = regexp.MustCompile(`^(\d{2}-\d{2}-\d{2})-(\d{2})$`)
	// longTermLocation matches an already-relocated slot: yy-mm-dd-nn-nn.
	// Idempotence is detected by this pattern, not by a flag, so a batch is
	// safe to re-run after partial failure.
	longTermLocation = regexp.MustCompile(`^\d{2}-\d{2}-\d{2}-\d{2}-\d{2}$`)
)

// exemptSuffixes are the storage classes never subject to relocation.
var exemptSuffixes = []string{
	slot.OwnershipSuffix,
	slot.UmbrellaSuffix,
	slot.FridgeSuffix,
	slot.FreezerSuffix,
}

// Move is one planned storage-location rewrite.
type Move struct {
	ItemID string
	From   string
	To     string
}

// Failure records a per-item problem. Failures never abort the batch.
type Failure struct {
	ItemID string
	Err    error
}

// Report summarizes one relocation batch.
type Report struct {
	BatchID  string
	AsOf     time.Time
	Moves    []Move
	Failures []Failure
	// Skipped counts items left alone: still within the dwell period,
	// exempt, or already in long-term form.
	Skipped int
}

// Scheduler plans relocations. It is stateless; the caller supplies the
// item snapshot and applies the resulting moves.
type Scheduler struct {
	dwell time.Duration
}

// NewScheduler creates a Scheduler with the standard dwell period.
func NewScheduler() *Scheduler {
	return &Scheduler{dwell: DwellPeriod}
}

// NewSchedulerWithDwell creates a Scheduler with a custom dwell period.
func NewSchedulerWithDwell(dwell time.Duration) *Scheduler {
	if dwell <= 0 {
		dwell = DwellPeriod
	}
	return &Scheduler{dwell: dwell}
}

// Relocate plans moves for every item past the dwell threshold whose
// current location is neither exempt nor already long-term. The long-term
// location is the found date plus the item's box number doubled
// (box "01" becomes "01-01"), read from the stored location rather than
// recomputed so re-runs are idempotent.
func (s *Scheduler) Relocate(items []model.Item, asOf time.Time) *Report {
	report := &Report{
		BatchID: uuid.NewString(),
		AsOf:    asOf,
	}

	for _, item := range items {
		move, err := s.plan(item, asOf)
		switch {
		case err != nil:
			report.Failures = append(report.Failures, Failure{ItemID: item.ID, Err: err})
		case move == nil:
			report.Skipped++
		default:
			report.Moves = append(report.Moves, *move)
		}
	}

	return report
}

// plan returns nil when the item should be left alone.
func (s *Scheduler) plan(item model.Item, asOf time.Time) (*Move, error) {
	if asOf.Sub(item.AcceptedAt) < s.dwell {
		return nil, nil
	}

	loc := item.StorageLocation
	if longTermLocation.MatchString(loc) {
		return nil, nil
	}
	for _, suffix := range exemptSuffixes {
		if strings.HasSuffix(loc, "-"+suffix) {
			return nil, nil
		}
	}

	m := defaultLocation.FindStringSubmatch(loc)
	if m == nil {
		return nil, fmt.Errorf("unrecognized storage location %q", loc)
	}
	box := m[2]

	foundDate := item.FoundAt
	if foundDate.IsZero() {
		foundDate = item.AcceptedAt
	}

	return &Move{
		ItemID: item.ID,
		From:   loc,
		To:     fmt.Sprintf("%s-%s-%s", foundDate.Format(idgen.DateLayout), box, box),
	}, nil
}
