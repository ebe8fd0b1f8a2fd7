// Package idgen issues unique item identifiers of the form yy-mm-dd-h-nn:
// acceptance date, acceptance hour (24-hour, no zero pad), and a 1-based
// two-digit sequence number unique within that facility, date, and hour.
package idgen

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jeonglab2/lost-items-desktop/internal/common"
	"github.com/jeonglab2/lost-items-desktop/internal/counter"
)

// DateLayout is the two-digit date form shared by item IDs and storage
// locations.
const DateLayout = "06-01-02"

// Generator issues item IDs against an injected counter store.
type Generator struct {
	counters counter.Store

	// lastSeen tracks the latest acceptance timestamp per facility so
	// wall-clock regressions are detected and never reuse an older key.
	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// New creates a Generator backed by the given counter store.
func New(counters counter.Store) *Generator {
	return &Generator{
		counters: counters,
		lastSeen: make(map[string]time.Time),
	}
}

// NextID issues the identifier for an item accepted at acceptedAt. When
// acceptedAt runs backwards relative to the facility's latest acceptance,
// the skew is logged and the ID is issued under the latest known key: a
// slightly imprecise hour field beats refusing to register a found item.
func (g *Generator) NextID(ctx context.Context, facilityID string, acceptedAt time.Time) (string, error) {
	if facilityID == "" {
		return "", fmt.Errorf("idgen: facility ID is required")
	}
	if acceptedAt.IsZero() {
		return "", fmt.Errorf("idgen: acceptance timestamp is required")
	}

	g.mu.Lock()
	if last, ok := g.lastSeen[facilityID]; ok && acceptedAt.Before(last) {
		common.LogError(common.ErrClockSkew, "acceptance timestamp ran backwards, using latest known key",
			common.Fields{
				"facility_id": facilityID,
				"accepted_at": acceptedAt,
				"latest":      last,
			})
		acceptedAt = last
	} else {
		g.lastSeen[facilityID] = acceptedAt
	}
	g.mu.Unlock()

	date := acceptedAt.Format(DateLayout)
	hour := acceptedAt.Hour()

	seq, err := g.counters.Next(ctx, counter.IDKey(facilityID, date, hour))
	if err != nil {
		return "", fmt.Errorf("idgen: sequence for %s %s hour %d: %w", facilityID, date, hour, err)
	}

	id := fmt.Sprintf("%s-%d-%02d", date, hour, seq)
	slog.Debug("issued item ID", "item_id", id, "facility_id", facilityID)
	return id, nil
}
