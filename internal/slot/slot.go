// Package slot decides the initial storage location for a registered item.
// Rules are evaluated in strict priority order and the first match wins:
// rights claim, umbrella, food, then the default box with 20-item rollover.
// Rights-claim storage has legal handling implications, so it must never be
// overridden by a coincidental category match.
package slot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jeonglab2/lost-items-desktop/internal/counter"
	"github.com/jeonglab2/lost-items-desktop/internal/idgen"
	"github.com/jeonglab2/lost-items-desktop/internal/model"
	"github.com/jeonglab2/lost-items-desktop/internal/normalize"
)

// Storage location suffixes.
const (
	OwnershipSuffix = "所有権主張"
	UmbrellaSuffix  = "umb"
	FridgeSuffix    = "冷蔵庫"
	FreezerSuffix   = "冷凍庫"
)

// DefaultBoxCapacity is how many default-slot items share one box number.
const DefaultBoxCapacity = 20

// Request carries everything a rule may consult.
type Request struct {
	FacilityID string
	// Date is the item's found date; it forms the location prefix.
	Date        time.Time
	Category    model.Category
	FeatureText string

	ClaimsOwnership bool
	ClaimsReward    bool

	// Hints from the visual feature extractor. Nil means no hint.
	FoodHint     *bool
	UmbrellaHint *bool
}

// Config tunes the rule predicates. The refrigerate/freeze distinction is
// deliberately a marker list, not hardcoded lexical guesses.
type Config struct {
	UmbrellaLabels []string
	FoodMarkers    []string
	FrozenMarkers  []string
	BoxCapacity    int
}

// DefaultConfig returns the default marker lists.
func DefaultConfig() Config {
	return Config{
		UmbrellaLabels: []string{"傘", "日傘", "umbrella"},
		FoodMarkers:    []string{"食品", "食べ物", "フード", "生もの", "お弁当", "food"},
		FrozenMarkers:  []string{"冷凍", "アイス", "frozen"},
		BoxCapacity:    DefaultBoxCapacity,
	}
}

// rule pairs a predicate with a location formatter. Only the default rule's
// formatter touches the counter store.
type rule struct {
	name     string
	applies  func(Request) bool
	location func(ctx context.Context, datePrefix string, req Request) (string, error)
}

// Allocator assigns storage locations using the ordered rule set.
type Allocator struct {
	counters counter.Store
	cfg      Config
	rules    []rule
}

// New creates an Allocator backed by the given counter store.
func New(counters counter.Store, cfg Config) *Allocator {
	if cfg.BoxCapacity <= 0 {
		cfg.BoxCapacity = DefaultBoxCapacity
	}

	a := &Allocator{counters: counters, cfg: cfg}
	a.rules = []rule{
		{
			name:    "ownership-claim",
			applies: func(req Request) bool { return req.ClaimsOwnership },
			location: func(_ context.Context, prefix string, _ Request) (string, error) {
				return prefix + "-" + OwnershipSuffix, nil
			},
		},
		{
			name:    "umbrella",
			applies: a.isUmbrella,
			location: func(_ context.Context, prefix string, _ Request) (string, error) {
				return prefix + "-" + UmbrellaSuffix, nil
			},
		},
		{
			name:    "food",
			applies: a.isFood,
			location: func(_ context.Context, prefix string, req Request) (string, error) {
				if a.isFrozen(req) {
					return prefix + "-" + FreezerSuffix, nil
				}
				return prefix + "-" + FridgeSuffix, nil
			},
		},
		{
			name:     "default-box",
			applies:  func(Request) bool { return true },
			location: a.defaultBox,
		},
	}
	return a
}

// Assign evaluates the rules in priority order and returns the storage
// location for the request.
func (a *Allocator) Assign(ctx context.Context, req Request) (string, error) {
	if req.FacilityID == "" {
		return "", fmt.Errorf("slot: facility ID is required")
	}
	if req.Date.IsZero() {
		return "", fmt.Errorf("slot: found date is required")
	}

	prefix := req.Date.Format(idgen.DateLayout)
	for _, r := range a.rules {
		if !r.applies(req) {
			continue
		}
		loc, err := r.location(ctx, prefix, req)
		if err != nil {
			return "", err
		}
		slog.Debug("assigned storage location",
			"rule", r.name, "location", loc, "facility_id", req.FacilityID)
		return loc, nil
	}
	// The default rule always applies.
	return "", fmt.Errorf("slot: no rule matched")
}

func (a *Allocator) isUmbrella(req Request) bool {
	if req.UmbrellaHint != nil {
		return *req.UmbrellaHint
	}
	medium := normalize.Text(req.Category.Medium)
	for _, label := range a.cfg.UmbrellaLabels {
		if medium == normalize.Text(label) {
			return true
		}
	}
	return false
}

func (a *Allocator) isFood(req Request) bool {
	if req.FoodHint != nil && *req.FoodHint {
		return true
	}
	for _, marker := range a.cfg.FoodMarkers {
		if normalize.Contains(req.FeatureText, marker) {
			return true
		}
	}
	return false
}

func (a *Allocator) isFrozen(req Request) bool {
	for _, marker := range a.cfg.FrozenMarkers {
		if normalize.Contains(req.FeatureText, marker) {
			return true
		}
	}
	return false
}

// defaultBox computes yy-mm-dd-nn where nn advances once every BoxCapacity
// default-slot assignments for the facility and date. Items routed to the
// priority rules never reach here, so they consume no box capacity.
func (a *Allocator) defaultBox(ctx context.Context, prefix string, req Request) (string, error) {
	n, err := a.counters.Next(ctx, counter.BoxKey(req.FacilityID, prefix))
	if err != nil {
		return "", fmt.Errorf("slot: box counter for %s %s: %w", req.FacilityID, prefix, err)
	}
	box := (n-1)/int64(a.cfg.BoxCapacity) + 1
	return fmt.Sprintf("%s-%02d", prefix, box), nil
}
