// Package registration orchestrates registering a found item: rank category
// suggestions, issue the item identifier, assign the storage slot, and hand
// the finished record to the persistence collaborator.
package registration

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jeonglab2/lost-items-desktop/internal/embedding"
	"github.com/jeonglab2/lost-items-desktop/internal/engine"
	"github.com/jeonglab2/lost-items-desktop/internal/idgen"
	"github.com/jeonglab2/lost-items-desktop/internal/model"
	"github.com/jeonglab2/lost-items-desktop/internal/normalize"
	"github.com/jeonglab2/lost-items-desktop/internal/service"
	"github.com/jeonglab2/lost-items-desktop/internal/slot"
	"github.com/jeonglab2/lost-items-desktop/internal/taxonomy"
)

// Request carries one registration.
type Request struct {
	FacilityID string
	FoundAt    time.Time
	AcceptedAt time.Time
	FoundPlace string

	Query model.ClassificationQuery

	// CategoryLarge/CategoryMedium are the category the operator confirmed.
	// When empty, the top suggestion is accepted automatically.
	CategoryLarge  string
	CategoryMedium string
}

// Service wires the engine components together.
type Service struct {
	suggester *engine.Suggester
	ids       *idgen.Generator
	slots     *slot.Allocator
	storage   service.Storage
	tax       *taxonomy.Store

	embedder embedding.Embedder
	vectors  service.VectorIndex
}

// New creates a registration service.
func New(suggester *engine.Suggester, ids *idgen.Generator, slots *slot.Allocator, storage service.Storage, tax *taxonomy.Store) *Service {
	return &Service{
		suggester: suggester,
		ids:       ids,
		slots:     slots,
		storage:   storage,
		tax:       tax,
	}
}

// EnableSemanticIndex stores a per-item embedding at registration time and
// ranks semantic searches against it. Usually the same embedder the
// suggester runs on.
func (s *Service) EnableSemanticIndex(emb embedding.Embedder, index service.VectorIndex) {
	s.embedder = emb
	s.vectors = index
}

// Suggest exposes the category matcher to callers that want suggestions
// before committing a registration.
func (s *Service) Suggest(ctx context.Context, query model.ClassificationQuery, topN int) (model.CategoryRankings, error) {
	return s.suggester.Suggest(ctx, query, topN)
}

// Register runs the full pipeline and persists the item. Classification
// degradation never fails a registration; only an unusable taxonomy or a
// persistence failure does.
func (s *Service) Register(ctx context.Context, req Request) (*model.Item, error) {
	if req.FacilityID == "" {
		return nil, fmt.Errorf("registration: facility ID is required")
	}
	if req.AcceptedAt.IsZero() {
		req.AcceptedAt = time.Now()
	}
	if req.FoundAt.IsZero() {
		req.FoundAt = req.AcceptedAt
	}

	category, err := s.resolveCategory(ctx, req)
	if err != nil {
		return nil, err
	}

	id, err := s.ids.NextID(ctx, req.FacilityID, req.AcceptedAt)
	if err != nil {
		return nil, fmt.Errorf("registration: %w", err)
	}

	location, err := s.slots.Assign(ctx, slot.Request{
		FacilityID:      req.FacilityID,
		Date:            req.FoundAt,
		Category:        category,
		FeatureText:     req.Query.Features,
		ClaimsOwnership: req.Query.ClaimsOwnership,
		ClaimsReward:    req.Query.ClaimsReward,
		FoodHint:        req.Query.FoodHint,
		UmbrellaHint:    req.Query.UmbrellaHint,
	})
	if err != nil {
		return nil, fmt.Errorf("registration: %w", err)
	}

	item := &model.Item{
		ID:              id,
		FacilityID:      req.FacilityID,
		FoundAt:         req.FoundAt,
		AcceptedAt:      req.AcceptedAt,
		FoundPlace:      req.FoundPlace,
		CategoryLarge:   category.Large,
		CategoryMedium:  category.Medium,
		Name:            req.Query.Name,
		Features:        req.Query.Features,
		Color:           req.Query.Color,
		StorageLocation: location,
		Status:          model.StatusInStorage,
		ClaimsOwnership: req.Query.ClaimsOwnership,
		ClaimsReward:    req.Query.ClaimsReward,
	}

	if err := s.storage.SaveItem(ctx, item); err != nil {
		return nil, fmt.Errorf("registration: %w", err)
	}

	s.indexItem(ctx, item)

	slog.Info("registered item",
		"item_id", item.ID,
		"facility_id", item.FacilityID,
		"category", category.Key(),
		"storage_location", item.StorageLocation)

	return item, nil
}

// resolveCategory uses the operator's confirmed category when given,
// otherwise accepts the matcher's top suggestion.
func (s *Service) resolveCategory(ctx context.Context, req Request) (model.Category, error) {
	if req.CategoryLarge != "" && req.CategoryMedium != "" {
		if cat, ok := s.tax.Lookup(req.CategoryLarge, req.CategoryMedium); ok {
			return cat, nil
		}
		// An operator override outside the taxonomy is still registered;
		// it just carries no keywords for the slot rules to inspect.
		return model.Category{Large: req.CategoryLarge, Medium: req.CategoryMedium}, nil
	}

	rankings, err := s.suggester.Suggest(ctx, req.Query, 1)
	if err != nil {
		return model.Category{}, fmt.Errorf("registration: %w", err)
	}
	return rankings[0].Category, nil
}

// Update rewrites a registered item and refreshes its stored embedding so a
// corrected description keeps semantic search accurate.
func (s *Service) Update(ctx context.Context, item *model.Item) error {
	if err := s.storage.UpdateItem(ctx, item); err != nil {
		return fmt.Errorf("registration: %w", err)
	}
	s.indexItem(ctx, item)
	return nil
}

// Delete removes an item record. The persistence layer discards the stored
// embedding alongside it.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.storage.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("registration: %w", err)
	}
	slog.Info("deleted item", "item_id", id)
	return nil
}

// SearchResult pairs a found item with its semantic similarity to the query.
// Score stays zero on the keyword path and for items without a stored vector.
type SearchResult struct {
	Item  model.Item
	Score float64
}

// Search filters items through storage and, when semantic ranking is
// requested and the embedding stack is available, reorders the matches by
// cosine similarity between the query vector and each item's stored vector.
// An unavailable embedding stack degrades to filter order, not an error.
func (s *Service) Search(ctx context.Context, query string, filter service.ItemFilter, semantic bool) ([]SearchResult, error) {
	items, err := s.storage.ListItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("registration: %w", err)
	}

	results := make([]SearchResult, len(items))
	for i := range items {
		results[i].Item = items[i]
	}

	if !semantic {
		return results, nil
	}
	if s.embedder == nil || s.vectors == nil {
		slog.Warn("semantic search requested without an embedding model, returning filter order")
		return results, nil
	}

	queryVec, err := s.embedder.Embed(ctx, normalize.Text(query))
	if err != nil {
		slog.Warn("query embedding failed, returning filter order", "error", err)
		return results, nil
	}

	stored, err := s.vectors.ItemVectors(ctx, s.embedder.Version())
	if err != nil {
		return nil, fmt.Errorf("registration: %w", err)
	}
	byID := make(map[string][]float32, len(stored))
	for _, v := range stored {
		byID[v.ItemID] = v.Vector
	}

	for i := range results {
		if vec, ok := byID[results[i].Item.ID]; ok {
			results[i].Score = engine.CosineSimilarity(queryVec, vec)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

// indexItem stores the item's embedding for semantic search. Indexing is
// best-effort; a failure only leaves this item unranked in later searches.
func (s *Service) indexItem(ctx context.Context, item *model.Item) {
	if s.embedder == nil || s.vectors == nil {
		return
	}

	text := normalize.Text(model.ClassificationQuery{
		Name:     item.Name,
		Features: item.Features,
		Color:    item.Color,
	}.Text())
	if text == "" {
		return
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		slog.Warn("item embedding failed, item stays unranked in semantic search",
			"item_id", item.ID, "error", err)
		return
	}
	if err := s.vectors.SaveItemVector(ctx, item.ID, s.embedder.Version(), vec); err != nil {
		slog.Warn("failed to store item vector", "item_id", item.ID, "error", err)
	}
}
