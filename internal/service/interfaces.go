// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/jeonglab2/lost-items-desktop/internal/model"
)

// ItemFilter defines filtering options for item queries.
type ItemFilter struct {
	// Keywords are ANDed: every keyword must appear in the item's name or
	// features.
	Keywords   []string
	FoundPlace string
	FoundFrom  *time.Time
	FoundTo    *time.Time
	Limit      int
	Offset     int
}

// Storage is the persistence collaborator contract. The engine components
// never touch it directly; the registration service and the relocation
// runner do.
type Storage interface {
	// Item operations
	SaveItem(ctx context.Context, item *model.Item) error
	GetItem(ctx context.Context, id string) (*model.Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]model.Item, error)
	GetItemsInStorage(ctx context.Context) ([]model.Item, error)
	UpdateItem(ctx context.Context, item *model.Item) error
	DeleteItem(ctx context.Context, itemID string) error
	UpdateStorageLocation(ctx context.Context, itemID, location string) error
	UpdateItemStatus(ctx context.Context, itemID string, status model.ItemStatus) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// ItemVector pairs an item with its stored embedding.
type ItemVector struct {
	ItemID string
	Vector []float32
}

// VectorIndex persists per-item embeddings so searches can rank by semantic
// similarity. Vectors are tagged with the embedding model version; a model
// swap makes the old vectors invisible rather than silently wrong.
type VectorIndex interface {
	SaveItemVector(ctx context.Context, itemID, modelVersion string, vector []float32) error
	ItemVectors(ctx context.Context, modelVersion string) ([]ItemVector, error)
}
