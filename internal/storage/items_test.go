package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeonglab2/lost-items-desktop/internal/common"
	"github.com/jeonglab2/lost-items-desktop/internal/model"
	"github.com/jeonglab2/lost-items-desktop/internal/service"
)

func testStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testItem(id string) *model.Item {
	return &model.Item{
		ID:              id,
		FacilityID:      "01",
		FoundAt:         time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC),
		AcceptedAt:      time.Date(2025, 6, 20, 11, 0, 0, 0, time.UTC),
		FoundPlace:      "3階トイレ",
		CategoryLarge:   "財布類",
		CategoryMedium:  "財布",
		Name:            "黒い財布",
		Features:        "革製 小銭入れ付き",
		Color:           "黒",
		StorageLocation: "25-06-20-01",
		Status:          model.StatusInStorage,
	}
}

func TestSaveAndGetItem(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	item := testItem("25-06-20-11-01")
	require.NoError(t, store.SaveItem(ctx, item))
	assert.False(t, item.CreatedAt.IsZero())

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, item.Name, got.Name)
	assert.Equal(t, item.StorageLocation, got.StorageLocation)
	assert.Equal(t, model.StatusInStorage, got.Status)
	assert.True(t, item.FoundAt.Equal(got.FoundAt))
}

func TestSaveItem_Duplicate(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	item := testItem("25-06-20-11-01")
	require.NoError(t, store.SaveItem(ctx, item))

	err := store.SaveItem(ctx, testItem("25-06-20-11-01"))
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestSaveItem_Invalid(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	assert.Error(t, store.SaveItem(ctx, nil))

	incomplete := testItem("25-06-20-11-01")
	incomplete.StorageLocation = ""
	assert.Error(t, store.SaveItem(ctx, incomplete))
}

func TestGetItem_NotFound(t *testing.T) {
	store := testStorage(t)

	_, err := store.GetItem(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListItems(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	wallet := testItem("25-06-20-11-01")
	require.NoError(t, store.SaveItem(ctx, wallet))

	umbrella := testItem("25-06-20-11-02")
	umbrella.Name = "黒い折りたたみ傘"
	umbrella.Features = "持ち手に傷"
	umbrella.FoundPlace = "正面玄関"
	umbrella.FoundAt = time.Date(2025, 6, 22, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveItem(ctx, umbrella))

	timePtr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name    string
		filter  service.ItemFilter
		wantIDs []string
	}{
		{
			name:    "no filter returns everything",
			filter:  service.ItemFilter{},
			wantIDs: []string{"25-06-20-11-01", "25-06-20-11-02"},
		},
		{
			name:    "single keyword",
			filter:  service.ItemFilter{Keywords: []string{"傘"}},
			wantIDs: []string{"25-06-20-11-02"},
		},
		{
			name:    "keywords are ANDed across name and features",
			filter:  service.ItemFilter{Keywords: []string{"傘", "傷"}},
			wantIDs: []string{"25-06-20-11-02"},
		},
		{
			name:    "conflicting keywords match nothing",
			filter:  service.ItemFilter{Keywords: []string{"傘", "財布"}},
			wantIDs: []string{},
		},
		{
			name:    "found place",
			filter:  service.ItemFilter{FoundPlace: "玄関"},
			wantIDs: []string{"25-06-20-11-02"},
		},
		{
			name: "date range",
			filter: service.ItemFilter{
				FoundFrom: timePtr(time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)),
			},
			wantIDs: []string{"25-06-20-11-02"},
		},
		{
			name:    "limit",
			filter:  service.ItemFilter{Limit: 1},
			wantIDs: nil, // count checked separately
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := store.ListItems(ctx, tt.filter)
			require.NoError(t, err)

			if tt.name == "limit" {
				assert.Len(t, items, 1)
				return
			}

			ids := make([]string, 0, len(items))
			for _, item := range items {
				ids = append(ids, item.ID)
			}
			assert.ElementsMatch(t, tt.wantIDs, ids)
		})
	}
}

func TestGetItemsInStorage(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	held := testItem("25-06-20-11-01")
	require.NoError(t, store.SaveItem(ctx, held))

	returned := testItem("25-06-20-11-02")
	require.NoError(t, store.SaveItem(ctx, returned))
	require.NoError(t, store.UpdateItemStatus(ctx, returned.ID, model.StatusReturned))

	items, err := store.GetItemsInStorage(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, held.ID, items[0].ID)
}

func TestUpdateStorageLocation(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	item := testItem("25-06-20-11-01")
	require.NoError(t, store.SaveItem(ctx, item))

	require.NoError(t, store.UpdateStorageLocation(ctx, item.ID, "25-06-20-01-01"))

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "25-06-20-01-01", got.StorageLocation)

	err = store.UpdateStorageLocation(ctx, "missing", "x")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateItem(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	item := testItem("25-06-20-11-01")
	require.NoError(t, store.SaveItem(ctx, item))

	item.Name = "茶色い財布"
	item.Features = "革製"
	item.Status = model.StatusReturned
	require.NoError(t, store.UpdateItem(ctx, item))

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "茶色い財布", got.Name)
	assert.Equal(t, "革製", got.Features)
	assert.Equal(t, model.StatusReturned, got.Status)

	err = store.UpdateItem(ctx, testItem("missing"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteItem(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	item := testItem("25-06-20-11-01")
	require.NoError(t, store.SaveItem(ctx, item))
	require.NoError(t, store.SaveItemVector(ctx, item.ID, "stub@2", []float32{1, 0}))

	require.NoError(t, store.DeleteItem(ctx, item.ID))

	_, err := store.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	vectors, err := store.ItemVectors(ctx, "stub@2")
	require.NoError(t, err)
	assert.Empty(t, vectors, "deleting an item discards its stored embedding")

	err = store.DeleteItem(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateItemStatus(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	item := testItem("25-06-20-11-01")
	require.NoError(t, store.SaveItem(ctx, item))

	require.NoError(t, store.UpdateItemStatus(ctx, item.ID, model.StatusTransferred))
	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusTransferred, got.Status)

	err = store.UpdateItemStatus(ctx, "missing", model.StatusReturned)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMigrate_Idempotent(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}
