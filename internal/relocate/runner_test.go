package relocate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeonglab2/lost-items-desktop/internal/model"
	"github.com/jeonglab2/lost-items-desktop/internal/service"
)

// stubStorage is an in-memory Storage for runner tests.
type stubStorage struct {
	items      map[string]*model.Item
	updateErrs map[string]error
	updates    []string
}

func newStubStorage(items ...model.Item) *stubStorage {
	s := &stubStorage{
		items:      make(map[string]*model.Item),
		updateErrs: make(map[string]error),
	}
	for i := range items {
		item := items[i]
		s.items[item.ID] = &item
	}
	return s
}

func (s *stubStorage) SaveItem(_ context.Context, item *model.Item) error {
	s.items[item.ID] = item
	return nil
}

func (s *stubStorage) GetItem(_ context.Context, id string) (*model.Item, error) {
	return s.items[id], nil
}

func (s *stubStorage) ListItems(_ context.Context, _ service.ItemFilter) ([]model.Item, error) {
	return s.snapshot(), nil
}

func (s *stubStorage) GetItemsInStorage(_ context.Context) ([]model.Item, error) {
	return s.snapshot(), nil
}

func (s *stubStorage) UpdateItem(_ context.Context, item *model.Item) error {
	s.items[item.ID] = item
	return nil
}

func (s *stubStorage) DeleteItem(_ context.Context, itemID string) error {
	delete(s.items, itemID)
	return nil
}

func (s *stubStorage) UpdateStorageLocation(_ context.Context, itemID, location string) error {
	if err := s.updateErrs[itemID]; err != nil {
		return err
	}
	s.items[itemID].StorageLocation = location
	s.updates = append(s.updates, itemID)
	return nil
}

func (s *stubStorage) UpdateItemStatus(_ context.Context, itemID string, status model.ItemStatus) error {
	s.items[itemID].Status = status
	return nil
}

func (s *stubStorage) Migrate(_ context.Context) error { return nil }
func (s *stubStorage) Close() error                    { return nil }

func (s *stubStorage) snapshot() []model.Item {
	out := make([]model.Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, *item)
	}
	return out
}

func TestRunner_Run(t *testing.T) {
	store := newStubStorage(
		storedItem("a", "25-06-20-01"),
		storedItem("b", "25-06-20-umb"),
	)
	runner := NewRunner(store, NewScheduler(), filepath.Join(t.TempDir(), "relocate.lock"))

	report, err := runner.Run(context.Background(), pastDwell)
	require.NoError(t, err)

	require.Len(t, report.Moves, 1)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, "25-06-20-01-01", store.items["a"].StorageLocation)
	assert.Equal(t, "25-06-20-umb", store.items["b"].StorageLocation)
}

func TestRunner_FailedMoveRecordedNotFatal(t *testing.T) {
	store := newStubStorage(
		storedItem("a", "25-06-20-01"),
		storedItem("b", "25-06-20-02"),
	)
	store.updateErrs["a"] = errors.New("disk full")
	runner := NewRunner(store, NewScheduler(), filepath.Join(t.TempDir(), "relocate.lock"))

	report, err := runner.Run(context.Background(), pastDwell)
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "a", report.Failures[0].ItemID)
	require.Len(t, report.Moves, 1)
	assert.Equal(t, "b", report.Moves[0].ItemID)
	assert.Equal(t, "25-06-20-02-02", store.items["b"].StorageLocation)
}

func TestRunner_RefusesConcurrentRun(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "relocate.lock")
	store := newStubStorage()

	first := NewRunner(store, NewScheduler(), lockPath)
	require.NoError(t, first.lock.Lock())
	defer func() { _ = first.lock.Unlock() }()

	second := NewRunner(store, NewScheduler(), lockPath)
	_, err := second.Run(context.Background(), pastDwell)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestRunner_ReleasesLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "relocate.lock")
	store := newStubStorage()
	runner := NewRunner(store, NewScheduler(), lockPath)

	_, err := runner.Run(context.Background(), pastDwell)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), pastDwell)
	assert.NoError(t, err, "a finished batch must release the run lock")
}
