package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeonglab2/lost-items-desktop/internal/common"
	"github.com/jeonglab2/lost-items-desktop/internal/model"
	"github.com/jeonglab2/lost-items-desktop/internal/service"
)

const itemColumns = `id, facility_id, found_at, accepted_at, found_place,
	category_large, category_medium, name, features, color,
	storage_location, status, claims_ownership, claims_reward,
	created_at, updated_at`

// SaveItem inserts a fully-formed item record. The ID must already be
// assigned; it is immutable, so a duplicate insert is an error.
func (s *SQLiteStorage) SaveItem(ctx context.Context, item *model.Item) error {
	if item == nil {
		return fmt.Errorf("storage: item is required")
	}
	if err := item.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO items (
		id, facility_id, found_at, accepted_at, found_place,
		category_large, category_medium, name, features, color,
		storage_location, status, claims_ownership, claims_reward,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.FacilityID, item.FoundAt, item.AcceptedAt, item.FoundPlace,
		item.CategoryLarge, item.CategoryMedium, item.Name, item.Features, item.Color,
		item.StorageLocation, string(item.Status), item.ClaimsOwnership, item.ClaimsReward,
		now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: item %s", common.ErrDuplicateEntry, item.ID)
		}
		return fmt.Errorf("storage: save item %s: %w", item.ID, err)
	}

	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

// GetItem returns the item with the given ID.
func (s *SQLiteStorage) GetItem(ctx context.Context, id string) (*model.Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: item %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get item %s: %w", id, err)
	}
	return item, nil
}

// ListItems returns items matching the filter, newest first.
func (s *SQLiteStorage) ListItems(ctx context.Context, filter service.ItemFilter) ([]model.Item, error) {
	var (
		conditions []string
		args       []any
	)

	for _, kw := range filter.Keywords {
		conditions = append(conditions, `(name LIKE ? OR features LIKE ?)`)
		pattern := "%" + kw + "%"
		args = append(args, pattern, pattern)
	}
	if filter.FoundPlace != "" {
		conditions = append(conditions, `found_place LIKE ?`)
		args = append(args, "%"+filter.FoundPlace+"%")
	}
	if filter.FoundFrom != nil {
		conditions = append(conditions, `found_at >= ?`)
		args = append(args, *filter.FoundFrom)
	}
	if filter.FoundTo != nil {
		conditions = append(conditions, `found_at <= ?`)
		args = append(args, *filter.FoundTo)
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectItems(rows)
}

// GetItemsInStorage returns every item still held at a facility; this is
// the item stream the relocation scheduler consumes.
func (s *SQLiteStorage) GetItemsInStorage(ctx context.Context) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE status = ? ORDER BY accepted_at`,
		string(model.StatusInStorage))
	if err != nil {
		return nil, fmt.Errorf("storage: items in storage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectItems(rows)
}

// UpdateItem rewrites every mutable field of an existing item. The ID is
// immutable and selects the row.
func (s *SQLiteStorage) UpdateItem(ctx context.Context, item *model.Item) error {
	if item == nil {
		return fmt.Errorf("storage: item is required")
	}
	if err := item.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `UPDATE items SET
		facility_id = ?, found_at = ?, accepted_at = ?, found_place = ?,
		category_large = ?, category_medium = ?, name = ?, features = ?, color = ?,
		storage_location = ?, status = ?, claims_ownership = ?, claims_reward = ?,
		updated_at = ?
		WHERE id = ?`,
		item.FacilityID, item.FoundAt, item.AcceptedAt, item.FoundPlace,
		item.CategoryLarge, item.CategoryMedium, item.Name, item.Features, item.Color,
		item.StorageLocation, string(item.Status), item.ClaimsOwnership, item.ClaimsReward,
		now, item.ID)
	if err != nil {
		return fmt.Errorf("storage: update item %s: %w", item.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: update item %s: %w", item.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: item %s", common.ErrNotFound, item.ID)
	}

	item.UpdatedAt = now
	return nil
}

// DeleteItem removes an item record together with its stored embedding.
func (s *SQLiteStorage) DeleteItem(ctx context.Context, itemID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("storage: delete item %s: %w", itemID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: delete item %s: %w", itemID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: item %s", common.ErrNotFound, itemID)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM item_vectors WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("storage: delete vector of %s: %w", itemID, err)
	}
	return nil
}

// UpdateStorageLocation rewrites one item's storage location.
func (s *SQLiteStorage) UpdateStorageLocation(ctx context.Context, itemID, location string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE items SET storage_location = ?, updated_at = ? WHERE id = ?`,
		location, time.Now().UTC(), itemID)
	if err != nil {
		return fmt.Errorf("storage: update location of %s: %w", itemID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: update location of %s: %w", itemID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: item %s", common.ErrNotFound, itemID)
	}
	return nil
}

// UpdateItemStatus records a custody change (returned, transferred).
func (s *SQLiteStorage) UpdateItemStatus(ctx context.Context, itemID string, status model.ItemStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), itemID)
	if err != nil {
		return fmt.Errorf("storage: update status of %s: %w", itemID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: update status of %s: %w", itemID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: item %s", common.ErrNotFound, itemID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	var (
		item   model.Item
		status string
	)
	err := row.Scan(
		&item.ID, &item.FacilityID, &item.FoundAt, &item.AcceptedAt, &item.FoundPlace,
		&item.CategoryLarge, &item.CategoryMedium, &item.Name, &item.Features, &item.Color,
		&item.StorageLocation, &status, &item.ClaimsOwnership, &item.ClaimsReward,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Status = model.ItemStatus(status)
	return &item, nil
}

func collectItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate items: %w", err)
	}
	return items, nil
}
