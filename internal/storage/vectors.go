package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jeonglab2/lost-items-desktop/internal/service"
)

// Item vectors are stored as JSON arrays, the same shape the category
// vector file uses, so a row is inspectable with plain SQL tooling.

// SaveItemVector upserts the embedding for one item. A re-registration or an
// item update overwrites the previous vector.
func (s *SQLiteStorage) SaveItemVector(ctx context.Context, itemID, modelVersion string, vector []float32) error {
	if itemID == "" {
		return fmt.Errorf("storage: item ID is required")
	}
	if len(vector) == 0 {
		return fmt.Errorf("storage: vector for %s is empty", itemID)
	}

	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("storage: encode vector of %s: %w", itemID, err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO item_vectors (item_id, model_version, vector)
		VALUES (?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			model_version = excluded.model_version,
			vector = excluded.vector`,
		itemID, modelVersion, string(data))
	if err != nil {
		return fmt.Errorf("storage: save vector of %s: %w", itemID, err)
	}
	return nil
}

// ItemVectors returns every stored embedding computed by the given model
// version. Vectors from other model versions are stale and excluded.
func (s *SQLiteStorage) ItemVectors(ctx context.Context, modelVersion string) ([]service.ItemVector, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, vector FROM item_vectors WHERE model_version = ?`, modelVersion)
	if err != nil {
		return nil, fmt.Errorf("storage: list item vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var vectors []service.ItemVector
	for rows.Next() {
		var (
			iv   service.ItemVector
			data string
		)
		if err := rows.Scan(&iv.ItemID, &data); err != nil {
			return nil, fmt.Errorf("storage: scan item vector: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &iv.Vector); err != nil {
			return nil, fmt.Errorf("storage: decode vector of %s: %w", iv.ItemID, err)
		}
		vectors = append(vectors, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate item vectors: %w", err)
	}
	return vectors, nil
}
