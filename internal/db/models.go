package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/contentlab/internal/types"
)

// marshalJSONArray marshals a slice, storing nil as an empty JSON array so
// reloads round-trip cleanly.
func marshalJSONArray(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return []byte("[]"), nil
	}
	return data, nil
}

// ModelSummary is the listing view of a model, without its item payload.
type ModelSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateModel stores a new model for the user and returns its ID.
func (db *DB) CreateModel(ctx context.Context, userID string, model *types.Model) (uuid.UUID, error) {
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}

	items, err := marshalJSONArray(model.Items)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal items: %w", err)
	}

	err = db.pool.QueryRow(ctx,
		`INSERT INTO models (id, user_id, name, base_url, url_column, items)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		model.ID, userID, model.Name, model.BaseURL, model.URLColumn, items,
	).Scan(&model.ID, &model.CreatedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create model: %w", err)
	}
	return model.ID, nil
}

// GetModel loads one of the user's models. Returns nil when the model does
// not exist or belongs to someone else.
func (db *DB) GetModel(ctx context.Context, userID string, id uuid.UUID) (*types.Model, error) {
	var (
		model       types.Model
		itemsJSON   []byte
		queriesJSON []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, base_url, url_column, last_scraped_id, items, queries, created_at
		 FROM models WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&model.ID, &model.Name, &model.BaseURL, &model.URLColumn,
		&model.LastScrapedID, &itemsJSON, &queriesJSON, &model.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &model.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	if err := json.Unmarshal(queriesJSON, &model.Queries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queries: %w", err)
	}
	return &model, nil
}

// ListModels returns summaries of the user's models, newest first.
func (db *DB) ListModels(ctx context.Context, userID string) ([]ModelSummary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, created_at FROM models
		 WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	var out []ModelSummary
	for rows.Next() {
		var s ModelSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan model row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveModel persists the mutable parts of a model after a job run: its
// items, query history, and scrape resume marker.
func (db *DB) SaveModel(ctx context.Context, userID string, model *types.Model) error {
	items, err := marshalJSONArray(model.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}
	queries, err := marshalJSONArray(model.Queries)
	if err != nil {
		return fmt.Errorf("failed to marshal queries: %w", err)
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE models SET items = $1, queries = $2, last_scraped_id = $3
		 WHERE id = $4 AND user_id = $5`,
		items, queries, model.LastScrapedID, model.ID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("model %s not found", model.ID)
	}
	return nil
}

// DeleteModel removes one of the user's models. Reports whether a row was
// actually deleted.
func (db *DB) DeleteModel(ctx context.Context, userID string, id uuid.UUID) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM models WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete model: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
