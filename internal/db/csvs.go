package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CSVFile is an uploaded CSV kept around for model creation.
type CSVFile struct {
	ID         uuid.UUID `json:"id"`
	Filename   string    `json:"filename"`
	Content    string    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// SaveCSV stores an uploaded CSV for the user and returns its ID.
func (db *DB) SaveCSV(ctx context.Context, userID, filename, content string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.pool.Exec(ctx,
		`INSERT INTO csvs (id, user_id, filename, content) VALUES ($1, $2, $3, $4)`,
		id, userID, filename, content,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save CSV: %w", err)
	}
	return id, nil
}

// GetCSV loads one of the user's CSVs, content included. Returns nil when
// it does not exist or belongs to someone else.
func (db *DB) GetCSV(ctx context.Context, userID string, id uuid.UUID) (*CSVFile, error) {
	var f CSVFile
	err := db.pool.QueryRow(ctx,
		`SELECT id, filename, content, uploaded_at FROM csvs
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&f.ID, &f.Filename, &f.Content, &f.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load CSV: %w", err)
	}
	return &f, nil
}

// ListCSVs returns the user's uploaded CSVs without their contents, newest
// first.
func (db *DB) ListCSVs(ctx context.Context, userID string) ([]CSVFile, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, filename, uploaded_at FROM csvs
		 WHERE user_id = $1 ORDER BY uploaded_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list CSVs: %w", err)
	}
	defer rows.Close()

	var out []CSVFile
	for rows.Next() {
		var f CSVFile
		if err := rows.Scan(&f.ID, &f.Filename, &f.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan CSV row: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
