package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// StoredToken represents an API token stored in the database
type StoredToken struct {
	SourceID  string
	APIKey    string
	UpdatedAt time.Time
}

// SaveToken saves or updates an API token for a source
func (d *DB) SaveToken(ctx context.Context, sourceID, apiKey string) error {
	_, err := d.ExecContext(ctx, `
		INSERT INTO auth_tokens (source_id, token_data, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(source_id) DO UPDATE SET
			token_data = excluded.token_data,
			updated_at = CURRENT_TIMESTAMP
	`, sourceID, apiKey)
	if err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

// GetToken retrieves an API token for a source, or nil when none is stored
func (d *DB) GetToken(ctx context.Context, sourceID string) (*StoredToken, error) {
	var token StoredToken
	err := d.QueryRowContext(ctx, `
		SELECT source_id, token_data, updated_at FROM auth_tokens WHERE source_id = ?
	`, sourceID).Scan(&token.SourceID, &token.APIKey, &token.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}
	return &token, nil
}

// DeleteToken removes an API token for a source
func (d *DB) DeleteToken(ctx context.Context, sourceID string) error {
	if _, err := d.ExecContext(ctx, "DELETE FROM auth_tokens WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("deleting token: %w", err)
	}
	return nil
}
