package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/huetone-ai/huetone/pkg/models"
)

const createQuotaTable = `
CREATE TABLE IF NOT EXISTS quota_state (
	fingerprint TEXT PRIMARY KEY,
	state TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// SQLiteStore is the secondary backend, keyed by device fingerprint so a
// cleared primary store can be detected and repopulated.
type SQLiteStore struct {
	db          *sql.DB
	fingerprint string
}

// NewSQLite opens the mirror database at path for the given fingerprint.
func NewSQLite(path, fingerprint string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open quota mirror: %w", err)
	}

	if _, err := db.Exec(createQuotaTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate quota mirror: %w", err)
	}

	return &SQLiteStore{db: db, fingerprint: fingerprint}, nil
}

// Load returns the stored state for this fingerprint, or nil when absent.
func (s *SQLiteStore) Load(ctx context.Context) (*models.RateLimitState, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM quota_state WHERE fingerprint = ?`, s.fingerprint,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load quota mirror: %w", err)
	}

	var state models.RateLimitState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode quota mirror: %w", err)
	}
	return &state, nil
}

// Save overwrites the stored state for this fingerprint.
func (s *SQLiteStore) Save(ctx context.Context, state *models.RateLimitState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode quota mirror: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO quota_state (fingerprint, state, updated_at) VALUES (?, ?, ?)`,
		s.fingerprint, string(raw), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save quota mirror: %w", err)
	}
	return nil
}

// Clear removes the stored state for this fingerprint.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM quota_state WHERE fingerprint = ?`, s.fingerprint)
	if err != nil {
		return fmt.Errorf("clear quota mirror: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
