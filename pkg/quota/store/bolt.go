package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/huetone-ai/huetone/pkg/models"
)

var (
	quotaBucket = []byte("quota")
	stateKey    = []byte("state")
)

// BoltStore is the primary fast key-value backend.
type BoltStore struct {
	db *bolt.DB
}

// NewBolt opens (or creates) the bbolt database at path.
func NewBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open quota store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(quotaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init quota bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Load returns the stored state, or nil when none exists.
func (s *BoltStore) Load(ctx context.Context) (*models.RateLimitState, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(quotaBucket).Get(stateKey); v != nil {
			raw = make([]byte, len(v))
			copy(raw, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load quota state: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	var state models.RateLimitState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode quota state: %w", err)
	}
	return &state, nil
}

// Save overwrites the stored state.
func (s *BoltStore) Save(ctx context.Context, state *models.RateLimitState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode quota state: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(quotaBucket).Put(stateKey, raw)
	})
	if err != nil {
		return fmt.Errorf("save quota state: %w", err)
	}
	return nil
}

// Clear removes the stored state.
func (s *BoltStore) Clear(ctx context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(quotaBucket).Delete(stateKey)
	})
	if err != nil {
		return fmt.Errorf("clear quota state: %w", err)
	}
	return nil
}

// Close releases the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
