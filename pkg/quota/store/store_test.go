package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/huetone-ai/huetone/pkg/models"
)

func testState() *models.RateLimitState {
	return &models.RateLimitState{
		Daily:  models.DailyWindow{Date: "2026-08-24", Count: 3},
		Hourly: models.HourlyWindow{Window: time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC), Count: 2},
		Images: []string{"hash1", "hash2"},
	}
}

func roundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("expected nil state before first save")
	}

	if err := s.Save(ctx, testState()); err != nil {
		t.Fatal(err)
	}

	got, err = s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected state after save")
	}
	if got.Daily.Count != 3 || got.Daily.Date != "2026-08-24" {
		t.Errorf("daily window lost: %+v", got.Daily)
	}
	if len(got.Images) != 2 {
		t.Errorf("image set lost: %v", got.Images)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	got, err = s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("expected nil state after clear")
	}
}

func TestBoltRoundTrip(t *testing.T) {
	s, err := NewBolt(filepath.Join(t.TempDir(), "quota.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	roundTrip(t, s)
}

func TestSQLiteRoundTrip(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "mirror.db"), "fp-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	roundTrip(t, s)
}

func TestSQLiteIsolatesFingerprints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")
	ctx := context.Background()

	s1, err := NewSQLite(path, "fp-one")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s1.Close() })
	s2, err := NewSQLite(path, "fp-two")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s2.Close() })

	if err := s1.Save(ctx, testState()); err != nil {
		t.Fatal(err)
	}

	got, err := s2.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("state leaked across fingerprints")
	}
}
