package visualizer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huetone-ai/huetone/pkg/cache"
	"github.com/huetone-ai/huetone/pkg/dispatch"
	"github.com/huetone-ai/huetone/pkg/models"
	"github.com/huetone-ai/huetone/pkg/quota"
)

func newTestService(t *testing.T, limits quota.Limits, opts ...Option) (*Service, *quota.Limiter) {
	t.Helper()
	c := cache.New(filepath.Join(t.TempDir(), "cache.db"), time.Hour)
	t.Cleanup(func() { _ = c.Close() })
	l := quota.New(limits, nil, nil)
	return New(c, l, opts...), l
}

func openLimits() quota.Limits {
	return quota.Limits{Daily: 7, Hourly: 7, MaxUniqueImages: 3}
}

func countingFetcher(result string, calls *atomic.Int64) cache.Fetcher {
	return func(ctx context.Context) (models.Artifact, error) {
		calls.Add(1)
		return models.Artifact(result), nil
	}
}

func TestVisualizeCachesRepeatRequests(t *testing.T) {
	s, _ := newTestService(t, openLimits())
	ctx := context.Background()
	payload := []byte("encoded-wall-photo")
	var calls atomic.Int64

	v1, err := s.Visualize(ctx, payload, "#ff0000", countingFetcher("red-wall", &calls))
	if err != nil {
		t.Fatal(err)
	}
	v2, err := s.Visualize(ctx, payload, "#FF0000", countingFetcher("red-wall-again", &calls))
	if err != nil {
		t.Fatal(err)
	}

	if calls.Load() != 1 {
		t.Errorf("expected repeat color to hit the cache, got %d fetches", calls.Load())
	}
	if string(v1) != "red-wall" || string(v2) != "red-wall" {
		t.Errorf("expected cached artifact, got %q and %q", v1, v2)
	}
}

func TestLastRequestWins(t *testing.T) {
	s, _ := newTestService(t, openLimits())
	ctx := context.Background()
	payload := []byte("encoded-wall-photo")

	started := make(chan struct{})
	block := make(chan struct{})
	var slowErr error
	var wg sync.WaitGroup

	// R1: slow red visualization.
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, slowErr = s.Visualize(ctx, payload, "#ff0000", func(ctx context.Context) (models.Artifact, error) {
			close(started)
			<-block
			return models.Artifact("red-slow"), nil
		})
	}()
	<-started

	// R2: fast green visualization, completes first.
	got, err := s.Visualize(ctx, payload, "#00ff00", func(ctx context.Context) (models.Artifact, error) {
		return models.Artifact("green-fast"), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "green-fast" {
		t.Fatalf("unexpected R2 artifact %q", got)
	}

	// R1's late completion must not overwrite R2's displayed result.
	close(block)
	wg.Wait()

	if !errors.Is(slowErr, dispatch.ErrSuperseded) {
		t.Errorf("expected R1 to end superseded, got %v", slowErr)
	}
	if string(s.Result()) != "green-fast" {
		t.Errorf("late R1 result overwrote visible state: %q", s.Result())
	}
}

func TestFetchFailureRollsBackQuota(t *testing.T) {
	s, l := newTestService(t, openLimits())
	ctx := context.Background()
	before := l.Status().DailyRemaining

	_, err := s.Visualize(ctx, []byte("photo"), "#ff0000", func(ctx context.Context) (models.Artifact, error) {
		return nil, errors.New("service exploded")
	})
	if err == nil {
		t.Fatal("expected fetch error to surface")
	}

	if after := l.Status().DailyRemaining; after != before {
		t.Errorf("quota not rolled back: %d != %d", after, before)
	}
	if s.Result() != nil {
		t.Error("failed request must not apply a result")
	}
}

func TestInvalidArtifactTreatedAsFetchFailure(t *testing.T) {
	s, l := newTestService(t, openLimits(), WithMinArtifactBytes(100))
	ctx := context.Background()
	before := l.Status().DailyRemaining
	var calls atomic.Int64

	_, err := s.Visualize(ctx, []byte("photo"), "#ff0000", countingFetcher("tiny", &calls))
	if !errors.Is(err, ErrInvalidArtifact) {
		t.Fatalf("expected ErrInvalidArtifact, got %v", err)
	}
	if after := l.Status().DailyRemaining; after != before {
		t.Errorf("quota not rolled back after validation failure: %d != %d", after, before)
	}

	// The rejected artifact must not have been cached.
	_, err = s.Visualize(ctx, []byte("photo"), "#ff0000", countingFetcher("tiny", &calls))
	if !errors.Is(err, ErrInvalidArtifact) {
		t.Fatalf("expected ErrInvalidArtifact on retry, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected retry to refetch, got %d fetches", calls.Load())
	}
}

func TestQuotaDenialSurfacesWithoutFetching(t *testing.T) {
	limits := openLimits()
	limits.Daily = 1
	s, _ := newTestService(t, limits)
	ctx := context.Background()
	var calls atomic.Int64

	if _, err := s.Visualize(ctx, []byte("photo"), "#ff0000", countingFetcher("first", &calls)); err != nil {
		t.Fatal(err)
	}

	_, err := s.Visualize(ctx, []byte("photo"), "#00ff00", countingFetcher("second", &calls))
	var denied *quota.DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected DeniedError, got %v", err)
	}
	if denied.Decision.DailyRemaining != 0 {
		t.Errorf("expected 0 remaining in denial, got %d", denied.Decision.DailyRemaining)
	}
	if calls.Load() != 1 {
		t.Errorf("denied request must not fetch, got %d fetches", calls.Load())
	}
}

func TestTriggerDebounceCollapsesBurst(t *testing.T) {
	s, l := newTestService(t, openLimits(), WithDebounce(30*time.Millisecond))
	ctx := context.Background()
	payload := []byte("photo")
	var calls atomic.Int64
	done := make(chan struct{})

	colors := []string{"#ff0000", "#00ff00", "#0000ff"}
	for i, c := range colors {
		var cb func(models.Artifact, error)
		if i == len(colors)-1 {
			cb = func(models.Artifact, error) { close(done) }
		}
		s.Trigger(ctx, payload, c, countingFetcher("artifact-"+c, &calls), cb)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced trigger never completed")
	}

	if calls.Load() != 1 {
		t.Errorf("expected burst to collapse to 1 fetch, got %d", calls.Load())
	}
	if got := l.Status().DailyRemaining; got != 6 {
		t.Errorf("expected 1 unit of quota consumed, got %d remaining", got)
	}
	if string(s.Result()) != "artifact-#0000ff" {
		t.Errorf("expected last color's artifact, got %q", s.Result())
	}
}

func TestTriggerWithoutDebounceRunsEachCall(t *testing.T) {
	s, _ := newTestService(t, openLimits())
	ctx := context.Background()
	payload := []byte("photo")
	var calls atomic.Int64

	// Zero debounce runs inline: every trigger reaches the fetcher, which
	// is the documented cost of rapid-fire clicking without the debouncer.
	for _, c := range []string{"#ff0000", "#00ff00", "#0000ff"} {
		s.Trigger(ctx, payload, c, countingFetcher("artifact", &calls), nil)
	}

	if calls.Load() != 3 {
		t.Errorf("expected 3 fetches without debounce, got %d", calls.Load())
	}
}

func TestUploadImageQuota(t *testing.T) {
	s, _ := newTestService(t, openLimits())

	h1, d := s.UploadImage([]byte("photo-one"))
	if !d.Allowed || h1 == "" {
		t.Fatalf("first upload denied: %+v", d)
	}
	// Same photo again is free.
	h2, d := s.UploadImage([]byte("photo-one"))
	if !d.Allowed || h2 != h1 {
		t.Errorf("repeat upload should be admitted with same hash: %q vs %q", h1, h2)
	}

	s.UploadImage([]byte("photo-two"))
	s.UploadImage([]byte("photo-three"))
	if _, d := s.UploadImage([]byte("photo-four")); d.Allowed {
		t.Error("expected denial past unique-image limit")
	}
}

func TestResetSessionClearsState(t *testing.T) {
	s, _ := newTestService(t, openLimits())
	ctx := context.Background()

	if _, err := s.Visualize(ctx, []byte("photo"), "#ff0000", func(ctx context.Context) (models.Artifact, error) {
		return models.Artifact("applied"), nil
	}); err != nil {
		t.Fatal(err)
	}
	if s.Result() == nil {
		t.Fatal("expected applied result")
	}

	s.ResetSession()
	if s.Result() != nil {
		t.Error("expected cleared result after session reset")
	}
}
