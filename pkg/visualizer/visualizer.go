// Package visualizer runs the full lifecycle of one paint-visualization
// request: mint a request identity, admit it against quota, fetch through
// the durable cache, and apply the result to visible state only if the
// request is still current when it completes.
package visualizer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/huetone-ai/huetone/pkg/cache"
	"github.com/huetone-ai/huetone/pkg/debounce"
	"github.com/huetone-ai/huetone/pkg/dispatch"
	"github.com/huetone-ai/huetone/pkg/history"
	"github.com/huetone-ai/huetone/pkg/imagehash"
	"github.com/huetone-ai/huetone/pkg/models"
	"github.com/huetone-ai/huetone/pkg/quota"
)

// ErrInvalidArtifact marks a fetch result that failed the sanity check.
// Treated as a fetch failure: surfaced to the user, quota rolled back.
var ErrInvalidArtifact = errors.New("artifact failed validation")

// Option configures a Service.
type Option func(*Service)

// WithDebounce sets the quiet interval for Trigger bursts.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		s.deb = debounce.New(d)
	}
}

// WithHistory records request outcomes to the given logger.
func WithHistory(l *history.Logger) Option {
	return func(s *Service) {
		s.history = l
	}
}

// WithMinArtifactBytes sets the sanity floor for fetched artifacts.
func WithMinArtifactBytes(n int) Option {
	return func(s *Service) {
		s.minArtifactBytes = n
	}
}

// Service coordinates visualization requests for one UI surface.
type Service struct {
	cache   *cache.Cache
	quota   *quota.Limiter
	coord   *dispatch.Coordinator
	deb     *debounce.Debouncer
	history *history.Logger

	minArtifactBytes int

	mu     sync.Mutex
	result models.Artifact
}

// New creates a Service over the given cache and limiter.
func New(c *cache.Cache, q *quota.Limiter, opts ...Option) *Service {
	s := &Service{
		cache: c,
		quota: q,
		coord: dispatch.New(),
		deb:   debounce.New(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadImage admits a new photo against the unique-image quota and
// returns its hash for subsequent Visualize calls.
func (s *Service) UploadImage(payload []byte) (string, models.Decision) {
	hash := imagehash.Hash(payload)
	return hash, s.quota.RecordImageUpload(hash)
}

// Visualize runs one request synchronously: admission, optimistic quota
// record, cached fetch, and last-request-wins application of the result.
// Returns dispatch.ErrSuperseded (silently discardable) when a newer
// trigger retired this one, *quota.DeniedError on quota denial, and the
// fetch error otherwise.
func (s *Service) Visualize(ctx context.Context, payload []byte, colorHex string, fetch cache.Fetcher) (models.Artifact, error) {
	imgHash := imagehash.Hash(payload)
	tok := s.begin(imgHash, colorHex)
	return s.run(ctx, tok, imgHash, colorHex, fetch)
}

// Trigger is the debounced entry point for rapid UI events. The request
// identity is minted and the previous result cleared immediately; the
// network/cache call itself only proceeds for the last trigger in a burst.
// done, if non-nil, receives the terminal outcome.
func (s *Service) Trigger(ctx context.Context, payload []byte, colorHex string, fetch cache.Fetcher, done func(models.Artifact, error)) {
	imgHash := imagehash.Hash(payload)
	tok := s.begin(imgHash, colorHex)
	s.deb.Do(func() {
		art, err := s.run(ctx, tok, imgHash, colorHex, fetch)
		if done != nil {
			done(art, err)
		}
	})
}

// begin makes this request current and clears the previous visible result
// as instant feedback that a new computation superseded the old.
func (s *Service) begin(imgHash, colorHex string) dispatch.Token {
	tok := s.coord.Begin(dispatch.RequestID(imgHash, colorHex))
	s.setResult(nil)
	return tok
}

func (s *Service) run(ctx context.Context, tok dispatch.Token, imgHash, colorHex string, fetch cache.Fetcher) (models.Artifact, error) {
	start := time.Now()
	color := imagehash.NormalizeColor(colorHex)

	if err := tok.Checkpoint(); err != nil {
		return nil, err
	}

	if d := s.quota.Check(); !d.Allowed {
		s.record(ctx, tok, imgHash, color, models.OutcomeDenied, d.Reason, false, start)
		return nil, &quota.DeniedError{Decision: d}
	}

	// Optimistic: count the request before dispatch, roll back on failure.
	s.quota.RecordVisualization()

	key := imagehash.Key("visualize", imgHash, imagehash.Hash([]byte(color)))
	fetched := false
	art, err := s.cache.GetOrSet(ctx, key, func(ctx context.Context) (models.Artifact, error) {
		// A superseded request aborts before spending remote quota.
		if err := tok.Checkpoint(); err != nil {
			return nil, err
		}
		fetched = true
		art, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		// Validate before caching so a malformed artifact is never replayed.
		if len(art) < s.minArtifactBytes {
			return nil, fmt.Errorf("%w (%d bytes)", ErrInvalidArtifact, len(art))
		}
		return art, nil
	})

	switch {
	case errors.Is(err, dispatch.ErrSuperseded):
		// Silent discard. The remote call, if it ran, already consumed
		// external cost; the local quota charge stands.
		s.record(ctx, tok, imgHash, color, models.OutcomeSuperseded, "", !fetched, start)
		return nil, dispatch.ErrSuperseded
	case err != nil:
		s.quota.RollbackVisualization()
		s.record(ctx, tok, imgHash, color, models.OutcomeFailed, err.Error(), false, start)
		return nil, fmt.Errorf("visualize: %w", err)
	}

	// Last-request-wins: only a still-current request touches visible state.
	if !tok.Valid() {
		s.record(ctx, tok, imgHash, color, models.OutcomeSuperseded, "", !fetched, start)
		return nil, dispatch.ErrSuperseded
	}

	s.setResult(art)
	s.record(ctx, tok, imgHash, color, models.OutcomeSucceeded, "", !fetched, start)
	return art, nil
}

// Result returns the currently applied visualization, or nil when a new
// request is in flight or the session was reset.
func (s *Service) Result() models.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// ResetSession invalidates the current request and clears visible state
// (new photo, explicit reset).
func (s *Service) ResetSession() {
	s.deb.Stop()
	s.coord.Reset()
	s.setResult(nil)
}

func (s *Service) setResult(art models.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = art
}

func (s *Service) record(ctx context.Context, tok dispatch.Token, imgHash, color, outcome, detail string, cached bool, start time.Time) {
	if s.history == nil {
		return
	}
	err := s.history.Log(ctx, models.HistoryEntry{
		RequestID: tok.ID(),
		ImageHash: imgHash,
		Color:     color,
		Outcome:   outcome,
		Detail:    detail,
		Cached:    cached,
		LatencyMs: time.Since(start).Milliseconds(),
	})
	if err != nil {
		log.Printf("visualizer: history log failed: %v", err)
	}
}
