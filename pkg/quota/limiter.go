// Package quota gates visualization requests by daily count, hourly count,
// per-image uniqueness and a progressive cooldown. State is persisted to a
// primary key-value store and mirrored to a fingerprint-keyed secondary so
// that clearing one store does not reset quotas.
package quota

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/huetone-ai/huetone/pkg/models"
	"github.com/huetone-ai/huetone/pkg/quota/store"
)

// Limits configures the session rate limiter.
type Limits struct {
	Daily           int
	Hourly          int
	MinCooldown     time.Duration
	CooldownStep    time.Duration
	MaxCooldown     time.Duration
	MaxUniqueImages int
}

// DeniedError carries an admission denial through error-returning paths.
// Denials are expected outcomes, not failures; callers surface the reason
// and wait time to the user.
type DeniedError struct {
	Decision models.Decision
}

func (e *DeniedError) Error() string {
	return e.Decision.Reason
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// Limiter tracks quota state for one device. All methods are safe for
// concurrent use; each check-or-record operation reads, mutates and
// persists state under one lock with no suspension in between.
type Limiter struct {
	limits    Limits
	primary   store.Store
	secondary store.Store
	now       func() time.Time

	mu    sync.Mutex
	state *models.RateLimitState
}

// New creates a Limiter and runs the reconciliation pass: if the primary
// store is empty but the secondary holds state, the secondary is treated
// as authoritative and repopulates the primary. Either store may be nil.
// Storage failures leave the limiter in a freshly initialized, permissive
// state rather than failing construction.
func New(limits Limits, primary, secondary store.Store, opts ...Option) *Limiter {
	l := &Limiter{
		limits:    limits,
		primary:   primary,
		secondary: secondary,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.restore()
	return l
}

func (l *Limiter) restore() {
	ctx := context.Background()

	var primaryState, secondaryState *models.RateLimitState
	if l.primary != nil {
		st, err := l.primary.Load(ctx)
		if err != nil {
			log.Printf("quota: primary load failed: %v", err)
		} else {
			primaryState = st
		}
	}
	if l.secondary != nil {
		st, err := l.secondary.Load(ctx)
		if err != nil {
			log.Printf("quota: secondary load failed: %v", err)
		} else {
			secondaryState = st
		}
	}

	switch {
	case primaryState.Empty() && !secondaryState.Empty():
		// Primary was cleared; the mirror is authoritative.
		l.state = secondaryState
		if l.primary != nil {
			if err := l.primary.Save(ctx, secondaryState); err != nil {
				log.Printf("quota: primary repopulate failed: %v", err)
			}
		}
	case primaryState != nil:
		l.state = primaryState
	default:
		l.state = &models.RateLimitState{}
	}
}

// Check performs a read-only admission check in fixed order: cooldown,
// then daily limit, then hourly limit. It never consumes quota.
func (l *Limiter) Check() models.Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	l.applyResets(now)
	st := l.state
	untilReset := nextMidnight(now).Sub(now)

	if now.Before(st.CooldownUntil) {
		wait := st.CooldownUntil.Sub(now)
		return models.Decision{
			Allowed:             false,
			Reason:              fmt.Sprintf("Please wait %d seconds before your next visualization.", ceilSeconds(wait)),
			WaitTime:            wait,
			DailyRemaining:      remaining(l.limits.Daily, st.Daily.Count),
			HourlyRemaining:     remaining(l.limits.Hourly, st.Hourly.Count),
			TimeUntilDailyReset: untilReset,
		}
	}

	if st.Daily.Count >= l.limits.Daily {
		return models.Decision{
			Allowed:             false,
			Reason:              fmt.Sprintf("Daily limit reached (%d/%d). Quota resets at midnight UTC.", st.Daily.Count, l.limits.Daily),
			WaitTime:            untilReset,
			DailyRemaining:      0,
			HourlyRemaining:     remaining(l.limits.Hourly, st.Hourly.Count),
			TimeUntilDailyReset: untilReset,
		}
	}

	if st.Hourly.Count >= l.limits.Hourly {
		wait := nextHour(now).Sub(now)
		return models.Decision{
			Allowed:             false,
			Reason:              fmt.Sprintf("Hourly limit reached (%d/%d). Try again in %d seconds.", st.Hourly.Count, l.limits.Hourly, ceilSeconds(wait)),
			WaitTime:            wait,
			DailyRemaining:      remaining(l.limits.Daily, st.Daily.Count),
			HourlyRemaining:     0,
			TimeUntilDailyReset: untilReset,
		}
	}

	return models.Decision{
		Allowed:             true,
		DailyRemaining:      remaining(l.limits.Daily, st.Daily.Count),
		HourlyRemaining:     remaining(l.limits.Hourly, st.Hourly.Count),
		TimeUntilDailyReset: untilReset,
	}
}

// RecordVisualization counts one admitted, dispatched request against the
// daily and hourly windows and arms the progressive cooldown. Call exactly
// once per admitted request; pair with RollbackVisualization on fetch
// failure.
func (l *Limiter) RecordVisualization() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	l.applyResets(now)
	st := l.state

	st.Daily.Count++
	st.Hourly.Count++
	st.Hourly.Requests = append(st.Hourly.Requests, now)
	st.LastRequest = now
	st.CooldownUntil = now.Add(l.Cooldown(st.Daily.Count))

	l.persist()
}

// RollbackVisualization undoes the most recent RecordVisualization so a
// failed fetch does not charge the user. The attempt was admitted, so any
// earlier cooldown had already lapsed; clearing the one armed by this
// attempt cannot unshield an older one.
func (l *Limiter) RollbackVisualization() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	l.applyResets(now)
	st := l.state

	if st.Daily.Count > 0 {
		st.Daily.Count--
	}
	if st.Hourly.Count > 0 {
		st.Hourly.Count--
		if n := len(st.Hourly.Requests); n > 0 {
			st.Hourly.Requests = st.Hourly.Requests[:n-1]
		}
	}
	st.CooldownUntil = time.Time{}

	l.persist()
}

// RecordImageUpload admits an image against the daily unique-image quota.
// Repeat uploads of a hash already seen today are admitted for free.
func (l *Limiter) RecordImageUpload(imageHash string) models.Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	l.applyResets(now)
	st := l.state

	if st.HasImage(imageHash) {
		return models.Decision{Allowed: true}
	}
	if len(st.Images) >= l.limits.MaxUniqueImages {
		return models.Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("Daily unique image limit reached (%d/%d). Try a photo you already uploaded, or come back tomorrow.", len(st.Images), l.limits.MaxUniqueImages),
		}
	}

	st.Images = append(st.Images, imageHash)
	l.persist()
	return models.Decision{Allowed: true}
}

// Status returns a polling-friendly snapshot for countdown UI.
func (l *Limiter) Status() models.QuotaStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	l.applyResets(now)
	st := l.state

	return models.QuotaStatus{
		DailyRemaining:      remaining(l.limits.Daily, st.Daily.Count),
		HourlyRemaining:     remaining(l.limits.Hourly, st.Hourly.Count),
		CooldownUntil:       st.CooldownUntil,
		TimeUntilDailyReset: nextMidnight(now).Sub(now),
	}
}

// Cooldown returns the enforced pause after the nth request of the day:
// MinCooldown plus one CooldownStep per prior request, capped at
// MaxCooldown. Monotonically non-decreasing in n.
func (l *Limiter) Cooldown(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	d := l.limits.MinCooldown + time.Duration(n-1)*l.limits.CooldownStep
	if d > l.limits.MaxCooldown {
		d = l.limits.MaxCooldown
	}
	return d
}

// Reset clears all quota state from both stores. Administrative use only.
func (l *Limiter) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = &models.RateLimitState{}
	if l.primary != nil {
		if err := l.primary.Clear(ctx); err != nil {
			return fmt.Errorf("reset primary: %w", err)
		}
	}
	if l.secondary != nil {
		if err := l.secondary.Clear(ctx); err != nil {
			return fmt.Errorf("reset secondary: %w", err)
		}
	}
	return nil
}

// Close releases both stores.
func (l *Limiter) Close() error {
	var first error
	if l.primary != nil {
		if err := l.primary.Close(); err != nil {
			first = err
		}
	}
	if l.secondary != nil {
		if err := l.secondary.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// applyResets rolls the daily and hourly windows forward lazily. Callers
// hold l.mu.
func (l *Limiter) applyResets(now time.Time) {
	today := now.Format("2006-01-02")
	if l.state.Daily.Date != today {
		l.state.Daily = models.DailyWindow{Date: today, LastReset: now}
		l.state.Images = nil
	}
	if !l.state.Hourly.Window.Equal(now.Truncate(time.Hour)) {
		l.state.Hourly = models.HourlyWindow{Window: now.Truncate(time.Hour)}
	}
}

// persist writes state to both backends. Failures are logged and absorbed:
// the limiter degrades to permissive rather than blocking the caller.
// Callers hold l.mu.
func (l *Limiter) persist() {
	ctx := context.Background()
	if l.primary != nil {
		if err := l.primary.Save(ctx, l.state); err != nil {
			log.Printf("quota: primary save failed: %v", err)
		}
	}
	if l.secondary != nil {
		if err := l.secondary.Save(ctx, l.state); err != nil {
			log.Printf("quota: secondary save failed: %v", err)
		}
	}
}

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}

func ceilSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

func nextMidnight(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

func nextHour(now time.Time) time.Time {
	return now.Truncate(time.Hour).Add(time.Hour)
}
