// Package dispatch tracks which visualization request is current and
// discards results from superseded ones. Each trigger mints a request
// identity and a generation token; in-flight flows re-validate the token
// at every suspension point, so a later-issued request always wins on
// visible state regardless of completion order.
package dispatch

import (
	"errors"
	"sync"

	"github.com/huetone-ai/huetone/pkg/imagehash"
)

// ErrSuperseded signals that a newer request replaced this one mid-flight.
// It is a silent no-op for the user: never surfaced, never rolled back
// against quota.
var ErrSuperseded = errors.New("request superseded")

// RequestID builds the transient identity "<imageHash>_<normalizedColor>".
func RequestID(imageHash, colorHex string) string {
	return imageHash + "_" + imagehash.NormalizeColor(colorHex)
}

// Coordinator owns the "current request" slot for one UI surface.
type Coordinator struct {
	mu      sync.Mutex
	current string
	gen     uint64
}

// New creates a Coordinator with no current request.
func New() *Coordinator {
	return &Coordinator{}
}

// Begin makes id the current request, retiring any previous one, and
// returns the token in-flight code uses to re-validate itself.
func (c *Coordinator) Begin(id string) Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.current = id
	return Token{c: c, id: id, gen: c.gen}
}

// Reset invalidates the current request unconditionally (new photo,
// explicit session reset).
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.current = ""
}

// Current returns the current request identity, or "" when none is active.
func (c *Coordinator) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Token identifies one issued request. Compare it against the coordinator
// before and after each suspension point.
type Token struct {
	c   *Coordinator
	id  string
	gen uint64
}

// ID returns the request identity the token was minted for.
func (t Token) ID() string {
	return t.id
}

// Valid reports whether the token still identifies the current request.
func (t Token) Valid() bool {
	if t.c == nil {
		return false
	}
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	return t.gen == t.c.gen
}

// Checkpoint returns ErrSuperseded when the token is stale, nil otherwise.
func (t Token) Checkpoint() error {
	if t.Valid() {
		return nil
	}
	return ErrSuperseded
}
