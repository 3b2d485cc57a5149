package dispatch

import (
	"errors"
	"testing"
)

func TestRequestID(t *testing.T) {
	if got := RequestID("abc123", "#FF8800"); got != "abc123_ff8800" {
		t.Errorf("unexpected request id %q", got)
	}
}

func TestBeginRetiresPrevious(t *testing.T) {
	c := New()

	t1 := c.Begin(RequestID("img", "aa0000"))
	if !t1.Valid() {
		t.Fatal("fresh token should be valid")
	}

	t2 := c.Begin(RequestID("img", "bb0000"))
	if t1.Valid() {
		t.Error("earlier token must be retired by a newer Begin")
	}
	if !t2.Valid() {
		t.Error("latest token must be valid")
	}
	if c.Current() != "img_bb0000" {
		t.Errorf("unexpected current id %q", c.Current())
	}
}

func TestCheckpoint(t *testing.T) {
	c := New()

	t1 := c.Begin("img_aa0000")
	if err := t1.Checkpoint(); err != nil {
		t.Fatalf("current token checkpoint failed: %v", err)
	}

	c.Begin("img_bb0000")
	if err := t1.Checkpoint(); !errors.Is(err, ErrSuperseded) {
		t.Errorf("expected ErrSuperseded, got %v", err)
	}
}

func TestSameIDNewGenerationRetiresOld(t *testing.T) {
	// Re-triggering the identical request still retires the earlier flow;
	// identity equality is not enough, the generation must match.
	c := New()
	t1 := c.Begin("img_aa0000")
	t2 := c.Begin("img_aa0000")

	if t1.Valid() {
		t.Error("old generation must be invalid even for the same id")
	}
	if !t2.Valid() {
		t.Error("new generation must be valid")
	}
}

func TestResetInvalidatesUnconditionally(t *testing.T) {
	c := New()
	tok := c.Begin("img_aa0000")

	c.Reset()
	if tok.Valid() {
		t.Error("token must be invalid after Reset")
	}
	if c.Current() != "" {
		t.Errorf("expected empty current after Reset, got %q", c.Current())
	}
}

func TestZeroTokenInvalid(t *testing.T) {
	var tok Token
	if tok.Valid() {
		t.Error("zero token must not validate")
	}
}
