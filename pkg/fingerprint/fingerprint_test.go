package fingerprint

import "testing"

func TestDeriveStable(t *testing.T) {
	f1 := Derive()
	f2 := Derive()

	if f1 != f2 {
		t.Errorf("fingerprint not stable: %s vs %s", f1, f2)
	}
	if len(f1) != 16 {
		t.Errorf("expected 16 hex chars, got %d", len(f1))
	}
	for _, r := range f1 {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			t.Errorf("unexpected character %q in fingerprint", r)
		}
	}
}
