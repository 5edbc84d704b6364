package queue

import (
	"testing"
	"time"
)

func TestFormatTimeOrdersLexically(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	a := base.Add(100 * time.Millisecond)
	b := base.Add(150 * time.Millisecond)

	fa, fb := formatTime(a), formatTime(b)
	if len(fa) != len(fb) {
		t.Fatalf("timestamps are not fixed width: %q vs %q", fa, fb)
	}
	// RFC3339Nano would render these as ".1Z" and ".15Z", which compare
	// in the wrong order as TEXT.
	if fa >= fb {
		t.Fatalf("timestamp text misorders: %q compares after %q", fa, fb)
	}

	parsed, err := parseTimeString(fa)
	if err != nil {
		t.Fatalf("parseTimeString: %v", err)
	}
	if !parsed.Equal(a) {
		t.Fatalf("round trip = %v, want %v", parsed, a)
	}
}
