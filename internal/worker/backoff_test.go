package worker

import (
	"context"
	"testing"
	"time"

	"cadence/internal/testsupport"
)

func newBackoffWorker(t *testing.T) *Worker {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Worker.PollInterval = 2
	cfg.Worker.MaxIdleBackoff = 10
	cfg.Worker.ReconnectBase = 1
	cfg.Worker.ReconnectMax = 10
	return New(cfg, nil, nil, nil, nil, nil)
}

func TestIdleDelayGrowsAndSaturates(t *testing.T) {
	w := newBackoffWorker(t)

	var prev time.Duration
	for ticks := 1; ticks <= 20; ticks++ {
		delay := w.idleDelay(ticks)
		if delay < prev {
			t.Fatalf("delay decreased at tick %d: %v < %v", ticks, delay, prev)
		}
		if delay > 10*time.Second {
			t.Fatalf("delay %v exceeds ceiling at tick %d", delay, ticks)
		}
		prev = delay
	}
	if got := w.idleDelay(1); got != 2*time.Second {
		t.Fatalf("first idle delay = %v, want one poll interval", got)
	}
	if got := w.idleDelay(100); got != 10*time.Second {
		t.Fatalf("saturated delay = %v, want 10s", got)
	}
	if got := w.idleDelay(0); got != 2*time.Second {
		t.Fatalf("clamped delay = %v, want 2s", got)
	}
}

func TestStoreCallsBoundedByConnectTimeout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Worker.ConnectTimeout = 3
	w := New(cfg, nil, nil, nil, nil, nil)

	if w.connectTimeout != 3*time.Second {
		t.Fatalf("connectTimeout = %v, want 3s", w.connectTimeout)
	}

	ctx, cancel := w.boundedStoreCtx(context.Background())
	defer cancel()
	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("store context should carry a deadline")
	}
	if remaining := time.Until(deadline); remaining > 3*time.Second {
		t.Fatalf("deadline %v out, want at most 3s", remaining)
	}
}

func TestReconnectDelayDoublesToCeiling(t *testing.T) {
	w := newBackoffWorker(t)

	want := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second,
		8 * time.Second, 10 * time.Second, 10 * time.Second,
	}
	for i, expected := range want {
		if got := w.reconnectDelay(i + 1); got != expected {
			t.Fatalf("failure %d: delay = %v, want %v", i+1, got, expected)
		}
	}
}
