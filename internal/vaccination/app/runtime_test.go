package app

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRuntimeConfigNormalized(t *testing.T) {
	t.Parallel()

	cfg := RuntimeConfig{}.normalized()
	if cfg.Port != defaultSweeperPort {
		t.Fatalf("port = %d, want %d", cfg.Port, defaultSweeperPort)
	}
	if cfg.DBPath != defaultSweeperDB {
		t.Fatalf("db path = %q, want %q", cfg.DBPath, defaultSweeperDB)
	}
	if cfg.SweepInterval != defaultSweepInterval {
		t.Fatalf("sweep interval = %v, want %v", cfg.SweepInterval, defaultSweepInterval)
	}

	cfg = RuntimeConfig{Port: 9000, DBPath: "x.db", SweepInterval: 5 * time.Second}.normalized()
	if cfg.Port != 9000 || cfg.DBPath != "x.db" || cfg.SweepInterval != 5*time.Second {
		t.Fatalf("unexpected normalization: %+v", cfg)
	}
}

type fakeSweeper struct {
	mu    sync.Mutex
	calls int
	nows  []time.Time
}

func (f *fakeSweeper) ExpireOverdue(_ context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.nows = append(f.nows, now)
	return 1, nil
}

func (f *fakeSweeper) sweepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRunSweepLoopSweepsImmediatelyAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	now := time.Date(2026, 9, 12, 8, 0, 0, 0, time.UTC)
	sweeper := &fakeSweeper{}
	err := runSweepLoop(ctx, sweeper, time.Hour, func() time.Time { return now })
	if err != nil {
		t.Fatalf("run sweep loop: %v", err)
	}
	if sweeper.sweepCount() != 1 {
		t.Fatalf("calls = %d, want 1", sweeper.sweepCount())
	}
	if !sweeper.nows[0].Equal(now) {
		t.Fatalf("sweep time = %v, want %v", sweeper.nows[0], now)
	}
}

func TestRunSweepLoopTicks(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := &fakeSweeper{}
	done := make(chan error, 1)
	go func() {
		done <- runSweepLoop(ctx, sweeper, time.Millisecond, time.Now)
	}()

	deadline := time.After(2 * time.Second)
	for {
		if sweeper.sweepCount() >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("loop swept %d times, want at least 3", sweeper.sweepCount())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run sweep loop: %v", err)
	}
}
