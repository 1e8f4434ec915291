// Package scheduler tests for trigger plumbing.
package scheduler

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/kimhsiao/fieldlog/internal/sync"
)

// fakeRunner records every trigger it receives.
type fakeRunner struct {
	mu      stdsync.Mutex
	origins []sync.TriggerOrigin
}

func (r *fakeRunner) RunSync(ctx context.Context, origin sync.TriggerOrigin) (*sync.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.origins = append(r.origins, origin)
	return &sync.Result{Origin: origin}, nil
}

func (r *fakeRunner) triggers() []sync.TriggerOrigin {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sync.TriggerOrigin, len(r.origins))
	copy(out, r.origins)
	return out
}

// TestSetOnlineTriggersConnectivityRun verifies the offline-to-online edge
// fires exactly one connectivity-tagged run.
func TestSetOnlineTriggersConnectivityRun(t *testing.T) {
	runner := &fakeRunner{}
	monitor := sync.NewMonitor(false)
	s := New(runner, monitor, time.Hour)

	s.SetOnline(context.Background(), true)

	got := runner.triggers()
	if len(got) != 1 || got[0] != sync.OriginConnectivity {
		t.Errorf("triggers = %v, want one connectivity run", got)
	}
	if !monitor.Online() {
		t.Error("monitor should report online")
	}

	// Repeating the same state is not an edge.
	s.SetOnline(context.Background(), true)
	if len(runner.triggers()) != 1 {
		t.Errorf("triggers = %v, want still one run", runner.triggers())
	}
}

// TestSetOnlineGoingOffline verifies going offline never triggers a run.
func TestSetOnlineGoingOffline(t *testing.T) {
	runner := &fakeRunner{}
	monitor := sync.NewMonitor(true)
	s := New(runner, monitor, time.Hour)

	s.SetOnline(context.Background(), false)

	if len(runner.triggers()) != 0 {
		t.Errorf("triggers = %v, want none", runner.triggers())
	}
	if monitor.Online() {
		t.Error("monitor should report offline")
	}
}

// TestPeriodicTrigger verifies the ticker drives scheduled runs while online.
func TestPeriodicTrigger(t *testing.T) {
	runner := &fakeRunner{}
	monitor := sync.NewMonitor(true)
	s := New(runner, monitor, 20*time.Millisecond)

	s.Start(context.Background())
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for len(runner.triggers()) == 0 {
		select {
		case <-deadline:
			t.Fatal("no scheduled run within deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}

	for _, origin := range runner.triggers() {
		if origin != sync.OriginScheduled {
			t.Errorf("origin = %v, want scheduled", origin)
		}
	}
}

// TestPeriodicTriggerSkipsOffline verifies ticks are ignored while offline.
func TestPeriodicTriggerSkipsOffline(t *testing.T) {
	runner := &fakeRunner{}
	monitor := sync.NewMonitor(false)
	s := New(runner, monitor, 10*time.Millisecond)

	s.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if len(runner.triggers()) != 0 {
		t.Errorf("triggers = %v, want none while offline", runner.triggers())
	}
}

// TestStartStopIdempotent verifies repeated Start/Stop calls are safe.
func TestStartStopIdempotent(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, sync.NewMonitor(true), time.Hour)

	s.Start(context.Background())
	s.Start(context.Background())

	if !s.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}

	s.Stop()
	s.Stop()

	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}
