// Package scheduler wires host triggers to the sync engine.
//
// Deciding when to sync belongs to the host environment; this package only
// plumbs the two built-in trigger sources (a periodic tick and a
// connectivity-restored signal) into the engine's single RunSync entry point.
package scheduler

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kimhsiao/fieldlog/internal/logging"
	"github.com/kimhsiao/fieldlog/internal/sync"
)

// Runner is the slice of the engine the scheduler drives.
type Runner interface {
	RunSync(ctx context.Context, origin sync.TriggerOrigin) (*sync.Result, error)
}

// Scheduler triggers sync runs on an interval and on connectivity changes.
type Scheduler struct {
	engine   Runner
	monitor  *sync.Monitor
	interval time.Duration

	stopCh    chan struct{}
	wg        stdsync.WaitGroup
	mu        stdsync.Mutex
	isRunning bool
}

// New creates a Scheduler driving engine on the given interval. The monitor
// is shared with the engine so a connectivity flip is visible to both.
func New(engine Runner, monitor *sync.Monitor, interval time.Duration) *Scheduler {
	return &Scheduler{
		engine:   engine,
		monitor:  monitor,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the periodic trigger loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	logging.Info("sync scheduler started", logrus.Fields{"interval": s.interval.String()})
}

// Stop stops the scheduler and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	logging.Info("sync scheduler stopped")
}

// IsRunning reports whether the scheduler loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.monitor.Online() {
				continue
			}
			// The engine's single-flight guard absorbs overlapping ticks.
			if _, err := s.engine.RunSync(ctx, sync.OriginScheduled); err != nil {
				logging.Error("scheduled sync failed", err)
			}
		}
	}
}

// SetOnline records a connectivity change from the host. Coming back online
// triggers an immediate run, mirroring a platform connectivity-restored wake.
func (s *Scheduler) SetOnline(ctx context.Context, online bool) {
	wasOnline := s.monitor.Online()
	s.monitor.SetOnline(online)

	if wasOnline != online {
		logging.Info("connectivity changed", logrus.Fields{
			"was_online": wasOnline,
			"is_online":  online,
		})
	}

	if online && !wasOnline {
		if _, err := s.engine.RunSync(ctx, sync.OriginConnectivity); err != nil {
			logging.Error("connectivity-triggered sync failed", err)
		}
	}
}
