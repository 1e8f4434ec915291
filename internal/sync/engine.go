// Package sync drains the durable queue against the remote acceptor.
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kimhsiao/fieldlog/internal/logging"
	"github.com/kimhsiao/fieldlog/internal/models"
	"github.com/kimhsiao/fieldlog/internal/queue"
)

// TriggerOrigin tags where a sync run was requested from. It is carried for
// logging only and never changes behavior.
type TriggerOrigin string

const (
	OriginManual       TriggerOrigin = "manual"
	OriginConnectivity TriggerOrigin = "connectivity"
	OriginScheduled    TriggerOrigin = "scheduled"
)

// SkipReason explains why a run ended without touching the queue.
type SkipReason string

const (
	SkipNone    SkipReason = ""
	SkipOffline SkipReason = "offline"
	SkipBusy    SkipReason = "busy"
)

// Queue is the slice of the durable queue the engine needs: a pending
// snapshot and per-record status patches.
type Queue interface {
	ListByStatus(status models.SyncStatus) ([]*models.Record, error)
	Patch(id int64, patch queue.Patch) error
}

// Acceptor is the remote endpoint that durably stores delivered records and
// assigns them a server-side identifier.
type Acceptor interface {
	Health(ctx context.Context) error
	Submit(ctx context.Context, payload models.Payload, capturedAt time.Time) (int64, error)
}

// Reachability reports the host's local network state. The engine consults it
// before any queue or network access.
type Reachability interface {
	Online() bool
}

// Observer is notified exactly once per completed run. It is a required
// collaborator; use NoopObserver when nothing listens.
type Observer interface {
	SyncCompleted(result *Result)
}

// NoopObserver satisfies Observer and does nothing.
type NoopObserver struct{}

func (NoopObserver) SyncCompleted(*Result) {}

// RecordError describes one record whose delivery failed during a run.
type RecordError struct {
	ID     int64  `json:"id,omitempty"`
	Title  string `json:"title,omitempty"`
	Reason string `json:"reason"`
}

// Result aggregates the outcome of one sync run.
type Result struct {
	RunID      string        `json:"run_id"`
	Origin     TriggerOrigin `json:"origin"`
	Sent       int           `json:"sent"`
	Failed     int           `json:"failed"`
	Errors     []RecordError `json:"errors,omitempty"`
	Skipped    SkipReason    `json:"skipped,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Engine reconciles pending records with the remote acceptor. It is stateless
// between runs apart from the single-flight guard, which lives in memory only
// and therefore clears itself on process restart.
type Engine struct {
	queue    Queue
	acceptor Acceptor
	reach    Reachability
	observer Observer

	mu      sync.Mutex
	running bool
}

// NewEngine creates an Engine. A nil observer is replaced with NoopObserver.
func NewEngine(q Queue, acceptor Acceptor, reach Reachability, observer Observer) *Engine {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Engine{
		queue:    q,
		acceptor: acceptor,
		reach:    reach,
		observer: observer,
	}
}

// Running reports whether a sync run is currently in flight.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// RunSync performs one pass over the pending snapshot. At most one run is in
// flight at a time; a call while another run is active is a no-op returning a
// result marked busy, and the observer is not notified for it.
func (e *Engine) RunSync(ctx context.Context, origin TriggerOrigin) (*Result, error) {
	result := &Result{
		RunID:     uuid.New().String(),
		Origin:    origin,
		StartedAt: time.Now(),
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		result.Skipped = SkipBusy
		result.FinishedAt = time.Now()
		logging.Debug("sync run skipped, another run in flight",
			logrus.Fields{"run_id": result.RunID, "origin": origin})
		return result, nil
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	err := e.run(ctx, result)

	result.FinishedAt = time.Now()
	// One notification per completed run, never per record.
	e.observer.SyncCompleted(result)

	logging.Info("sync run finished", logrus.Fields{
		"run_id":  result.RunID,
		"origin":  origin,
		"sent":    result.Sent,
		"failed":  result.Failed,
		"skipped": result.Skipped,
	})

	return result, err
}

func (e *Engine) run(ctx context.Context, result *Result) error {
	// Offline: no queue access, no side effects.
	if !e.reach.Online() {
		result.Skipped = SkipOffline
		return nil
	}

	// Probe acceptor liveness before touching any record.
	if err := e.acceptor.Health(ctx); err != nil {
		result.Errors = append(result.Errors, RecordError{Reason: "server unavailable"})
		logging.Warn("acceptor unreachable, sync run aborted",
			logrus.Fields{"run_id": result.RunID, "error": err.Error()})
		return nil
	}

	// Snapshot of pending records at call time. Records enqueued during this
	// run belong to the next one.
	pending, err := e.queue.ListByStatus(models.SyncStatusPending)
	if err != nil {
		return err
	}

	// Sequential by design: preserves server-observed submission order and
	// keeps the load on a fragile link bounded.
	for _, record := range pending {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		e.submitOne(ctx, record, result)
	}

	return nil
}

// submitOne delivers a single record and records the outcome on it. A failure
// here never aborts the run.
func (e *Engine) submitOne(ctx context.Context, record *models.Record, result *Result) {
	serverID, err := e.acceptor.Submit(ctx, record.Payload(), record.CreatedAtTime())
	if err != nil {
		result.Failed++
		result.Errors = append(result.Errors, RecordError{
			ID:     record.ID,
			Title:  record.Title,
			Reason: err.Error(),
		})

		status := models.SyncStatusError
		reason := err.Error()
		if patchErr := e.queue.Patch(record.ID, queue.Patch{
			SyncStatus: &status,
			LastError:  &reason,
		}); patchErr != nil {
			// Record stays in its last durable state and is retried on a
			// later run.
			logging.Error("failed to record delivery failure", patchErr,
				logrus.Fields{"record_id": record.ID})
		}
		return
	}

	status := models.SyncStatusSynced
	clearError := ""
	if patchErr := e.queue.Patch(record.ID, queue.Patch{
		SyncStatus: &status,
		ServerID:   &serverID,
		LastError:  &clearError,
	}); patchErr != nil {
		result.Failed++
		result.Errors = append(result.Errors, RecordError{
			ID:     record.ID,
			Title:  record.Title,
			Reason: patchErr.Error(),
		})
		logging.Error("failed to record delivery success", patchErr,
			logrus.Fields{"record_id": record.ID, "server_id": serverID})
		return
	}

	result.Sent++
}

// RetryFailed resets every record in error back to pending, clearing its
// failure reason, then runs a sync. Payloads are not re-validated; they were
// valid at capture time and are immutable since.
func (e *Engine) RetryFailed(ctx context.Context, origin TriggerOrigin) (*Result, error) {
	failed, err := e.queue.ListByStatus(models.SyncStatusError)
	if err != nil {
		return nil, err
	}

	for _, record := range failed {
		status := models.SyncStatusPending
		clearError := ""
		if err := e.queue.Patch(record.ID, queue.Patch{
			SyncStatus: &status,
			LastError:  &clearError,
		}); err != nil {
			logging.Error("failed to reset record for retry", err,
				logrus.Fields{"record_id": record.ID})
		}
	}

	if len(failed) > 0 {
		logging.Info("failed records reset for retry", logrus.Fields{"count": len(failed)})
	}

	return e.RunSync(ctx, origin)
}
