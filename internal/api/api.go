// Package api exposes the collector's local HTTP surface to the capture form.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	stdsync "sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kimhsiao/fieldlog/internal/apperr"
	"github.com/kimhsiao/fieldlog/internal/models"
	"github.com/kimhsiao/fieldlog/internal/sync"
)

// RecordStore is the durable queue surface the API needs.
type RecordStore interface {
	Enqueue(payload models.Payload) (int64, error)
	ListAll() ([]*models.Record, error)
	ListByStatus(status models.SyncStatus) ([]*models.Record, error)
	Clear() error
	CountByStatus() (map[string]int, error)
}

// SyncRunner is the engine surface the API needs.
type SyncRunner interface {
	RunSync(ctx context.Context, origin sync.TriggerOrigin) (*sync.Result, error)
	RetryFailed(ctx context.Context, origin sync.TriggerOrigin) (*sync.Result, error)
}

// ConnectivitySink receives connectivity changes reported by the host.
type ConnectivitySink interface {
	SetOnline(ctx context.Context, online bool)
}

// Status retains the most recent sync result. It implements sync.Observer so
// the engine pushes each completed run into it.
type Status struct {
	mu   stdsync.RWMutex
	last *sync.Result
}

// SyncCompleted implements sync.Observer.
func (s *Status) SyncCompleted(result *sync.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = result
}

// Last returns the most recent sync result, or nil before the first run.
func (s *Status) Last() *sync.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Handler serves the capture API.
type Handler struct {
	store   RecordStore
	runner  SyncRunner
	sink    ConnectivitySink
	monitor *sync.Monitor
	status  *Status
}

// NewHandler creates a Handler. status must be the same Status instance the
// engine was given as its observer.
func NewHandler(store RecordStore, runner SyncRunner, sink ConnectivitySink, monitor *sync.Monitor, status *Status) *Handler {
	return &Handler{
		store:   store,
		runner:  runner,
		sink:    sink,
		monitor: monitor,
		status:  status,
	}
}

// Router builds the chi router for the capture API.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/records", h.createRecord)
		r.Get("/records", h.listRecords)
		r.Delete("/records", h.clearRecords)
		r.Post("/sync", h.runSync)
		r.Post("/sync/retry", h.retryFailed)
		r.Get("/status", h.getStatus)
		r.Put("/network", h.setNetwork)
	})

	return r
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	var payload models.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := h.store.Enqueue(payload)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":          id,
		"sync_status": models.SyncStatusPending,
	})
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	var (
		records []*models.Record
		err     error
	)

	if status := r.URL.Query().Get("status"); status != "" {
		switch models.SyncStatus(status) {
		case models.SyncStatusPending, models.SyncStatusSynced, models.SyncStatusError:
			records, err = h.store.ListByStatus(models.SyncStatus(status))
		default:
			respondError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
	} else {
		records, err = h.store.ListAll()
	}

	if err != nil {
		respondAppError(w, err)
		return
	}

	if records == nil {
		records = []*models.Record{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

func (h *Handler) clearRecords(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"cleared": true})
}

func (h *Handler) runSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.RunSync(r.Context(), sync.OriginManual)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) retryFailed(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.RetryFailed(r.Context(), sync.OriginManual)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CountByStatus()
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"queue":    counts,
		"online":   h.monitor.Online(),
		"last_run": h.status.Last(),
	})
}

func (h *Handler) setNetwork(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Online *bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Online == nil {
		respondError(w, http.StatusBadRequest, "body must be {\"online\": bool}")
		return
	}

	h.sink.SetOnline(r.Context(), *body.Online)
	respondJSON(w, http.StatusOK, map[string]interface{}{"online": *body.Online})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondAppError maps the error taxonomy onto HTTP statuses.
func respondAppError(w http.ResponseWriter, err error) {
	switch {
	case apperr.Is(err, apperr.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case apperr.Is(err, apperr.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
