package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/kimhsiao/fieldlog/internal/logging"
)

// Handler serves the acceptor API.
type Handler struct {
	store *Store
}

// NewHandler creates a Handler over the given store.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Router builds the acceptor's chi router. CORS is wide open on /api/* so a
// browser-hosted capture form can reach it during development.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Post("/submit", h.submit)
		r.Get("/data", h.listData)
		r.Get("/data/{id}", h.getData)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "Endpoint not found"})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "fieldlog acceptor",
	})
}

// submitBody mirrors the wire contract: value may be null, description and
// memo may be absent.
type submitBody struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Value       *float64 `json:"value"`
	Memo        string   `json:"memo"`
	Timestamp   string   `json:"timestamp"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Content-Type must be application/json",
		})
		return
	}

	var body submitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	var missing []string
	if strings.TrimSpace(body.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(body.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		logging.Warn("submission missing required fields", logrus.Fields{"missing": missing})
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":          "Missing required fields",
			"missing_fields": missing,
		})
		return
	}

	timestamp := body.Timestamp
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	sub := Submission{
		Title:       strings.TrimSpace(body.Title),
		Description: strings.TrimSpace(body.Description),
		Category:    strings.TrimSpace(body.Category),
		Value:       body.Value,
		Memo:        strings.TrimSpace(body.Memo),
		Timestamp:   timestamp,
		ReceivedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	id, err := h.store.Append(sub)
	if err != nil {
		logging.Error("failed to save submission", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to save data"})
		return
	}

	logging.Info("submission accepted", logrus.Fields{"id": id, "title": sub.Title})

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"id":      id,
		"message": "Data received successfully",
	})
}

func (h *Handler) listData(w http.ResponseWriter, r *http.Request) {
	submissions, err := h.store.List()
	if err != nil {
		logging.Error("failed to load submissions", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve data"})
		return
	}

	if submissions == nil {
		submissions = []Submission{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(submissions),
		"data":    submissions,
	})
}

func (h *Handler) getData(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid id"})
		return
	}

	sub, found, err := h.store.Get(id)
	if err != nil {
		logging.Error("failed to load submission", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve data"})
		return
	}
	if !found {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "Data not found"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    sub,
	})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
