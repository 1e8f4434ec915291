package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kimhsiao/fieldlog/internal/apperr"
	"github.com/kimhsiao/fieldlog/internal/models"
)

// Client talks to the remote acceptor over HTTP. It implements Acceptor.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the acceptor at baseURL. Every request is
// bounded by timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// submitRequest is the wire shape of POST /api/submit. Value marshals to
// null when absent, matching the acceptor contract.
type submitRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Value       *float64 `json:"value"`
	Memo        string   `json:"memo,omitempty"`
	Timestamp   string   `json:"timestamp"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// Health probes the acceptor's liveness endpoint. Any success-range status
// counts as reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return apperr.Wrap(apperr.ErrUnavailable, "failed to build health request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.ErrUnavailable, "acceptor unreachable", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.New(apperr.ErrUnavailable,
			fmt.Sprintf("health check returned status %d", resp.StatusCode))
	}
	return nil
}

// Submit delivers one record's payload fields to the acceptor and returns the
// server-assigned id. Local bookkeeping (queue id, sync status) never crosses
// the wire.
func (c *Client) Submit(ctx context.Context, payload models.Payload, capturedAt time.Time) (int64, error) {
	body, err := json.Marshal(submitRequest{
		Title:       payload.Title,
		Description: payload.Description,
		Category:    string(payload.Category),
		Value:       payload.Value,
		Memo:        payload.Memo,
		Timestamp:   capturedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrDelivery, "failed to encode payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/submit", bytes.NewReader(body))
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrDelivery, "failed to build submit request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrDelivery, "submit request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return 0, apperr.New(apperr.ErrDelivery,
			fmt.Sprintf("acceptor returned status %d", resp.StatusCode))
	}

	var parsed submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, apperr.Wrap(apperr.ErrDelivery, "malformed acceptor response", err)
	}
	if !parsed.Success || parsed.ID <= 0 {
		return 0, apperr.New(apperr.ErrDelivery, "acceptor response missing assigned id")
	}

	return parsed.ID, nil
}
