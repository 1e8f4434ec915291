// Package server implements the remote acceptor: the endpoint that durably
// stores delivered records and assigns them server-side ids.
package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Submission is one accepted record as stored by the acceptor.
type Submission struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Value       *float64 `json:"value"`
	Memo        string   `json:"memo,omitempty"`
	Timestamp   string   `json:"timestamp"`
	ReceivedAt  string   `json:"received_at"`
}

// Store persists submissions to a single JSON file. Writes go through a
// temp-file rename so a crash never leaves a truncated file behind.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a Store under dataDir, initializing an empty submissions
// file when none exists.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(dataDir, "submissions.json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
			return nil, fmt.Errorf("failed to initialize data file: %w", err)
		}
	}

	return &Store{path: path}, nil
}

func (s *Store) load() ([]Submission, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}

	var submissions []Submission
	if err := json.Unmarshal(data, &submissions); err != nil {
		return nil, fmt.Errorf("failed to parse data file: %w", err)
	}
	return submissions, nil
}

func (s *Store) save(submissions []Submission) error {
	data, err := json.MarshalIndent(submissions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode submissions: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Append assigns the next id and persists the submission.
func (s *Store) Append(sub Submission) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	submissions, err := s.load()
	if err != nil {
		return 0, err
	}

	// Next id is max+1, so ids survive restarts without a counter file.
	var maxID int64
	for _, existing := range submissions {
		if existing.ID > maxID {
			maxID = existing.ID
		}
	}
	sub.ID = maxID + 1

	submissions = append(submissions, sub)
	if err := s.save(submissions); err != nil {
		return 0, err
	}
	return sub.ID, nil
}

// List returns all stored submissions.
func (s *Store) List() ([]Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Get returns the submission with the given id, or false when absent.
func (s *Store) Get(id int64) (*Submission, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	submissions, err := s.load()
	if err != nil {
		return nil, false, err
	}
	for i := range submissions {
		if submissions[i].ID == id {
			return &submissions[i], true, nil
		}
	}
	return nil, false, nil
}
