package controller

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// View is a saved bookmark: a named query the viewer can jump back to.
type View struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Start     float64  `json:"start"`
	End       float64  `json:"end"`
	Kinds     []string `json:"kinds"`
	Samples   int      `json:"samples"`
	LaneCount int      `json:"lane_count"`
	CreatedAt int64    `json:"created_at"`
}

// Store handles persistence and in-memory management of saved views.
// The backing file is plain JSON; bookmarks are not secrets.
type Store struct {
	filePath string
	mu       sync.RWMutex
	views    []View
}

// NewStore creates a view store backed by filePath.
func NewStore(filePath string) *Store {
	return &Store{
		filePath: filePath,
		views:    make([]View, 0),
	}
}

// Load reads views from disk. A missing file leaves the store empty.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, &s.views)
}

// saveLocked writes views to disk atomically. Callers hold s.mu.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.views, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.filePath)
}

// List returns a copy of all saved views.
func (s *Store) List() []View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]View, len(s.views))
	copy(out, s.views)
	return out
}

// Add saves a new view, assigning it an id and creation time.
func (s *Store) Add(v View) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v.ID = uuid.NewString()
	v.CreatedAt = time.Now().Unix()
	s.views = append(s.views, v)
	return v, s.saveLocked()
}

// Get returns a view by id.
func (s *Store) Get(id string) (View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.views {
		if v.ID == id {
			return v, true
		}
	}
	return View{}, false
}

// Delete removes a view by id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, v := range s.views {
		if v.ID == id {
			s.views = append(s.views[:i], s.views[i+1:]...)
			return s.saveLocked()
		}
	}
	return os.ErrNotExist
}
