package entries

import (
	"errors"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hypermind/hypermind-agent/internal/config"
)

// Source records where an entry was declared.
type Source string

const (
	// SourceFile entries come from the config file and follow its reloads.
	SourceFile Source = "file"
	// SourceAPI entries were created through the setup flow at runtime.
	SourceAPI Source = "api"
)

var (
	// ErrAlreadyConfigured is returned when an entry with the same unique id
	// (host:port) exists.
	ErrAlreadyConfigured = errors.New("already_configured")
	// ErrNotFound is returned for unknown entry IDs.
	ErrNotFound = errors.New("entry not found")
)

// Entry is one configured Hypermind endpoint. Entries held by the Store are
// never modified in place; updates store a copy.
type Entry struct {
	ID        string         `json:"entry_id"`
	UniqueID  string         `json:"unique_id"`
	Title     string         `json:"title"`
	Data      map[string]any `json:"data"`
	Options   map[string]any `json:"options"`
	Source    Source         `json:"source"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Endpoint resolves the entry's data and options into an EndpointConfig.
func (e *Entry) Endpoint() (config.EndpointConfig, error) {
	return config.ResolveEndpoint(e.Data, e.Options)
}

func (e *Entry) clone() *Entry {
	c := *e
	c.Data = maps.Clone(e.Data)
	c.Options = maps.Clone(e.Options)
	return &c
}

// Store is a thread-safe in-memory registry of entries, keyed by entry ID
// and indexed by unique id.
type Store struct {
	mu       sync.RWMutex
	data     map[string]*Entry
	byUnique map[string]string
	now      func() time.Time // injectable for deterministic tests
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		data:     make(map[string]*Entry),
		byUnique: make(map[string]string),
		now:      time.Now,
	}
}

// Add stores a copy of e. A fresh ID is assigned when e.ID is empty and the
// timestamps are set. It fails with ErrAlreadyConfigured if another entry
// has the same UniqueID.
func (s *Store) Add(e *Entry) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byUnique[e.UniqueID]; dup {
		return nil, ErrAlreadyConfigured
	}

	c := e.clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, dup := s.data[c.ID]; dup {
		return nil, ErrAlreadyConfigured
	}
	if c.Options == nil {
		c.Options = map[string]any{}
	}
	now := s.now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	s.data[c.ID] = c
	s.byUnique[c.UniqueID] = c.ID
	return c, nil
}

// Get returns the entry with the given ID.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	return e, ok
}

// GetByUniqueID returns the entry configured for uniqueID (host:port).
func (s *Store) GetByUniqueID(uniqueID string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUnique[uniqueID]
	if !ok {
		return nil, false
	}
	return s.data[id], true
}

// List returns all entries ordered by creation time, then ID.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns the number of entries.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// UpdateOptions replaces the options of entry id and returns the new entry.
func (s *Store) UpdateOptions(id string, options map[string]any) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := e.clone()
	c.Options = maps.Clone(options)
	if c.Options == nil {
		c.Options = map[string]any{}
	}
	c.UpdatedAt = s.now().UTC()
	s.data[id] = c
	return c, nil
}

// Remove deletes entry id and returns the removed entry.
func (s *Store) Remove(id string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[id]
	if !ok {
		return nil, false
	}
	delete(s.data, id)
	delete(s.byUnique, e.UniqueID)
	return e, true
}
