// Package modelstore holds the process-wide classifier and label codec.
package modelstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cropadvisor/domain/core"
	"cropadvisor/internal"
	"cropadvisor/ports"
)

// Model is a loaded, read-only classifier artifact.
type Model struct {
	Name       string
	Version    string
	Classifier ports.Classifier
	Codec      ports.LabelCodec
	Checksum   core.Hash
	LoadedAt   time.Time
}

// Loader produces a Model. It is called at most once per successful load.
type Loader func(ctx context.Context) (*Model, error)

// Status describes the store for health and admin endpoints.
type Status struct {
	Loaded      bool      `json:"loaded"`
	Name        string    `json:"name,omitempty"`
	Version     string    `json:"version,omitempty"`
	Classes     int       `json:"classes,omitempty"`
	Checksum    string    `json:"checksum,omitempty"`
	LoadedAt    time.Time `json:"loaded_at,omitempty"`
	Attempts    int       `json:"attempts"`
	LastError   string    `json:"last_error,omitempty"`
	LastAttempt time.Time `json:"last_attempt,omitempty"`
}

// Store lazily loads the model on first use and then serves it for the life
// of the process. Concurrent first calls trigger exactly one load; a failed
// load is not cached, so the next Get tries again.
type Store struct {
	loader Loader
	logger *internal.Logger

	model atomic.Pointer[Model]

	mu          sync.Mutex // guards loading and the fields below
	attempts    int
	lastErr     error
	lastAttempt time.Time
}

// New creates a store around loader
func New(loader Loader, logger *internal.Logger) *Store {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Store{loader: loader, logger: logger}
}

// NewLoaded creates a store that already holds m. Used by tools that load
// the artifact eagerly.
func NewLoaded(m *Model) *Store {
	s := &Store{logger: internal.DefaultLogger}
	s.model.Store(m)
	return s
}

// Get returns the loaded model, loading it first if needed. Errors wrap
// core.ErrModelUnavailable.
func (s *Store) Get(ctx context.Context) (*Model, error) {
	if m := s.model.Load(); m != nil {
		return m, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if m := s.model.Load(); m != nil {
		return m, nil
	}
	if s.loader == nil {
		return nil, core.NewModelUnavailableError("no model loader configured")
	}

	s.attempts++
	s.lastAttempt = time.Now()
	start := time.Now()

	m, err := s.loader(ctx)
	if err == nil && (m == nil || m.Classifier == nil || m.Codec == nil) {
		err = fmt.Errorf("loader returned an incomplete model")
	}
	if err != nil {
		s.lastErr = err
		s.logger.Error("[ModelStore] load attempt %d failed: %v", s.attempts, err)
		if core.IsModelUnavailableError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", core.ErrModelUnavailable, err)
	}

	if m.LoadedAt.IsZero() {
		m.LoadedAt = time.Now()
	}
	s.lastErr = nil
	s.model.Store(m)
	s.logger.Info("[ModelStore] loaded %s %s (%d classes) in %s",
		m.Name, m.Version, len(m.Codec.Classes()), time.Since(start).Round(time.Millisecond))
	return m, nil
}

// Loaded returns the model without triggering a load.
func (s *Store) Loaded() (*Model, bool) {
	m := s.model.Load()
	return m, m != nil
}

// Status reports the current load state
func (s *Store) Status() Status {
	s.mu.Lock()
	st := Status{Attempts: s.attempts, LastAttempt: s.lastAttempt}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	s.mu.Unlock()

	if m := s.model.Load(); m != nil {
		st.Loaded = true
		st.Name = m.Name
		st.Version = m.Version
		st.Classes = len(m.Codec.Classes())
		st.Checksum = m.Checksum.String()
		st.LoadedAt = m.LoadedAt
	}
	return st
}
