// Package runstore tracks the status of ingestion runs. The store is
// in-memory: durable checkpointing belongs to the hosting orchestrator,
// this only serves the status endpoint for the current process.
package runstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/paperwire/arxiv-ingest/internal/ingest"
)

// ErrNotFound is returned when a run ID is unknown.
var ErrNotFound = errors.New("run not found")

// Store provides an in-memory run registry safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	runs  map[string]ingest.Run
	clock ingest.Clock
}

// New constructs a Store.
func New(clock ingest.Clock) *Store {
	return &Store{
		runs:  make(map[string]ingest.Run),
		clock: clock,
	}
}

// Create registers a new run in pending phase.
func (s *Store) Create(_ context.Context, id string, input ingest.RunInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[id]; exists {
		return errors.New("run already exists")
	}
	now := s.now()
	s.runs[id] = ingest.Run{
		ID:      id,
		Phase:   ingest.RunPending,
		Input:   input,
		Created: now,
		Updated: now,
	}
	return nil
}

// SetPhase moves a run to the given phase.
func (s *Store) SetPhase(_ context.Context, id string, phase ingest.RunPhase) error {
	return s.update(id, func(run *ingest.Run) {
		run.Phase = phase
	})
}

// Finish records the terminal phase along with output and error text.
func (s *Store) Finish(
	_ context.Context,
	id string,
	phase ingest.RunPhase,
	output *ingest.RunOutput,
	errText string,
) error {
	return s.update(id, func(run *ingest.Run) {
		run.Phase = phase
		run.Output = output
		run.ErrorText = errText
	})
}

// Get fetches a run by ID.
func (s *Store) Get(_ context.Context, id string) (ingest.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return ingest.Run{}, ErrNotFound
	}
	return run, nil
}

func (s *Store) update(id string, apply func(*ingest.Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return ErrNotFound
	}
	apply(&run)
	run.Updated = s.now()
	s.runs[id] = run
	return nil
}

func (s *Store) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now().UTC()
}
