// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/linnemanlabs/triageline/internal/triage"
)

// Store holds admitted patients in memory. Suitable for dev/testing and
// single-replica deployments that can lose the queue on restart.
type Store struct {
	mu       sync.RWMutex
	patients map[string]*triage.Patient // patient ID -> record
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		patients: make(map[string]*triage.Patient),
	}
}

// Get retrieves a patient by ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*triage.Patient, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, false, nil
	}
	return clone(p), true, nil
}

// Put stores a copy of the patient, replacing any previous record.
func (s *Store) Put(_ context.Context, p *triage.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := clone(p)
	cp.Position = 0
	s.patients[p.ID] = cp
	return nil
}

// Delete removes a patient, reporting whether it existed.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[id]; !ok {
		return false, nil
	}
	delete(s.patients, id)
	return true, nil
}

// List returns copies of all patients in no particular order.
func (s *Store) List(_ context.Context) ([]*triage.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*triage.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		out = append(out, clone(p))
	}
	return out, nil
}

// Ahead counts the patients queued before p.
func (s *Store) Ahead(_ context.Context, p *triage.Patient) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, q := range s.patients {
		if q.ID != p.ID && triage.CompareQueue(q, p) < 0 {
			n++
		}
	}
	return n, nil
}

func clone(p *triage.Patient) *triage.Patient {
	cp := *p
	cp.Flags = slices.Clone(p.Flags)
	cp.Contributions = slices.Clone(p.Contributions)
	return &cp
}
