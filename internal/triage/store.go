package triage

import "context"

// Store is the persistence interface for admitted patients.
type Store interface {
	Get(ctx context.Context, id string) (*Patient, bool, error)
	Put(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]*Patient, error)
}

// Positioner is a Store that can count the patients ahead of p in queue
// order (see CompareQueue) without loading the whole queue.
type Positioner interface {
	Store
	Ahead(ctx context.Context, p *Patient) (int, error)
}

// Notifier alerts clinical staff about a newly admitted patient.
type Notifier interface {
	Notify(ctx context.Context, p *Patient) error
}

// Publisher emits lifecycle events to downstream systems.
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
}
