// Package memstore implements the event and transaction stores in
// process memory. It honors the same contract as the PostgreSQL
// repositories, including per-event mutual exclusion on the confirm
// path, and backs both STORAGE=memory mode and the concurrency tests.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/campus-fest/registration/internal/model"
)

// Store holds events and transactions behind a single RWMutex, plus one
// mutex per event to serialize count-then-confirm sequences. Access it
// through the Events and Transactions views, which mirror the method
// sets of the PostgreSQL repositories.
type Store struct {
	mu         sync.RWMutex
	events     map[string]model.Event
	txns       map[string]model.Transaction
	eventLocks map[string]*sync.Mutex
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		events:     make(map[string]model.Event),
		txns:       make(map[string]model.Transaction),
		eventLocks: make(map[string]*sync.Mutex),
	}
}

// Events returns the event-store view.
func (s *Store) Events() *EventStore {
	return &EventStore{s: s}
}

// Transactions returns the transaction-store view.
func (s *Store) Transactions() *TransactionStore {
	return &TransactionStore{s: s}
}

// eventLock returns the mutex guarding confirms for one event, creating
// it on first use. Locks are never removed; an event id that existed
// once keeps its lock so in-flight confirms against a deleted event
// still serialize.
func (s *Store) eventLock(eventID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.eventLocks[eventID]
	if !ok {
		l = &sync.Mutex{}
		s.eventLocks[eventID] = l
	}
	return l
}

// countConfirmedLocked recomputes occupancy. Callers must hold s.mu.
func (s *Store) countConfirmedLocked(eventID string) int {
	n := 0
	for _, t := range s.txns {
		if t.EventID == eventID && t.Status == model.StatusConfirmed {
			n++
		}
	}
	return n
}

// EventStore is the in-memory event registry.
type EventStore struct {
	s *Store
}

// Create inserts a new event.
func (r *EventStore) Create(_ context.Context, e *model.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events[e.ID] = *e
	return nil
}

// GetByID returns a single event or ErrNotFound.
func (r *EventStore) GetByID(_ context.Context, id string) (*model.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &e, nil
}

// List returns all events, newest first.
func (r *EventStore) List(_ context.Context) ([]model.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	events := make([]model.Event, 0, len(r.s.events))
	for _, e := range r.s.events {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.After(events[j].CreatedAt)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

// Update rewrites an event. The occupancy check and the write happen
// under the event's confirm lock, so a capacity shrink races cleanly
// with in-flight confirmations.
func (r *EventStore) Update(_ context.Context, e *model.Event) error {
	lock := r.s.eventLock(e.ID)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[e.ID]; !ok {
		return model.ErrNotFound
	}
	if e.MaxSeats < r.s.countConfirmedLocked(e.ID) {
		return model.ErrCapacityBelowOccupancy
	}
	r.s.events[e.ID] = *e
	return nil
}

// Delete removes an event, leaving its transactions orphaned.
func (r *EventStore) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[id]; !ok {
		return model.ErrNotFound
	}
	delete(r.s.events, id)
	return nil
}

// TransactionStore is the in-memory registration transaction store.
type TransactionStore struct {
	s *Store
}

// Create inserts a new pending transaction. The referenced event must
// exist at creation time.
func (r *TransactionStore) Create(_ context.Context, t *model.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[t.EventID]; !ok {
		return model.ErrEventNotFound
	}
	r.s.txns[t.ID] = *t
	return nil
}

// GetByID returns a single transaction or ErrNotFound.
func (r *TransactionStore) GetByID(_ context.Context, id string) (*model.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.txns[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &t, nil
}

// List returns every transaction, newest first. Backs the admin table.
func (r *TransactionStore) List(_ context.Context) ([]model.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	txns := make([]model.Transaction, 0, len(r.s.txns))
	for _, t := range r.s.txns {
		txns = append(txns, t)
	}
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].CreatedAt.Equal(txns[j].CreatedAt) {
			return txns[i].CreatedAt.After(txns[j].CreatedAt)
		}
		return txns[i].ID < txns[j].ID
	})
	return txns, nil
}

// ListByEvent returns all transactions for one event in creation order.
func (r *TransactionStore) ListByEvent(_ context.Context, eventID string) ([]model.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var txns []model.Transaction
	for _, t := range r.s.txns {
		if t.EventID == eventID {
			txns = append(txns, t)
		}
	}
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].CreatedAt.Equal(txns[j].CreatedAt) {
			return txns[i].CreatedAt.Before(txns[j].CreatedAt)
		}
		return txns[i].ID < txns[j].ID
	})
	return txns, nil
}

// CountConfirmed recomputes the confirmed occupancy for an event.
func (r *TransactionStore) CountConfirmed(_ context.Context, eventID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.countConfirmedLocked(eventID), nil
}

// Confirm promotes a pending transaction to confirmed without ever
// exceeding its event's capacity.
//
// The count-then-write runs under the event's mutex, so two confirms
// racing for the last seat resolve to exactly one success and one
// ErrCapacityExceeded. Confirms for different events never contend.
func (r *TransactionStore) Confirm(_ context.Context, id string) error {
	r.s.mu.RLock()
	t, ok := r.s.txns[id]
	r.s.mu.RUnlock()
	if !ok {
		return model.ErrNotFound
	}
	if t.Status == model.StatusConfirmed {
		return nil
	}

	lock := r.s.eventLock(t.EventID)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// Re-read under the lock: the transaction may have been deleted or
	// confirmed while we waited.
	t, ok = r.s.txns[id]
	if !ok {
		return model.ErrNotFound
	}
	if t.Status == model.StatusConfirmed {
		return nil
	}

	e, ok := r.s.events[t.EventID]
	if !ok {
		return model.ErrEventNotFound
	}
	if r.s.countConfirmedLocked(t.EventID) >= e.MaxSeats {
		return model.ErrCapacityExceeded
	}

	t.Status = model.StatusConfirmed
	r.s.txns[id] = t
	return nil
}

// Delete hard-removes a transaction from either status. Deleting a
// confirmed transaction frees its seat on the next occupancy recompute.
func (r *TransactionStore) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.txns[id]; !ok {
		return model.ErrNotFound
	}
	delete(r.s.txns, id)
	return nil
}
