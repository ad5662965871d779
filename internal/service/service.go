// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the storage layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/campus-fest/registration/internal/model"
)

// EventStore is the event registry the service depends on.
// Implemented by repository.EventRepository and memstore.EventStore.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	Update(ctx context.Context, e *model.Event) error
	Delete(ctx context.Context, id string) error
}

// TransactionStore is the registration transaction store the service
// depends on. Confirm must be atomic per event: the occupancy recompute
// and the status write form one indivisible step against concurrent
// confirms on the same event.
type TransactionStore interface {
	Create(ctx context.Context, t *model.Transaction) error
	GetByID(ctx context.Context, id string) (*model.Transaction, error)
	List(ctx context.Context) ([]model.Transaction, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Transaction, error)
	CountConfirmed(ctx context.Context, eventID string) (int, error)
	Confirm(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// RegistrationService orchestrates event and registration operations.
type RegistrationService struct {
	events   EventStore
	txns     TransactionStore
	validate *validator.Validate
}

// NewRegistrationService constructs a RegistrationService with its dependencies.
func NewRegistrationService(events EventStore, txns TransactionStore) *RegistrationService {
	return &RegistrationService{
		events:   events,
		txns:     txns,
		validate: validator.New(),
	}
}

// validateEventRequest checks the fields shared by create and update.
func validateEventRequest(maxSeats int, mode model.ParticipationMode, maxTeamSize int) error {
	if maxSeats < 1 {
		return model.ErrInvalidCapacity
	}
	if mode == model.ModeTeam && maxTeamSize < 2 {
		return model.ErrInvalidTeamSize
	}
	return nil
}

// CreateEvent validates the request and registers a new event.
func (s *RegistrationService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	if err := validateEventRequest(req.MaxSeats, req.Mode, req.MaxTeamSize); err != nil {
		return nil, err
	}

	event := &model.Event{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Category:    req.Category,
		Day:         req.Day,
		EntryFee:    req.EntryFee,
		MaxSeats:    req.MaxSeats,
		Mode:        req.Mode,
		MaxTeamSize: req.MaxTeamSize,
		CreatedAt:   time.Now().UTC(),
	}
	if event.Mode == model.ModeIndividual {
		event.MaxTeamSize = 0
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// ListEvents returns all events.
func (s *RegistrationService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// GetEvent returns a single event by ID.
func (s *RegistrationService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, model.ErrNotFound
	}
	return s.events.GetByID(ctx, id)
}

// UpdateEvent edits an event's fields. Shrinking max seats below the
// current confirmed occupancy is rejected by the store with
// ErrCapacityBelowOccupancy.
func (s *RegistrationService) UpdateEvent(ctx context.Context, id string, req model.UpdateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	if err := validateEventRequest(req.MaxSeats, req.Mode, req.MaxTeamSize); err != nil {
		return nil, err
	}

	current, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := &model.Event{
		ID:          current.ID,
		Name:        req.Name,
		Category:    req.Category,
		Day:         req.Day,
		EntryFee:    req.EntryFee,
		MaxSeats:    req.MaxSeats,
		Mode:        req.Mode,
		MaxTeamSize: req.MaxTeamSize,
		CreatedAt:   current.CreatedAt,
	}
	if updated.Mode == model.ModeIndividual {
		updated.MaxTeamSize = 0
	}
	if err := s.events.Update(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteEvent removes an event. Existing transactions are orphaned, not
// cascaded; confirming an orphan fails with ErrEventNotFound.
func (s *RegistrationService) DeleteEvent(ctx context.Context, id string) error {
	return s.events.Delete(ctx, id)
}

// GetOccupancy reports confirmed seats against capacity for an event.
// The count is recomputed from the transaction store on every call.
func (s *RegistrationService) GetOccupancy(ctx context.Context, eventID string) (*model.Occupancy, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrEventNotFound
		}
		return nil, err
	}
	confirmed, err := s.txns.CountConfirmed(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count confirmed: %w", err)
	}
	return &model.Occupancy{Confirmed: confirmed, Max: event.MaxSeats}, nil
}

// CreateTransaction enrolls a participant (or team) in an event. The
// transaction starts pending; a seat is only consumed on confirmation.
func (s *RegistrationService) CreateTransaction(ctx context.Context, req model.CreateTransactionRequest) (*model.Transaction, error) {
	req.EnrolledID = strings.TrimSpace(req.EnrolledID)
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid transaction: %w", err)
	}

	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrEventNotFound
		}
		return nil, err
	}
	if len(req.TeamMembers) > event.MaxRosterSize() {
		return nil, model.ErrTeamSizeExceeded
	}

	txn := &model.Transaction{
		ID:          uuid.New().String(),
		EventID:     event.ID,
		EnrolledID:  req.EnrolledID,
		TeamMembers: req.TeamMembers,
		Amount:      req.Amount,
		Status:      model.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if txn.TeamMembers == nil {
		txn.TeamMembers = []string{}
	}
	if err := s.txns.Create(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// GetTransaction returns a single transaction by ID.
func (s *RegistrationService) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if id == "" {
		return nil, model.ErrNotFound
	}
	return s.txns.GetByID(ctx, id)
}

// ListTransactions returns every transaction for the admin table.
func (s *RegistrationService) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	return s.txns.List(ctx)
}

// ListEventTransactions returns all transactions for one event.
func (s *RegistrationService) ListEventTransactions(ctx context.Context, eventID string) ([]model.Transaction, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrEventNotFound
		}
		return nil, err
	}
	return s.txns.ListByEvent(ctx, eventID)
}

// ConfirmTransaction admits a pending registration against the event's
// seat capacity. Confirming an already-confirmed transaction succeeds
// without consuming another seat, so callers may retry freely.
func (s *RegistrationService) ConfirmTransaction(ctx context.Context, id string) error {
	if id == "" {
		return model.ErrNotFound
	}
	return s.txns.Confirm(ctx, id)
}

// DeleteTransaction hard-removes a registration from either status.
func (s *RegistrationService) DeleteTransaction(ctx context.Context, id string) error {
	if id == "" {
		return model.ErrNotFound
	}
	return s.txns.Delete(ctx, id)
}

// BulkConfirm applies ConfirmTransaction to each id independently and
// reports a per-id outcome. One full event never blocks the rest of the
// batch, and the call itself always succeeds.
func (s *RegistrationService) BulkConfirm(ctx context.Context, ids []string) map[string]model.BulkOutcome {
	return s.bulk(ctx, ids, s.ConfirmTransaction)
}

// BulkDelete applies DeleteTransaction to each id independently and
// reports a per-id outcome.
func (s *RegistrationService) BulkDelete(ctx context.Context, ids []string) map[string]model.BulkOutcome {
	return s.bulk(ctx, ids, s.DeleteTransaction)
}

func (s *RegistrationService) bulk(ctx context.Context, ids []string, op func(context.Context, string) error) map[string]model.BulkOutcome {
	outcomes := make(map[string]model.BulkOutcome, len(ids))
	for _, id := range ids {
		if err := op(ctx, id); err != nil {
			outcomes[id] = model.BulkOutcome{OK: false, Error: err.Error()}
			continue
		}
		outcomes[id] = model.BulkOutcome{OK: true}
	}
	return outcomes
}
