// Package repository implements all database queries for the fest
// registration system. It uses pgx directly (no ORM) for transparency
// and performance.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-fest/registration/internal/model"
)

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, name, category, day, entry_fee, max_seats, mode, max_team_size, created_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Name, &e.Category, &e.Day, &e.EntryFee,
		&e.MaxSeats, &e.Mode, &e.MaxTeamSize, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Name, e.Category, e.Day, e.EntryFee, e.MaxSeats, e.Mode, e.MaxTeamSize, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// List returns all events ordered by creation time descending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Update rewrites an event's fields. The capacity check and the write
// happen inside one transaction holding the event row lock, so a shrink
// below the current confirmed occupancy is rejected atomically.
func (r *EventRepository) Update(ctx context.Context, e *model.Event) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var currentMax int
	err = tx.QueryRow(ctx,
		`SELECT max_seats FROM events WHERE id = $1 FOR UPDATE`, e.ID,
	).Scan(&currentMax)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrNotFound
		}
		return fmt.Errorf("lock event row: %w", err)
	}

	var confirmed int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE event_id = $1 AND payment = $2`,
		e.ID, model.StatusConfirmed,
	).Scan(&confirmed)
	if err != nil {
		return fmt.Errorf("count confirmed: %w", err)
	}
	if e.MaxSeats < confirmed {
		err = model.ErrCapacityBelowOccupancy
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE events
		 SET name = $2, category = $3, day = $4, entry_fee = $5,
		     max_seats = $6, mode = $7, max_team_size = $8
		 WHERE id = $1`,
		e.ID, e.Name, e.Category, e.Day, e.EntryFee, e.MaxSeats, e.Mode, e.MaxTeamSize,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Delete removes an event. Its transactions are left in place and become
// orphans; the allocator refuses to confirm them.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// TransactionRepository handles persistence for registration transactions.
type TransactionRepository struct {
	db *pgxpool.Pool
}

// NewTransactionRepository constructs a TransactionRepository.
func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const txColumns = `id, event_id, enrolled_id, team_members, amount, payment, created_at`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var t model.Transaction
	err := row.Scan(&t.ID, &t.EventID, &t.EnrolledID, &t.TeamMembers,
		&t.Amount, &t.Status, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new pending transaction. The referenced event must
// exist at creation time.
func (r *TransactionRepository) Create(ctx context.Context, t *model.Transaction) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, t.EventID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check event: %w", err)
	}
	if !exists {
		err = model.ErrEventNotFound
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (`+txColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.EventID, t.EnrolledID, t.TeamMembers, t.Amount, t.Status, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID returns a single transaction or ErrNotFound.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// List returns every transaction, newest first. Backs the admin table.
func (r *TransactionRepository) List(ctx context.Context) ([]model.Transaction, error) {
	return r.list(ctx,
		`SELECT `+txColumns+` FROM transactions ORDER BY created_at DESC`)
}

// ListByEvent returns all transactions for a given event in creation order.
func (r *TransactionRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Transaction, error) {
	return r.list(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE event_id = $1 ORDER BY created_at ASC`,
		eventID)
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

// CountConfirmed recomputes the confirmed occupancy for an event.
func (r *TransactionRepository) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE event_id = $1 AND payment = $2`,
		eventID, model.StatusConfirmed,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count confirmed: %w", err)
	}
	return n, nil
}

// Confirm promotes a pending transaction to confirmed, never letting an
// event's confirmed count exceed its capacity.
//
// Two concurrent confirms against the same event both try to lock the
// event row with SELECT ... FOR UPDATE; the second blocks until the
// first commits, then sees the updated count. The occupancy is always
// recomputed with COUNT(*) inside the locked transaction, never read
// from a stored counter, so a deleted confirmation frees its seat with
// no bookkeeping.
func (r *TransactionRepository) Confirm(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Lock the transaction row first. Lock order is always transaction
	// row then event row, so confirms cannot deadlock each other.
	var eventID string
	var status model.Status
	err = tx.QueryRow(ctx,
		`SELECT event_id, payment FROM transactions WHERE id = $1 FOR UPDATE`, id,
	).Scan(&eventID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrNotFound
		}
		return fmt.Errorf("lock transaction row: %w", err)
	}

	// Confirming twice is a no-op, which makes retries after a timeout safe.
	if status == model.StatusConfirmed {
		if err = tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	}

	// Serialize the count-then-write against other confirms on this event.
	var maxSeats int
	err = tx.QueryRow(ctx,
		`SELECT max_seats FROM events WHERE id = $1 FOR UPDATE`, eventID,
	).Scan(&maxSeats)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrEventNotFound
		}
		return fmt.Errorf("lock event row: %w", err)
	}

	var confirmed int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE event_id = $1 AND payment = $2`,
		eventID, model.StatusConfirmed,
	).Scan(&confirmed)
	if err != nil {
		return fmt.Errorf("count confirmed: %w", err)
	}
	if confirmed >= maxSeats {
		err = model.ErrCapacityExceeded
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE transactions SET payment = $2 WHERE id = $1`,
		id, model.StatusConfirmed,
	)
	if err != nil {
		return fmt.Errorf("set payment: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Delete hard-removes a transaction from either status. Deleting a
// confirmed transaction frees its seat on the next occupancy recompute.
func (r *TransactionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
