// Package model defines the core domain types for the fest registration system.
package model

import (
	"errors"
	"time"
)

// Domain errors shared by every store implementation. Handlers map these
// to HTTP statuses with errors.Is.
var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEventNotFound is returned when a transaction references an event
	// that does not (or no longer) exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrInvalidCapacity is returned when an event's max seats is not positive.
	ErrInvalidCapacity = errors.New("max seats must be at least 1")

	// ErrInvalidTeamSize is returned when a team event's max team size is below 2.
	ErrInvalidTeamSize = errors.New("team size must be at least 2")

	// ErrTeamSizeExceeded is returned when a registration roster is too large
	// for the event's participation mode.
	ErrTeamSizeExceeded = errors.New("team size exceeded for this event")

	// ErrCapacityExceeded is returned when confirming a transaction would
	// overshoot the event's seat capacity. This is an expected outcome near
	// capacity, not a fault.
	ErrCapacityExceeded = errors.New("event seats are full")

	// ErrCapacityBelowOccupancy is returned when an event edit would set
	// max seats below the number of already-confirmed registrations.
	ErrCapacityBelowOccupancy = errors.New("max seats cannot be set below confirmed registrations")
)

// ParticipationMode says whether an event is entered solo or as a team.
type ParticipationMode string

const (
	ModeIndividual ParticipationMode = "individual"
	ModeTeam       ParticipationMode = "team"
)

// Status is the binary admission flag on a transaction. Serialized as the
// integer "payment" field: 0 pending, 1 confirmed.
type Status int

const (
	StatusPending   Status = 0
	StatusConfirmed Status = 1
)

// Event represents a fest event with a fixed seat capacity.
type Event struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Day         string            `json:"day"`
	EntryFee    float64           `json:"entry_fee"`
	MaxSeats    int               `json:"max_seats"`
	Mode        ParticipationMode `json:"mode"`
	MaxTeamSize int               `json:"max_team_size,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// IsTeam returns true for team events.
func (e *Event) IsTeam() bool {
	return e.Mode == ModeTeam
}

// MaxRosterSize returns how many team members (excluding the enrolling
// leader) a single registration may carry.
func (e *Event) MaxRosterSize() int {
	if !e.IsTeam() {
		return 0
	}
	return e.MaxTeamSize - 1
}

// Transaction represents one registration attempt for an event, created
// pending and promoted to confirmed only through the seat allocator.
type Transaction struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	EnrolledID  string    `json:"enrolled_id"`
	TeamMembers []string  `json:"team_members"`
	Amount      float64   `json:"amount"`
	Status      Status    `json:"payment"`
	CreatedAt   time.Time `json:"created_at"`
}

// Occupancy reports how many confirmed seats an event holds against its
// capacity. Always derived from the transaction store, never cached.
type Occupancy struct {
	Confirmed int `json:"confirmed"`
	Max       int `json:"max"`
}

// Remaining returns the number of free seats.
func (o Occupancy) Remaining() int {
	return o.Max - o.Confirmed
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name        string            `json:"name" validate:"required"`
	Category    string            `json:"category"`
	Day         string            `json:"day"`
	EntryFee    float64           `json:"entry_fee" validate:"gte=0"`
	MaxSeats    int               `json:"max_seats"`
	Mode        ParticipationMode `json:"mode" validate:"required,oneof=individual team"`
	MaxTeamSize int               `json:"max_team_size"`
}

// UpdateEventRequest is the payload for editing an event. Capacity edits
// are guarded against shrinking below confirmed occupancy.
type UpdateEventRequest struct {
	Name        string            `json:"name" validate:"required"`
	Category    string            `json:"category"`
	Day         string            `json:"day"`
	EntryFee    float64           `json:"entry_fee" validate:"gte=0"`
	MaxSeats    int               `json:"max_seats"`
	Mode        ParticipationMode `json:"mode" validate:"required,oneof=individual team"`
	MaxTeamSize int               `json:"max_team_size"`
}

// CreateTransactionRequest is the payload for enrolling in an event.
type CreateTransactionRequest struct {
	EventID     string   `json:"event_id" validate:"required"`
	EnrolledID  string   `json:"enrolled_id" validate:"required"`
	TeamMembers []string `json:"team_members"`
	Amount      float64  `json:"amount" validate:"gte=0"`
}

// BulkRequest carries the transaction ids for a bulk confirm or delete.
type BulkRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// BulkOutcome is the per-id result of a bulk operation.
type BulkOutcome struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
