package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-fest/registration/internal/memstore"
	"github.com/campus-fest/registration/internal/model"
	"github.com/campus-fest/registration/internal/service"
)

func newTestService() *service.RegistrationService {
	store := memstore.New()
	return service.NewRegistrationService(store.Events(), store.Transactions())
}

func createTeamEvent(t *testing.T, svc *service.RegistrationService, maxSeats, maxTeamSize int) *model.Event {
	t.Helper()
	event, err := svc.CreateEvent(context.Background(), model.CreateEventRequest{
		Name:        "Hackathon",
		Category:    "CSE",
		Day:         "2",
		EntryFee:    250,
		MaxSeats:    maxSeats,
		Mode:        model.ModeTeam,
		MaxTeamSize: maxTeamSize,
	})
	require.NoError(t, err)
	return event
}

func createSoloEvent(t *testing.T, svc *service.RegistrationService, maxSeats int) *model.Event {
	t.Helper()
	event, err := svc.CreateEvent(context.Background(), model.CreateEventRequest{
		Name:     "Quiz",
		Category: "General",
		Day:      "1",
		EntryFee: 50,
		MaxSeats: maxSeats,
		Mode:     model.ModeIndividual,
	})
	require.NoError(t, err)
	return event
}

func enroll(t *testing.T, svc *service.RegistrationService, eventID string, members ...string) *model.Transaction {
	t.Helper()
	txn, err := svc.CreateTransaction(context.Background(), model.CreateTransactionRequest{
		EventID:     eventID,
		EnrolledID:  "21EC042",
		TeamMembers: members,
		Amount:      50,
	})
	require.NoError(t, err)
	return txn
}

func TestCreateEventValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.CreateEvent(ctx, model.CreateEventRequest{
		Name: "Bad", Mode: model.ModeIndividual, MaxSeats: 0,
	})
	assert.ErrorIs(t, err, model.ErrInvalidCapacity)

	_, err = svc.CreateEvent(ctx, model.CreateEventRequest{
		Name: "Bad", Mode: model.ModeTeam, MaxSeats: 10, MaxTeamSize: 1,
	})
	assert.ErrorIs(t, err, model.ErrInvalidTeamSize)

	_, err = svc.CreateEvent(ctx, model.CreateEventRequest{
		Name: "Bad", Mode: "solo", MaxSeats: 10,
	})
	assert.Error(t, err, "unknown participation mode must be rejected")
}

func TestTeamSizeBound(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	event := createTeamEvent(t, svc, 10, 4)

	// Leader plus 4 members overflows a team of 4.
	_, err := svc.CreateTransaction(ctx, model.CreateTransactionRequest{
		EventID:     event.ID,
		EnrolledID:  "21ME001",
		TeamMembers: []string{"21ME002", "21ME003", "21ME004", "21ME005"},
	})
	assert.ErrorIs(t, err, model.ErrTeamSizeExceeded)

	// Leader plus 3 members fits.
	txn, err := svc.CreateTransaction(ctx, model.CreateTransactionRequest{
		EventID:     event.ID,
		EnrolledID:  "21ME001",
		TeamMembers: []string{"21ME002", "21ME003", "21ME004"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, txn.Status)
}

func TestIndividualEventRejectsRoster(t *testing.T) {
	svc := newTestService()
	event := createSoloEvent(t, svc, 10)

	_, err := svc.CreateTransaction(context.Background(), model.CreateTransactionRequest{
		EventID:     event.ID,
		EnrolledID:  "21EC042",
		TeamMembers: []string{"21EC043"},
	})
	assert.ErrorIs(t, err, model.ErrTeamSizeExceeded)
}

func TestCreateTransactionUnknownEvent(t *testing.T) {
	svc := newTestService()
	_, err := svc.CreateTransaction(context.Background(), model.CreateTransactionRequest{
		EventID:    uuid.New().String(),
		EnrolledID: "21EC042",
	})
	assert.ErrorIs(t, err, model.ErrEventNotFound)
}

func TestGetOccupancyTracksConfirmations(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	event := createSoloEvent(t, svc, 3)

	occ, err := svc.GetOccupancy(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Occupancy{Confirmed: 0, Max: 3}, *occ)

	txn := enroll(t, svc, event.ID)
	require.NoError(t, svc.ConfirmTransaction(ctx, txn.ID))

	occ, err = svc.GetOccupancy(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Occupancy{Confirmed: 1, Max: 3}, *occ)
	assert.Equal(t, 2, occ.Remaining())
}

func TestGetOccupancyUnknownEvent(t *testing.T) {
	svc := newTestService()
	_, err := svc.GetOccupancy(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, model.ErrEventNotFound)
}

func TestUpdateEventShrinkGuard(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	event := createSoloEvent(t, svc, 5)
	for i := 0; i < 3; i++ {
		txn := enroll(t, svc, event.ID)
		require.NoError(t, svc.ConfirmTransaction(ctx, txn.ID))
	}

	req := model.UpdateEventRequest{
		Name: event.Name, Category: event.Category, Day: event.Day,
		EntryFee: event.EntryFee, Mode: event.Mode, MaxSeats: 2,
	}
	_, err := svc.UpdateEvent(ctx, event.ID, req)
	assert.ErrorIs(t, err, model.ErrCapacityBelowOccupancy)

	req.MaxSeats = 3
	updated, err := svc.UpdateEvent(ctx, event.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.MaxSeats)
}

func TestBulkConfirmReportsPerIDOutcomes(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	event := createSoloEvent(t, svc, 1)
	t1 := enroll(t, svc, event.ID)
	t2 := enroll(t, svc, event.ID)
	missing := uuid.New().String()

	outcomes := svc.BulkConfirm(ctx, []string{t1.ID, t2.ID, missing})
	require.Len(t, outcomes, 3)

	assert.True(t, outcomes[t1.ID].OK)
	assert.False(t, outcomes[t2.ID].OK)
	assert.Equal(t, model.ErrCapacityExceeded.Error(), outcomes[t2.ID].Error)
	assert.False(t, outcomes[missing].OK)
	assert.Equal(t, model.ErrNotFound.Error(), outcomes[missing].Error)

	// The failed items did not disturb the successful one.
	occ, err := svc.GetOccupancy(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, occ.Confirmed)
}

func TestBulkDeleteIsBestEffort(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	event := createSoloEvent(t, svc, 5)
	t1 := enroll(t, svc, event.ID)
	missing := uuid.New().String()

	outcomes := svc.BulkDelete(ctx, []string{t1.ID, missing})
	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[t1.ID].OK)
	assert.False(t, outcomes[missing].OK)

	_, err := svc.GetTransaction(ctx, t1.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeleteEventOrphansTransactions(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	event := createSoloEvent(t, svc, 5)
	txn := enroll(t, svc, event.ID)

	require.NoError(t, svc.DeleteEvent(ctx, event.ID))

	// The transaction survives but can no longer be confirmed.
	got, err := svc.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)

	err = svc.ConfirmTransaction(ctx, txn.ID)
	assert.ErrorIs(t, err, model.ErrEventNotFound)
}

func TestIndividualEventClearsTeamSize(t *testing.T) {
	svc := newTestService()
	event, err := svc.CreateEvent(context.Background(), model.CreateEventRequest{
		Name:        "Chess",
		Mode:        model.ModeIndividual,
		MaxSeats:    16,
		MaxTeamSize: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, event.MaxTeamSize)
}
