package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-fest/registration/internal/handler"
	"github.com/campus-fest/registration/internal/memstore"
	"github.com/campus-fest/registration/internal/model"
	"github.com/campus-fest/registration/internal/service"
)

func newTestRouter() chi.Router {
	store := memstore.New()
	svc := service.NewRegistrationService(store.Events(), store.Transactions())
	h := handler.NewRegistrationHandler(svc)

	r := chi.NewRouter()
	r.Get("/health", handler.HealthCheck)
	r.Group(h.Routes)
	return r
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createEvent(t *testing.T, r chi.Router, maxSeats int) model.Event {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/events", model.CreateEventRequest{
		Name:     "Treasure Hunt",
		Category: "General",
		Day:      "3",
		EntryFee: 60,
		MaxSeats: maxSeats,
		Mode:     model.ModeIndividual,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var event model.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &event))
	return event
}

func createTransaction(t *testing.T, r chi.Router, eventID string) model.Transaction {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/transactions", model.CreateTransactionRequest{
		EventID:    eventID,
		EnrolledID: "21CS101",
		Amount:     60,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var txn model.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &txn))
	return txn
}

func TestHealthCheck(t *testing.T) {
	r := newTestRouter()
	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateEventRejectsZeroCapacity(t *testing.T) {
	r := newTestRouter()
	w := doJSON(t, r, http.MethodPost, "/events", model.CreateEventRequest{
		Name: "Bad", Mode: model.ModeIndividual, MaxSeats: 0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetEventNotFound(t *testing.T) {
	r := newTestRouter()
	w := doJSON(t, r, http.MethodGet, "/events/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConfirmFlow(t *testing.T) {
	r := newTestRouter()
	event := createEvent(t, r, 1)
	t1 := createTransaction(t, r, event.ID)
	t2 := createTransaction(t, r, event.ID)

	w := doJSON(t, r, http.MethodPut, "/transactions/"+t1.ID+"/confirm", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Second confirm of the same transaction is a retry-safe no-op.
	w = doJSON(t, r, http.MethodPut, "/transactions/"+t1.ID+"/confirm", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// The event is full now, so the other registration is rejected.
	w = doJSON(t, r, http.MethodPut, "/transactions/"+t2.ID+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodGet, "/events/"+event.ID+"/occupancy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var occ model.Occupancy
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &occ))
	assert.Equal(t, model.Occupancy{Confirmed: 1, Max: 1}, occ)
}

func TestConfirmUnknownTransaction(t *testing.T) {
	r := newTestRouter()
	w := doJSON(t, r, http.MethodPut, "/transactions/"+uuid.New().String()+"/confirm", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteTransactionFreesSeat(t *testing.T) {
	r := newTestRouter()
	event := createEvent(t, r, 1)
	t1 := createTransaction(t, r, event.ID)

	w := doJSON(t, r, http.MethodPut, "/transactions/"+t1.ID+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/transactions/"+t1.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	t2 := createTransaction(t, r, event.ID)
	w = doJSON(t, r, http.MethodPut, "/transactions/"+t2.ID+"/confirm", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateEventShrinkConflict(t *testing.T) {
	r := newTestRouter()
	event := createEvent(t, r, 2)
	for i := 0; i < 2; i++ {
		txn := createTransaction(t, r, event.ID)
		w := doJSON(t, r, http.MethodPut, "/transactions/"+txn.ID+"/confirm", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(t, r, http.MethodPut, "/events/"+event.ID, model.UpdateEventRequest{
		Name: event.Name, Category: event.Category, Day: event.Day,
		EntryFee: event.EntryFee, Mode: event.Mode, MaxSeats: 1,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateTransactionForUnknownEvent(t *testing.T) {
	r := newTestRouter()
	w := doJSON(t, r, http.MethodPost, "/transactions", model.CreateTransactionRequest{
		EventID:    uuid.New().String(),
		EnrolledID: "21CS101",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBulkConfirmReturnsOutcomeMap(t *testing.T) {
	r := newTestRouter()
	event := createEvent(t, r, 1)
	t1 := createTransaction(t, r, event.ID)
	t2 := createTransaction(t, r, event.ID)

	w := doJSON(t, r, http.MethodPost, "/transactions/bulk-confirm", model.BulkRequest{
		IDs: []string{t1.ID, t2.ID},
	})
	require.Equal(t, http.StatusOK, w.Code, "bulk calls never fail as a whole")

	var outcomes map[string]model.BulkOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcomes))
	require.Len(t, outcomes, 2)

	var ok int
	for _, o := range outcomes {
		if o.OK {
			ok++
		} else {
			assert.NotEmpty(t, o.Error)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestBulkDeleteMixedBatch(t *testing.T) {
	r := newTestRouter()
	event := createEvent(t, r, 5)
	t1 := createTransaction(t, r, event.ID)
	missing := uuid.New().String()

	w := doJSON(t, r, http.MethodPost, "/transactions/bulk-delete", model.BulkRequest{
		IDs: []string{t1.ID, missing},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var outcomes map[string]model.BulkOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcomes))
	assert.True(t, outcomes[t1.ID].OK)
	assert.False(t, outcomes[missing].OK)
}

func TestBulkRequiresIDs(t *testing.T) {
	r := newTestRouter()
	w := doJSON(t, r, http.MethodPost, "/transactions/bulk-delete", model.BulkRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListEventTransactions(t *testing.T) {
	r := newTestRouter()
	event := createEvent(t, r, 5)
	for i := 0; i < 3; i++ {
		createTransaction(t, r, event.ID)
	}

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/events/%s/transactions", event.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var txns []model.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &txns))
	assert.Len(t, txns, 3)
}
