// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campus-fest/registration/internal/model"
	"github.com/campus-fest/registration/internal/service"
)

// RegistrationHandler holds all HTTP handlers for the registration API.
type RegistrationHandler struct {
	svc *service.RegistrationService
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(svc *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

// Routes mounts every API route on a chi router.
func (h *RegistrationHandler) Routes(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)
		r.Put("/{id}", h.UpdateEvent)
		r.Delete("/{id}", h.DeleteEvent)
		r.Get("/{id}/occupancy", h.GetOccupancy)
		r.Get("/{id}/transactions", h.ListEventTransactions)
	})
	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", h.CreateTransaction)
		r.Get("/", h.ListTransactions)
		r.Get("/{id}", h.GetTransaction)
		r.Put("/{id}/confirm", h.ConfirmTransaction)
		r.Delete("/{id}", h.DeleteTransaction)
		r.Post("/bulk-confirm", h.BulkConfirm)
		r.Post("/bulk-delete", h.BulkDelete)
	})
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeDomainError maps the domain error taxonomy to HTTP statuses.
// Anything unrecognized is a 500 so storage faults are never mistaken
// for client mistakes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, model.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, "event seats are full")
	case errors.Is(err, model.ErrCapacityBelowOccupancy):
		writeError(w, http.StatusConflict, "max seats cannot be set below confirmed registrations")
	case errors.Is(err, model.ErrInvalidCapacity),
		errors.Is(err, model.ErrInvalidTeamSize),
		errors.Is(err, model.ErrTeamSizeExceeded):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ─── Event handlers ───────────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *RegistrationHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCapacity) || errors.Is(err, model.ErrInvalidTeamSize) {
			writeDomainError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
func (h *RegistrationHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *RegistrationHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PUT /events/{id}
// Capacity shrinks below confirmed occupancy are rejected with 409.
func (h *RegistrationHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.UpdateEvent(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound),
			errors.Is(err, model.ErrCapacityBelowOccupancy),
			errors.Is(err, model.ErrInvalidCapacity),
			errors.Is(err, model.ErrInvalidTeamSize):
			writeDomainError(w, err)
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{id}
func (h *RegistrationHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetOccupancy handles GET /events/{id}/occupancy
// The confirmed count is recomputed from the store on every request.
func (h *RegistrationHandler) GetOccupancy(w http.ResponseWriter, r *http.Request) {
	occ, err := h.svc.GetOccupancy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

// ListEventTransactions handles GET /events/{id}/transactions
func (h *RegistrationHandler) ListEventTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.svc.ListEventTransactions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}

// ─── Transaction handlers ─────────────────────────────────────────────────────

// CreateTransaction handles POST /transactions
func (h *RegistrationHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req model.CreateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	txn, err := h.svc.CreateTransaction(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrEventNotFound), errors.Is(err, model.ErrTeamSizeExceeded):
			writeDomainError(w, err)
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, txn)
}

// ListTransactions handles GET /transactions
func (h *RegistrationHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.svc.ListTransactions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}

// GetTransaction handles GET /transactions/{id}
func (h *RegistrationHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.svc.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// ConfirmTransaction handles PUT /transactions/{id}/confirm
// Admits the registration against event capacity; a full event responds
// 409. Re-confirming an already-confirmed transaction responds 200.
func (h *RegistrationHandler) ConfirmTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ConfirmTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

// DeleteTransaction handles DELETE /transactions/{id}
func (h *RegistrationHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ─── Bulk handlers ────────────────────────────────────────────────────────────

// BulkConfirm handles POST /transactions/bulk-confirm
// Best-effort: the response is always 200 with a per-id outcome map.
func (h *RegistrationHandler) BulkConfirm(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, h.svc.BulkConfirm)
}

// BulkDelete handles POST /transactions/bulk-delete
func (h *RegistrationHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, h.svc.BulkDelete)
}

func (h *RegistrationHandler) bulk(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, ids []string) map[string]model.BulkOutcome) {
	var req model.BulkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}
	writeJSON(w, http.StatusOK, op(r.Context(), req.IDs))
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
