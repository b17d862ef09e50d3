// internal/loans/handler.go
package loans

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID        string    `json:"userId"`
		DeviceModelID uuid.UUID `json:"deviceModelId"`
		Contact       string    `json:"contact"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.DeviceModelID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "userId and deviceModelId are required")
		return
	}

	res, err := h.service.Reserve(r.Context(), req.UserID, req.DeviceModelID, req.Contact)
	switch {
	case errors.Is(err, ErrOutOfStock):
		writeError(w, http.StatusConflict, "Device out of stock")
		return
	case errors.Is(err, ErrDeviceNotFound):
		writeError(w, http.StatusNotFound, "Device not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":            "Reservation successful",
		"loanId":             res.LoanID,
		"expectedReturnDate": res.ExpectedReturnDate.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) HandleCollect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoanID uuid.UUID `json:"loanId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.service.MarkCollected(r.Context(), req.LoanID); err != nil {
		if errors.Is(err, ErrInvalidStateTransition) {
			writeError(w, http.StatusBadRequest, "Loan not found or not in RESERVED state")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Device marked as collected"})
}

func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoanID uuid.UUID `json:"loanId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.service.Return(r.Context(), req.LoanID)
	switch {
	case errors.Is(err, ErrAlreadyReturned):
		writeError(w, http.StatusBadRequest, "Device already returned")
		return
	case errors.Is(err, ErrLoanNotFound):
		writeError(w, http.StatusNotFound, "Loan not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Device returned successfully"})
}

func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID        string    `json:"userId"`
		DeviceModelID uuid.UUID `json:"deviceModelId"`
		Contact       string    `json:"contact"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.DeviceModelID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "userId and deviceModelId are required")
		return
	}

	entry, alreadySubscribed, err := h.service.Subscribe(r.Context(), req.UserID, req.DeviceModelID, req.Contact)
	switch {
	case errors.Is(err, ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Too many requests")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if alreadySubscribed {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":    "Already on waitlist",
			"waitlistId": entry.ID,
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "Subscribed to waitlist",
		"waitlistId": entry.ID,
	})
}

func (h *Handler) HandleListWaitlist(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	items, err := h.service.ListWaitlist(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) HandleListLoans(w http.ResponseWriter, r *http.Request) {
	// An empty userId lists all loans; restricting that to staff is the
	// gateway's responsibility.
	items, err := h.service.ListLoans(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
