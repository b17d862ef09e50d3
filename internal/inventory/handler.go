// internal/inventory/handler.go
package inventory

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandleListDevices(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Brand:    r.URL.Query().Get("brand"),
		Category: r.URL.Query().Get("category"),
		Name:     r.URL.Query().Get("name"),
	}

	devices, err := h.service.ListDevices(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (h *Handler) HandleGetDevice(w http.ResponseWriter, r *http.Request) {
	modelID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid device ID")
		return
	}

	device, err := h.service.GetDevice(r.Context(), modelID)
	if errors.Is(err, ErrDeviceNotFound) {
		writeError(w, http.StatusNotFound, "Device not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (h *Handler) HandleAddDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name              string `json:"name"`
		Brand             string `json:"brand"`
		Category          string `json:"category"`
		QuantityAvailable int    `json:"quantity_available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.QuantityAvailable < 0 {
		writeError(w, http.StatusBadRequest, "name is required and quantity must be non-negative")
		return
	}

	device, err := h.service.AddDevice(r.Context(), req.Name, req.Brand, req.Category, req.QuantityAvailable)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusCreated, device)
}

func (h *Handler) HandleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	modelID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid device ID")
		return
	}

	var req struct {
		QuantityAvailable int `json:"quantity_available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QuantityAvailable < 0 {
		writeError(w, http.StatusBadRequest, "quantity must be non-negative")
		return
	}

	device, err := h.service.UpdateQuantity(r.Context(), modelID, req.QuantityAvailable)
	if errors.Is(err, ErrDeviceNotFound) {
		writeError(w, http.StatusNotFound, "Device not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (h *Handler) HandleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	modelID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid device ID")
		return
	}

	err = h.service.RemoveDevice(r.Context(), modelID)
	if errors.Is(err, ErrDeviceNotFound) {
		writeError(w, http.StatusNotFound, "Device not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Device deleted"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
