package handler

import (
	"log/slog"
	"net/http"

	"github.com/vetcontrol/companion/internal/store"
)

type AppointmentHandler struct {
	appts  *store.AppointmentStore
	logger *slog.Logger
}

func NewAppointmentHandler(appts *store.AppointmentStore, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{appts: appts, logger: logger}
}

// List handles GET /api/appointments
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	appts, err := h.appts.List()
	if err != nil {
		h.logger.Error("list appointments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

// Get handles GET /api/appointments/{id}
func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.appts.GetByID(r.PathValue("id"))
	if err != nil {
		h.logger.Error("get appointment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get appointment")
		return
	}
	if appt == nil {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}
