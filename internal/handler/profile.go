package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/vetcontrol/companion/internal/api"
)

// ProfileBackend fetches the owner's account record from the clinic.
type ProfileBackend interface {
	GetProfile(ctx context.Context) (*api.Profile, error)
}

type ProfileHandler struct {
	backend ProfileBackend
	logger  *slog.Logger
}

func NewProfileHandler(backend ProfileBackend, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{backend: backend, logger: logger}
}

// Get handles GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.backend.GetProfile(r.Context())
	if err != nil {
		writeBackendError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
