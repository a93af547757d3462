package handler

import (
	"log/slog"
	"net/http"

	"github.com/vetcontrol/companion/internal/store"
)

type PetHandler struct {
	pets   *store.PetStore
	logger *slog.Logger
}

func NewPetHandler(pets *store.PetStore, logger *slog.Logger) *PetHandler {
	return &PetHandler{pets: pets, logger: logger}
}

// List handles GET /api/pets
func (h *PetHandler) List(w http.ResponseWriter, r *http.Request) {
	pets, err := h.pets.List()
	if err != nil {
		h.logger.Error("list pets", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list pets")
		return
	}
	writeJSON(w, http.StatusOK, pets)
}

// Get handles GET /api/pets/{id}
func (h *PetHandler) Get(w http.ResponseWriter, r *http.Request) {
	pet, err := h.pets.GetByID(r.PathValue("id"))
	if err != nil {
		h.logger.Error("get pet", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get pet")
		return
	}
	if pet == nil {
		writeError(w, http.StatusNotFound, "pet not found")
		return
	}
	writeJSON(w, http.StatusOK, pet)
}
