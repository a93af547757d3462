package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vetcontrol/companion/internal/api"
	"github.com/vetcontrol/companion/internal/reminder"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseNumID(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

// writeBackendError maps clinic backend failures onto gateway responses: an
// expired session asks the UI to re-authenticate, a backend error surfaces
// as 502, anything else is ours.
func writeBackendError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if errors.Is(err, reminder.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, api.ErrSessionExpired) {
		writeError(w, http.StatusUnauthorized, "session expired")
		return
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		logger.Warn("backend error", "status", apiErr.StatusCode, "message", apiErr.Message)
		writeError(w, http.StatusBadGateway, apiErr.Message)
		return
	}
	logger.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
