package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vetcontrol/companion/internal/notify"
	"github.com/vetcontrol/companion/internal/reminder"
	"github.com/vetcontrol/companion/internal/websocket"
)

type NotificationHandler struct {
	coord   *reminder.Coordinator
	service *notify.Service
	sched   *notify.Scheduler
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewNotificationHandler(coord *reminder.Coordinator, svc *notify.Service, sched *notify.Scheduler, hub *websocket.Hub, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{coord: coord, service: svc, sched: sched, hub: hub, logger: logger}
}

// Tap handles POST /api/notifications/tap. The UI posts the metadata of a
// tapped notification here and the handler answers with the route to open.
// The switch is exhaustive over metadata types: an unknown type is a client
// bug and gets a 400, not a silent fallback.
func (h *NotificationHandler) Tap(w http.ResponseWriter, r *http.Request) {
	var meta notify.Metadata
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var route string
	switch meta.Type {
	case notify.MetadataTypeReminder:
		if meta.ReminderID == "" {
			writeError(w, http.StatusBadRequest, "recordatorioId is required")
			return
		}
		rem, err := h.coord.Get(meta.ReminderID)
		if err != nil {
			h.logger.Error("resolve tapped reminder", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to resolve reminder")
			return
		}
		if rem == nil {
			// Deleted since the notification fired; send the UI to the list.
			route = "/reminders"
		} else {
			route = "/reminders/" + rem.ID
		}
	case notify.MetadataTypeTest:
		route = "/"
	default:
		h.logger.Warn("unknown notification metadata type", "type", meta.Type)
		writeError(w, http.StatusBadRequest, "unknown notification type")
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage("navigation", "open", "", map[string]string{"route": route}))
	}
	writeJSON(w, http.StatusOK, map[string]string{"route": route})
}

// Scheduled handles GET /api/notifications/scheduled, a diagnostics view of
// everything currently pending in the scheduler.
func (h *NotificationHandler) Scheduled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sched.Scheduled())
}

// Permission handles GET /api/notifications/permission
func (h *NotificationHandler) Permission(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"granted": h.service.EnsurePermission()})
}
