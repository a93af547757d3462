package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/vetcontrol/companion/internal/notify"
	"github.com/vetcontrol/companion/internal/store"
)

type PushHandler struct {
	pushStore *store.PushStore
	service   *notify.Service
	sender    *notify.WebPushSender
	sched     *notify.Scheduler
	logger    *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *notify.Service, sender *notify.WebPushSender, sched *notify.Scheduler, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, service: svc, sender: sender, sched: sched, logger: logger}
}

// VAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.sender == nil {
		writeError(w, http.StatusNotImplemented, "push not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.sender.VAPIDPublicKey()})
}

type subscribeRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dh     string `json:"p256dh"`
	Auth       string `json:"auth"`
	DeviceName string `json:"device_name"`
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		writeError(w, http.StatusBadRequest, "endpoint, p256dh, and auth are required")
		return
	}

	sub, err := h.pushStore.CreateSubscription(req.Endpoint, req.P256dh, req.Auth, req.DeviceName)
	if err != nil {
		h.logger.Error("create push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}

	h.service.InvalidatePermission()
	writeJSON(w, http.StatusCreated, sub)
}

// ListSubscriptions handles GET /api/push/subscriptions
func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.pushStore.ListSubscriptions()
	if err != nil {
		h.logger.Error("list push subscriptions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// Unsubscribe handles DELETE /api/push/subscriptions/{id}
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := parseNumID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}

	if err := h.pushStore.DeleteSubscription(id); err != nil {
		h.logger.Error("delete push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}

	h.service.InvalidatePermission()
	w.WriteHeader(http.StatusNoContent)
}

// GetPreferences handles GET /api/push/preferences
func (h *PushHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.pushStore.GetPreferences()
	if err != nil {
		h.logger.Error("get notification preferences", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

type preferenceRequest struct {
	NotificationType string `json:"notification_type"`
	Enabled          bool   `json:"enabled"`
}

// SetPreference handles PUT /api/push/preferences
func (h *PushHandler) SetPreference(w http.ResponseWriter, r *http.Request) {
	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.NotificationType == "" {
		writeError(w, http.StatusBadRequest, "notification_type is required")
		return
	}

	if err := h.pushStore.SetPreference(req.NotificationType, req.Enabled); err != nil {
		h.logger.Error("set notification preference", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set preference")
		return
	}

	h.service.InvalidatePermission()
	writeJSON(w, http.StatusOK, map[string]any{
		"notification_type": req.NotificationType,
		"enabled":           req.Enabled,
	})
}

// Test handles POST /api/push/test. Schedules a diagnostic notification a
// few seconds out so the owner can verify delivery end to end.
func (h *PushHandler) Test(w http.ResponseWriter, r *http.Request) {
	handle, err := h.sched.Schedule("VetControl", "Test notification", 10*time.Second, notify.TestMetadata())
	if err != nil {
		h.logger.Error("schedule test notification", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to schedule test notification")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"handle": handle})
}
