package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vetcontrol/companion/internal/model"
	"github.com/vetcontrol/companion/internal/websocket"
)

// Default notification channel. Every notification the companion emits goes
// through this single channel; its attributes are persisted once at startup
// so the UI can mirror them when it registers OS-level categories.
const (
	ChannelID        = "default"
	ChannelName      = "VetControl"
	ChannelColor     = "#3B82F6"
	ChannelVibration = "0,250,250,250"
)

// Settings keys for the persisted channel record and presentation policy.
const (
	settingChannelName       = "notify_channel_name"
	settingChannelImportance = "notify_channel_importance"
	settingChannelVibration  = "notify_channel_vibration"
	settingChannelColor      = "notify_channel_color"
	settingPresentAlert      = "notify_present_alert"
	settingPresentSound      = "notify_present_sound"
	settingPresentBadge      = "notify_present_badge"
)

// SubscriptionStore is the slice of the push store the service needs.
type SubscriptionStore interface {
	ListSubscriptions() ([]model.PushSubscription, error)
	DeleteSubscriptionByEndpoint(endpoint string) error
	IsPreferenceEnabled(notificationType string) (bool, error)
}

// SettingsStore persists the channel record and presentation policy.
type SettingsStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Broadcaster fans a message out to connected UI clients.
type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

// Service owns channel initialization, the permission gate and delivery
// fan-out. It implements Sink, so the Scheduler hands fired notifications
// straight to it.
type Service struct {
	subs     SubscriptionStore
	settings SettingsStore
	sender   *WebPushSender // nil when VAPID keys are not configured
	hub      Broadcaster
	logger   *slog.Logger

	mu          sync.Mutex
	initialized bool
	granted     bool
	prompted    bool
}

func NewService(subs SubscriptionStore, settings SettingsStore, sender *WebPushSender, hub Broadcaster, logger *slog.Logger) *Service {
	return &Service{
		subs:     subs,
		settings: settings,
		sender:   sender,
		hub:      hub,
		logger:   logger.With("component", "notify"),
	}
}

// Initialize persists the default channel record and presentation policy.
// It runs once per process; repeat calls are a no-op. A persistence failure
// is logged and swallowed: the service stays usable, the channel attributes
// just are not mirrored to the UI until the next start.
func (s *Service) Initialize() {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return
	}
	s.initialized = true
	s.mu.Unlock()

	if err := s.persistChannel(); err != nil {
		s.logger.Warn("channel initialization failed", "error", err)
	}
}

func (s *Service) persistChannel() error {
	pairs := []struct{ key, value string }{
		{settingChannelName, ChannelName},
		{settingChannelImportance, "max"},
		{settingChannelVibration, ChannelVibration},
		{settingChannelColor, ChannelColor},
		// Foreground presentation: banner and sound, never a badge count.
		{settingPresentAlert, "true"},
		{settingPresentSound, "true"},
		{settingPresentBadge, "false"},
	}
	for _, p := range pairs {
		if err := s.settings.Set(p.key, p.value); err != nil {
			return fmt.Errorf("set %s: %w", p.key, err)
		}
	}
	return nil
}

// EnsurePermission reports whether the companion may deliver notifications:
// at least one push subscription exists and the reminder preference is
// enabled. A positive result is cached until InvalidatePermission. The first
// negative result emits a single enable prompt to connected UI clients;
// later negative results stay silent.
func (s *Service) EnsurePermission() bool {
	s.mu.Lock()
	if s.granted {
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	granted, err := s.permissionState()
	if err != nil {
		s.logger.Warn("permission check failed", "error", err)
		return false
	}

	var prompt bool
	s.mu.Lock()
	s.granted = granted
	if !granted && !s.prompted {
		s.prompted = true
		prompt = true
	}
	s.mu.Unlock()

	if prompt && s.hub != nil {
		s.hub.Broadcast(websocket.Message{
			Type:   "notification",
			Entity: "permission",
			Action: "request",
		})
	}
	return granted
}

func (s *Service) permissionState() (bool, error) {
	subs, err := s.subs.ListSubscriptions()
	if err != nil {
		return false, fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return false, nil
	}
	enabled, err := s.subs.IsPreferenceEnabled(model.NotifTypeReminderDue)
	if err != nil {
		return false, fmt.Errorf("check preference: %w", err)
	}
	return enabled, nil
}

// InvalidatePermission drops the cached grant so the next EnsurePermission
// re-queries the stores. Called whenever subscriptions or preferences change.
func (s *Service) InvalidatePermission() {
	s.mu.Lock()
	s.granted = false
	s.mu.Unlock()
}

// Deliver fans a fired notification out to connected UI clients and to every
// push subscription. Individual delivery failures are logged, expired
// subscriptions are pruned, and nothing propagates to the scheduler.
func (s *Service) Deliver(ctx context.Context, n Notification) {
	if s.hub != nil {
		s.hub.Broadcast(websocket.Message{
			Type:    "notification",
			Entity:  "notification",
			Action:  "delivered",
			Payload: n,
		})
	}

	if s.sender == nil {
		s.logger.Debug("push not configured, notification delivered to UI only", "handle", n.Handle)
		return
	}

	subs, err := s.subs.ListSubscriptions()
	if err != nil {
		s.logger.Error("list subscriptions for delivery", "error", err)
		return
	}

	payload := PushPayload{
		Title: n.Title,
		Body:  n.Body,
		Tag:   ChannelID,
		Data:  n.Metadata,
	}
	for i := range subs {
		sub := &subs[i]
		if err := s.sender.Send(sub, payload); err != nil {
			if err == ErrExpired {
				if derr := s.subs.DeleteSubscriptionByEndpoint(sub.Endpoint); derr != nil {
					s.logger.Warn("prune expired subscription", "error", derr)
				}
				continue
			}
			s.logger.Warn("push delivery failed", "endpoint", sub.Endpoint, "error", err)
		}
	}
}
