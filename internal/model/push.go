package model

import "time"

// Notification type constants used for per-type preferences.
const (
	NotifTypeReminderDue    = "reminder_due"
	NotifTypeAppointment    = "appointment"
	NotifTypeInvoiceOverdue = "invoice_overdue"
)

// PushSubscription is one of the owner's devices registered for Web Push.
type PushSubscription struct {
	ID         int64     `json:"id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type NotificationPreference struct {
	ID               int64     `json:"id"`
	NotificationType string    `json:"notification_type"`
	Enabled          bool      `json:"enabled"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
