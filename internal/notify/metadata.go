package notify

// Metadata type discriminators. The tap router matches on these exhaustively;
// adding a type here means adding a branch there.
const (
	MetadataTypeReminder = "recordatorio"
	MetadataTypeTest     = "test"
)

// Metadata is the structured payload attached to a notification. The wire
// shape is fixed by the UI's service worker: for reminders it must marshal to
// exactly {"type":"recordatorio","recordatorioId":"<id>"}.
type Metadata struct {
	Type       string `json:"type"`
	ReminderID string `json:"recordatorioId,omitempty"`
}

// ReminderMetadata builds the payload for a reminder-due notification.
func ReminderMetadata(reminderID string) Metadata {
	return Metadata{Type: MetadataTypeReminder, ReminderID: reminderID}
}

// TestMetadata builds the payload for a diagnostic test notification.
func TestMetadata() Metadata {
	return Metadata{Type: MetadataTypeTest}
}
