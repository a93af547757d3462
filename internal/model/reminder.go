package model

import "time"

// Reminder kinds as stored locally and exposed to the UI.
const (
	ReminderKindVaccine    = "vaccine"
	ReminderKindMedication = "medication"
	ReminderKindDeworming  = "deworming"
)

// Reminder is a scheduled pet-care task. The record is owned by the clinic
// backend; the companion caches it locally and tracks the notification it
// scheduled for it. ScheduleHandle is nil when no notification is live.
type Reminder struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	DueDate        string    `json:"due_date"`
	Completed      bool      `json:"completed"`
	PetID          string    `json:"pet_id"`
	ScheduleHandle *string   `json:"schedule_handle,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasDueDate reports whether the reminder carries a due date at all.
func (r *Reminder) HasDueDate() bool {
	return r.DueDate != ""
}
