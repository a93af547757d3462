package model

import "time"

// Appointment states mirror the backend's.
const (
	AppointmentScheduled = "scheduled"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
	AppointmentPending   = "pending"
)

type Appointment struct {
	ID       string    `json:"id"`
	DateTime string    `json:"date_time"`
	Reason   string    `json:"reason"`
	Status   string    `json:"status"`
	PetID    string    `json:"pet_id"`
	CachedAt time.Time `json:"cached_at"`
}
