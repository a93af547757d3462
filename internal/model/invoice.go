package model

import "time"

// Invoice payment states.
const (
	InvoicePaid    = "paid"
	InvoicePending = "pending"
	InvoiceVoided  = "voided"
	InvoiceOverdue = "overdue"
)

type Invoice struct {
	ID            string    `json:"id"`
	Description   string    `json:"description"`
	TotalCents    int64     `json:"total_cents"`
	Currency      string    `json:"currency"`
	IssuedDate    string    `json:"issued_date"`
	DueDate       string    `json:"due_date"`
	PaidDate      string    `json:"paid_date,omitempty"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	PetID         string    `json:"pet_id,omitempty"`
	CachedAt      time.Time `json:"cached_at"`
}
