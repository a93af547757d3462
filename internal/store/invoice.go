package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vetcontrol/companion/internal/model"
)

const invoiceCols = `id, description, total_cents, currency, issued_date, due_date, paid_date, status, payment_method, pet_id, cached_at`

type InvoiceStore struct {
	db *sql.DB
}

func NewInvoiceStore(db *sql.DB) *InvoiceStore {
	return &InvoiceStore{db: db}
}

func (s *InvoiceStore) Upsert(inv *model.Invoice) error {
	_, err := s.db.Exec(
		`INSERT INTO invoices (id, description, total_cents, currency, issued_date, due_date, paid_date, status, payment_method, pet_id, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   description = excluded.description,
		   total_cents = excluded.total_cents,
		   currency = excluded.currency,
		   issued_date = excluded.issued_date,
		   due_date = excluded.due_date,
		   paid_date = excluded.paid_date,
		   status = excluded.status,
		   payment_method = excluded.payment_method,
		   pet_id = excluded.pet_id,
		   cached_at = excluded.cached_at`,
		inv.ID, inv.Description, inv.TotalCents, inv.Currency, inv.IssuedDate, inv.DueDate,
		inv.PaidDate, inv.Status, inv.PaymentMethod, inv.PetID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert invoice: %w", err)
	}
	return nil
}

func (s *InvoiceStore) GetByID(id string) (*model.Invoice, error) {
	row := s.db.QueryRow(`SELECT `+invoiceCols+` FROM invoices WHERE id = ?`, id)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

func (s *InvoiceStore) List() ([]model.Invoice, error) {
	rows, err := s.db.Query(`SELECT ` + invoiceCols + ` FROM invoices ORDER BY issued_date DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	return scanInvoices(rows)
}

// ListUnpaid returns invoices still awaiting payment.
func (s *InvoiceStore) ListUnpaid() ([]model.Invoice, error) {
	rows, err := s.db.Query(
		`SELECT `+invoiceCols+` FROM invoices WHERE status IN (?, ?) ORDER BY due_date ASC, id ASC`,
		model.InvoicePending, model.InvoiceOverdue,
	)
	if err != nil {
		return nil, fmt.Errorf("list unpaid invoices: %w", err)
	}
	defer rows.Close()
	return scanInvoices(rows)
}

func (s *InvoiceStore) DeleteMissing(keep []string) error {
	if len(keep) == 0 {
		_, err := s.db.Exec(`DELETE FROM invoices`)
		if err != nil {
			return fmt.Errorf("delete all invoices: %w", err)
		}
		return nil
	}

	query := `DELETE FROM invoices WHERE id NOT IN (?` + repeatPlaceholder(len(keep)-1) + `)`
	args := make([]any, len(keep))
	for i, id := range keep {
		args[i] = id
	}
	_, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("delete missing invoices: %w", err)
	}
	return nil
}

func scanInvoice(scanner interface{ Scan(...any) error }) (*model.Invoice, error) {
	var inv model.Invoice
	if err := scanner.Scan(&inv.ID, &inv.Description, &inv.TotalCents, &inv.Currency,
		&inv.IssuedDate, &inv.DueDate, &inv.PaidDate, &inv.Status, &inv.PaymentMethod,
		&inv.PetID, &inv.CachedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}

func scanInvoices(rows *sql.Rows) ([]model.Invoice, error) {
	var invoices []model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}
