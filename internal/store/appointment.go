package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vetcontrol/companion/internal/model"
)

const appointmentCols = `id, date_time, reason, status, pet_id, cached_at`

type AppointmentStore struct {
	db *sql.DB
}

func NewAppointmentStore(db *sql.DB) *AppointmentStore {
	return &AppointmentStore{db: db}
}

func (s *AppointmentStore) Upsert(a *model.Appointment) error {
	_, err := s.db.Exec(
		`INSERT INTO appointments (id, date_time, reason, status, pet_id, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   date_time = excluded.date_time,
		   reason = excluded.reason,
		   status = excluded.status,
		   pet_id = excluded.pet_id,
		   cached_at = excluded.cached_at`,
		a.ID, a.DateTime, a.Reason, a.Status, a.PetID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert appointment: %w", err)
	}
	return nil
}

func (s *AppointmentStore) GetByID(id string) (*model.Appointment, error) {
	row := s.db.QueryRow(`SELECT `+appointmentCols+` FROM appointments WHERE id = ?`, id)
	a, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (s *AppointmentStore) List() ([]model.Appointment, error) {
	rows, err := s.db.Query(`SELECT ` + appointmentCols + ` FROM appointments ORDER BY date_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, *a)
	}
	return appts, rows.Err()
}

func (s *AppointmentStore) DeleteMissing(keep []string) error {
	if len(keep) == 0 {
		_, err := s.db.Exec(`DELETE FROM appointments`)
		if err != nil {
			return fmt.Errorf("delete all appointments: %w", err)
		}
		return nil
	}

	query := `DELETE FROM appointments WHERE id NOT IN (?` + repeatPlaceholder(len(keep)-1) + `)`
	args := make([]any, len(keep))
	for i, id := range keep {
		args[i] = id
	}
	_, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("delete missing appointments: %w", err)
	}
	return nil
}

func scanAppointment(scanner interface{ Scan(...any) error }) (*model.Appointment, error) {
	var a model.Appointment
	if err := scanner.Scan(&a.ID, &a.DateTime, &a.Reason, &a.Status, &a.PetID, &a.CachedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
