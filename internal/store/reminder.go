package store

import (
	"database/sql"
	"fmt"

	"github.com/vetcontrol/companion/internal/model"
)

const reminderCols = `id, kind, title, description, due_date, completed, pet_id, schedule_handle, created_at, updated_at`

type ReminderStore struct {
	db *sql.DB
}

func NewReminderStore(db *sql.DB) *ReminderStore {
	return &ReminderStore{db: db}
}

// Upsert writes a backend reminder into the cache. On conflict the backend
// fields are replaced but schedule_handle is left alone: the handle tracks a
// live local timer and only the scheduling code may touch it.
func (s *ReminderStore) Upsert(r *model.Reminder) error {
	_, err := s.db.Exec(
		`INSERT INTO reminders (id, kind, title, description, due_date, completed, pet_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   kind = excluded.kind,
		   title = excluded.title,
		   description = excluded.description,
		   due_date = excluded.due_date,
		   completed = excluded.completed,
		   pet_id = excluded.pet_id,
		   updated_at = excluded.updated_at`,
		r.ID, r.Kind, r.Title, r.Description, r.DueDate, boolToInt(r.Completed), r.PetID,
		r.CreatedAt.UTC(), r.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert reminder: %w", err)
	}
	return nil
}

func (s *ReminderStore) GetByID(id string) (*model.Reminder, error) {
	row := s.db.QueryRow(`SELECT `+reminderCols+` FROM reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return r, nil
}

// List returns all cached reminders, pending first, soonest due first.
func (s *ReminderStore) List() ([]model.Reminder, error) {
	rows, err := s.db.Query(`SELECT ` + reminderCols + ` FROM reminders ORDER BY completed ASC, due_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// ListPending returns incomplete reminders that carry a due date, the set
// eligible for notification scheduling.
func (s *ReminderStore) ListPending() ([]model.Reminder, error) {
	rows, err := s.db.Query(`SELECT ` + reminderCols + ` FROM reminders WHERE completed = 0 AND due_date != '' ORDER BY due_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pending reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// AttachHandle records the live notification handle for a reminder.
func (s *ReminderStore) AttachHandle(id, handle string) error {
	_, err := s.db.Exec(`UPDATE reminders SET schedule_handle = ? WHERE id = ?`, handle, id)
	if err != nil {
		return fmt.Errorf("attach schedule handle: %w", err)
	}
	return nil
}

// ClearHandle removes the notification handle from a reminder.
func (s *ReminderStore) ClearHandle(id string) error {
	_, err := s.db.Exec(`UPDATE reminders SET schedule_handle = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("clear schedule handle: %w", err)
	}
	return nil
}

func (s *ReminderStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return nil
}

// DeleteMissing removes cached reminders whose IDs are not in keep. Used
// after a full sync so locally cached rows track backend deletions.
func (s *ReminderStore) DeleteMissing(keep []string) error {
	if len(keep) == 0 {
		_, err := s.db.Exec(`DELETE FROM reminders`)
		if err != nil {
			return fmt.Errorf("delete all reminders: %w", err)
		}
		return nil
	}

	query := `DELETE FROM reminders WHERE id NOT IN (?` + repeatPlaceholder(len(keep)-1) + `)`
	args := make([]any, len(keep))
	for i, id := range keep {
		args[i] = id
	}
	_, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("delete missing reminders: %w", err)
	}
	return nil
}

func scanReminder(scanner interface{ Scan(...any) error }) (*model.Reminder, error) {
	var r model.Reminder
	var completed int
	if err := scanner.Scan(&r.ID, &r.Kind, &r.Title, &r.Description, &r.DueDate, &completed,
		&r.PetID, &r.ScheduleHandle, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Completed = completed != 0
	return &r, nil
}

func scanReminders(rows *sql.Rows) ([]model.Reminder, error) {
	var reminders []model.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminders = append(reminders, *r)
	}
	return reminders, rows.Err()
}
