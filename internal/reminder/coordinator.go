// Package reminder coordinates the reminder lifecycle: backend writes, the
// local cache, and the notification scheduled for each pending reminder.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vetcontrol/companion/internal/api"
	"github.com/vetcontrol/companion/internal/model"
	"github.com/vetcontrol/companion/internal/notify"
	"github.com/vetcontrol/companion/internal/store"
	"github.com/vetcontrol/companion/internal/websocket"
)

// Backend is the slice of the clinic API the coordinator needs.
type Backend interface {
	ListReminders(ctx context.Context) ([]model.Reminder, error)
	CreateReminder(ctx context.Context, r model.Reminder) (*model.Reminder, error)
	UpdateReminder(ctx context.Context, id string, patch api.ReminderPatch) (*model.Reminder, error)
	DeleteReminder(ctx context.Context, id string) error
}

// Gate decides whether notifications may be scheduled at all.
type Gate interface {
	EnsurePermission() bool
}

// Notifier is the slice of the scheduler the coordinator needs.
type Notifier interface {
	Schedule(title, body string, delay time.Duration, meta notify.Metadata) (string, error)
	Cancel(handle string)
}

// Broadcaster pushes entity change events to connected UI clients.
type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

const defaultBody = "Pet care reminder"

// ErrInvalidInput marks a rejected user input, as opposed to a backend or
// storage failure.
var ErrInvalidInput = errors.New("invalid input")

// Coordinator keeps the backend, the local cache and the notification
// registry in step. Backend and cache failures propagate to the caller;
// notification failures are logged and swallowed, a reminder without a
// notification is still a valid reminder.
type Coordinator struct {
	backend Backend
	store   *store.ReminderStore
	gate    Gate
	sched   Notifier
	hub     Broadcaster
	logger  *slog.Logger
	now     func() time.Time
}

func NewCoordinator(backend Backend, st *store.ReminderStore, gate Gate, sched Notifier, hub Broadcaster, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		backend: backend,
		store:   st,
		gate:    gate,
		sched:   sched,
		hub:     hub,
		logger:  logger.With("component", "reminder"),
		now:     time.Now,
	}
}

// List returns the cached reminders, pending first.
func (c *Coordinator) List() ([]model.Reminder, error) {
	return c.store.List()
}

// Get returns one cached reminder, or nil when the ID is unknown.
func (c *Coordinator) Get(id string) (*model.Reminder, error) {
	return c.store.GetByID(id)
}

// CreateInput is a new reminder as entered in the UI.
type CreateInput struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	PetID       string `json:"pet_id"`
}

func (in CreateInput) validate() error {
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	switch in.Kind {
	case model.ReminderKindVaccine, model.ReminderKindMedication, model.ReminderKindDeworming:
	default:
		return fmt.Errorf("%w: unknown reminder kind %q", ErrInvalidInput, in.Kind)
	}
	return nil
}

// Create writes the reminder to the backend first, caches the record the
// backend assigned, then schedules its notification. A scheduling failure
// does not fail the create.
func (c *Coordinator) Create(ctx context.Context, in CreateInput) (*model.Reminder, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	created, err := c.backend.CreateReminder(ctx, model.Reminder{
		Kind:        in.Kind,
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		PetID:       in.PetID,
	})
	if err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}

	if err := c.store.Upsert(created); err != nil {
		return nil, err
	}
	c.scheduleFor(created)

	out, err := c.store.GetByID(created.ID)
	if err != nil {
		return nil, err
	}
	c.broadcast("created", created.ID)
	return out, nil
}

// UpdateInput is a partial edit; nil fields are left untouched.
type UpdateInput struct {
	Kind        *string `json:"kind"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
}

// Update edits a reminder on the backend, refreshes the cache and replaces
// the scheduled notification, since title, body or due time may have changed.
func (c *Coordinator) Update(ctx context.Context, id string, in UpdateInput) (*model.Reminder, error) {
	updated, err := c.backend.UpdateReminder(ctx, id, api.ReminderPatch{
		Kind:        in.Kind,
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
	})
	if err != nil {
		return nil, fmt.Errorf("update reminder: %w", err)
	}

	if err := c.cancelFor(id); err != nil {
		return nil, err
	}
	if err := c.store.Upsert(updated); err != nil {
		return nil, err
	}
	c.scheduleFor(updated)

	out, err := c.store.GetByID(id)
	if err != nil {
		return nil, err
	}
	c.broadcast("updated", id)
	return out, nil
}

// SetCompleted flips completion state. Completing cancels the pending
// notification; un-completing schedules a fresh one under a new handle.
func (c *Coordinator) SetCompleted(ctx context.Context, id string, completed bool) (*model.Reminder, error) {
	updated, err := c.backend.UpdateReminder(ctx, id, api.ReminderPatch{Completed: &completed})
	if err != nil {
		return nil, fmt.Errorf("set reminder completed: %w", err)
	}

	if err := c.cancelFor(id); err != nil {
		return nil, err
	}
	if err := c.store.Upsert(updated); err != nil {
		return nil, err
	}
	if !completed {
		c.scheduleFor(updated)
	}

	out, err := c.store.GetByID(id)
	if err != nil {
		return nil, err
	}
	c.broadcast("updated", id)
	return out, nil
}

// Delete removes the reminder from the backend, cancels its notification and
// drops the cached row, in that order. The cancel is a no-op when no
// notification is live.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if err := c.backend.DeleteReminder(ctx, id); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}

	if err := c.cancelFor(id); err != nil {
		return err
	}
	if err := c.store.Delete(id); err != nil {
		return err
	}
	c.broadcast("deleted", id)
	return nil
}

// RestoreSchedules re-registers notifications for every pending reminder.
// Called on startup: handles only live as long as the process, so whatever
// handle a row still carries from the previous run is dead and gets replaced.
func (c *Coordinator) RestoreSchedules() error {
	pending, err := c.store.ListPending()
	if err != nil {
		return fmt.Errorf("restore schedules: %w", err)
	}

	restored := 0
	for i := range pending {
		r := &pending[i]
		if err := c.store.ClearHandle(r.ID); err != nil {
			return err
		}
		r.ScheduleHandle = nil
		if c.scheduleFor(r) {
			restored++
		}
	}
	c.logger.Info("schedules restored", "pending", len(pending), "scheduled", restored)
	return nil
}

// scheduleFor registers a notification for a pending reminder and records the
// handle on the cached row. Returns whether a notification was scheduled.
// Failures here never propagate.
func (c *Coordinator) scheduleFor(r *model.Reminder) bool {
	if r.Completed || !r.HasDueDate() {
		return false
	}
	if !c.gate.EnsurePermission() {
		c.logger.Debug("notifications not permitted, skipping schedule", "reminder", r.ID)
		return false
	}

	_, delay, err := notify.ResolveDueTime(r.DueDate, c.now())
	if err != nil {
		c.logger.Warn("unschedulable due date", "reminder", r.ID, "due_date", r.DueDate, "error", err)
		return false
	}

	body := r.Description
	if body == "" {
		body = defaultBody
	}
	handle, err := c.sched.Schedule(r.Title, body, delay, notify.ReminderMetadata(r.ID))
	if err != nil {
		c.logger.Warn("schedule notification", "reminder", r.ID, "error", err)
		return false
	}

	if err := c.store.AttachHandle(r.ID, handle); err != nil {
		// Can't record the handle, so the timer would leak past the next
		// restore. Kill it now.
		c.sched.Cancel(handle)
		c.logger.Warn("attach schedule handle", "reminder", r.ID, "error", err)
		return false
	}
	return true
}

// cancelFor cancels the live notification for a reminder, if any, and clears
// the stored handle.
func (c *Coordinator) cancelFor(id string) error {
	r, err := c.store.GetByID(id)
	if err != nil {
		return err
	}
	if r == nil || r.ScheduleHandle == nil {
		return nil
	}
	c.sched.Cancel(*r.ScheduleHandle)
	return c.store.ClearHandle(id)
}

func (c *Coordinator) broadcast(action, id string) {
	if c.hub == nil {
		return
	}
	c.hub.Broadcast(websocket.NewMessage("reminder", action, id, nil))
}

// Refresh pulls the full reminder set from the backend and reconciles the
// cache and the notification registry against it.
func (c *Coordinator) Refresh(ctx context.Context) error {
	remote, err := c.backend.ListReminders(ctx)
	if err != nil {
		return fmt.Errorf("refresh reminders: %w", err)
	}

	keep := make([]string, 0, len(remote))
	remoteIDs := make(map[string]struct{}, len(remote))
	for i := range remote {
		keep = append(keep, remote[i].ID)
		remoteIDs[remote[i].ID] = struct{}{}
	}

	// Cancel notifications for reminders the backend no longer has, before
	// their cached rows (and handles) disappear.
	cached, err := c.store.List()
	if err != nil {
		return err
	}
	for i := range cached {
		if _, ok := remoteIDs[cached[i].ID]; ok {
			continue
		}
		if cached[i].ScheduleHandle != nil {
			c.sched.Cancel(*cached[i].ScheduleHandle)
		}
	}

	for i := range remote {
		if err := c.store.Upsert(&remote[i]); err != nil {
			return err
		}
	}
	if err := c.store.DeleteMissing(keep); err != nil {
		return err
	}

	if err := c.reconcileSchedules(); err != nil {
		return err
	}
	c.broadcast("refreshed", "")
	return nil
}

// reconcileSchedules walks the cache and fixes notification state: pending
// reminders without a live handle get scheduled, completed ones with a
// handle get cancelled.
func (c *Coordinator) reconcileSchedules() error {
	all, err := c.store.List()
	if err != nil {
		return err
	}
	for i := range all {
		r := &all[i]
		switch {
		case r.Completed && r.ScheduleHandle != nil:
			c.sched.Cancel(*r.ScheduleHandle)
			if err := c.store.ClearHandle(r.ID); err != nil {
				return err
			}
		case !r.Completed && r.ScheduleHandle == nil && r.HasDueDate():
			c.scheduleFor(r)
		}
	}
	return nil
}
