package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vetcontrol/companion/internal/api"
	"github.com/vetcontrol/companion/internal/database"
	"github.com/vetcontrol/companion/internal/logging"
	"github.com/vetcontrol/companion/internal/model"
	"github.com/vetcontrol/companion/internal/notify"
	"github.com/vetcontrol/companion/internal/store"
)

type fakeBackend struct {
	mu        sync.Mutex
	reminders map[string]model.Reminder
	nextID    int
	err       error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{reminders: make(map[string]model.Reminder)}
}

func (f *fakeBackend) ListReminders(ctx context.Context) ([]model.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Reminder, 0, len(f.reminders))
	for _, r := range f.reminders {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeBackend) CreateReminder(ctx context.Context, r model.Reminder) (*model.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	r.ID = fmt.Sprintf("%d", f.nextID)
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()
	f.reminders[r.ID] = r
	return &r, nil
}

func (f *fakeBackend) UpdateReminder(ctx context.Context, id string, patch api.ReminderPatch) (*model.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.reminders[id]
	if !ok {
		return nil, &api.APIError{StatusCode: 404, Message: "not found"}
	}
	if patch.Title != nil {
		r.Title = *patch.Title
	}
	if patch.Description != nil {
		r.Description = *patch.Description
	}
	if patch.DueDate != nil {
		r.DueDate = *patch.DueDate
	}
	if patch.Completed != nil {
		r.Completed = *patch.Completed
	}
	r.UpdatedAt = time.Now()
	f.reminders[id] = r
	return &r, nil
}

func (f *fakeBackend) DeleteReminder(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.reminders, id)
	return nil
}

type fakeSched struct {
	mu        sync.Mutex
	n         int
	scheduled map[string]notify.Metadata
	cancelled []string
	err       error
}

func newFakeSched() *fakeSched {
	return &fakeSched{scheduled: make(map[string]notify.Metadata)}
}

func (f *fakeSched) Schedule(title, body string, delay time.Duration, meta notify.Metadata) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.n++
	handle := fmt.Sprintf("h%d", f.n)
	f.scheduled[handle] = meta
	return handle, nil
}

func (f *fakeSched) Cancel(handle string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, handle)
	delete(f.scheduled, handle)
}

func (f *fakeSched) pendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scheduled)
}

type fixedGate bool

func (g fixedGate) EnsurePermission() bool { return bool(g) }

func setupCoordinator(t *testing.T) (*Coordinator, *fakeBackend, *fakeSched, *store.ReminderStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	backend := newFakeBackend()
	sched := newFakeSched()
	st := store.NewReminderStore(db)
	coord := NewCoordinator(backend, st, fixedGate(true), sched, nil, logging.Setup("error"))
	coord.now = func() time.Time {
		return time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	}
	return coord, backend, sched, st
}

func TestCreateSchedulesAndAttachesHandle(t *testing.T) {
	coord, _, sched, _ := setupCoordinator(t)

	created, err := coord.Create(context.Background(), CreateInput{
		Kind:    model.ReminderKindVaccine,
		Title:   "Rabies booster",
		DueDate: "2024-06-15",
		PetID:   "3",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if created.ScheduleHandle == nil {
		t.Fatal("expected handle attached")
	}
	meta, ok := sched.scheduled[*created.ScheduleHandle]
	if !ok {
		t.Fatalf("handle %q not registered", *created.ScheduleHandle)
	}
	if meta.Type != notify.MetadataTypeReminder || meta.ReminderID != created.ID {
		t.Errorf("metadata = %+v", meta)
	}
}

func TestCreateWithoutDueDateSkipsScheduling(t *testing.T) {
	coord, _, sched, _ := setupCoordinator(t)

	created, err := coord.Create(context.Background(), CreateInput{
		Kind:  model.ReminderKindMedication,
		Title: "Antibiotics",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ScheduleHandle != nil {
		t.Errorf("unexpected handle %q", *created.ScheduleHandle)
	}
	if sched.pendingCount() != 0 {
		t.Errorf("scheduled = %d, want 0", sched.pendingCount())
	}
}

func TestCreateInvalidDueDateStillSucceeds(t *testing.T) {
	coord, _, sched, _ := setupCoordinator(t)

	created, err := coord.Create(context.Background(), CreateInput{
		Kind:    model.ReminderKindVaccine,
		Title:   "Rabies",
		DueDate: "garbage",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ScheduleHandle != nil {
		t.Error("expected no handle for unparsable date")
	}
	if sched.pendingCount() != 0 {
		t.Errorf("scheduled = %d, want 0", sched.pendingCount())
	}
}

func TestCreatePermissionDeniedSkipsScheduling(t *testing.T) {
	coord, _, sched, _ := setupCoordinator(t)
	coord.gate = fixedGate(false)

	created, err := coord.Create(context.Background(), CreateInput{
		Kind:    model.ReminderKindVaccine,
		Title:   "Rabies",
		DueDate: "2024-06-15",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ScheduleHandle != nil || sched.pendingCount() != 0 {
		t.Error("expected no scheduling when permission denied")
	}
}

func TestCreateBackendFailureLeavesCacheEmpty(t *testing.T) {
	coord, backend, sched, st := setupCoordinator(t)
	backend.err = errors.New("backend down")

	if _, err := coord.Create(context.Background(), CreateInput{
		Kind:    model.ReminderKindVaccine,
		Title:   "Rabies",
		DueDate: "2024-06-15",
	}); err == nil {
		t.Fatal("expected error")
	}

	all, _ := st.List()
	if len(all) != 0 {
		t.Errorf("cache rows = %d, want 0", len(all))
	}
	if sched.pendingCount() != 0 {
		t.Errorf("scheduled = %d, want 0", sched.pendingCount())
	}
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	coord, _, _, _ := setupCoordinator(t)

	_, err := coord.Create(context.Background(), CreateInput{Kind: "grooming", Title: "x"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestCompleteCancelsNotification(t *testing.T) {
	coord, _, sched, _ := setupCoordinator(t)

	created, _ := coord.Create(context.Background(), CreateInput{
		Kind:    model.ReminderKindVaccine,
		Title:   "Rabies",
		DueDate: "2024-06-15",
	})
	firstHandle := *created.ScheduleHandle

	updated, err := coord.SetCompleted(context.Background(), created.ID, true)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if !updated.Completed {
		t.Error("expected completed")
	}
	if updated.ScheduleHandle != nil {
		t.Errorf("handle = %q, want nil", *updated.ScheduleHandle)
	}
	if sched.pendingCount() != 0 {
		t.Errorf("scheduled = %d, want 0", sched.pendingCount())
	}
	if len(sched.cancelled) != 1 || sched.cancelled[0] != firstHandle {
		t.Errorf("cancelled = %v, want [%s]", sched.cancelled, firstHandle)
	}
}

func TestUncompleteSchedulesFreshHandle(t *testing.T) {
	coord, _, sched, _ := setupCoordinator(t)

	created, _ := coord.Create(context.Background(), CreateInput{
		Kind:    model.ReminderKindVaccine,
		Title:   "Rabies",
		DueDate: "2024-06-15",
	})
	firstHandle := *created.ScheduleHandle

	coord.SetCompleted(context.Background(), created.ID, true)
	reopened, err := coord.SetCompleted(context.Background(), created.ID, false)
	if err != nil {
		t.Fatalf("uncomplete: %v", err)
	}

	if reopened.ScheduleHandle == nil {
		t.Fatal("expected new handle")
	}
	if *reopened.ScheduleHandle == firstHandle {
		t.Error("handle must not be reused")
	}
	if sched.pendingCount() != 1 {
		t.Errorf("scheduled = %d, want 1", sched.pendingCount())
	}
}

func TestUpdateReplacesSchedule(t *testing.T) {
	coord, _, sched, _ := setupCoordinator(t)

	created, _ := coord.Create(context.Background(), CreateInput{
		Kind:    model.ReminderKindVaccine,
		Title:   "Rabies",
		DueDate: "2024-06-15",
	})
	firstHandle := *created.ScheduleHandle

	newDate := "2024-06-20"
	updated, err := coord.Update(context.Background(), created.ID, UpdateInput{DueDate: &newDate})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.DueDate != newDate {
		t.Errorf("due date = %q, want %q", updated.DueDate, newDate)
	}
	if updated.ScheduleHandle == nil || *updated.ScheduleHandle == firstHandle {
		t.Error("expected replacement handle")
	}
	if sched.pendingCount() != 1 {
		t.Errorf("scheduled = %d, want 1", sched.pendingCount())
	}
}

func TestDeleteCancelsThenRemoves(t *testing.T) {
	coord, backend, sched, st := setupCoordinator(t)

	created, _ := coord.Create(context.Background(), CreateInput{
		Kind:    model.ReminderKindVaccine,
		Title:   "Rabies",
		DueDate: "2024-06-15",
	})

	if err := coord.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if sched.pendingCount() != 0 {
		t.Errorf("scheduled = %d, want 0", sched.pendingCount())
	}
	row, _ := st.GetByID(created.ID)
	if row != nil {
		t.Error("cache row should be gone")
	}
	if _, ok := backend.reminders[created.ID]; ok {
		t.Error("backend record should be gone")
	}
}

func TestDeleteWithoutHandleStillWorks(t *testing.T) {
	coord, _, sched, _ := setupCoordinator(t)

	created, _ := coord.Create(context.Background(), CreateInput{
		Kind:  model.ReminderKindMedication,
		Title: "No date",
	})
	if err := coord.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(sched.cancelled) != 0 {
		t.Errorf("cancelled = %v, want none", sched.cancelled)
	}
}

func TestRestoreSchedulesReplacesStaleHandles(t *testing.T) {
	coord, _, sched, st := setupCoordinator(t)

	// Rows left over from a previous process, with handles that mean
	// nothing anymore.
	for i, id := range []string{"1", "2"} {
		st.Upsert(&model.Reminder{
			ID:      id,
			Kind:    model.ReminderKindVaccine,
			Title:   fmt.Sprintf("Reminder %d", i+1),
			DueDate: "2024-06-15",
		})
		st.AttachHandle(id, "dead-"+id)
	}
	st.Upsert(&model.Reminder{
		ID:        "3",
		Kind:      model.ReminderKindVaccine,
		Title:     "Done",
		DueDate:   "2024-06-15",
		Completed: true,
	})

	if err := coord.RestoreSchedules(); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if sched.pendingCount() != 2 {
		t.Errorf("scheduled = %d, want 2", sched.pendingCount())
	}
	for _, id := range []string{"1", "2"} {
		row, _ := st.GetByID(id)
		if row.ScheduleHandle == nil {
			t.Errorf("reminder %s has no handle", id)
			continue
		}
		if *row.ScheduleHandle == "dead-"+id {
			t.Errorf("reminder %s kept stale handle", id)
		}
	}
	row, _ := st.GetByID("3")
	if row.ScheduleHandle != nil {
		t.Error("completed reminder should not be scheduled")
	}
}

func TestRefreshReconcilesDeletionsAndAdditions(t *testing.T) {
	coord, backend, sched, st := setupCoordinator(t)

	created, _ := coord.Create(context.Background(), CreateInput{
		Kind:    model.ReminderKindVaccine,
		Title:   "Will vanish",
		DueDate: "2024-06-15",
	})

	// Backend now has a different set: the created one is gone, a new
	// pending one appeared.
	backend.mu.Lock()
	delete(backend.reminders, created.ID)
	backend.reminders["50"] = model.Reminder{
		ID:      "50",
		Kind:    model.ReminderKindDeworming,
		Title:   "New from clinic",
		DueDate: "2024-06-18",
	}
	backend.mu.Unlock()

	if err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if row, _ := st.GetByID(created.ID); row != nil {
		t.Error("deleted reminder still cached")
	}
	row, _ := st.GetByID("50")
	if row == nil {
		t.Fatal("new reminder not cached")
	}
	if row.ScheduleHandle == nil {
		t.Error("new pending reminder not scheduled")
	}
	if sched.pendingCount() != 1 {
		t.Errorf("scheduled = %d, want 1", sched.pendingCount())
	}
}
