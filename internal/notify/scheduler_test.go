package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vetcontrol/companion/internal/logging"
)

type captureSink struct {
	mu    sync.Mutex
	fired []Notification
	ch    chan Notification
}

func newCaptureSink() *captureSink {
	return &captureSink{ch: make(chan Notification, 8)}
}

func (s *captureSink) Deliver(ctx context.Context, n Notification) {
	s.mu.Lock()
	s.fired = append(s.fired, n)
	s.mu.Unlock()
	s.ch <- n
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fired)
}

func TestSchedulerFires(t *testing.T) {
	sink := newCaptureSink()
	sched := NewScheduler(sink, logging.Setup("error"))
	defer sched.Stop()

	handle, err := sched.Schedule("Vaccine", "Rabies booster", 10*time.Millisecond, ReminderMetadata("42"))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if handle == "" {
		t.Fatal("expected non-empty handle")
	}

	select {
	case n := <-sink.ch:
		if n.Handle != handle {
			t.Errorf("fired handle = %q, want %q", n.Handle, handle)
		}
		if n.Metadata.ReminderID != "42" {
			t.Errorf("metadata reminder = %q, want %q", n.Metadata.ReminderID, "42")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification never fired")
	}

	if got := len(sched.Scheduled()); got != 0 {
		t.Errorf("pending after fire = %d, want 0", got)
	}
}

func TestSchedulerHandlesAreUnique(t *testing.T) {
	sched := NewScheduler(newCaptureSink(), logging.Setup("error"))
	defer sched.Stop()

	h1, _ := sched.Schedule("a", "", time.Hour, TestMetadata())
	h2, _ := sched.Schedule("b", "", time.Hour, TestMetadata())
	if h1 == h2 {
		t.Errorf("expected distinct handles, got %q twice", h1)
	}
}

func TestSchedulerCancelPreventsFire(t *testing.T) {
	sink := newCaptureSink()
	sched := NewScheduler(sink, logging.Setup("error"))
	defer sched.Stop()

	handle, _ := sched.Schedule("Vaccine", "", 30*time.Millisecond, ReminderMetadata("1"))
	sched.Cancel(handle)

	time.Sleep(100 * time.Millisecond)
	if sink.count() != 0 {
		t.Errorf("cancelled notification fired %d times", sink.count())
	}
	if got := len(sched.Scheduled()); got != 0 {
		t.Errorf("pending after cancel = %d, want 0", got)
	}
}

func TestSchedulerCancelUnknownHandleIsNoop(t *testing.T) {
	sched := NewScheduler(newCaptureSink(), logging.Setup("error"))
	defer sched.Stop()

	// Must neither panic nor disturb other registrations.
	sched.Cancel("no-such-handle")

	handle, _ := sched.Schedule("a", "", time.Hour, TestMetadata())
	sched.Cancel("another-unknown")
	sched.Cancel(handle)
	sched.Cancel(handle) // double cancel is fine too

	if got := len(sched.Scheduled()); got != 0 {
		t.Errorf("pending = %d, want 0", got)
	}
}

func TestSchedulerStopRejectsNewWork(t *testing.T) {
	sched := NewScheduler(newCaptureSink(), logging.Setup("error"))
	sched.Schedule("a", "", time.Hour, TestMetadata())
	sched.Stop()

	if got := len(sched.Scheduled()); got != 0 {
		t.Errorf("pending after stop = %d, want 0", got)
	}
	if _, err := sched.Schedule("b", "", time.Minute, TestMetadata()); err != ErrSchedulerStopped {
		t.Errorf("schedule after stop error = %v, want ErrSchedulerStopped", err)
	}
}
