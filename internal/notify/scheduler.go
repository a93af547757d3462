package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSchedulerStopped is returned by Schedule after Stop has been called.
var ErrSchedulerStopped = errors.New("scheduler stopped")

const deliverTimeout = 30 * time.Second

// Notification is a scheduled local notification.
type Notification struct {
	Handle   string    `json:"handle"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Metadata Metadata  `json:"metadata"`
	FireAt   time.Time `json:"fireAt"`
}

// Sink receives notifications whose delay has elapsed.
type Sink interface {
	Deliver(ctx context.Context, n Notification)
}

type pending struct {
	Notification
	timer *time.Timer
}

// Scheduler holds delayed notifications and fires them through a Sink.
// Handles are opaque, unique per schedule call, and only meaningful within
// the lifetime of this process; they are never reused after firing or
// cancellation.
type Scheduler struct {
	sink   Sink
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*pending
	stopped bool
}

func NewScheduler(sink Sink, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sink:    sink,
		logger:  logger.With("component", "scheduler"),
		pending: make(map[string]*pending),
	}
}

// Schedule registers a notification to fire after delay and returns its
// handle. The delay is taken as given; callers resolve it with ResolveDueTime.
func (s *Scheduler) Schedule(title, body string, delay time.Duration, meta Metadata) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return "", ErrSchedulerStopped
	}

	handle := uuid.NewString()
	p := &pending{Notification: Notification{
		Handle:   handle,
		Title:    title,
		Body:     body,
		Metadata: meta,
		FireAt:   time.Now().Add(delay),
	}}
	p.timer = time.AfterFunc(delay, func() { s.fire(handle) })
	s.pending[handle] = p

	s.logger.Debug("notification scheduled", "handle", handle, "fire_at", p.FireAt)
	return handle, nil
}

func (s *Scheduler) fire(handle string) {
	s.mu.Lock()
	p, ok := s.pending[handle]
	delete(s.pending, handle)
	s.mu.Unlock()
	if !ok {
		// Cancelled between the timer firing and us taking the lock.
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	s.sink.Deliver(ctx, p.Notification)
}

// Cancel removes a pending notification. Unknown, already-fired and
// already-cancelled handles are a silent no-op.
func (s *Scheduler) Cancel(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[handle]
	if !ok {
		return
	}
	p.timer.Stop()
	delete(s.pending, handle)
	s.logger.Debug("notification cancelled", "handle", handle)
}

// Scheduled returns a snapshot of pending notifications, for diagnostics.
func (s *Scheduler) Scheduled() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Notification, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p.Notification)
	}
	return out
}

// Stop cancels every pending timer and rejects further Schedule calls.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for handle, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, handle)
	}
	s.stopped = true
}
