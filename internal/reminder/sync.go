package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vetcontrol/companion/internal/model"
	"github.com/vetcontrol/companion/internal/store"
	"github.com/vetcontrol/companion/internal/websocket"
)

// ClinicBackend is the read-only slice of the API the syncer needs beyond
// reminders.
type ClinicBackend interface {
	ListPets(ctx context.Context) ([]model.Pet, error)
	ListAppointments(ctx context.Context) ([]model.Appointment, error)
	ListInvoices(ctx context.Context) ([]model.Invoice, error)
}

// Syncer periodically mirrors the owner's clinic data into the local cache.
// Reminders go through the Coordinator so notification state stays
// consistent; pets, appointments and invoices are plain cache refreshes.
type Syncer struct {
	coord    *Coordinator
	clinic   ClinicBackend
	pets     *store.PetStore
	appts    *store.AppointmentStore
	invoices *store.InvoiceStore
	hub      Broadcaster
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSyncer(coord *Coordinator, clinic ClinicBackend, pets *store.PetStore, appts *store.AppointmentStore, invoices *store.InvoiceStore, hub Broadcaster, interval time.Duration, logger *slog.Logger) *Syncer {
	return &Syncer{
		coord:    coord,
		clinic:   clinic,
		pets:     pets,
		appts:    appts,
		invoices: invoices,
		hub:      hub,
		interval: interval,
		logger:   logger.With("component", "sync"),
	}
}

// Start begins the periodic sync loop. An immediate sync runs first so the
// cache is warm before the first tick.
func (s *Syncer) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)

		if err := s.SyncNow(ctx); err != nil {
			s.logger.Warn("initial sync failed", "error", err)
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.SyncNow(ctx); err != nil {
					s.logger.Warn("sync failed", "error", err)
				}
			}
		}
	}()
}

// Stop halts the sync loop and waits for the current pass to finish.
func (s *Syncer) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// SyncNow runs one full sync pass. Each section syncs independently so one
// failing endpoint does not starve the others; the first error is returned.
func (s *Syncer) SyncNow(ctx context.Context) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(s.coord.Refresh(ctx))
	record(s.syncPets(ctx))
	record(s.syncAppointments(ctx))
	record(s.syncInvoices(ctx))

	if firstErr == nil {
		s.logger.Debug("sync complete")
	}
	return firstErr
}

func (s *Syncer) syncPets(ctx context.Context) error {
	pets, err := s.clinic.ListPets(ctx)
	if err != nil {
		return fmt.Errorf("sync pets: %w", err)
	}

	keep := make([]string, 0, len(pets))
	for i := range pets {
		if err := s.pets.Upsert(&pets[i]); err != nil {
			return err
		}
		keep = append(keep, pets[i].ID)
	}
	if err := s.pets.DeleteMissing(keep); err != nil {
		return err
	}
	s.broadcast("pet")
	return nil
}

func (s *Syncer) syncAppointments(ctx context.Context) error {
	appts, err := s.clinic.ListAppointments(ctx)
	if err != nil {
		return fmt.Errorf("sync appointments: %w", err)
	}

	keep := make([]string, 0, len(appts))
	for i := range appts {
		if err := s.appts.Upsert(&appts[i]); err != nil {
			return err
		}
		keep = append(keep, appts[i].ID)
	}
	if err := s.appts.DeleteMissing(keep); err != nil {
		return err
	}
	s.broadcast("appointment")
	return nil
}

func (s *Syncer) syncInvoices(ctx context.Context) error {
	invoices, err := s.clinic.ListInvoices(ctx)
	if err != nil {
		return fmt.Errorf("sync invoices: %w", err)
	}

	keep := make([]string, 0, len(invoices))
	for i := range invoices {
		if err := s.invoices.Upsert(&invoices[i]); err != nil {
			return err
		}
		keep = append(keep, invoices[i].ID)
	}
	if err := s.invoices.DeleteMissing(keep); err != nil {
		return err
	}
	s.broadcast("invoice")
	return nil
}

func (s *Syncer) broadcast(entity string) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(websocket.NewMessage(entity, "refreshed", "", nil))
}
