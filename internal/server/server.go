package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/vetcontrol/companion/internal/api"
	"github.com/vetcontrol/companion/internal/backup"
	"github.com/vetcontrol/companion/internal/config"
	"github.com/vetcontrol/companion/internal/handler"
	"github.com/vetcontrol/companion/internal/middleware"
	"github.com/vetcontrol/companion/internal/notify"
	"github.com/vetcontrol/companion/internal/payments"
	"github.com/vetcontrol/companion/internal/reminder"
	"github.com/vetcontrol/companion/internal/store"
	ws "github.com/vetcontrol/companion/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	reminderH     *handler.ReminderHandler
	petH          *handler.PetHandler
	appointmentH  *handler.AppointmentHandler
	invoiceH      *handler.InvoiceHandler
	pushH         *handler.PushHandler
	notificationH *handler.NotificationHandler
	settingsH     *handler.SettingsHandler
	backupH       *handler.BackupHandler
	profileH      *handler.ProfileHandler
	rateLimiter   *middleware.RateLimiter

	notifyService *notify.Service
	scheduler     *notify.Scheduler
	coordinator   *reminder.Coordinator
	syncer        *reminder.Syncer
	backupManager *backup.Manager
	logger        *slog.Logger
}

// New wires the whole companion together: stores, the notification service,
// the scheduler, the coordinator, the syncer, and all HTTP handlers.
func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	reminderStore := store.NewReminderStore(db)
	petStore := store.NewPetStore(db)
	appointmentStore := store.NewAppointmentStore(db)
	invoiceStore := store.NewInvoiceStore(db)
	pushStore := store.NewPushStore(db)
	settingsStore := store.NewSettingsStore(db)
	backupStore := store.NewBackupStore(db)

	client := api.NewClient(api.Config{
		BaseURL:  cfg.Backend.BaseURL,
		Email:    cfg.Backend.Email,
		Password: cfg.Backend.Password,
		Timeout:  time.Duration(cfg.Backend.Timeout) * time.Second,
	}, logger)

	var sender *notify.WebPushSender
	if cfg.PushConfigured() {
		sender = notify.NewWebPushSender(cfg.Notify.VAPIDPublicKey, cfg.Notify.VAPIDPrivateKey, cfg.Notify.Subscriber)
	}
	notifySvc := notify.NewService(pushStore, settingsStore, sender, hub, logger)
	scheduler := notify.NewScheduler(notifySvc, logger)

	coordinator := reminder.NewCoordinator(client, reminderStore, notifySvc, scheduler, hub, logger)
	syncer := reminder.NewSyncer(coordinator, client, petStore, appointmentStore, invoiceStore, hub,
		time.Duration(cfg.Sync.IntervalMinutes)*time.Minute, logger)

	var stripeClient *payments.Client
	if cfg.Stripe.SecretKey != "" {
		stripeClient = payments.NewClient(payments.Config{
			SecretKey:      cfg.Stripe.SecretKey,
			PublishableKey: cfg.Stripe.PublishableKey,
		})
	}

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.Endpoint,
			Bucket:    cfg.Backup.Bucket,
			Region:    cfg.Backup.Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		},
		DBPath: cfg.DBPath,
	}, db, backupStore, settingsStore, func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
			Payload: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	})

	return &Server{
		db:            db,
		hub:           hub,
		reminderH:     handler.NewReminderHandler(coordinator, logger.With("component", "reminder_handler")),
		petH:          handler.NewPetHandler(petStore, logger.With("component", "pet_handler")),
		appointmentH:  handler.NewAppointmentHandler(appointmentStore, logger.With("component", "appointment_handler")),
		invoiceH:      handler.NewInvoiceHandler(invoiceStore, client, stripeClient, hub, logger.With("component", "invoice_handler")),
		pushH:         handler.NewPushHandler(pushStore, notifySvc, sender, scheduler, logger.With("component", "push_handler")),
		notificationH: handler.NewNotificationHandler(coordinator, notifySvc, scheduler, hub, logger.With("component", "notification_handler")),
		settingsH:     handler.NewSettingsHandler(settingsStore, logger.With("component", "settings_handler")),
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		profileH:      handler.NewProfileHandler(client, logger.With("component", "profile_handler")),
		rateLimiter:   middleware.NewRateLimiter(),
		notifyService: notifySvc,
		scheduler:     scheduler,
		coordinator:   coordinator,
		syncer:        syncer,
		backupManager: backupMgr,
		logger:        logger,
	}
}

// NotifyService returns the notification service for startup initialization.
func (s *Server) NotifyService() *notify.Service {
	return s.notifyService
}

// Scheduler returns the notification scheduler for shutdown.
func (s *Server) Scheduler() *notify.Scheduler {
	return s.scheduler
}

// Coordinator returns the reminder coordinator for startup restore.
func (s *Server) Coordinator() *reminder.Coordinator {
	return s.coordinator
}

// Syncer returns the background syncer.
func (s *Server) Syncer() *reminder.Syncer {
	return s.syncer
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	// Reminders
	mux.HandleFunc("GET /api/reminders", s.reminderH.List)
	mux.HandleFunc("POST /api/reminders", s.reminderH.Create)
	mux.HandleFunc("POST /api/reminders/refresh", s.reminderH.Refresh)
	mux.HandleFunc("GET /api/reminders/{id}", s.reminderH.Get)
	mux.HandleFunc("PUT /api/reminders/{id}", s.reminderH.Update)
	mux.HandleFunc("DELETE /api/reminders/{id}", s.reminderH.Delete)
	mux.HandleFunc("POST /api/reminders/{id}/complete", s.reminderH.Complete)

	// Pets
	mux.HandleFunc("GET /api/pets", s.petH.List)
	mux.HandleFunc("GET /api/pets/{id}", s.petH.Get)

	// Appointments
	mux.HandleFunc("GET /api/appointments", s.appointmentH.List)
	mux.HandleFunc("GET /api/appointments/{id}", s.appointmentH.Get)

	// Invoices
	mux.HandleFunc("GET /api/invoices", s.invoiceH.List)
	mux.HandleFunc("POST /api/invoices/{id}/payment-sheet", s.invoiceH.PaymentSheet)
	mux.HandleFunc("POST /api/invoices/{id}/pay", s.rateLimited(s.invoiceH.Pay))

	// Push subscriptions and preferences
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/preferences", s.pushH.GetPreferences)
	mux.HandleFunc("PUT /api/push/preferences", s.pushH.SetPreference)
	mux.HandleFunc("POST /api/push/test", s.pushH.Test)

	// Notifications
	mux.HandleFunc("POST /api/notifications/tap", s.notificationH.Tap)
	mux.HandleFunc("GET /api/notifications/scheduled", s.notificationH.Scheduled)
	mux.HandleFunc("GET /api/notifications/permission", s.notificationH.Permission)

	// Settings
	mux.HandleFunc("GET /api/settings", s.settingsH.List)
	mux.HandleFunc("PUT /api/settings", s.settingsH.Update)

	// Backups
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("POST /api/backups", s.rateLimited(s.backupH.Run))
	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.HandleFunc("POST /api/backups/{id}/restore", s.rateLimited(s.backupH.Restore))
	mux.HandleFunc("GET /api/backups/{id}/download", s.backupH.Download)

	// Profile
	mux.HandleFunc("GET /api/profile", s.profileH.Get)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
