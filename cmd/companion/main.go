package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vetcontrol/companion/internal/config"
	"github.com/vetcontrol/companion/internal/database"
	"github.com/vetcontrol/companion/internal/logging"
	"github.com/vetcontrol/companion/internal/notify"
	"github.com/vetcontrol/companion/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to config file (yaml)")
	genKeys := flag.Bool("generate-vapid-keys", false, "print a new VAPID key pair and exit")
	flag.Parse()

	if *genKeys {
		pub, priv, err := notify.GenerateVAPIDKeys()
		if err != nil {
			log.Fatalf("failed to generate VAPID keys: %v", err)
		}
		fmt.Printf("vapid_public_key: %s\nvapid_private_key: %s\n", pub, priv)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := logging.Setup(cfg.LogLevel)

	// Due times resolve in local time; pin the process to the configured
	// timezone so a headless host in UTC still schedules in the owner's day.
	if cfg.Notify.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Notify.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone %q: %v", cfg.Notify.Timezone, err)
		}
		time.Local = loc
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	srv := server.New(db, cfg, logger)

	// Channel record and presentation policy first, then re-register
	// notifications for whatever was pending when we last shut down.
	srv.NotifyService().Initialize()
	if err := srv.Coordinator().RestoreSchedules(); err != nil {
		logger.Warn("restore schedules", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.Syncer().Start(ctx)
	srv.BackupManager().Start(ctx)

	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("VetControl companion listening on %s\n", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}

	cancel()
	srv.Syncer().Stop()
	srv.BackupManager().Stop()
	srv.Scheduler().Stop()
}
