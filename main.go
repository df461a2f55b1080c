package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/apa-scorekeeper/internal/config"
	"github.com/mauv0809/apa-scorekeeper/internal/cookie"
	"github.com/mauv0809/apa-scorekeeper/internal/database"
	server "github.com/mauv0809/apa-scorekeeper/internal/http"
	"github.com/mauv0809/apa-scorekeeper/internal/metrics"
	"github.com/mauv0809/apa-scorekeeper/internal/sqlstore"
	"github.com/mauv0809/apa-scorekeeper/internal/storage"
)

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()

	jar, err := cookie.OpenFileJar(cfg.Cookie.JarPath)
	if err != nil {
		log.Fatalf("Failed to open cookie jar: %s", err)
	}

	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()
	clock := clockwork.NewRealClock()

	// The database handle is opened lazily by the probe and closed on shutdown.
	var db atomic.Pointer[sql.DB]
	var opener storage.Opener
	if cfg.StructuredStoreEnabled() {
		opener = func(ctx context.Context) (*sqlstore.Store, error) {
			conn, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken)
			if err != nil {
				return nil, err
			}
			db.Store(conn)
			return sqlstore.Open(ctx, conn,
				sqlstore.WithHistoryCap(cfg.HistoryCap),
				sqlstore.WithMetrics(metricsSvc),
				sqlstore.WithClock(clock),
			)
		}
	}
	defer func() {
		if conn := db.Load(); conn != nil {
			log.Info("Closing database connection")
			if err := conn.Close(); err != nil {
				log.Error("Failed to close database", "error", err)
			}
		}
	}()

	opts := storage.DefaultOptions()
	opts.Cookie.TotalBudget = cfg.Cookie.Budget
	opts.ProbeTimeout = cfg.ProbeTimeout
	opts.Clock = clock
	store := storage.New(jar, opener, opts, metricsSvc)
	store.Init(context.Background())

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %s", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.UsageInterval),
		gocron.NewTask(store.RecordUsage),
	)
	if err != nil {
		log.Fatalf("Failed to schedule storage usage job: %s", err)
	}
	scheduler.Start()

	s := server.NewServer(store, metricsSvc, metricsHandler, cfg)

	startupDuration := time.Since(startTime)
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		// Create a context with a timeout for the shutdown.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Attempt to gracefully shut down the server.
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
		if err := scheduler.Shutdown(); err != nil {
			log.Error("Scheduler shutdown failed", "error", err)
		}
		if err := store.Close(ctx); err != nil {
			log.Error("Failed to close storage", "error", err)
		}
	}

	log.Info("Server process shutting down")
}
