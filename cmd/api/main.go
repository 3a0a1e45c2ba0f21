// Command api runs the outreach HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach_backend/internal/batches"
	"outreach_backend/internal/batches/repository"
	"outreach_backend/internal/batches/service"
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/http/router"
	"outreach_backend/internal/notification"
	"outreach_backend/internal/provider"
	"outreach_backend/internal/qualifier"
	"outreach_backend/internal/scheduler"
	"outreach_backend/platform/config"
	"outreach_backend/platform/db"
	platformevents "outreach_backend/platform/events"
	"outreach_backend/platform/logger"
)

const migrationsDir = "migrations"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Env)
	log.Info("starting api", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Error("store_init_failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	bus := platformevents.NewInMemoryBus(log)

	var sched service.ReconcileScheduler
	if cfg.RedisURL != "" {
		client, err := scheduler.NewClient(cfg, log)
		if err != nil {
			log.Error("scheduler_init_failed", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		sched = client
	} else {
		log.Warn("background reconciliation disabled, REDIS_URL not set")
	}

	callProvider := provider.NewClient(cfg, log)
	qual := qualifier.NewClient(cfg, log)

	batchesModule := batches.NewModule(store, callProvider, qual, sched, bus, log, cfg.CallConcurrency)

	if cfg.EmailEnabled {
		sender := notification.NewSMTPSender(cfg, log)
		notification.NewModule(sender, log).Register(bus)
		log.Info("batch summary emails enabled", "to", cfg.NotifyEmailTo)
	}

	app := apphttp.NewApp(cfg, log, batchesModule)
	engine := router.New(app)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown_failed", "error", err)
	}
}

// buildStore selects the batch store: Postgres when DATABASE_URL is set,
// otherwise the JSON file store.
func buildStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.Store, func(), error) {
	if !cfg.IsPostgresEnabled() {
		store, err := repository.NewFileStore(cfg.BatchDataDir, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using file store", "dir", cfg.BatchDataDir)
		return store, func() {}, nil
	}

	if err := withRetry(5, 2*time.Second, func() error {
		return db.Migrate(cfg.DatabaseURL, migrationsDir)
	}); err != nil {
		return nil, nil, err
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info("using postgres store")
	return repository.NewPostgresStore(pool), pool.Close, nil
}

func withRetry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		time.Sleep(delay)
	}
	return err
}
