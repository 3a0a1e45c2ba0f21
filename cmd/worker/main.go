// Command worker runs the background batch reconciliation loop.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"outreach_backend/internal/batches/repository"
	"outreach_backend/internal/batches/service"
	"outreach_backend/internal/notification"
	"outreach_backend/internal/provider"
	"outreach_backend/internal/qualifier"
	"outreach_backend/internal/scheduler"
	"outreach_backend/platform/config"
	"outreach_backend/platform/db"
	platformevents "outreach_backend/platform/events"
	"outreach_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if cfg.RedisURL == "" {
		os.Stderr.WriteString("REDIS_URL is required for the worker\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "queue", cfg.AsynqQueueName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Error("store_init_failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	client, err := scheduler.NewClient(cfg, log)
	if err != nil {
		log.Error("scheduler_init_failed", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	bus := platformevents.NewInMemoryBus(log)
	if cfg.EmailEnabled {
		sender := notification.NewSMTPSender(cfg, log)
		notification.NewModule(sender, log).Register(bus)
	}

	callProvider := provider.NewClient(cfg, log)
	qual := qualifier.NewClient(cfg, log)
	orch := service.NewOrchestrator(store, callProvider, qual, client, bus, log, cfg.CallConcurrency)

	worker, err := scheduler.NewWorker(cfg, orch, client, log)
	if err != nil {
		log.Error("worker_init_failed", "error", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down worker")
		worker.Shutdown()
	}()

	if err := worker.Run(); err != nil {
		log.Error("worker_failed", "error", err)
		os.Exit(1)
	}
}

func buildStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.Store, func(), error) {
	if !cfg.IsPostgresEnabled() {
		store, err := repository.NewFileStore(cfg.BatchDataDir, log)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewPostgresStore(pool), pool.Close, nil
}
