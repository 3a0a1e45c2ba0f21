package http

import (
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// App carries the shared dependencies and the registered feature modules.
type App struct {
	Config  *config.Config
	Log     *logger.Logger
	Modules []Module
}

// NewApp creates the application container.
func NewApp(cfg *config.Config, log *logger.Logger, modules ...Module) *App {
	return &App{Config: cfg, Log: log, Modules: modules}
}
