// Package batches wires the batch orchestration feature into the HTTP app.
package batches

import (
	"outreach_backend/internal/batches/handler"
	"outreach_backend/internal/batches/repository"
	"outreach_backend/internal/batches/service"
	apphttp "outreach_backend/internal/http"
	platformevents "outreach_backend/platform/events"
	"outreach_backend/platform/logger"
)

// Module bundles the batches feature.
type Module struct {
	Orchestrator *service.Orchestrator
	handler      *handler.Handler
}

// NewModule assembles the orchestrator and its HTTP handler.
func NewModule(
	store repository.Store,
	callProvider service.CallProvider,
	qualifier service.Qualifier,
	scheduler service.ReconcileScheduler,
	bus platformevents.Bus,
	log *logger.Logger,
	concurrency int,
) *Module {
	orch := service.NewOrchestrator(store, callProvider, qualifier, scheduler, bus, log, concurrency)
	return &Module{
		Orchestrator: orch,
		handler:      handler.New(orch, log),
	}
}

// Name implements apphttp.Module.
func (m *Module) Name() string { return "batches" }

// RegisterRoutes implements apphttp.Module.
func (m *Module) RegisterRoutes(rc apphttp.RouterContext) {
	group := rc.V1.Group("/batches")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/:id", m.handler.Get)
	group.POST("/:id/check-status", m.handler.CheckStatus)
	group.POST("/:id/start-call", m.handler.StartCall)
	group.DELETE("/:id", m.handler.Delete)
}
