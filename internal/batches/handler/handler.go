// Package handler exposes the batches HTTP API.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"outreach_backend/internal/batches/service"
	"outreach_backend/internal/batches/transport"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"
)

// Handler handles batch HTTP requests.
type Handler struct {
	orch *service.Orchestrator
	log  *logger.Logger
}

// New creates a batches handler.
func New(orch *service.Orchestrator, log *logger.Logger) *Handler {
	return &Handler{orch: orch, log: log}
}

// List handles GET /batches.
func (h *Handler) List(c *gin.Context) {
	batches, err := h.orch.ListBatches(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, batches)
}

// Get handles GET /batches/:id.
func (h *Handler) Get(c *gin.Context) {
	batch, err := h.orch.GetBatch(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, batch)
}

// Create handles POST /batches.
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if fieldErrs := validator.Struct(req); fieldErrs != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", fieldErrs)
		return
	}

	result, err := h.orch.CreateBatch(c.Request.Context(), req.Name, req.Leads)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.CreateBatchResponse{
		ID:             result.Batch.ID,
		LeadsProcessed: result.LeadsProcessed,
		CallsStarted:   result.CallsStarted,
		Status:         string(result.Batch.Status),
	})
}

// CheckStatus handles POST /batches/:id/check-status.
func (h *Handler) CheckStatus(c *gin.Context) {
	batch, err := h.orch.Reconcile(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, batch)
}

// StartCall handles POST /batches/:id/start-call.
func (h *Handler) StartCall(c *gin.Context) {
	var req transport.StartCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if fieldErrs := validator.Struct(req); fieldErrs != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", fieldErrs)
		return
	}

	callID, err := h.orch.StartSingleCall(c.Request.Context(), c.Param("id"), req.LeadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.StartCallResponse{CallID: callID})
}

// Delete handles DELETE /batches/:id.
func (h *Handler) Delete(c *gin.Context) {
	err := h.orch.DeleteBatch(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.NoContent(c)
}
