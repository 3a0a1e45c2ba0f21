package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"outreach_backend/internal/batches/repository"
	"outreach_backend/internal/batches/service"
	"outreach_backend/internal/batches/transport"
	"outreach_backend/internal/provider"
	"outreach_backend/internal/qualifier"
	"outreach_backend/platform/logger"
)

type stubProvider struct{}

func (stubProvider) PlaceCall(ctx context.Context, phone string) (provider.CallHandle, error) {
	return provider.CallHandle{CallID: "call-" + phone}, nil
}

func (stubProvider) GetCallStatus(ctx context.Context, callID string) (provider.CallStatus, error) {
	return provider.CallStatus{CallID: callID, Status: "in-progress"}, nil
}

type stubQualifier struct{}

func (stubQualifier) Qualify(ctx context.Context, transcript string) (qualifier.Result, error) {
	return qualifier.Result{Score: 4, Summary: "interested", Transcript: transcript}, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := repository.NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	log := logger.New("development")
	orch := service.NewOrchestrator(store, stubProvider{}, stubQualifier{}, nil, nil, log, 4)
	h := New(orch, log)

	engine := gin.New()
	group := engine.Group("/api/v1/batches")
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.POST("/:id/check-status", h.CheckStatus)
	group.POST("/:id/start-call", h.StartCall)
	group.DELETE("/:id", h.Delete)
	return engine
}

func doRequest(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func createBatch(t *testing.T, engine *gin.Engine) transport.CreateBatchResponse {
	t.Helper()
	rec := doRequest(t, engine, http.MethodPost, "/api/v1/batches",
		`{"name":"june","leads":[{"id":"lead-a","name":"Ada","phone":"+14155552671"},{"id":"lead-b","name":"Ben"}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp transport.CreateBatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestCreateBatchEndpoint(t *testing.T) {
	engine := newTestRouter(t)

	resp := createBatch(t, engine)
	if resp.ID == "" {
		t.Error("expected batch id in response")
	}
	if resp.LeadsProcessed != 1 {
		t.Errorf("expected 1 lead processed, got %d", resp.LeadsProcessed)
	}
	if resp.CallsStarted != 1 {
		t.Errorf("expected 1 call started, got %d", resp.CallsStarted)
	}
	if resp.Status != "in_progress" {
		t.Errorf("expected in_progress status, got %q", resp.Status)
	}
}

func TestCreateBatchNoPhonesReturns400(t *testing.T) {
	engine := newTestRouter(t)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/batches",
		`{"leads":[{"name":"Ben"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateBatchEmptyLeadsReturns400(t *testing.T) {
	engine := newTestRouter(t)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/batches", `{"leads":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetBatchEndpoint(t *testing.T) {
	engine := newTestRouter(t)
	created := createBatch(t, engine)

	rec := doRequest(t, engine, http.MethodGet, "/api/v1/batches/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, engine, http.MethodGet, "/api/v1/batches/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing batch, got %d", rec.Code)
	}
}

func TestListBatchesEndpoint(t *testing.T) {
	engine := newTestRouter(t)
	createBatch(t, engine)

	rec := doRequest(t, engine, http.MethodGet, "/api/v1/batches", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var batches []json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &batches); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(batches) != 1 {
		t.Errorf("expected 1 batch, got %d", len(batches))
	}
}

func TestCheckStatusEndpoint(t *testing.T) {
	engine := newTestRouter(t)
	created := createBatch(t, engine)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/batches/"+created.ID+"/check-status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, engine, http.MethodPost, "/api/v1/batches/missing/check-status", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing batch, got %d", rec.Code)
	}
}

func TestStartCallEndpoint(t *testing.T) {
	engine := newTestRouter(t)
	created := createBatch(t, engine)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/batches/"+created.ID+"/start-call",
		`{"leadId":"lead-a"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp transport.StartCallResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.CallID == "" {
		t.Error("expected call id in response")
	}

	// Phoneless lead.
	rec = doRequest(t, engine, http.MethodPost, "/api/v1/batches/"+created.ID+"/start-call",
		`{"leadId":"lead-b"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for phoneless lead, got %d", rec.Code)
	}

	// Missing lead id in body.
	rec = doRequest(t, engine, http.MethodPost, "/api/v1/batches/"+created.ID+"/start-call", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing lead id, got %d", rec.Code)
	}
}

func TestDeleteBatchEndpoint(t *testing.T) {
	engine := newTestRouter(t)
	created := createBatch(t, engine)

	rec := doRequest(t, engine, http.MethodDelete, "/api/v1/batches/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doRequest(t, engine, http.MethodDelete, "/api/v1/batches/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}
