package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"outreach_backend/platform/logger"
)

func newRequestIDRouter(capture *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestLogger(logger.New("development")))
	engine.GET("/ping", func(c *gin.Context) {
		*capture, _ = c.Request.Context().Value(logger.RequestIDKey).(string)
		c.Status(http.StatusOK)
	})
	return engine
}

func TestRequestLoggerAssignsRequestID(t *testing.T) {
	var fromContext string
	engine := newRequestIDRouter(&fromContext)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if fromContext == "" {
		t.Fatal("expected a request id in the request context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != fromContext {
		t.Errorf("expected response header to echo the request id, got %q want %q", got, fromContext)
	}
}

func TestRequestLoggerHonorsIncomingRequestID(t *testing.T) {
	var fromContext string
	engine := newRequestIDRouter(&fromContext)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if fromContext != "req-42" {
		t.Errorf("expected incoming request id to be kept, got %q", fromContext)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("expected response header req-42, got %q", got)
	}
}
