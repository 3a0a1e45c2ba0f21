package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"outreach_backend/platform/config"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		ProviderBaseURL: baseURL,
		ProviderAPIKey:  "test-key",
		CallScript:      "ask about funding",
		CallTimeout:     5 * time.Second,
		CallRateLimit:   1000,
		CallRateBurst:   1000,
	}
}

func TestPlaceCall(t *testing.T) {
	var gotAuth string
	var gotBody placeCallRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/calls" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(placeCallResponse{Status: "success", CallID: "call-123"})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)

	handle, err := client.PlaceCall(context.Background(), "+14155552671")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle.CallID != "call-123" {
		t.Errorf("expected call id call-123, got %q", handle.CallID)
	}
	if gotAuth != "test-key" {
		t.Errorf("expected api key in authorization header, got %q", gotAuth)
	}
	if gotBody.PhoneNumber != "+14155552671" {
		t.Errorf("expected phone number in request, got %q", gotBody.PhoneNumber)
	}
	if gotBody.Task != "ask about funding" {
		t.Errorf("expected configured script as task, got %q", gotBody.Task)
	}
	if !gotBody.AnsweredByEnabled {
		t.Error("expected answered_by detection to be enabled")
	}
}

func TestPlaceCallProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid phone number"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)

	_, err := client.PlaceCall(context.Background(), "+1")
	provErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if provErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", provErr.StatusCode)
	}
	if provErr.Message != "invalid phone number" {
		t.Errorf("expected provider message, got %q", provErr.Message)
	}
}

func TestPlaceCallMissingCallID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(placeCallResponse{Status: "error", Message: "out of credits"})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)

	_, err := client.PlaceCall(context.Background(), "+14155552671")
	if err == nil {
		t.Fatal("expected error when response has no call id")
	}
}

func TestGetCallStatus(t *testing.T) {
	duration := 93.4
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/calls/call-123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(CallStatus{
			CallID:                 "call-123",
			Status:                 "completed",
			Completed:              true,
			AnsweredBy:             "human",
			ConcatenatedTranscript: "agent: hi\nlead: hello",
			Summary:                "short chat",
			CallLength:             &duration,
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)

	status, err := client.GetCallStatus(context.Background(), "call-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Completed {
		t.Error("expected completed status")
	}
	if status.AnsweredBy != "human" {
		t.Errorf("expected answered_by human, got %q", status.AnsweredBy)
	}
	if status.CallLength == nil || *status.CallLength != duration {
		t.Errorf("expected call length %v, got %v", duration, status.CallLength)
	}
}

func TestGetCallStatusTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(testConfig(server.URL), nil)

	_, err := client.GetCallStatus(context.Background(), "call-123")
	if _, ok := err.(*Error); !ok {
		t.Fatalf("expected *Error on transport failure, got %T: %v", err, err)
	}
}
