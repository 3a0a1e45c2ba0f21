// Package provider is the HTTP client for the outbound call provider. It
// places calls and polls their status; it keeps no local state beyond a rate
// limiter.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// Error is a provider failure. Callers must treat a placement error as "no
// call placed" and a status poll error as "status unknown, retry later".
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("call provider: %s (status %d)", e.Message, e.StatusCode)
	}
	return "call provider: " + e.Message
}

// CallHandle identifies a placed call.
type CallHandle struct {
	CallID string `json:"call_id"`
}

// CallStatus is the provider's poll response for a call.
type CallStatus struct {
	CallID                 string   `json:"call_id"`
	Status                 string   `json:"status"`
	Completed              bool     `json:"completed"`
	AnsweredBy             string   `json:"answered_by"`
	Transcript             string   `json:"transcript"`
	ConcatenatedTranscript string   `json:"concatenated_transcript"`
	Summary                string   `json:"summary"`
	CallLength             *float64 `json:"call_length"`
	ErrorMessage           string   `json:"error_message"`
}

// Client talks to the call provider API.
type Client struct {
	baseURL   string
	apiKey    string
	script    string
	voicemail string
	http      *http.Client
	limiter   *rate.Limiter
	log       *logger.Logger
}

// NewClient builds a provider client from configuration. Every request is
// bounded by the configured call timeout and throttled by the configured
// rate limit.
func NewClient(cfg config.ProviderConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.GetProviderBaseURL(), "/"),
		apiKey:    cfg.GetProviderAPIKey(),
		script:    cfg.GetCallScript(),
		voicemail: cfg.GetVoicemailMessage(),
		http:      &http.Client{Timeout: cfg.GetCallTimeout()},
		limiter:   rate.NewLimiter(rate.Limit(cfg.GetCallRateLimit()), cfg.GetCallRateBurst()),
		log:       log,
	}
}

type placeCallRequest struct {
	PhoneNumber       string            `json:"phone_number"`
	Task              string            `json:"task"`
	VoicemailMessage  string            `json:"voicemail_message,omitempty"`
	VoicemailAction   string            `json:"voicemail_action"`
	Temperature       float64           `json:"temperature"`
	Record            bool              `json:"record"`
	AnsweredByEnabled bool              `json:"answered_by_enabled"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

type placeCallResponse struct {
	Status  string `json:"status"`
	CallID  string `json:"call_id"`
	Message string `json:"message"`
}

// PlaceCall initiates an outbound call to the given E.164 number.
func (c *Client) PlaceCall(ctx context.Context, phone string) (CallHandle, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return CallHandle{}, &Error{Message: err.Error()}
	}

	reqBody := placeCallRequest{
		PhoneNumber:       phone,
		Task:              c.script,
		VoicemailMessage:  c.voicemail,
		VoicemailAction:   "leave_message",
		Temperature:       0.7,
		Record:            true,
		AnsweredByEnabled: true,
		Metadata:          map[string]string{"source": "lead_upload"},
	}

	var resp placeCallResponse
	if err := c.do(ctx, http.MethodPost, "/v1/calls", reqBody, &resp); err != nil {
		return CallHandle{}, err
	}
	if resp.CallID == "" {
		msg := resp.Message
		if msg == "" {
			msg = "placement response missing call id"
		}
		return CallHandle{}, &Error{Message: msg}
	}
	return CallHandle{CallID: resp.CallID}, nil
}

// GetCallStatus polls the provider for the current state of a call.
func (c *Client) GetCallStatus(ctx context.Context, callID string) (CallStatus, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return CallStatus{}, &Error{Message: err.Error()}
	}

	var status CallStatus
	if err := c.do(ctx, http.MethodGet, "/v1/calls/"+callID, nil, &status); err != nil {
		return CallStatus{}, err
	}
	return status, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Message: "encode request: " + err.Error()}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Message: "build request: " + err.Error()}
	}
	req.Header.Set("Authorization", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: "read response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{StatusCode: resp.StatusCode, Message: providerMessage(data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &Error{StatusCode: resp.StatusCode, Message: "decode response: " + err.Error()}
		}
	}
	return nil
}

// providerMessage extracts a human-readable message from an error body.
func providerMessage(data []byte) string {
	var payload struct {
		Message string `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if len(payload.Errors) > 0 && payload.Errors[0].Message != "" {
			return payload.Errors[0].Message
		}
	}
	if len(data) > 0 {
		return string(data)
	}
	return "request failed"
}
