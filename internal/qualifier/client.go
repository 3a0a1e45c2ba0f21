// Package qualifier scores call transcripts against a chat-completion model
// constrained by a strict JSON schema.
package qualifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// Error is a qualification failure, either transport or malformed model
// output. Callers leave the lead unchanged and retry on the next
// reconciliation; a guessed score is never substituted.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("qualifier: %s (status %d)", e.Message, e.StatusCode)
	}
	return "qualifier: " + e.Message
}

// Result is the structured outcome of scoring a transcript.
type Result struct {
	Score      int    `json:"score"`
	Summary    string `json:"summary"`
	Transcript string `json:"transcript"`
}

const (
	minScore = 1
	maxScore = 5
)

const systemPrompt = `You evaluate sales call transcripts for lead interest in business funding.
Score the transcript from 1 to 5:
1 = no interest or hostile, 2 = weak interest, 3 = moderate interest worth a follow-up,
4 = strong interest, 5 = ready to proceed.
Return the score, a one-paragraph summary of the conversation, and the cleaned transcript.`

// Client talks to an OpenAI-compatible chat completion API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	log     *logger.Logger
}

// NewClient builds a qualifier client from configuration.
func NewClient(cfg config.QualifierConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.GetQualifierBaseURL(), "/"),
		apiKey:  cfg.GetQualifierAPIKey(),
		model:   cfg.GetQualifierModel(),
		http:    &http.Client{Timeout: cfg.GetQualifierTimeout()},
		log:     log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

// resultSchema constrains the model output to exactly the Result shape.
var resultSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"score": {"type": "integer", "minimum": 1, "maximum": 5},
		"summary": {"type": "string"},
		"transcript": {"type": "string"}
	},
	"required": ["score", "summary", "transcript"],
	"additionalProperties": false
}`)

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Qualify scores the given transcript. The model reply must satisfy the
// result schema; replies that cannot be parsed even after repair, or that
// score outside the 1-5 scale, fail rather than guessing.
func (c *Client) Qualify(ctx context.Context, transcript string) (Result, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Transcript:\n" + transcript},
		},
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchema{
				Name:   "call_qualification",
				Strict: true,
				Schema: resultSchema,
			},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, &Error{Message: "encode request: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Result{}, &Error{Message: "build request: " + err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, &Error{StatusCode: resp.StatusCode, Message: "read response: " + err.Error()}
	}

	var chat chatResponse
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := "request failed"
		if json.Unmarshal(data, &chat) == nil && chat.Error != nil {
			msg = chat.Error.Message
		}
		return Result{}, &Error{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, &chat); err != nil {
		return Result{}, &Error{Message: "decode response: " + err.Error()}
	}
	if len(chat.Choices) == 0 {
		return Result{}, &Error{Message: "response has no choices"}
	}

	result, err := parseResult(chat.Choices[0].Message.Content)
	if err != nil {
		return Result{}, err
	}
	if result.Transcript == "" {
		result.Transcript = transcript
	}
	return result, nil
}

// parseResult decodes the model's JSON content. Model output occasionally
// arrives truncated or wrapped in markdown fences; a repair pass is attempted
// before giving up.
func parseResult(content string) (Result, error) {
	content = strings.TrimSpace(content)

	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(content)
		if repairErr != nil {
			return Result{}, &Error{Message: "malformed model output: " + err.Error()}
		}
		if err := json.Unmarshal([]byte(repaired), &result); err != nil {
			return Result{}, &Error{Message: "malformed model output after repair: " + err.Error()}
		}
	}

	if result.Score < minScore || result.Score > maxScore {
		return Result{}, &Error{Message: fmt.Sprintf("score %d outside scale %d-%d", result.Score, minScore, maxScore)}
	}
	return result, nil
}
