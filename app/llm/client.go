package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/newsroom/app/metrics"
)

var (
	ErrNotConfigured = errors.New("completion client is not configured")
	ErrEmptyResponse = errors.New("model returned empty content")
)

// APIError is a non-2xx answer from the completion endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completion API returned HTTP %d: %s", e.StatusCode, e.Body)
}

// SchemaError reports a model answer that does not satisfy the requested
// schema.
type SchemaError struct {
	Field string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("model response is missing required field %q", e.Field)
}

type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
	UserAgent         string
}

// Request is one schema-constrained completion.
type Request struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	SchemaName   string
	Schema       map[string]any
}

// Client talks to an OpenAI-compatible chat completions endpoint and decodes
// structured JSON answers.
type Client struct {
	endpoint     string
	apiKey       string
	defaultModel string
	userAgent    string
	timeout      time.Duration
	limiter      *rate.Limiter
	httpClient   *http.Client
}

func NewClient(cfg Config) *Client {
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Client{
		endpoint:     strings.TrimSuffix(cfg.BaseURL, "/") + "/chat/completions",
		apiKey:       cfg.APIKey,
		defaultModel: cfg.Model,
		userAgent:    cfg.UserAgent,
		timeout:      cfg.Timeout,
		limiter:      limiter,
		httpClient:   &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends req and decodes the model's JSON answer into out. Top-level
// fields listed as required by the schema must be present.
func (c *Client) Complete(ctx context.Context, req Request, out any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:   req.SchemaName,
				Strict: true,
				Schema: req.Schema,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode completion request: %w", err)
	}

	start := time.Now()
	content, err := c.send(ctx, body)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordCompletion(status, time.Since(start).Seconds())
	if err != nil {
		return err
	}

	slog.Debug("Completion received", "schema", req.SchemaName, "model", model, "duration", time.Since(start))

	raw := []byte(cleanJSON(content))
	if err := checkRequired(req.Schema, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode model response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}

	return decoded.Choices[0].Message.Content, nil
}

// cleanJSON strips the markdown fences some models wrap around JSON.
func cleanJSON(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}

func checkRequired(schema map[string]any, raw []byte) error {
	required, ok := schema["required"].([]string)
	if !ok || len(required) == 0 {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("failed to decode model response: %w", err)
	}
	for _, name := range required {
		value, ok := fields[name]
		if !ok || string(value) == "null" {
			return &SchemaError{Field: name}
		}
	}
	return nil
}
