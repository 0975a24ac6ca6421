package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type headlineAnswer struct {
	Headline string `json:"headline"`
	IDs      []int  `json:"ids"`
}

var headlineSchema = Object(map[string]any{
	"headline": String("The headline"),
	"ids":      Array(Integer(""), "Cited ids"),
})

func completionServer(t *testing.T, status int, content string, capture *chatRequest) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected bearer auth header, got '%s'", r.Header.Get("Authorization"))
		}
		if capture != nil {
			json.NewDecoder(r.Body).Decode(capture)
		}

		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":"boom"}`))
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(url string) *Client {
	return NewClient(Config{
		BaseURL: url + "/",
		APIKey:  "test-key",
		Model:   "default-model",
		Timeout: time.Second,
	})
}

func TestComplete(t *testing.T) {
	var captured chatRequest
	server := completionServer(t, http.StatusOK, "```json\n{\"headline\":\"Storm\",\"ids\":[1,2]}\n```", &captured)

	var answer headlineAnswer
	err := newTestClient(server.URL).Complete(context.Background(), Request{
		SystemPrompt: "system",
		UserPrompt:   "user",
		SchemaName:   "headline",
		Schema:       headlineSchema,
	}, &answer)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if answer.Headline != "Storm" {
		t.Errorf("Expected headline 'Storm', got '%s'", answer.Headline)
	}
	if len(answer.IDs) != 2 {
		t.Errorf("Expected 2 ids, got %d", len(answer.IDs))
	}

	if captured.Model != "default-model" {
		t.Errorf("Expected default model, got '%s'", captured.Model)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Content != "user" {
		t.Errorf("Unexpected messages: %+v", captured.Messages)
	}
	if captured.ResponseFormat.Type != "json_schema" || captured.ResponseFormat.JSONSchema == nil {
		t.Fatalf("Expected json_schema response format, got %+v", captured.ResponseFormat)
	}
	if captured.ResponseFormat.JSONSchema.Name != "headline" {
		t.Errorf("Expected schema name 'headline', got '%s'", captured.ResponseFormat.JSONSchema.Name)
	}
}

func TestCompleteFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
		check   func(t *testing.T, err error)
	}{
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
					t.Errorf("Expected APIError 500, got %v", err)
				}
			},
		},
		{
			name:    "empty content",
			status:  http.StatusOK,
			content: "   ",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrEmptyResponse) {
					t.Errorf("Expected ErrEmptyResponse, got %v", err)
				}
			},
		},
		{
			name:    "missing required field",
			status:  http.StatusOK,
			content: `{"headline":"Storm"}`,
			check: func(t *testing.T, err error) {
				var schemaErr *SchemaError
				if !errors.As(err, &schemaErr) || schemaErr.Field != "ids" {
					t.Errorf("Expected SchemaError for 'ids', got %v", err)
				}
			},
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			content: "I cannot help with that",
			check: func(t *testing.T, err error) {
				if err == nil {
					t.Error("Expected decode error")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := completionServer(t, tt.status, tt.content, nil)

			var answer headlineAnswer
			err := newTestClient(server.URL).Complete(context.Background(), Request{
				SchemaName: "headline",
				Schema:     headlineSchema,
			}, &answer)
			tt.check(t, err)
		})
	}
}

func TestCompleteNotConfigured(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost"})

	var answer headlineAnswer
	err := client.Complete(context.Background(), Request{Schema: headlineSchema}, &answer)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
}

func TestCompleteTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key", Timeout: 50 * time.Millisecond})

	var answer headlineAnswer
	if err := client.Complete(context.Background(), Request{Schema: headlineSchema}, &answer); err == nil {
		t.Error("Expected timeout error")
	}
}

func TestObjectSchemaRequiresAllProperties(t *testing.T) {
	required, ok := headlineSchema["required"].([]string)
	if !ok {
		t.Fatalf("Expected required to be []string, got %T", headlineSchema["required"])
	}
	if len(required) != 2 || required[0] != "headline" || required[1] != "ids" {
		t.Errorf("Expected [headline ids], got %v", required)
	}
	if headlineSchema["additionalProperties"] != false {
		t.Error("Expected additionalProperties false")
	}
}
