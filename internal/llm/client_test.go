package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WaveAssist/WaveAssist/internal/errors"
)

func TestClient_Complete(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices": [{"message": {"role": "assistant", "content": "{\"ok\": true}"}, "finish_reason": "stop"}]}`)
	}))
	defer server.Close()

	temperature := 0.2
	client := NewClient(server.URL+"/api/v1/", "sk-test")
	content, err := client.Complete(context.Background(), Request{
		Model:       "openai/gpt-4o-mini",
		Messages:    []Message{{Role: RoleUser, Content: "hi"}},
		Temperature: &temperature,
		MaxTokens:   64,
		JSONMode:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, content)

	assert.Equal(t, "openai/gpt-4o-mini", received["model"])
	assert.Equal(t, 0.2, received["temperature"])
	assert.Equal(t, float64(64), received["max_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, received["response_format"])
	assert.Equal(t, []any{map[string]any{"role": "user", "content": "hi"}}, received["messages"])
}

func TestClient_OmitsOptionalFields(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = io.WriteString(w, `{"choices": [{"message": {"content": "x"}}]}`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "sk-test").Complete(context.Background(), Request{Model: "m"})
	require.NoError(t, err)
	assert.NotContains(t, received, "response_format")
	assert.NotContains(t, received, "temperature")
	assert.NotContains(t, received, "max_tokens")
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"api error", http.StatusUnauthorized, `{"error": {"message": "invalid key"}}`, "API error (status 401): invalid key"},
		{"plain error", http.StatusBadGateway, `upstream down`, "unexpected status code 502: upstream down"},
		{"no choices", http.StatusOK, `{"choices": []}`, "no choices in response"},
		{"bad body", http.StatusOK, `not json`, "error parsing response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := NewClient(server.URL, "sk-test").Complete(context.Background(), Request{Model: "m"})
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrLLMCall)
			assert.ErrorIs(t, err, &errors.AppError{Type: errors.ErrorTypeLLM})
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestClient_MissingAPIKey(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1", "").Complete(context.Background(), Request{Model: "m"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingAPIKey)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := NewClient(server.URL, "sk-test", WithTimeout(50*time.Millisecond)).Complete(context.Background(), Request{Model: "m"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrLLMCall)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
