package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tildaslashalef/semdiff/internal/config"
	"github.com/tildaslashalef/semdiff/internal/loggy"
)

func TestChat(t *testing.T) {
	loggy.NewNoopLogger()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gemma3", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "json", req.Format)
		require.NotNil(t, req.Options.NumPredict)
		assert.Equal(t, 256, *req.Options.NumPredict)
		require.Len(t, req.Messages, 2)

		_, _ = w.Write([]byte(`{"model":"gemma3","message":{"role":"assistant","content":"{}"},"done":true,"prompt_eval_count":50,"eval_count":5}`))
	}))
	defer server.Close()

	client := NewClient(config.OllamaConfig{Endpoint: server.URL, MaxTokens: 256, Timeout: 5 * time.Second})
	resp, err := client.Chat(context.Background(), []Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "prompt"},
	})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Message.Content)
	assert.Equal(t, 50, resp.PromptEvalCount)
	assert.Equal(t, 5, resp.EvalCount)
}

func TestChatError(t *testing.T) {
	loggy.NewNoopLogger()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'gemma3' not found"}`))
	}))
	defer server.Close()

	client := NewClient(config.OllamaConfig{Endpoint: server.URL})
	_, err := client.Chat(context.Background(), nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "not found")
}
