package gemini

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

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	loggy.NewNoopLogger()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.GeminiConfig{
		APIKey:    "gem-key",
		BaseURL:   server.URL + "/",
		Model:     "gemini-test",
		MaxTokens: 512,
		Timeout:   5 * time.Second,
	})
}

func TestGenerateContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "gem-key", r.URL.Query().Get("key"))

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "analyze this", req.Contents[0].Parts[0].Text)
		require.NotNil(t, req.SystemInstruction)
		assert.Equal(t, "system", req.SystemInstruction.Parts[0].Text)
		assert.Equal(t, 512, req.GenerationConfig.MaxOutputTokens)
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)

		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"a\":"}, {"text": "1}"}]}}],
			"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 4, "totalTokenCount": 14}
		}`))
	})

	resp, err := client.GenerateContent(context.Background(), "system", "analyze this")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, resp.Text())
	assert.Equal(t, 10, resp.UsageMetadata.PromptTokenCount)
	assert.Equal(t, 4, resp.UsageMetadata.CandidatesTokenCount)
	assert.Equal(t, "gemini-test", resp.ModelVersion)
}

func TestGenerateContentError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"}}`))
	})

	_, err := client.GenerateContent(context.Background(), "", "x")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "5", apiErr.RetryAfter)
	assert.Equal(t, "RESOURCE_EXHAUSTED", apiErr.ErrorDetail.Status)
}

func TestEmptyCandidates(t *testing.T) {
	resp := &GenerateResponse{}
	assert.Empty(t, resp.Text())
}
