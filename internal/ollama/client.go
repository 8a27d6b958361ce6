// Package ollama is a minimal client for a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tildaslashalef/semdiff/internal/config"
	"github.com/tildaslashalef/semdiff/internal/loggy"
)

// Client talks to the Ollama chat endpoint
type Client struct {
	endpoint    string
	model       string
	maxTokens   int
	temperature *float64
	httpClient  *http.Client
}

// NewClient creates a new Ollama client
func NewClient(cfg config.OllamaConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = config.DefaultOllamaModel
	}

	var temperature *float64
	if cfg.Temperature > 0 {
		t := cfg.Temperature
		temperature = &t
	}

	return &Client{
		endpoint:    strings.TrimSuffix(cfg.Endpoint, "/"),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Model returns the configured model
func (c *Client) Model() string {
	return c.model
}

// Chat sends one non-streaming chat request constrained to JSON output
func (c *Client) Chat(ctx context.Context, messages []Message) (*ChatResponse, error) {
	req := ChatRequest{
		Model:    c.model,
		Messages: messages,
		Format:   "json",
		Stream:   false,
		Options:  &RequestOptions{Temperature: c.temperature},
	}
	if c.maxTokens > 0 {
		n := c.maxTokens
		req.Options.NumPredict = &n
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	loggy.Debug("Sending Ollama request", "model", c.model, "body_bytes", len(body))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		apiErr.StatusCode = resp.StatusCode
		return nil, apiErr
	}

	var out ChatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &out, nil
}
