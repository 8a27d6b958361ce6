// Package claude is a minimal client for the Anthropic Messages API.
// Every call is a single attempt; retrying is the caller's job.
package claude

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

const (
	defaultAPIVersion = "2023-06-01"
	defaultMaxTokens  = 4096
	messagesPath      = "/v1/messages"
)

// Client represents an Anthropic Claude API client
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	apiVersion  string
	maxTokens   int
	temperature *float64
	httpClient  *http.Client
}

// NewClient creates a new Claude client from config
func NewClient(cfg config.ClaudeConfig) *Client {
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	model := cfg.Model
	if model == "" {
		model = config.DefaultClaudeModel
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var temperature *float64
	if cfg.Temperature > 0 {
		t := cfg.Temperature
		temperature = &t
	}

	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		model:       model,
		apiVersion:  apiVersion,
		maxTokens:   maxTokens,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Model returns the default model
func (c *Client) Model() string {
	return c.model
}

// CreateMessage sends one request to the Messages API
func (c *Client) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = c.maxTokens
	}
	if req.Temperature == nil {
		req.Temperature = c.temperature
	}

	var resp MessageResponse
	if err := c.doRequest(ctx, http.MethodPost, messagesPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", c.apiVersion)

	loggy.Debug("Sending Claude request", "url", req.URL.String(), "body_bytes", len(bodyBytes))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	loggy.Debug("Claude API response", "status_code", resp.StatusCode, "content_length", len(respBody))

	if resp.StatusCode != http.StatusOK {
		return c.handleErrorResponse(resp, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// handleErrorResponse builds an *APIError, falling back to the raw body when
// it is not the documented error envelope
func (c *Client) handleErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.ErrorDetails.Message == "" {
		apiErr.ErrorDetails.Type = "http_error"
		apiErr.ErrorDetails.Message = strings.TrimSpace(string(body))
	}
	apiErr.StatusCode = resp.StatusCode
	apiErr.RetryAfter = resp.Header.Get("Retry-After")
	return apiErr
}
