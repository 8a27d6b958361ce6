// Package gemini is a minimal client for the Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tildaslashalef/semdiff/internal/config"
	"github.com/tildaslashalef/semdiff/internal/loggy"
)

// Client represents a Gemini API client
type Client struct {
	apiKey      string
	baseURL     string
	apiVersion  string
	model       string
	maxTokens   int
	temperature *float64
	httpClient  *http.Client
}

// NewClient creates a new Gemini client
func NewClient(cfg config.GeminiConfig) *Client {
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	model := cfg.Model
	if model == "" {
		model = config.DefaultGeminiModel
	}

	var temperature *float64
	if cfg.Temperature > 0 {
		t := cfg.Temperature
		temperature = &t
	}

	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiVersion:  apiVersion,
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

// GenerateContent sends one generateContent request asking for a JSON answer
func (c *Client) GenerateContent(ctx context.Context, system, prompt string) (*GenerateResponse, error) {
	req := GenerateRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: prompt}}}},
		GenerationConfig: &GenerationConfig{
			MaxOutputTokens:  c.maxTokens,
			Temperature:      c.temperature,
			ResponseMimeType: "application/json",
		},
	}
	if system != "" {
		req.SystemInstruction = &Content{Parts: []Part{{Text: system}}}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, url.PathEscape(c.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	q := httpReq.URL.Query()
	q.Set("key", c.apiKey)
	httpReq.URL.RawQuery = q.Encode()
	httpReq.Header.Set("Content-Type", "application/json")

	loggy.Debug("Sending Gemini request", "model", c.model, "api_version", c.apiVersion, "body_bytes", len(body))

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
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.ErrorDetail == nil {
			apiErr.ErrorDetail = &ErrorDetails{Code: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		}
		apiErr.StatusCode = resp.StatusCode
		apiErr.RetryAfter = resp.Header.Get("Retry-After")
		return nil, apiErr
	}

	var out GenerateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if out.ModelVersion == "" {
		out.ModelVersion = c.model
	}
	return &out, nil
}
