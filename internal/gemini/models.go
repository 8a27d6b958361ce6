package gemini

import (
	"fmt"
	"strings"
)

// Content is one turn of a conversation
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a text fragment of a Content
type Part struct {
	Text string `json:"text,omitempty"`
}

// GenerationConfig holds generation parameters
type GenerationConfig struct {
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

// GenerateRequest is a generateContent request
type GenerateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Candidate is one generated answer
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// UsageMetadata contains token usage information
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// GenerateResponse is a generateContent response
type GenerateResponse struct {
	Candidates    []Candidate   `json:"candidates"`
	UsageMetadata UsageMetadata `json:"usageMetadata"`
	ModelVersion  string        `json:"modelVersion,omitempty"`
}

// Text returns the text of the first candidate
func (r *GenerateResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// ErrorDetails is the error envelope returned by the API
type ErrorDetails struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
}

// APIError represents an error response from the Gemini API
type APIError struct {
	StatusCode  int           `json:"-"`
	RetryAfter  string        `json:"-"`
	ErrorDetail *ErrorDetails `json:"error,omitempty"`
}

func (e *APIError) Error() string {
	if e.ErrorDetail == nil {
		return fmt.Sprintf("gemini API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("gemini API error (status %d) %s: %s", e.StatusCode, e.ErrorDetail.Status, e.ErrorDetail.Message)
}
