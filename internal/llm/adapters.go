package llm

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tildaslashalef/semdiff/internal/claude"
	"github.com/tildaslashalef/semdiff/internal/gemini"
	"github.com/tildaslashalef/semdiff/internal/ollama"
)

// claudeProvider adapts the Claude client to Provider
type claudeProvider struct {
	client *claude.Client
}

func (a *claudeProvider) Name() string  { return string(Claude) }
func (a *claudeProvider) Model() string { return a.client.Model() }

func (a *claudeProvider) Complete(ctx context.Context, prompt Prompt) (*Completion, error) {
	resp, err := a.client.CreateMessage(ctx, claude.MessageRequest{
		System:   prompt.System,
		Messages: []claude.Message{{Role: "user", Content: prompt.User}},
	})
	if err != nil {
		var apiErr *claude.APIError
		if errors.As(err, &apiErr) {
			return nil, &StatusError{
				Provider:   a.Name(),
				StatusCode: apiErr.StatusCode,
				RetryAfter: ParseRetryAfter(apiErr.RetryAfter, time.Now()),
				Message:    apiErr.ErrorDetails.Message,
				Err:        apiErr,
			}
		}
		return nil, err
	}

	return &Completion{
		Text:         resp.Text(),
		Model:        resp.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// geminiProvider adapts the Gemini client to Provider
type geminiProvider struct {
	client *gemini.Client
}

func (a *geminiProvider) Name() string  { return string(Gemini) }
func (a *geminiProvider) Model() string { return a.client.Model() }

func (a *geminiProvider) Complete(ctx context.Context, prompt Prompt) (*Completion, error) {
	resp, err := a.client.GenerateContent(ctx, prompt.System, prompt.User)
	if err != nil {
		var apiErr *gemini.APIError
		if errors.As(err, &apiErr) {
			se := &StatusError{
				Provider:   a.Name(),
				StatusCode: apiErr.StatusCode,
				RetryAfter: ParseRetryAfter(apiErr.RetryAfter, time.Now()),
				Err:        apiErr,
			}
			if apiErr.ErrorDetail != nil {
				se.Message = apiErr.ErrorDetail.Message
			}
			return nil, se
		}
		return nil, err
	}

	return &Completion{
		Text:         resp.Text(),
		Model:        resp.ModelVersion,
		InputTokens:  resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
	}, nil
}

// ollamaProvider adapts the Ollama client to Provider
type ollamaProvider struct {
	client *ollama.Client
}

func (a *ollamaProvider) Name() string  { return string(Ollama) }
func (a *ollamaProvider) Model() string { return a.client.Model() }

func (a *ollamaProvider) Complete(ctx context.Context, prompt Prompt) (*Completion, error) {
	messages := make([]ollama.Message, 0, 2)
	if prompt.System != "" {
		messages = append(messages, ollama.Message{Role: "system", Content: prompt.System})
	}
	messages = append(messages, ollama.Message{Role: "user", Content: prompt.User})

	resp, err := a.client.Chat(ctx, messages)
	if err != nil {
		var apiErr *ollama.APIError
		if errors.As(err, &apiErr) {
			return nil, &StatusError{
				Provider:   a.Name(),
				StatusCode: apiErr.StatusCode,
				Message:    apiErr.Message,
				Err:        apiErr,
			}
		}
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = a.client.Model()
	}
	return &Completion{
		Text:         resp.Message.Content,
		Model:        model,
		InputTokens:  resp.PromptEvalCount,
		OutputTokens: resp.EvalCount,
	}, nil
}
