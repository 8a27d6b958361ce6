// Package llm drives a single-attempt analysis provider with bounded retries.
package llm

import (
	"context"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/tildaslashalef/semdiff/internal/claude"
	"github.com/tildaslashalef/semdiff/internal/config"
	"github.com/tildaslashalef/semdiff/internal/failure"
	"github.com/tildaslashalef/semdiff/internal/gemini"
	"github.com/tildaslashalef/semdiff/internal/loggy"
	"github.com/tildaslashalef/semdiff/internal/ollama"
)

// Prompt is the outbound analysis prompt
type Prompt struct {
	System string
	User   string
}

// Completion is the raw answer of one successful attempt
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Provider performs exactly one request against an analysis service.
// Failures are returned as-is; classification and retrying happen in Client.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt Prompt) (*Completion, error)
}

// ClientType defines the type of LLM client
type ClientType string

const (
	// Claude client type
	Claude ClientType = "claude"

	// Gemini client type
	Gemini ClientType = "gemini"

	// Ollama client type
	Ollama ClientType = "ollama"
)

// Factory creates rate limited providers from configuration
type Factory struct {
	config *config.Config
	logger *loggy.Logger
}

// helper function to create a rate limiter from RPM and Burst
func newLimiter(rpm, burst int) *rate.Limiter {
	if rpm <= 0 {
		// no limiting
		return rate.NewLimiter(rate.Inf, burst)
	}
	b := burst
	if b <= 0 {
		b = 1
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), b)
}

// NewFactory creates a new provider factory
func NewFactory(cfg *config.Config, logger *loggy.Logger) *Factory {
	if logger == nil {
		logger = loggy.GetGlobalLogger()
	}
	return &Factory{config: cfg, logger: logger}
}

// Default returns the provider named by DefaultLLMProvider
func (f *Factory) Default() (Provider, error) {
	return f.Provider(ClientType(f.config.DefaultLLMProvider))
}

// Provider returns a provider of the specified type
func (f *Factory) Provider(clientType ClientType) (Provider, error) {
	cfg := f.config

	switch clientType {
	case Claude:
		if cfg.Claude.APIKey == "" {
			return nil, failure.New(failure.KindFatal, "llm.factory", "claude API key is not configured")
		}
		f.logger.Debug("Initialized Claude provider", "model", cfg.Claude.Model, "rpm", cfg.Claude.RequestsPerMinute, "burst", cfg.Claude.BurstLimit)
		return withLimiter(&claudeProvider{client: claude.NewClient(cfg.Claude)},
			newLimiter(cfg.Claude.RequestsPerMinute, cfg.Claude.BurstLimit)), nil

	case Gemini:
		if cfg.Gemini.APIKey == "" {
			return nil, failure.New(failure.KindFatal, "llm.factory", "gemini API key is not configured")
		}
		f.logger.Debug("Initialized Gemini provider", "model", cfg.Gemini.Model, "rpm", cfg.Gemini.RequestsPerMinute, "burst", cfg.Gemini.BurstLimit)
		return withLimiter(&geminiProvider{client: gemini.NewClient(cfg.Gemini)},
			newLimiter(cfg.Gemini.RequestsPerMinute, cfg.Gemini.BurstLimit)), nil

	case Ollama:
		if cfg.Ollama.Endpoint == "" {
			return nil, failure.New(failure.KindFatal, "llm.factory", "ollama endpoint is not configured")
		}
		f.logger.Debug("Initialized Ollama provider", "endpoint", cfg.Ollama.Endpoint, "model", cfg.Ollama.Model)
		return withLimiter(&ollamaProvider{client: ollama.NewClient(cfg.Ollama)},
			newLimiter(cfg.Ollama.RequestsPerMinute, cfg.Ollama.BurstLimit)), nil

	default:
		return nil, failure.Wrap(failure.KindFatal, "llm.factory", errors.Newf("unsupported provider %q", clientType))
	}
}

// limitedProvider waits on a rate limiter before every attempt
type limitedProvider struct {
	Provider
	limiter *rate.Limiter
}

func withLimiter(p Provider, limiter *rate.Limiter) Provider {
	return &limitedProvider{Provider: p, limiter: limiter}
}

func (p *limitedProvider) Complete(ctx context.Context, prompt Prompt) (*Completion, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// the wait would outlive the deadline
		return nil, failure.Wrap(failure.KindTimeout, "llm.rate_limit", err)
	}
	return p.Provider.Complete(ctx, prompt)
}
