package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"

	"github.com/tildaslashalef/semdiff/internal/failure"
	"github.com/tildaslashalef/semdiff/internal/loggy"
	"github.com/tildaslashalef/semdiff/internal/ulid"
)

const opAnalyze = "llm.analyze"

// Usage is the token usage of the successful attempt
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns input plus output tokens
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Response is the unmodified payload of a successful Analyze call plus
// the retry bookkeeping that produced it
type Response struct {
	Text      string
	Provider  string
	Model     string
	Usage     Usage
	Attempts  int
	TotalWait time.Duration
}

// Client wraps a Provider with the bounded retry policy
type Client struct {
	provider Provider
	cfg      RetryConfig
	logger   *loggy.Logger
	timer    func() backoff.Timer
	rand     func() float64
}

// Option configures a Client
type Option func(*Client)

// WithTimer replaces the timer used for backoff waits
func WithTimer(newTimer func() backoff.Timer) Option {
	return func(c *Client) {
		c.timer = newTimer
	}
}

// WithRand replaces the jitter source; f must return values in [0, 1)
func WithRand(f func() float64) Option {
	return func(c *Client) {
		c.rand = f
	}
}

// NewClient creates a retrying client over provider
func NewClient(provider Provider, cfg RetryConfig, logger *loggy.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = loggy.GetGlobalLogger()
	}
	c := &Client{
		provider: provider,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the wrapped provider
func (c *Client) Provider() Provider {
	return c.provider
}

// Analyze sends prompt until it succeeds, fails fatally, or a retry
// ceiling is hit. Cancellation of ctx aborts both the request and the wait.
func (c *Client) Analyze(ctx context.Context, prompt Prompt) (*Response, error) {
	logger := c.logger.With("provider", c.provider.Name(), "model", c.provider.Model())
	if runID := loggy.RunID(ctx); runID != "" {
		logger = logger.With("run_id", runID)
	}

	state := newRetryState(NewBackoffPolicy(c.cfg, c.rand))
	var (
		completion *Completion
		lastErr    error
		requestID  string
	)

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		state.attempts++
		requestID = ulid.RequestID()
		logger.Debug("Sending analysis request", "attempt", state.attempts, "request_id", requestID)

		result, err := c.provider.Complete(ctx, prompt)
		if err == nil {
			completion = result
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		kind, retryAfter := Classify(err)
		state.record(kind, retryAfter)
		if kind != failure.KindTransient {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("Analysis attempt failed, backing off",
			"attempt", state.attempts,
			"request_id", requestID,
			"wait", wait,
			"total_wait", state.totalWait,
			"error", err)
	}

	var timer backoff.Timer
	if c.timer != nil {
		timer = c.timer()
	}

	err := backoff.RetryNotifyWithTimer(operation, backoff.WithContext(state, ctx), notify, timer)
	if err == nil {
		logger.Debug("Analysis request succeeded", "attempts", state.attempts, "total_wait", state.totalWait)
		return &Response{
			Text:     completion.Text,
			Provider: c.provider.Name(),
			Model:    modelOr(completion.Model, c.provider.Model()),
			Usage: Usage{
				InputTokens:  completion.InputTokens,
				OutputTokens: completion.OutputTokens,
			},
			Attempts:  state.attempts,
			TotalWait: state.totalWait,
		}, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, failure.FromContext(opAnalyze, ctxErr)
	}

	if state.exhausted != "" {
		logger.Error("Analysis retries exhausted", "reason", state.exhausted, "attempts", state.attempts, "total_wait", state.totalWait)
		return nil, failure.Wrap(failure.KindExhausted, opAnalyze,
			errors.Wrapf(lastErr, "gave up after %d attempts (%s)", state.attempts, state.exhausted))
	}

	switch state.lastKind {
	case failure.KindTimeout, failure.KindCanceled:
		return nil, failure.Wrap(state.lastKind, opAnalyze, err)
	default:
		return nil, failure.Wrap(failure.KindFatal, opAnalyze, err)
	}
}

func modelOr(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}
