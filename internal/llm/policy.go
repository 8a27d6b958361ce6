package llm

import (
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tildaslashalef/semdiff/internal/failure"
)

const (
	// DefaultMaxRetries is the default number of attempts, including the first
	DefaultMaxRetries = 3

	// DefaultMaxTotalWait is the default ceiling on cumulative backoff wait
	DefaultMaxTotalWait = 30 * time.Second

	// DefaultBaseDelay is the default first backoff delay
	DefaultBaseDelay = time.Second

	// DefaultJitter is the default upper bound of the random delay added per retry
	DefaultJitter = time.Second

	// maxShift keeps BaseDelay << retry from overflowing
	maxShift = 30
)

// Exhaustion reasons
const (
	ExhaustedMaxRetries   = "max_retries"
	ExhaustedMaxTotalWait = "max_total_wait"
)

// RetryConfig bounds the retries of one Analyze call
type RetryConfig struct {
	MaxRetries   int
	MaxTotalWait time.Duration
	BaseDelay    time.Duration
	Jitter       time.Duration
}

// DefaultRetryConfig returns the default retry bounds
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   DefaultMaxRetries,
		MaxTotalWait: DefaultMaxTotalWait,
		BaseDelay:    DefaultBaseDelay,
		Jitter:       DefaultJitter,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.MaxTotalWait <= 0 {
		c.MaxTotalWait = DefaultMaxTotalWait
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	return c
}

// BackoffPolicy computes the wait before a retry
type BackoffPolicy struct {
	cfg  RetryConfig
	rand func() float64 // in [0, 1)
}

// NewBackoffPolicy creates a policy; a nil rand uses math/rand/v2
func NewBackoffPolicy(cfg RetryConfig, random func() float64) BackoffPolicy {
	if random == nil {
		random = rand.Float64
	}
	return BackoffPolicy{cfg: cfg.withDefaults(), rand: random}
}

// Delay returns the wait before retry number retry (0 for the first retry).
// A positive retryAfter is honored exactly.
func (p BackoffPolicy) Delay(retry int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	if retry < 0 {
		retry = 0
	}
	if retry > maxShift {
		retry = maxShift
	}
	d := p.cfg.BaseDelay << retry
	if p.cfg.Jitter > 0 {
		d += time.Duration(p.rand() * float64(p.cfg.Jitter))
	}
	return d
}

// retryState is the per-call state machine. It implements backoff.BackOff:
// NextBackOff runs after every failed attempt and either returns the next
// wait or backoff.Stop when a ceiling is hit.
type retryState struct {
	policy BackoffPolicy

	attempts       int
	totalWait      time.Duration
	lastKind       failure.Kind
	lastRetryAfter time.Duration
	exhausted      string
}

var _ backoff.BackOff = (*retryState)(nil)

func newRetryState(policy BackoffPolicy) *retryState {
	return &retryState{policy: policy}
}

// Reset is called once before the first attempt
func (s *retryState) Reset() {
	s.attempts = 0
	s.totalWait = 0
	s.lastKind = ""
	s.lastRetryAfter = 0
	s.exhausted = ""
}

// NextBackOff decides the transition out of a failed attempt
func (s *retryState) NextBackOff() time.Duration {
	if s.attempts >= s.policy.cfg.MaxRetries {
		s.exhausted = ExhaustedMaxRetries
		return backoff.Stop
	}

	d := s.policy.Delay(s.attempts-1, s.lastRetryAfter)
	if s.totalWait+d > s.policy.cfg.MaxTotalWait {
		s.exhausted = ExhaustedMaxTotalWait
		return backoff.Stop
	}

	s.totalWait += d
	return d
}

// record notes the outcome of one failed attempt
func (s *retryState) record(kind failure.Kind, retryAfter time.Duration) {
	s.lastKind = kind
	s.lastRetryAfter = retryAfter
}
