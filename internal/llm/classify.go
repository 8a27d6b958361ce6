package llm

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tildaslashalef/semdiff/internal/failure"
)

// statusOverloaded is Anthropic's "overloaded" status
const statusOverloaded = 529

// StatusError is a provider HTTP error normalized for classification
type StatusError struct {
	Provider   string
	StatusCode int
	RetryAfter time.Duration
	Message    string
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Classify decides whether a failed attempt is transient and returns the
// server's Retry-After directive, if any
func Classify(err error) (failure.Kind, time.Duration) {
	if err == nil {
		return "", 0
	}

	var se *StatusError
	if errors.As(err, &se) {
		return classifyStatus(se.StatusCode), se.RetryAfter
	}

	if kind := failure.KindOf(err); kind != failure.KindUnknown {
		return kind, 0
	}

	switch {
	case errors.Is(err, context.Canceled):
		return failure.KindCanceled, 0
	case errors.Is(err, context.DeadlineExceeded):
		// per-attempt timeout; the caller's deadline is checked separately
		return failure.KindTransient, 0
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return failure.KindTransient, 0
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.EPIPE):
		return failure.KindTransient, 0
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return failure.KindFatal, 0
		}
		return failure.KindTransient, 0
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failure.KindTransient, 0
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return failure.KindTransient, 0
	}

	return failure.KindFatal, 0
}

func classifyStatus(code int) failure.Kind {
	switch {
	case code == http.StatusRequestTimeout,
		code == http.StatusTooManyRequests,
		code == statusOverloaded,
		code >= 500:
		return failure.KindTransient
	default:
		return failure.KindFatal
	}
}

// ParseRetryAfter parses a Retry-After header given in seconds or as an
// HTTP date. Missing or unparseable values yield 0.
func ParseRetryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}

	if secs, err := strconv.Atoi(header); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
