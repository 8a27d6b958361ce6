// Package failure defines the error kinds shared by every pipeline stage.
//
// Stages return *Error values so callers can branch on Kind without string
// matching: a missing commit, a broken repository, an exhausted retry budget
// and an unparseable answer all need different handling upstream.
package failure

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Kind classifies a failure
type Kind string

const (
	KindUnknown    Kind = "unknown"
	KindNotFound   Kind = "not_found"
	KindRepository Kind = "repository"
	KindTransient  Kind = "transient_service"
	KindExhausted  Kind = "retry_exhausted"
	KindFatal      Kind = "fatal_service"
	KindParse      Kind = "parse"
	KindTimeout    Kind = "timeout"
	KindCanceled   Kind = "canceled"
)

// Error is a classified failure raised at a stage boundary
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + string(e.Kind)
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified failure with a formatted message
func New(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: errors.Newf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: errors.WithStack(err)}
}

// FromContext converts a context error into a timeout or cancellation failure
func FromContext(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(KindTimeout, op, err)
	case errors.Is(err, context.Canceled):
		return Wrap(KindCanceled, op, err)
	default:
		return err
	}
}

// KindOf returns the kind of the outermost classified failure in err's chain
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err is classified as kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether re-running the whole pipeline later may succeed
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindExhausted, KindTimeout:
		return true
	default:
		return false
	}
}

// ExitCode maps a failure to a process exit code
func ExitCode(err error) int {
	switch KindOf(err) {
	case "":
		return 0
	case KindNotFound:
		return 2
	case KindRepository:
		return 3
	case KindFatal:
		return 4
	case KindParse:
		return 5
	case KindExhausted, KindTransient:
		return 6
	case KindTimeout, KindCanceled:
		return 7
	default:
		return 1
	}
}
