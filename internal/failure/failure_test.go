package failure

import (
	"context"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapAndKindOf(t *testing.T) {
	cause := errors.New("object not found")
	err := Wrap(KindNotFound, "git.ResolveCommit", cause)

	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, errors.Is(err, cause), "cause should stay reachable")
	assert.Contains(t, err.Error(), "git.ResolveCommit")

	wrapped := fmt.Errorf("analyzing HEAD: %w", err)
	assert.True(t, Is(wrapped, KindNotFound), "kind should survive further wrapping")
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(KindFatal, "op", nil))
}

func TestKindOfPlainErrors(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, KindTimeout, KindOf(FromContext("op", context.DeadlineExceeded)))
	assert.Equal(t, KindCanceled, KindOf(FromContext("op", context.Canceled)))

	other := errors.New("other")
	assert.Equal(t, other, FromContext("op", other))
}

func TestRetryableAndExitCode(t *testing.T) {
	tests := []struct {
		kind      Kind
		retryable bool
		exitCode  int
	}{
		{KindNotFound, false, 2},
		{KindRepository, false, 3},
		{KindFatal, false, 4},
		{KindParse, false, 5},
		{KindExhausted, true, 6},
		{KindTransient, true, 6},
		{KindTimeout, true, 7},
		{KindCanceled, false, 7},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := New(tt.kind, "op", "failed with %d", 1)
			assert.Equal(t, tt.retryable, Retryable(err))
			assert.Equal(t, tt.exitCode, ExitCode(err))
		})
	}

	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("unclassified")))
}
