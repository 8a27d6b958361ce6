package ulid

import (
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	id := Generate(PrefixRun)

	assert.True(t, strings.HasPrefix(id.String(), "run-"), "string form should carry the prefix")
	assert.WithinDuration(t, time.Now(), ulid.Time(id.ULID.Time()), time.Second)
}

func TestRequestID(t *testing.T) {
	id := RequestID()
	prefix, raw, found := strings.Cut(id, PrefixSeparator)
	require.True(t, found)
	assert.Equal(t, PrefixRequest, prefix)

	_, err := ulid.Parse(raw)
	assert.NoError(t, err)
	assert.NotEqual(t, id, RequestID(), "each call should return a fresh id")
}

func TestBareID(t *testing.T) {
	id := Generate("")
	assert.Equal(t, id.ULID.String(), id.String())
}

func TestIDsAreSortable(t *testing.T) {
	first := NewWithTime(time.Now().Add(-time.Minute), PrefixRun)
	second := RunID()
	assert.Less(t, first.String(), second, "later IDs should sort after earlier ones")
}
