// Package ulid wraps github.com/oklog/ulid/v2 to produce prefixed,
// time-sortable identifiers for analysis runs and outbound requests.
package ulid

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// PrefixRun marks one pipeline run
	PrefixRun = "run"

	// PrefixRequest marks one outbound analysis request
	PrefixRequest = "req"

	// PrefixSeparator is used to separate the prefix from the ULID
	PrefixSeparator = "-"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// ID is a ULID carrying an optional prefix
type ID struct {
	ulid.ULID
	prefix string
}

// NewWithTime creates a prefixed ID for the given timestamp
func NewWithTime(t time.Time, prefix string) ID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ID{ULID: ulid.MustNew(ulid.Timestamp(t), entropy), prefix: prefix}
}

// Generate creates a new prefixed ID with the current timestamp
func Generate(prefix string) ID {
	return NewWithTime(time.Now(), prefix)
}

func (id ID) String() string {
	if id.prefix == "" {
		return id.ULID.String()
	}
	return id.prefix + PrefixSeparator + id.ULID.String()
}

// RunID returns a fresh run identifier
func RunID() string {
	return Generate(PrefixRun).String()
}

// RequestID returns a fresh request identifier
func RequestID() string {
	return Generate(PrefixRequest).String()
}
