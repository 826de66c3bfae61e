package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Request returns a request identifier, reusing the caller-provided one when it is
// a well-formed ULID.
func Request(incoming string) string {
	incoming = strings.TrimSpace(incoming)
	if incoming != "" {
		if _, err := ulid.ParseStrict(incoming); err == nil {
			return incoming
		}
	}
	return New()
}
