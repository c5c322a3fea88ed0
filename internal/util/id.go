package util

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
	timeNow   = func() time.Time { return time.Now().UTC() }
)

// NewID returns a lexically sortable unique identifier, optionally prefixed
// as "<prefix>_<ulid>".
func NewID(prefix string) string {
	entropyMu.Lock()
	id, err := ulid.New(ulid.Timestamp(timeNow()), entropy)
	entropyMu.Unlock()
	if err != nil {
		id = ulid.Make()
	}
	value := strings.ToLower(id.String())
	if prefix == "" {
		return value
	}
	return prefix + "_" + value
}
