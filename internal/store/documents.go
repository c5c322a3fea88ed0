// Package store provides whole-document persistence backends. Every backend
// stores opaque byte payloads under a short document name and replaces them
// wholesale on each write; there are no partial updates and no cross-writer
// coordination.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when no document has been written yet.
var ErrNotFound = errors.New("document not found")

// Documents is implemented by every persistence backend.
type Documents interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	Ping(ctx context.Context) error
}

// Well-known document names.
const (
	TodosDocument    = "todos.json"
	VisitorsDocument = "visitors.json"
	SettingsDocument = "settings.json"
)

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("document name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid document name %q", name)
	}
	return nil
}
