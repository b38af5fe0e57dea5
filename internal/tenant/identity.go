// Package tenant implements tenant identity resolution and the storage
// key scheme that keeps tenant data disjoint. Every tenant-scoped
// request passes through Parse exactly once; everything downstream
// (storage keys, query filters) works only with the canonical Identity.
package tenant

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Resolution errors - fail closed. Both map to HTTP 400 at the boundary.
var (
	// ErrMissingTenant is returned when no tenant identifier was supplied.
	ErrMissingTenant = errors.New("tenant identifier missing")

	// ErrInvalidTenant is returned when the supplied identifier is not a
	// parseable UUID. The wrapped error carries the raw value for
	// diagnostics.
	ErrInvalidTenant = errors.New("invalid tenant identifier")
)

// Identity is a canonicalized tenant identifier.
//
// The canonical form is the lower-case hyphenated UUID string, so two
// textually different spellings of the same UUID (upper case, missing
// hyphens) resolve to the same identity. The zero value is invalid;
// identities are only constructed through Parse.
type Identity struct {
	id string
}

// Parse validates a raw header value and returns the canonical identity.
// Accepts hyphenated and bare 32-hex-digit UUID forms in any case.
// Parsing an already-canonical value is a no-op.
func Parse(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrMissingTenant
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidTenant, raw)
	}
	return Identity{id: u.String()}, nil
}

// String returns the canonical lower-case hyphenated form.
func (t Identity) String() string {
	return t.id
}

// IsZero reports whether the identity is unset.
func (t Identity) IsZero() bool {
	return t.id == ""
}
