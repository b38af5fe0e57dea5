package tenant

import "context"

// contextKey is the context key for the tenant identity.
type contextKey struct{}

// NewContext returns a context carrying the tenant identity.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext extracts the tenant identity from a context.
// Returns ErrMissingTenant if not present - fail closed, never an empty
// identity that would widen a query to all tenants.
func FromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	if !ok || id.IsZero() {
		return Identity{}, ErrMissingTenant
	}
	return id, nil
}
