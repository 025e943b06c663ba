package session

import (
	"context"

	"github.com/goliatone/go-router"
)

var containerCtxKey = &contextKey{"container"}
var stateCtxKey = &contextKey{"auth_state"}

type contextKey struct {
	name string
}

// DefaultLocalsKey is the router locals key the HTTP guard stores the
// request's auth state under.
const DefaultLocalsKey = "auth_state"

// WithContainer sets the Container in the given context
func WithContainer(ctx context.Context, c *Container) context.Context {
	return context.WithValue(ctx, containerCtxKey, c)
}

// ContainerFromContext finds the Container in the context.
func ContainerFromContext(ctx context.Context) (*Container, bool) {
	c, ok := ctx.Value(containerCtxKey).(*Container)
	return c, ok && c != nil
}

// WithState sets an AuthState snapshot in the given context
func WithState(ctx context.Context, state *AuthState) context.Context {
	return context.WithValue(ctx, stateCtxKey, state)
}

// StateFromContext returns the AuthState snapshot, falling back to the
// current state of a Container in the context.
func StateFromContext(ctx context.Context) (*AuthState, bool) {
	if state, ok := ctx.Value(stateCtxKey).(*AuthState); ok && state != nil {
		return state, true
	}
	if c, ok := ContainerFromContext(ctx); ok {
		return c.State(), true
	}
	return nil, false
}

// GetRouterState extracts the AuthState stored by the HTTP guard
func GetRouterState(ctx router.Context, key string) (*AuthState, bool) {
	if key == "" {
		key = DefaultLocalsKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	state, ok := raw.(*AuthState)
	return state, ok
}
