package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// GuardState classifies an AuthState for route protection.
type GuardState int

const (
	Unauthenticated GuardState = iota
	AuthenticatedNoProfile
	AuthenticatedWithProfile
)

func (s GuardState) String() string {
	switch s {
	case AuthenticatedNoProfile:
		return "authenticated_no_profile"
	case AuthenticatedWithProfile:
		return "authenticated_with_profile"
	default:
		return "unauthenticated"
	}
}

// Default route targets
const (
	DefaultLoginRoute = "/login"
	DefaultHomeRoute  = "/dashboard"
)

// Verdict is the outcome of a guard evaluation.
type Verdict int

const (
	Allow Verdict = iota
	Redirect
)

// Decision tells the caller what to render and whether the profile is
// missing. Target is only set for Redirect.
type Decision struct {
	Verdict      Verdict
	Target       string
	State        GuardState
	FetchProfile bool
}

func (d Decision) Allowed() bool {
	return d.Verdict == Allow
}

// Classify maps state to a GuardState. Both tokens are required.
func Classify(state *AuthState) GuardState {
	switch {
	case !state.Authenticated():
		return Unauthenticated
	case !state.HasProfile():
		return AuthenticatedNoProfile
	default:
		return AuthenticatedWithProfile
	}
}

// Evaluate decides access to a protected route. It has no side effects.
func Evaluate(state *AuthState) Decision {
	return EvaluateWith(state, DefaultLoginRoute)
}

// EvaluateWith is Evaluate with a custom login route.
func EvaluateWith(state *AuthState, loginRoute string) Decision {
	gs := Classify(state)
	if gs == Unauthenticated {
		return Decision{Verdict: Redirect, Target: loginRoute, State: gs}
	}
	return Decision{Verdict: Allow, State: gs, FetchProfile: gs == AuthenticatedNoProfile}
}

// EvaluateLanding decides what public entry routes (/, /login, /register)
// do: an authenticated session is sent home. It uses the same both-tokens
// predicate as Evaluate, so an access token alone never counts.
func EvaluateLanding(state *AuthState, homeRoute string) Decision {
	if homeRoute == "" {
		homeRoute = DefaultHomeRoute
	}
	gs := Classify(state)
	if gs == Unauthenticated {
		return Decision{Verdict: Allow, State: gs}
	}
	return Decision{Verdict: Redirect, Target: homeRoute, State: gs}
}

// MountID identifies one mount of a protected view. Profile loads are
// triggered at most once per MountID.
type MountID string

// NewMountID returns a random MountID.
func NewMountID() MountID {
	return MountID(uuid.NewString())
}

// Guard evaluates protected routes against live state and owns the one
// shot profile load effect.
type Guard struct {
	state      StateReader
	loader     ProfileLoader
	loginRoute string
	logger     Logger

	mu        sync.Mutex
	triggered map[MountID]struct{}
	pending   sync.WaitGroup
}

// GuardOption customizes a Guard.
type GuardOption func(*Guard)

// WithGuardLoginRoute overrides the redirect target.
func WithGuardLoginRoute(route string) GuardOption {
	return func(g *Guard) {
		if route != "" {
			g.loginRoute = route
		}
	}
}

// WithGuardLogger overrides the logger.
func WithGuardLogger(logger Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func NewGuard(state StateReader, loader ProfileLoader, opts ...GuardOption) *Guard {
	g := &Guard{
		state:      state,
		loader:     loader,
		loginRoute: DefaultLoginRoute,
		logger:     defLogger{},
		triggered:  make(map[MountID]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Check evaluates the current state for mount. When the profile is missing
// it starts a background load the first time mount is seen and returns
// immediately; protected content may render right away.
func (g *Guard) Check(ctx context.Context, mount MountID) Decision {
	d := EvaluateWith(g.state.State(), g.loginRoute)
	if d.FetchProfile && g.claim(mount) {
		g.logger.Debug("guard mount=%s triggering profile load", mount)
		g.pending.Add(1)
		go func() {
			defer g.pending.Done()
			g.loader.FetchUser(context.WithoutCancel(ctx))
		}()
	}
	return d
}

// Unmount forgets mount so a later mount with the same id may trigger again.
func (g *Guard) Unmount(mount MountID) {
	g.mu.Lock()
	delete(g.triggered, mount)
	g.mu.Unlock()
}

// Wait blocks until profile loads started by Check finished.
func (g *Guard) Wait() {
	g.pending.Wait()
}

func (g *Guard) claim(mount MountID) bool {
	if g.loader == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, seen := g.triggered[mount]; seen {
		return false
	}
	g.triggered[mount] = struct{}{}
	return true
}
