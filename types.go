package session

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// CredentialStore is the durable backing of the auth state. Values are
// opaque strings; every key carries its own expiry.
type CredentialStore interface {
	Get(key string) (string, bool)
	Set(key, value string, ttl time.Duration) error
	Remove(key string) error
}

// AuthAPI is the network surface the orchestrator depends on. Non 2xx
// responses are returned as errors; ErrorData extracts their body.
type AuthAPI interface {
	Login(ctx context.Context, creds LoginCredentials) (*LoginResponse, error)
	Register(ctx context.Context, fields RegisterFields) (*Response, error)
	RefreshToken(ctx context.Context, refresh string) (*AuthTokens, error)
	FetchUser(ctx context.Context) (UserProfile, error)
}

// ErrorDataProvider is implemented by API errors that carry a decoded
// server response body.
type ErrorDataProvider interface {
	error
	ResponseStatus() int
	ResponseData() any
}

// Dispatcher applies actions to the auth state.
type Dispatcher interface {
	Dispatch(action Action) *AuthState
}

// StateReader exposes the current auth state.
type StateReader interface {
	State() *AuthState
}

// ProfileLoader is the single effect the route guard may trigger.
type ProfileLoader interface {
	FetchUser(ctx context.Context) *Result
}

// Config holds session options
type Config interface {
	GetCoreURL() string
	GetFogURL() string
	GetLoginRoute() string
	GetHomeRoute() string
	GetRejectedRouteKey() string
	GetRequestTimeout() time.Duration
	GetSecureCookies() bool
}

// Metrics records orchestrator outcomes.
type Metrics interface {
	ObserveOperation(operation, outcome string, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, string, time.Duration) {}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return nopLogger{}
}

// DefaultLogger returns the stdout logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
