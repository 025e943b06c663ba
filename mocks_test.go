package session_test

import (
	"context"
	"sync"
	"time"

	session "github.com/adaptivelearn/go-session"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
)

// MockAuthAPI implements session.AuthAPI
type MockAuthAPI struct {
	mock.Mock
}

func (m *MockAuthAPI) Login(ctx context.Context, creds session.LoginCredentials) (*session.LoginResponse, error) {
	args := m.Called(ctx, creds)
	if resp, ok := args.Get(0).(*session.LoginResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthAPI) Register(ctx context.Context, fields session.RegisterFields) (*session.Response, error) {
	args := m.Called(ctx, fields)
	if resp, ok := args.Get(0).(*session.Response); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthAPI) RefreshToken(ctx context.Context, refresh string) (*session.AuthTokens, error) {
	args := m.Called(ctx, refresh)
	if tokens, ok := args.Get(0).(*session.AuthTokens); ok {
		return tokens, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthAPI) FetchUser(ctx context.Context) (session.UserProfile, error) {
	args := m.Called(ctx)
	if user, ok := args.Get(0).(session.UserProfile); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

// apiError is a failed API response carrying a status and body.
type apiError struct {
	status int
	data   any
}

func (e *apiError) Error() string       { return "api error" }
func (e *apiError) ResponseStatus() int { return e.status }
func (e *apiError) ResponseData() any   { return e.data }

// spyStore wraps a MemoryStore and records every Set with its TTL.
type spyStore struct {
	*session.MemoryStore
	mu   sync.Mutex
	ttls map[string]time.Duration
}

func newSpyStore() *spyStore {
	return &spyStore{MemoryStore: session.NewMemoryStore(), ttls: map[string]time.Duration{}}
}

func (s *spyStore) Set(key, value string, ttl time.Duration) error {
	s.mu.Lock()
	s.ttls[key] = ttl
	s.mu.Unlock()
	return s.MemoryStore.Set(key, value, ttl)
}

func (s *spyStore) TTL(key string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttls[key]
}

// routerContext lets MockContext embed router.Context while defining its
// own Context method.
type routerContext = router.Context

// MockContext is a router.Context test double. Only the methods the
// session middleware uses are implemented; anything else panics.
type MockContext struct {
	routerContext

	method      string
	originalURL string
	ctx         context.Context
	cookies     map[string]string
	written     []*router.Cookie
	locals      map[any]any

	redirectPath   string
	redirectStatus int
}

func NewMockContext(method, url string, cookies map[string]string) *MockContext {
	if cookies == nil {
		cookies = map[string]string{}
	}
	return &MockContext{
		method:      method,
		originalURL: url,
		ctx:         context.Background(),
		cookies:     cookies,
		locals:      map[any]any{},
	}
}

func (m *MockContext) Method() string {
	return m.method
}

func (m *MockContext) OriginalURL() string {
	return m.originalURL
}

func (m *MockContext) Context() context.Context {
	return m.ctx
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.ctx = ctx
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.written = append(m.written, cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if v, ok := m.cookies[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.locals[key] = value[0]
		return value[0]
	}
	return m.locals[key]
}

func (m *MockContext) Redirect(path string, status ...int) error {
	m.redirectPath = path
	if len(status) > 0 {
		m.redirectStatus = status[0]
	}
	return nil
}

// WrittenCookie returns the last cookie written under name.
func (m *MockContext) WrittenCookie(name string) *router.Cookie {
	for i := len(m.written) - 1; i >= 0; i-- {
		if m.written[i].Name == name {
			return m.written[i]
		}
	}
	return nil
}

type testConfig struct {
	login    string
	home     string
	rejected string
}

func (c testConfig) GetCoreURL() string               { return "http://core.test/api" }
func (c testConfig) GetFogURL() string                { return "http://fog.test" }
func (c testConfig) GetLoginRoute() string            { return c.login }
func (c testConfig) GetHomeRoute() string             { return c.home }
func (c testConfig) GetRejectedRouteKey() string      { return c.rejected }
func (c testConfig) GetRequestTimeout() time.Duration { return 0 }
func (c testConfig) GetSecureCookies() bool           { return false }
