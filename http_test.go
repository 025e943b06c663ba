package session_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	session "github.com/adaptivelearn/go-session"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestHTTPGuard(api *MockAuthAPI) *session.HTTPGuard {
	guard := session.NewHTTPGuard(testConfig{login: "/login", home: "/dashboard", rejected: "rejected_route"},
		func(session.CredentialStore) session.AuthAPI { return api }, nil)
	guard.Logger = session.NopLogger()
	return guard
}

func okHandler(called *bool) router.HandlerFunc {
	return func(router.Context) error {
		*called = true
		return nil
	}
}

func TestProtectedRouteRedirectsAnonymousRequests(t *testing.T) {
	guard := newTestHTTPGuard(&MockAuthAPI{})

	tests := []struct {
		name   string
		method string
		status int
	}{
		{name: "GET uses 302", method: http.MethodGet, status: http.StatusFound},
		{name: "POST uses 303", method: http.MethodPost, status: http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := NewMockContext(tt.method, "/courses/3", nil)
			called := false

			err := guard.ProtectedRoute()(okHandler(&called))(ctx)
			require.NoError(t, err)

			assert.False(t, called)
			assert.Equal(t, "/login", ctx.redirectPath)
			assert.Equal(t, tt.status, ctx.redirectStatus)

			rejected := ctx.WrittenCookie("rejected_route")
			require.NotNil(t, rejected)
			assert.Equal(t, "/courses/3", rejected.Value)
		})
	}
}

func TestProtectedRouteRedirectsWithoutRefreshCookie(t *testing.T) {
	guard := newTestHTTPGuard(&MockAuthAPI{})
	ctx := NewMockContext(http.MethodGet, "/dashboard", map[string]string{
		session.AccessTokenKey: "A1",
	})
	called := false

	require.NoError(t, guard.ProtectedRoute()(okHandler(&called))(ctx))

	assert.False(t, called)
	assert.Equal(t, "/login", ctx.redirectPath)
}

func TestProtectedRoutePassesFullSession(t *testing.T) {
	api := &MockAuthAPI{}
	guard := newTestHTTPGuard(api)
	ctx := NewMockContext(http.MethodGet, "/dashboard", map[string]string{
		session.AccessTokenKey:  "A1",
		session.RefreshTokenKey: "R1",
		session.UserDataKey:     `{"email":"ada@example.com"}`,
	})
	called := false

	require.NoError(t, guard.ProtectedRoute()(okHandler(&called))(ctx))

	assert.True(t, called)
	assert.Empty(t, ctx.redirectPath)
	api.AssertNotCalled(t, "FetchUser", mock.Anything)

	state, ok := session.GetRouterState(ctx, "")
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", state.User.Email())

	fromCtx, ok := session.StateFromContext(ctx.Context())
	require.True(t, ok)
	assert.Same(t, state, fromCtx)
}

func TestProtectedRouteLoadsMissingProfileBeforeHandler(t *testing.T) {
	api := &MockAuthAPI{}
	api.On("FetchUser", mock.Anything).Return(session.UserProfile{"email": "ada@example.com"}, nil).Once()

	guard := newTestHTTPGuard(api)
	ctx := NewMockContext(http.MethodGet, "/dashboard", map[string]string{
		session.AccessTokenKey:  "A1",
		session.RefreshTokenKey: "R1",
	})

	var seen *session.AuthState
	handler := func(c router.Context) error {
		seen, _ = session.GetRouterState(c, "")
		return nil
	}

	require.NoError(t, guard.ProtectedRoute()(handler)(ctx))

	require.NotNil(t, seen)
	assert.True(t, seen.HasProfile())
	require.NotNil(t, ctx.WrittenCookie(session.UserDataKey))
	api.AssertExpectations(t)
}

func TestProtectedRouteRendersWhenProfileLoadFails(t *testing.T) {
	api := &MockAuthAPI{}
	api.On("FetchUser", mock.Anything).Return(nil, errors.New("timeout")).Once()

	guard := newTestHTTPGuard(api)
	ctx := NewMockContext(http.MethodGet, "/dashboard", map[string]string{
		session.AccessTokenKey:  "A1",
		session.RefreshTokenKey: "R1",
	})
	called := false

	require.NoError(t, guard.ProtectedRoute()(okHandler(&called))(ctx))

	assert.True(t, called)
	state, ok := session.GetRouterState(ctx, "")
	require.True(t, ok)
	assert.Equal(t, session.DefaultErrorMessage, state.Error)
	assert.True(t, state.Authenticated())
}

func TestPublicOnlySendsAuthenticatedUsersHome(t *testing.T) {
	guard := newTestHTTPGuard(&MockAuthAPI{})

	ctx := NewMockContext(http.MethodGet, "/login", map[string]string{
		session.AccessTokenKey:  "A1",
		session.RefreshTokenKey: "R1",
	})
	called := false
	require.NoError(t, guard.PublicOnly()(okHandler(&called))(ctx))
	assert.False(t, called)
	assert.Equal(t, "/dashboard", ctx.redirectPath)

	anon := NewMockContext(http.MethodGet, "/login", nil)
	called = false
	require.NoError(t, guard.PublicOnly()(okHandler(&called))(anon))
	assert.True(t, called)
}

func TestGetRedirectOrDefault(t *testing.T) {
	guard := newTestHTTPGuard(&MockAuthAPI{})

	ctx := NewMockContext(http.MethodPost, "/login", map[string]string{"rejected_route": "/courses/3"})
	assert.Equal(t, "/courses/3", guard.GetRedirectOrDefault(ctx))
	cleared := ctx.WrittenCookie("rejected_route")
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	empty := NewMockContext(http.MethodPost, "/login", nil)
	assert.Equal(t, "/dashboard", guard.GetRedirectOrDefault(empty))
}

func TestCookieStoreReadsOwnWrites(t *testing.T) {
	ctx := NewMockContext(http.MethodGet, "/", map[string]string{session.AccessTokenKey: "old"})
	store := session.NewCookieStore(ctx, true)

	v, ok := store.Get(session.AccessTokenKey)
	assert.True(t, ok)
	assert.Equal(t, "old", v)

	require.NoError(t, store.Set(session.AccessTokenKey, "new", session.AccessTokenTTL))
	v, _ = store.Get(session.AccessTokenKey)
	assert.Equal(t, "new", v)

	cookie := ctx.WrittenCookie(session.AccessTokenKey)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HTTPOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, "/", cookie.Path)

	require.NoError(t, store.Remove(session.AccessTokenKey))
	_, ok = store.Get(session.AccessTokenKey)
	assert.False(t, ok)
}

func TestSessionLoginWritesCookiesWithTokenLifetimes(t *testing.T) {
	api := &MockAuthAPI{}
	api.On("Login", mock.Anything, validCreds).Return(loginResponse("A1", "R1"), nil).Once()
	api.On("FetchUser", mock.Anything).Return(session.UserProfile{"email": "ada@example.com"}, nil).Once()

	guard := newTestHTTPGuard(api)
	ctx := NewMockContext(http.MethodPost, "/login", nil)

	before := time.Now()
	res := guard.Session(ctx).Login(ctx.Context(), validCreds)
	after := time.Now()
	require.True(t, res.OK())

	tests := []struct {
		key   string
		value string
		ttl   time.Duration
	}{
		{key: session.AccessTokenKey, value: "A1", ttl: 24 * time.Hour},
		{key: session.RefreshTokenKey, value: "R1", ttl: 30 * 24 * time.Hour},
		{key: session.UserDataKey, ttl: 30 * 24 * time.Hour},
	}

	for _, tt := range tests {
		cookie := ctx.WrittenCookie(tt.key)
		require.NotNil(t, cookie, tt.key)
		if tt.value != "" {
			assert.Equal(t, tt.value, cookie.Value)
		}
		assert.False(t, cookie.Expires.Before(before.Add(tt.ttl)), tt.key)
		assert.False(t, cookie.Expires.After(after.Add(tt.ttl)), tt.key)
	}
	api.AssertExpectations(t)
}

func TestSessionLogoutExpiresCookies(t *testing.T) {
	guard := newTestHTTPGuard(&MockAuthAPI{})
	ctx := NewMockContext(http.MethodPost, "/logout", map[string]string{
		session.AccessTokenKey:  "A1",
		session.RefreshTokenKey: "R1",
	})

	orch := guard.Session(ctx)
	require.True(t, orch.State().State().Authenticated())

	orch.Logout()

	for _, key := range session.CredentialKeys {
		cookie := ctx.WrittenCookie(key)
		require.NotNil(t, cookie, key)
		assert.Empty(t, cookie.Value)
	}
	assert.False(t, orch.State().State().Authenticated())
}

func TestStateFromContextFallsBackToContainer(t *testing.T) {
	c := session.NewContainer(&session.AuthState{AuthTokens: &session.AuthTokens{Access: "A", Refresh: "R"}})
	ctx := session.WithContainer(context.Background(), c)

	state, ok := session.StateFromContext(ctx)
	require.True(t, ok)
	assert.True(t, state.Authenticated())

	_, ok = session.StateFromContext(context.Background())
	assert.False(t, ok)
}
