package session

import (
	"net/http"
	"time"

	"github.com/goliatone/go-router"
)

// CookieStore is a CredentialStore backed by the cookies of one request.
// Writes go to the response; reads see the request plus this request's
// writes.
type CookieStore struct {
	ctx     router.Context
	secure  bool
	now     func() time.Time
	written map[string]*string
}

var _ CredentialStore = &CookieStore{}

func NewCookieStore(ctx router.Context, secure bool) *CookieStore {
	return &CookieStore{
		ctx:     ctx,
		secure:  secure,
		now:     time.Now,
		written: make(map[string]*string),
	}
}

func (s *CookieStore) Get(key string) (string, bool) {
	if v, ok := s.written[key]; ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}
	v := s.ctx.Cookies(key)
	return v, v != ""
}

func (s *CookieStore) Set(key, value string, ttl time.Duration) error {
	s.ctx.Cookie(&router.Cookie{
		Name:     key,
		Value:    value,
		Path:     "/",
		Expires:  s.now().Add(ttl),
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: "Lax",
	})
	s.written[key] = &value
	return nil
}

func (s *CookieStore) Remove(key string) error {
	s.ctx.Cookie(&router.Cookie{
		Name:     key,
		Value:    "",
		Path:     "/",
		Expires:  s.now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: "Lax",
	})
	s.written[key] = nil
	return nil
}

// APIFactory builds an AuthAPI whose bearer token is read from store.
type APIFactory func(store CredentialStore) AuthAPI

// HTTPGuard protects go-router routes with the session invariant. Each
// request hydrates its own state from cookies.
type HTTPGuard struct {
	cfg        Config
	apiFactory APIFactory
	metrics    Metrics
	Logger     Logger
	LocalsKey  string
}

func NewHTTPGuard(cfg Config, apiFactory APIFactory, metrics Metrics) *HTTPGuard {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &HTTPGuard{
		cfg:        cfg,
		apiFactory: apiFactory,
		metrics:    metrics,
		Logger:     defLogger{},
		LocalsKey:  DefaultLocalsKey,
	}
}

// Session returns an orchestrator bound to the request's cookies.
func (h *HTTPGuard) Session(c router.Context) *Orchestrator {
	store := NewCookieStore(c, h.cfg.GetSecureCookies())
	return NewOrchestrator(
		h.apiFactory(store),
		store,
		NewContainer(Hydrate(store)),
		WithLogger(h.Logger),
		WithMetrics(h.metrics),
		WithSyncProfileLoad(),
	)
}

// ProtectedRoute lets requests through only when both tokens are present.
// A missing profile is loaded before the handler runs, since response
// cookies must be written before the body; a failed load does not block.
func (h *HTTPGuard) ProtectedRoute() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			orch := h.Session(c)
			state := orch.State().State()

			d := EvaluateWith(state, h.loginRoute())
			if !d.Allowed() {
				h.Logger.Info("unauthenticated request to %s, redirecting to %s", c.OriginalURL(), d.Target)
				h.SetRedirect(c)
				return c.Redirect(d.Target, redirectStatus(c))
			}

			if d.FetchProfile {
				orch.FetchUser(c.Context())
				state = orch.State().State()
			}

			h.bind(c, state)
			return next(c)
		}
	}
}

// PublicOnly sends authenticated sessions away from entry routes such as
// "/", "/login" and "/register".
func (h *HTTPGuard) PublicOnly() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			state := Hydrate(NewCookieStore(c, h.cfg.GetSecureCookies()))
			d := EvaluateLanding(state, h.homeRoute())
			if !d.Allowed() {
				return c.Redirect(d.Target, redirectStatus(c))
			}
			h.bind(c, state)
			return next(c)
		}
	}
}

// SetRedirect remembers the rejected route for a short while.
func (h *HTTPGuard) SetRedirect(c router.Context) {
	key := h.cfg.GetRejectedRouteKey()
	if key == "" {
		return
	}
	c.Cookie(&router.Cookie{
		Name:     key,
		Value:    c.OriginalURL(),
		Path:     "/",
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   h.cfg.GetSecureCookies(),
		SameSite: "Lax",
	})
}

// GetRedirectOrDefault returns and clears the rejected route, falling back
// to the home route.
func (h *HTTPGuard) GetRedirectOrDefault(c router.Context) string {
	key := h.cfg.GetRejectedRouteKey()
	r := ""
	if key != "" {
		r = c.Cookies(key)
		c.Cookie(&router.Cookie{
			Name:     key,
			Value:    "",
			Path:     "/",
			Expires:  time.Now().Add(-time.Hour * (24 * 365)),
			HTTPOnly: true,
			Secure:   h.cfg.GetSecureCookies(),
			SameSite: "Lax",
		})
	}
	if r == "" {
		r = h.homeRoute()
	}
	return r
}

func (h *HTTPGuard) bind(c router.Context, state *AuthState) {
	c.Locals(h.LocalsKey, state)
	c.SetContext(WithState(c.Context(), state))
}

func (h *HTTPGuard) loginRoute() string {
	if r := h.cfg.GetLoginRoute(); r != "" {
		return r
	}
	return DefaultLoginRoute
}

func (h *HTTPGuard) homeRoute() string {
	if r := h.cfg.GetHomeRoute(); r != "" {
		return r
	}
	return DefaultHomeRoute
}

func redirectStatus(c router.Context) int {
	if c.Method() == string(router.GET) {
		return http.StatusFound
	}
	return http.StatusSeeOther
}
