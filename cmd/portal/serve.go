package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	session "github.com/adaptivelearn/go-session"
	"github.com/adaptivelearn/go-session/client"
	"github.com/adaptivelearn/go-session/config"
	"github.com/adaptivelearn/go-session/metrics"
	"github.com/adaptivelearn/go-session/portal"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the portal session gate over HTTP",
		Long: `Serve the portal session gate over HTTP. Sessions live in cookies;
protected routes proxy the portal APIs with the caller's token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := loadConfig(ctx, opts)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config)")
	return cmd
}

// Server bundles the HTTP gate with its dependencies.
type Server struct {
	cfg      *config.Config
	logger   session.Logger
	api      *client.Client
	guard    *session.HTTPGuard
	registry *prometheus.Registry
	srv      router.Server[*fiber.App]
}

func newServer(cfg *config.Config, lgr *glog.BaseLogger) (*Server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	collector, err := metrics.New(registry, cfg.MetricsNamespace)
	if err != nil {
		return nil, err
	}

	api := client.New(cfg.GetCoreURL(),
		client.WithFogURL(cfg.GetFogURL()),
		client.WithTimeout(cfg.GetRequestTimeout()),
		client.WithLogger(adaptLogger(lgr.GetLogger("api"))),
	)

	guard := session.NewHTTPGuard(cfg, func(store session.CredentialStore) session.AuthAPI {
		return api.WithStore(store)
	}, collector)
	guard.Logger = adaptLogger(lgr.GetLogger("http"))

	s := &Server{
		cfg:      cfg,
		logger:   adaptLogger(lgr.GetLogger("server")),
		api:      api,
		guard:    guard,
		registry: registry,
	}

	s.srv = router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		app := router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
		return app
	})

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.srv.Router()

	public := s.guard.PublicOnly()
	protected := s.guard.ProtectedRoute()

	r.Get("/", s.landing, public)
	r.Get("/login", s.landing, public)
	r.Post("/login", s.login, public)
	r.Post("/register", s.register, public)
	r.Post("/logout", s.logout)
	r.Post("/refresh", s.refresh)

	r.Get("/me", s.me, protected)
	r.Get("/dashboard", s.dashboard, protected)
	r.Get("/courses", s.courses, protected)
	r.Get("/courses/:id", s.course, protected)
	r.Get("/qtable", s.qtable, protected)
	r.Get("/stars", s.stars, protected)
}

func serve(cfg *config.Config) error {
	base := newLogger(cfg.LogLevel)

	s, err := newServer(cfg, base)
	if err != nil {
		return err
	}

	lgr := base.GetLogger("server")
	go func() {
		lgr.Info("listening", "addr", cfg.Listen)
		if err := s.srv.Serve(cfg.Listen); err != nil {
			lgr.Error("server stopped", "error", err)
		}
	}()

	sig := WaitExitSignal()
	lgr.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}

func (s *Server) landing(c router.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"authenticated": false,
		"login":         s.cfg.GetLoginRoute(),
	})
}

func (s *Server) login(c router.Context) error {
	var creds session.LoginCredentials
	if err := c.Bind(&creds); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(session.DefaultErrorMessage))
	}

	orch := s.guard.Session(c)
	res := orch.Login(c.Context(), creds)
	if !res.OK() {
		return s.failure(c, res)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"redirect": s.guard.GetRedirectOrDefault(c),
		"user":     orch.State().State().User,
	})
}

func (s *Server) register(c router.Context) error {
	var fields session.RegisterFields
	if err := c.Bind(&fields); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(session.DefaultErrorMessage))
	}

	res := s.guard.Session(c).Register(c.Context(), fields)
	if !res.OK() {
		return s.failure(c, res)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"message":  "Registration successful. Please log in.",
		"redirect": s.cfg.GetLoginRoute(),
	})
}

func (s *Server) logout(c router.Context) error {
	s.guard.Session(c).Logout()
	return c.Redirect(s.cfg.GetLoginRoute(), http.StatusSeeOther)
}

func (s *Server) refresh(c router.Context) error {
	res := s.guard.Session(c).Refresh(c.Context())
	if !res.OK() {
		return s.failure(c, res)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) me(c router.Context) error {
	state, ok := session.GetRouterState(c, s.guard.LocalsKey)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody(session.DefaultErrorMessage))
	}
	if !state.HasProfile() {
		return c.JSON(http.StatusBadGateway, map[string]any{
			"errors": session.FormatErrorMessages(state.Error),
		})
	}
	return c.JSON(http.StatusOK, state.User)
}

func (s *Server) dashboard(c router.Context) error {
	info, err := s.requestAPI(c).DashboardInfo(c.Context())
	if err != nil {
		return s.apiFailure(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) courses(c router.Context) error {
	doc, err := s.requestAPI(c).Catalog(c.Context())
	if err != nil {
		return s.apiFailure(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) course(c router.Context) error {
	id := c.ParamsInt("id", 0)
	if id <= 0 {
		return c.JSON(http.StatusBadRequest, errorBody("invalid course id"))
	}
	doc, err := s.requestAPI(c).CourseOverview(c.Context(), id)
	if err != nil {
		return s.apiFailure(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) qtable(c router.Context) error {
	tables, err := s.requestAPI(c).QTableOverall(c.Context())
	if err != nil {
		return s.apiFailure(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"courses": tables,
		"summary": portal.Summarize(tables),
	})
}

func (s *Server) stars(c router.Context) error {
	stars, err := s.requestAPI(c).TotalStars(c.Context())
	if err != nil {
		return s.apiFailure(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"total_stars": stars.Count()})
}

// requestAPI returns a client authorized with the caller's cookies.
func (s *Server) requestAPI(c router.Context) *client.Client {
	return s.api.WithStore(session.NewCookieStore(c, s.cfg.GetSecureCookies()))
}

func (s *Server) failure(c router.Context, res *session.Result) error {
	status := res.StatusCode
	if status < http.StatusBadRequest {
		status = http.StatusBadGateway
	}
	return c.JSON(status, map[string]any{
		"errors": session.FormatErrorMessages(res.Data),
		"data":   res.Data,
	})
}

func (s *Server) apiFailure(c router.Context, err error) error {
	s.logger.Error("portal api call failed: %s", err)
	status := session.ErrorStatus(err)
	if status == 0 {
		status = http.StatusBadGateway
	}
	payload := session.ExtractErrorPayload(err)
	return c.JSON(status, map[string]any{
		"errors": session.FormatErrorMessages(payload),
		"data":   payload,
	})
}

func errorBody(msg string) map[string]any {
	return map[string]any{"errors": []string{msg}}
}
