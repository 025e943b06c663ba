package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/redis/go-redis/v9"

	session "github.com/adaptivelearn/go-session"
	"github.com/adaptivelearn/go-session/client"
	"github.com/adaptivelearn/go-session/config"
	"github.com/adaptivelearn/go-session/repository"
)

var errNotLoggedIn = errors.New("not logged in, run `portal login` first", errors.CategoryAuth).
	WithTextCode("NOT_LOGGED_IN").
	WithCode(errors.CodeUnauthorized)

// App holds everything a command needs. Close must be called when the
// command is done.
type App struct {
	cfg    *config.Config
	logger session.Logger
	store  session.CredentialStore
	api    *client.Client
	orch   *session.Orchestrator
	guard  *session.Guard
	closer func() error
}

func newApp(ctx context.Context, opts *rootOptions) (*App, error) {
	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	if opts.profile != "" {
		cfg.Profile = opts.profile
	}

	lgr := newLogger(cfg.LogLevel)

	store, closer, err := openStore(ctx, cfg, lgr)
	if err != nil {
		return nil, err
	}

	api := client.New(cfg.GetCoreURL(),
		client.WithFogURL(cfg.GetFogURL()),
		client.WithTimeout(cfg.GetRequestTimeout()),
		client.WithTokenSource(client.StoreTokenSource(store)),
		client.WithLogger(adaptLogger(lgr.GetLogger("api"))),
	)

	orch := session.NewOrchestrator(api, store, nil,
		session.WithLogger(adaptLogger(lgr.GetLogger("session"))),
		session.WithSyncProfileLoad(),
	)

	guard := session.NewGuard(orch.State(), orch,
		session.WithGuardLoginRoute(cfg.GetLoginRoute()),
		session.WithGuardLogger(adaptLogger(lgr.GetLogger("guard"))),
	)

	return &App{
		cfg:    cfg,
		logger: adaptLogger(lgr.GetLogger("cli")),
		store:  store,
		api:    api,
		orch:   orch,
		guard:  guard,
		closer: closer,
	}, nil
}

// Close joins pending profile loads and releases the store.
func (a *App) Close() error {
	a.guard.Wait()
	a.orch.Wait()
	if a.closer != nil {
		return a.closer()
	}
	return nil
}

// RequireSession runs the route guard for one command. A redirect decision
// means the command cannot run.
func (a *App) RequireSession(ctx context.Context) error {
	mount := session.NewMountID()
	defer a.guard.Unmount(mount)

	d := a.guard.Check(ctx, mount)
	if !d.Allowed() {
		a.logger.Debug("guard redirect to %s state=%s", d.Target, d.State)
		return errNotLoggedIn
	}
	return nil
}

// loadConfig reads the config file with a bootstrap logger at the level
// requested on the command line, then applies the flag overrides.
func loadConfig(ctx context.Context, opts *rootOptions) (*config.Config, error) {
	boot := newLogger(opts.logLevel)
	cfg, err := config.Load(ctx, opts.configPath, boot.GetLogger("config"))
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config, base *glog.BaseLogger) (session.CredentialStore, func() error, error) {
	lgr := adaptLogger(base.GetLogger("store"))

	switch cfg.Store {
	case config.StoreMemory:
		lgr.Warn("memory store selected, credentials are lost on exit")
		return session.NewMemoryStore(), nil, nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store := repository.NewRedisStore(rdb, cfg.Profile, repository.WithRedisLogger(lgr))
		if err := store.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, nil, errors.Wrap(err, errors.CategoryOperation, "redis unreachable").
				WithMetadata(map[string]any{"addr": cfg.RedisAddr})
		}
		lgr.Debug("using redis store addr=%s profile=%s", cfg.RedisAddr, cfg.Profile)
		return store, rdb.Close, nil

	default:
		if err := ensureDir(cfg.DSN); err != nil {
			return nil, nil, err
		}
		db, err := repository.OpenSQLite(cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		store := repository.NewSQLStore(db,
			repository.WithProfile(cfg.Profile),
			repository.WithQueryTimeout(cfg.GetRequestTimeout()),
			repository.WithLogger(lgr),
		)
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate credentials: %w", err)
		}
		if n, err := store.PurgeExpired(ctx); err != nil {
			lgr.Warn("purge expired credentials: %s", err)
		} else if n > 0 {
			lgr.Debug("purged %d expired credentials", n)
		}
		return store, db.Close, nil
	}
}

// ensureDir creates the parent directory of a file: DSN.
func ensureDir(dsn string) error {
	path, ok := strings.CutPrefix(dsn, "file:")
	if !ok {
		return nil
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.HasPrefix(path, ":memory:") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o700)
}
