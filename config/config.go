// Package config loads portal client settings from a config file and the
// environment.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-logger/glog"

	session "github.com/adaptivelearn/go-session"
)

// Store backends
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// DefaultFile is looked up in the user config dir when no path is given.
const DefaultFile = "portal.yaml"

// Config holds every client setting. Zero values are filled by Defaults.
type Config struct {
	CoreURL          string `koanf:"core_url" json:"core_url" yaml:"core_url"`
	FogURL           string `koanf:"fog_url" json:"fog_url" yaml:"fog_url"`
	Store            string `koanf:"store" json:"store" yaml:"store"`
	DSN              string `koanf:"dsn" json:"dsn" yaml:"dsn"`
	RedisAddr        string `koanf:"redis_addr" json:"redis_addr" yaml:"redis_addr"`
	Profile          string `koanf:"profile" json:"profile" yaml:"profile"`
	Listen           string `koanf:"listen" json:"listen" yaml:"listen"`
	LogLevel         string `koanf:"log_level" json:"log_level" yaml:"log_level"`
	RequestTimeout   string `koanf:"request_timeout" json:"request_timeout" yaml:"request_timeout"`
	LoginRoute       string `koanf:"login_route" json:"login_route" yaml:"login_route"`
	HomeRoute        string `koanf:"home_route" json:"home_route" yaml:"home_route"`
	RejectedRouteKey string `koanf:"rejected_route_key" json:"rejected_route_key" yaml:"rejected_route_key"`
	SecureCookies    bool   `koanf:"secure_cookies" json:"secure_cookies" yaml:"secure_cookies"`
	MetricsNamespace string `koanf:"metrics_namespace" json:"metrics_namespace" yaml:"metrics_namespace"`
}

var _ session.Config = &Config{}

// Defaults returns the settings used when nothing is configured.
func Defaults() *Config {
	return &Config{
		CoreURL:          "http://localhost:8000/api",
		FogURL:           "http://localhost:5000",
		Store:            StoreSQLite,
		DSN:              "file:" + filepath.Join(defaultDir(), "session.db") + "?cache=shared",
		RedisAddr:        "localhost:6379",
		Profile:          "default",
		Listen:           ":8572",
		LogLevel:         "info",
		RequestTimeout:   "0s",
		LoginRoute:       session.DefaultLoginRoute,
		HomeRoute:        session.DefaultHomeRoute,
		RejectedRouteKey: "rejected_route",
		MetricsNamespace: "portal",
	}
}

// Load layers the config file over Defaults and then applies PORTAL_*
// environment overrides. An explicit path must exist; without one the
// DefaultFile in the user config dir is used when present.
func Load(ctx context.Context, path string, logger glog.Logger) (*Config, error) {
	path, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if path != "" {
		container := gconfig.New(cfg).
			WithConfigPath(path).
			WithLogger(logger)
		if err := container.Load(ctx); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = container.Raw()
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("read config: %w", err)
		}
		return path, nil
	}

	def := filepath.Join(defaultDir(), DefaultFile)
	if _, err := os.Stat(def); err == nil {
		return def, nil
	}
	return "", nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"PORTAL_CORE_URL":        &c.CoreURL,
		"PORTAL_FOG_URL":         &c.FogURL,
		"PORTAL_STORE":           &c.Store,
		"PORTAL_DSN":             &c.DSN,
		"PORTAL_REDIS_ADDR":      &c.RedisAddr,
		"PORTAL_PROFILE":         &c.Profile,
		"PORTAL_LISTEN":          &c.Listen,
		"PORTAL_LOG_LEVEL":       &c.LogLevel,
		"PORTAL_REQUEST_TIMEOUT": &c.RequestTimeout,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	if v, ok := lookup("PORTAL_SECURE_COOKIES"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid PORTAL_SECURE_COOKIES: %w", err)
		}
		c.SecureCookies = b
	}
	return nil
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.CoreURL, validation.Required, is.URL),
		validation.Field(&c.FogURL, validation.Required, is.URL),
		validation.Field(&c.Store, validation.Required, validation.In(StoreSQLite, StoreRedis, StoreMemory)),
		validation.Field(&c.DSN, requiredFor(c.Store, StoreSQLite)),
		validation.Field(&c.RedisAddr, requiredFor(c.Store, StoreRedis)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.RequestTimeout, validation.By(checkDuration)),
	)
}

// requiredFor requires the field only when store is the selected backend.
func requiredFor(store, backend string) validation.Rule {
	return validation.By(func(value any) error {
		if store != backend {
			return nil
		}
		if s, _ := value.(string); s == "" {
			return fmt.Errorf("is required for the %s store", backend)
		}
		return nil
	})
}

func checkDuration(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := time.ParseDuration(s); err != nil {
		return fmt.Errorf("must be a duration such as 10s")
	}
	return nil
}

func (c *Config) GetCoreURL() string          { return c.CoreURL }
func (c *Config) GetFogURL() string           { return c.FogURL }
func (c *Config) GetLoginRoute() string       { return c.LoginRoute }
func (c *Config) GetHomeRoute() string        { return c.HomeRoute }
func (c *Config) GetRejectedRouteKey() string { return c.RejectedRouteKey }
func (c *Config) GetSecureCookies() bool      { return c.SecureCookies }

func (c *Config) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0
	}
	return d
}

func defaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "adaptivelearn")
	}
	return "."
}
