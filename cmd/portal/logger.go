package main

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"

	session "github.com/adaptivelearn/go-session"
)

// newLogger returns the process logger. Components take named children
// through GetLogger.
func newLogger(level string) *glog.BaseLogger {
	lvl := glog.Info
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		lvl = glog.Trace
	case "debug":
		lvl = glog.Debug
	case "warn":
		lvl = glog.Warn
	case "error":
		lvl = glog.Error
	}

	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(lvl),
		glog.WithName(appName),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
}

// sessionLogger adapts a structured glog logger to the printf style
// session.Logger used by the library packages.
type sessionLogger struct {
	lgr glog.Logger
}

var _ session.Logger = sessionLogger{}

func adaptLogger(lgr glog.Logger) session.Logger {
	if lgr == nil {
		return session.NopLogger()
	}
	return sessionLogger{lgr: lgr}
}

func (l sessionLogger) Debug(format string, args ...any) { l.lgr.Debug(sprintf(format, args)) }
func (l sessionLogger) Info(format string, args ...any)  { l.lgr.Info(sprintf(format, args)) }
func (l sessionLogger) Warn(format string, args ...any)  { l.lgr.Warn(sprintf(format, args)) }
func (l sessionLogger) Error(format string, args ...any) { l.lgr.Error(sprintf(format, args)) }

func sprintf(format string, args []any) string {
	if len(args) == 0 {
		return strings.TrimRight(format, "\n")
	}
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
