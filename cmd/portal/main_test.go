package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-logger/glog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "github.com/adaptivelearn/go-session"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := rootCmd()

	for _, name := range []string{
		"login", "register", "logout", "refresh", "whoami", "status",
		"courses", "course", "video", "quiz", "stars", "dashboard", "qtable",
		"serve", "version",
	} {
		found, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, found.Name())
	}
}

type logCall struct {
	level   string
	message string
	args    []any
}

type captureLogger struct {
	calls []logCall
}

func (l *captureLogger) record(level, message string, args ...any) {
	l.calls = append(l.calls, logCall{level: level, message: message, args: args})
}

func (l *captureLogger) Trace(message string, args ...any) { l.record("trace", message, args...) }
func (l *captureLogger) Debug(message string, args ...any) { l.record("debug", message, args...) }
func (l *captureLogger) Info(message string, args ...any)  { l.record("info", message, args...) }
func (l *captureLogger) Warn(message string, args ...any)  { l.record("warn", message, args...) }
func (l *captureLogger) Error(message string, args ...any) { l.record("error", message, args...) }
func (l *captureLogger) Fatal(message string, args ...any) { l.record("fatal", message, args...) }
func (l *captureLogger) WithContext(context.Context) glog.Logger {
	return l
}

func TestSessionLoggerFormatsMessages(t *testing.T) {
	capture := &captureLogger{}
	lgr := adaptLogger(capture)

	lgr.Debug("fetching %s", "profile")
	lgr.Info("plain message")
	lgr.Warn("retry in %ds\n", 3)
	lgr.Error("failed: %s", errors.New("boom"))

	require.Len(t, capture.calls, 4)
	assert.Equal(t, logCall{level: "debug", message: "fetching profile"}, capture.calls[0])
	assert.Equal(t, logCall{level: "info", message: "plain message"}, capture.calls[1])
	assert.Equal(t, logCall{level: "warn", message: "retry in 3s"}, capture.calls[2])
	assert.Equal(t, logCall{level: "error", message: "failed: boom"}, capture.calls[3])
}

func TestAdaptNilLoggerIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		adaptLogger(nil).Error("dropped")
	})
}

func TestNewLoggerHandsOutNamedLoggers(t *testing.T) {
	base := newLogger("warn")
	require.NotNil(t, base)
	assert.NotNil(t, base.GetLogger("store"))
}

func TestEnsureDirCreatesParent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")

	require.NoError(t, ensureDir("file:"+filepath.Join(dir, "session.db")+"?cache=shared"))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.NoError(t, ensureDir(":memory:"))
	assert.NoError(t, ensureDir("file::memory:?cache=shared"))
}

func TestResultError(t *testing.T) {
	err := resultError("registration", &session.Result{
		StatusCode: http.StatusBadRequest,
		Data:       map[string]any{"errors": map[string]any{"email": []any{"already in use"}}},
	})
	assert.EqualError(t, err, "registration failed (HTTP 400): email: already in use")

	err = resultError("login", &session.Result{Data: session.DefaultErrorMessage})
	assert.EqualError(t, err, "login failed: "+session.DefaultErrorMessage)

	err = resultError("login", &session.Result{Stale: true})
	assert.EqualError(t, err, "login superseded by a newer request")
}

func TestDisplayName(t *testing.T) {
	assert.Empty(t, displayName(nil))
	assert.Equal(t, "ada@example.com", displayName(session.UserProfile{"email": "ada@example.com"}))
	assert.Equal(t, "Ada <ada@example.com>", displayName(session.UserProfile{"email": "ada@example.com", "full_name": "Ada"}))
}
