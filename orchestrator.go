package session

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-errors"
)

// Result is what login, register and friends hand back to callers. Failures
// are values: callers branch on StatusCode or OK, never on a panic.
type Result struct {
	StatusCode int
	// Data is the response body on success and the error payload on failure.
	Data  any
	Err   error
	Stale bool
}

// OK reports a 2xx result that was applied to the state.
func (r *Result) OK() bool {
	return r != nil && r.Err == nil && !r.Stale &&
		r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// Orchestrator sequences API calls with credential store writes and state
// dispatches.
//
// Login, Refresh and Logout share one token generation counter: each call
// takes a new generation and a response is only applied if no newer call
// started meanwhile. FetchUser is tied to the session epoch instead, which
// only a committed login or a logout advances: a refresh rotates tokens for
// the same user, so a profile loaded across it is still applied, while a
// logout always wins over a late profile.
type Orchestrator struct {
	api       AuthAPI
	store     CredentialStore
	state     *Container
	logger    Logger
	metrics   Metrics
	now       func() time.Time
	gen       atomic.Uint64
	epoch     atomic.Uint64
	commitMu  sync.Mutex
	pending   sync.WaitGroup
	validate  bool
	asyncLoad bool
}

// OrchestratorOption customizes orchestrator construction.
type OrchestratorOption func(*Orchestrator)

// WithLogger overrides the logger.
func WithLogger(logger Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithOrchestratorClock injects a custom clock (useful for tests).
func WithOrchestratorClock(clock func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if clock != nil {
			o.now = clock
		}
	}
}

// WithInputValidation toggles client side validation of credentials.
// Enabled by default.
func WithInputValidation(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.validate = enabled
	}
}

// WithSyncProfileLoad makes CompleteLogin wait for the profile load.
// CLIs use it because the process exits right after login.
func WithSyncProfileLoad() OrchestratorOption {
	return func(o *Orchestrator) {
		o.asyncLoad = false
	}
}

// NewOrchestrator wires the API, the durable store and the state container.
func NewOrchestrator(api AuthAPI, store CredentialStore, state *Container, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		api:       api,
		store:     store,
		state:     state,
		logger:    defLogger{},
		metrics:   noopMetrics{},
		now:       time.Now,
		validate:  true,
		asyncLoad: true,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	if o.state == nil {
		o.state = NewContainer(Hydrate(store))
	}

	return o
}

// State returns the container the orchestrator dispatches into.
func (o *Orchestrator) State() *Container {
	return o.state
}

// Login authenticates and then loads the profile without waiting for it.
func (o *Orchestrator) Login(ctx context.Context, creds LoginCredentials) *Result {
	return o.CompleteLogin(ctx, creds)
}

// CompleteLogin runs Authenticate and, on success, LoadProfile. The profile
// load is not awaited and its failure never changes the login result.
func (o *Orchestrator) CompleteLogin(ctx context.Context, creds LoginCredentials) *Result {
	res := o.Authenticate(ctx, creds)
	if !res.OK() {
		return res
	}

	if o.asyncLoad {
		o.LoadProfile(ctx)
	} else {
		o.FetchUser(ctx)
	}
	return res
}

// Authenticate performs the login call, persists the tokens and dispatches
// LOGIN_SUCCESS.
func (o *Orchestrator) Authenticate(ctx context.Context, creds LoginCredentials) *Result {
	start := o.now()

	if res := o.checkInput(creds); res != nil {
		o.observe("login", "invalid", start)
		return res
	}

	gen := o.gen.Add(1)
	resp, err := o.api.Login(ctx, creds)

	o.commitMu.Lock()
	defer o.commitMu.Unlock()

	if gen != o.gen.Load() {
		o.logger.Info("discarding stale login response generation=%d", gen)
		o.observe("login", "stale", start)
		return staleResult(resp, err)
	}

	if err != nil {
		payload := ExtractErrorPayload(err)
		o.logger.Error("login failed: %s", err)
		o.state.Dispatch(AuthFail(payload))
		o.observe("login", "failure", start)
		return &Result{StatusCode: ErrorStatus(err), Data: payload, Err: err}
	}

	if err := SaveTokens(o.store, resp.Tokens); err != nil {
		o.logger.Error("login succeeded but tokens could not be stored: %s", err)
		o.state.Dispatch(AuthFail(DefaultErrorMessage))
		o.observe("login", "failure", start)
		return &Result{
			StatusCode: resp.StatusCode,
			Data:       DefaultErrorMessage,
			Err:        errors.Wrap(err, errors.CategoryInternal, "failed to persist tokens"),
		}
	}

	o.epoch.Add(1)
	o.state.Dispatch(LoginSuccess(resp.Tokens))
	o.observe("login", "success", start)
	return &Result{StatusCode: resp.StatusCode, Data: resp.Data}
}

// LoadProfile starts FetchUser in the background. Use Wait to join it.
func (o *Orchestrator) LoadProfile(ctx context.Context) {
	o.pending.Add(1)
	go func() {
		defer o.pending.Done()
		o.FetchUser(context.WithoutCancel(ctx))
	}()
}

// Wait blocks until every background profile load finished.
func (o *Orchestrator) Wait() {
	o.pending.Wait()
}

// Register creates an account. It never logs the user in.
func (o *Orchestrator) Register(ctx context.Context, fields RegisterFields) *Result {
	start := o.now()

	if res := o.checkInput(fields); res != nil {
		o.observe("register", "invalid", start)
		return res
	}

	resp, err := o.api.Register(ctx, fields)
	if err != nil {
		payload := ExtractErrorPayload(err)
		o.logger.Error("register failed: %s", err)
		o.state.Dispatch(AuthFail(payload))
		o.observe("register", "failure", start)
		return &Result{StatusCode: ErrorStatus(err), Data: payload, Err: err}
	}

	o.state.Dispatch(RegisterSuccess())
	o.observe("register", "success", start)
	return &Result{StatusCode: resp.StatusCode, Data: resp.Data}
}

// Refresh exchanges the stored refresh token for a new pair. Any failure,
// including a missing token, destroys the session. It never retries.
func (o *Orchestrator) Refresh(ctx context.Context) *Result {
	start := o.now()
	gen := o.gen.Add(1)

	refresh, ok := o.store.Get(RefreshTokenKey)
	if !ok || refresh == "" {
		o.commitMu.Lock()
		defer o.commitMu.Unlock()
		if gen != o.gen.Load() {
			o.observe("refresh", "stale", start)
			return &Result{Err: ErrStaleResponse, Stale: true}
		}
		o.logger.Info("no refresh token stored, logging out")
		o.logoutLocked()
		o.observe("refresh", "failure", start)
		return &Result{StatusCode: http.StatusUnauthorized, Err: ErrMissingRefreshToken}
	}

	tokens, err := o.api.RefreshToken(ctx, refresh)

	o.commitMu.Lock()
	defer o.commitMu.Unlock()

	if gen != o.gen.Load() {
		o.logger.Info("discarding stale refresh response generation=%d", gen)
		o.observe("refresh", "stale", start)
		return &Result{StatusCode: ErrorStatus(err), Err: ErrStaleResponse, Stale: true}
	}

	if err == nil && (tokens == nil || tokens.Access == "") {
		err = errors.New("refresh response carried no access token", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}

	if err != nil {
		o.logger.Error("token refresh failed, logging out: %s", err)
		o.logoutLocked()
		o.observe("refresh", "failure", start)
		status := ErrorStatus(err)
		if status == 0 {
			status = http.StatusUnauthorized
		}
		return &Result{
			StatusCode: status,
			Data:       ExtractErrorPayload(err),
			Err:        errors.Wrap(err, errors.CategoryAuth, ErrSessionInvalid.Message).WithTextCode(TextCodeSessionInvalid),
		}
	}

	next := *tokens
	if next.Refresh == "" {
		// refresh rotation disabled server side: keep the current token
		next.Refresh = refresh
	}

	if err := SaveTokens(o.store, next); err != nil {
		o.logger.Error("refreshed tokens could not be stored, logging out: %s", err)
		o.logoutLocked()
		o.observe("refresh", "failure", start)
		return &Result{Err: errors.Wrap(err, errors.CategoryInternal, "failed to persist tokens")}
	}

	o.state.Dispatch(LoginSuccess(next))
	o.observe("refresh", "success", start)
	return &Result{StatusCode: http.StatusOK, Data: next}
}

// FetchUser loads the current profile. Failures are recorded in the error
// slot and leave the tokens alone.
func (o *Orchestrator) FetchUser(ctx context.Context) *Result {
	start := o.now()
	epoch := o.epoch.Load()

	user, err := o.api.FetchUser(ctx)

	o.commitMu.Lock()
	defer o.commitMu.Unlock()

	if epoch != o.epoch.Load() {
		o.logger.Info("discarding profile fetched for a previous session")
		o.observe("fetch_user", "stale", start)
		return &Result{StatusCode: ErrorStatus(err), Err: ErrStaleResponse, Stale: true}
	}

	if err != nil {
		payload := ExtractErrorPayload(err)
		o.logger.Error("fetch user failed: %s", err)
		o.state.Dispatch(FetchUserFail(payload))
		o.observe("fetch_user", "failure", start)
		return &Result{StatusCode: ErrorStatus(err), Data: payload, Err: err}
	}

	if err := SaveProfile(o.store, user); err != nil {
		o.logger.Warn("profile could not be cached: %s", err)
	}

	o.state.Dispatch(SetUser(user))
	o.observe("fetch_user", "success", start)
	return &Result{StatusCode: http.StatusOK, Data: user}
}

// Logout clears every credential and resets the state. It is idempotent
// and supersedes any call still in flight.
func (o *Orchestrator) Logout() {
	o.commitMu.Lock()
	defer o.commitMu.Unlock()
	o.gen.Add(1)
	o.logoutLocked()
}

func (o *Orchestrator) logoutLocked() {
	o.epoch.Add(1)
	if err := ClearCredentials(o.store); err != nil {
		o.logger.Warn("failed to clear credentials: %s", err)
	}
	o.state.Dispatch(Logout())
}

type validatable interface {
	Validate() error
}

func (o *Orchestrator) checkInput(v validatable) *Result {
	if !o.validate {
		return nil
	}

	err := v.Validate()
	if err == nil {
		return nil
	}

	payload := ValidationPayload(err)
	o.state.Dispatch(AuthFail(payload))
	return &Result{
		StatusCode: http.StatusBadRequest,
		Data:       payload,
		Err:        errors.Wrap(err, errors.CategoryValidation, ErrInvalidInput.Message).WithTextCode(TextCodeInvalidInput),
	}
}

func (o *Orchestrator) observe(op, outcome string, start time.Time) {
	o.metrics.ObserveOperation(op, outcome, o.now().Sub(start))
}

func staleResult(resp *LoginResponse, err error) *Result {
	res := &Result{Err: ErrStaleResponse, Stale: true}
	if resp != nil {
		res.StatusCode = resp.StatusCode
	} else {
		res.StatusCode = ErrorStatus(err)
	}
	return res
}
