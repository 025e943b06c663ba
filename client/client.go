// Package client is the HTTP transport for the portal's two REST APIs: the
// core course/quiz API and the FOG analytics API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	session "github.com/adaptivelearn/go-session"
)

// TokenSource returns the access token to send, or "" for anonymous calls.
type TokenSource func() string

// StoreTokenSource reads the access token from a credential store.
func StoreTokenSource(store session.CredentialStore) TokenSource {
	return func() string {
		v, _ := store.Get(session.AccessTokenKey)
		return v
	}
}

// Client talks to both APIs. Calls are never retried.
type Client struct {
	coreURL    string
	fogURL     string
	httpClient *http.Client
	tokens     TokenSource
	logger     session.Logger
}

var _ session.AuthAPI = &Client{}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets a per request timeout; zero disables it. The client
// passed to WithHTTPClient is copied, never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithTokenSource sets where the bearer token comes from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithLogger overrides the logger.
func WithLogger(l session.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithFogURL sets the analytics API base URL. Defaults to the core URL.
func WithFogURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.fogURL = strings.TrimRight(u, "/")
		}
	}
}

// New returns a Client for the core API at coreURL, e.g.
// "http://localhost:8000/api".
func New(coreURL string, opts ...Option) *Client {
	c := &Client{
		coreURL:    strings.TrimRight(coreURL, "/"),
		httpClient: &http.Client{},
		logger:     session.NopLogger(),
	}
	c.fogURL = c.coreURL

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// WithStore returns a copy of c that reads its bearer token from store.
func (c *Client) WithStore(store session.CredentialStore) *Client {
	cp := *c
	cp.tokens = StoreTokenSource(store)
	return &cp
}

type raw struct {
	status int
	body   []byte
}

func (c *Client) core(ctx context.Context, method, path string, in any) (*raw, error) {
	return c.do(ctx, method, c.coreURL+path, in)
}

func (c *Client) fog(ctx context.Context, method, path string, in any) (*raw, error) {
	return c.do(ctx, method, c.fogURL+path, in)
}

func (c *Client) do(ctx context.Context, method, url string, in any) (*raw, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	c.logger.Debug("%s %s", method, url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Method: method, URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(method, url, resp.StatusCode, data)
	}

	return &raw{status: resp.StatusCode, body: data}, nil
}

func decode[T any](r *raw) (T, error) {
	var out T
	if len(bytes.TrimSpace(r.body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(r.body, &out); err != nil {
		return out, fmt.Errorf("unmarshal response: %w", err)
	}
	return out, nil
}

func response(r *raw) (*session.Response, error) {
	data, err := decode[any](r)
	if err != nil {
		return nil, err
	}
	return &session.Response{StatusCode: r.status, Data: data}, nil
}
