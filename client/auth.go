package client

import (
	"context"
	"net/http"

	session "github.com/adaptivelearn/go-session"
)

// Login posts credentials to /auth/login/.
func (c *Client) Login(ctx context.Context, creds session.LoginCredentials) (*session.LoginResponse, error) {
	r, err := c.core(ctx, http.MethodPost, "/auth/login/", creds)
	if err != nil {
		return nil, err
	}
	return session.ParseLoginResponse(r.status, r.body)
}

// Register posts a new account to /auth/register/.
func (c *Client) Register(ctx context.Context, fields session.RegisterFields) (*session.Response, error) {
	r, err := c.core(ctx, http.MethodPost, "/auth/register/", fields)
	if err != nil {
		return nil, err
	}
	return response(r)
}

// RefreshToken exchanges a refresh token at /auth/token/refresh/.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (*session.AuthTokens, error) {
	r, err := c.core(ctx, http.MethodPost, "/auth/token/refresh/", map[string]string{"refresh": refresh})
	if err != nil {
		return nil, err
	}
	tokens, err := decode[session.AuthTokens](r)
	if err != nil {
		return nil, err
	}
	return &tokens, nil
}

// FetchUser reads the current profile from /auth/user/.
func (c *Client) FetchUser(ctx context.Context) (session.UserProfile, error) {
	r, err := c.core(ctx, http.MethodGet, "/auth/user/", nil)
	if err != nil {
		return nil, err
	}
	return decode[session.UserProfile](r)
}
