package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenClaims mirrors the claims the core API puts in its tokens.
type TokenClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type,omitempty"`
	UserID    any    `json:"user_id,omitempty"`
}

// TokenInfo is an advisory, unverified view of a token. It is meant for
// display and logging; authorization never depends on it.
type TokenInfo struct {
	Type      string     `json:"type,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
	TokenID   string     `json:"jti,omitempty"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token claims an expiry before now.
func (t TokenInfo) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// Remaining returns the time left before expiry, zero when unknown or past.
func (t TokenInfo) Remaining(now time.Time) time.Duration {
	if t.ExpiresAt == nil || !now.Before(*t.ExpiresAt) {
		return 0
	}
	return t.ExpiresAt.Sub(now)
}

// InspectToken decodes raw without verifying its signature.
func InspectToken(raw string) (*TokenInfo, error) {
	if raw == "" {
		return nil, errors.New("empty token", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "unable to decode token")
	}

	info := &TokenInfo{
		Type:    claims.TokenType,
		TokenID: claims.ID,
	}

	switch uid := claims.UserID.(type) {
	case nil:
		info.UserID = claims.Subject
	case float64:
		info.UserID = fmt.Sprintf("%.0f", uid)
	default:
		info.UserID = fmt.Sprint(uid)
	}

	if claims.IssuedAt != nil {
		t := claims.IssuedAt.Time
		info.IssuedAt = &t
	}
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		info.ExpiresAt = &t
	}

	return info, nil
}
