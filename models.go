package session

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// AuthTokens is the access/refresh pair issued by the core API.
type AuthTokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Valid reports whether both halves of the pair are present. Only a valid
// pair counts as an authenticated session.
func (t *AuthTokens) Valid() bool {
	return t != nil && t.Access != "" && t.Refresh != ""
}

// UserProfile is the server's user document, cached verbatim.
type UserProfile map[string]any

func (u UserProfile) str(key string) string {
	if u == nil {
		return ""
	}
	switch v := u[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}

func (u UserProfile) Email() string {
	return u.str("email")
}

func (u UserProfile) FullName() string {
	return u.str("full_name")
}

func (u UserProfile) ID() string {
	return u.str("id")
}

// AuthState is the in-memory view of the credential store.
// User is only meaningful while AuthTokens.Access is set, and may be nil
// while a profile fetch is in flight.
type AuthState struct {
	AuthTokens *AuthTokens  `json:"auth_tokens"`
	User       UserProfile  `json:"user"`
	Error      ErrorPayload `json:"error"`
}

// ErrorPayload is the body of the last failure: a decoded server response
// or DefaultErrorMessage.
type ErrorPayload = any

// LoggedOutState returns the reset shape.
func LoggedOutState() *AuthState {
	return &AuthState{}
}

// Authenticated reports whether the session invariant holds.
func (s *AuthState) Authenticated() bool {
	return s != nil && s.AuthTokens.Valid()
}

// HasProfile reports whether a profile with an email is cached.
func (s *AuthState) HasProfile() bool {
	return s != nil && s.User.Email() != ""
}

// LoginCredentials is the body of POST /auth/login/.
type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c LoginCredentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email,
			validation.Required.Error("Please enter a valid email address."),
			is.Email.Error("Please enter a valid email address."),
		),
		validation.Field(&c.Password,
			validation.Required.Error("Password must be at least 6 characters."),
			validation.RuneLength(6, 0).Error("Password must be at least 6 characters."),
		),
	)
}

// RegisterFields is the body of POST /auth/register/.
type RegisterFields struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (f RegisterFields) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Username,
			validation.Required.Error("Username must be at least 2 characters."),
			validation.RuneLength(2, 0).Error("Username must be at least 2 characters."),
		),
		validation.Field(&f.Email,
			validation.Required.Error("Please enter a valid email address."),
			is.Email.Error("Please enter a valid email address."),
		),
		validation.Field(&f.Password,
			validation.Required.Error("Password must be at least 6 characters."),
			validation.RuneLength(6, 0).Error("Password must be at least 6 characters."),
		),
	)
}

// Response is a decoded 2xx API response.
type Response struct {
	StatusCode int `json:"status_code"`
	Data       any `json:"data"`
}

// LoginResponse carries the issued tokens along with the rest of the login
// body (id, email, full_name, ...).
type LoginResponse struct {
	Response
	Tokens AuthTokens `json:"tokens"`
}

// ParseLoginResponse decodes a login body, keeping the raw document in Data.
func ParseLoginResponse(status int, body []byte) (*LoginResponse, error) {
	res := &LoginResponse{Response: Response{StatusCode: status}}
	if err := json.Unmarshal(body, &res.Data); err != nil {
		return nil, err
	}

	var envelope struct {
		Tokens AuthTokens `json:"tokens"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	res.Tokens = envelope.Tokens
	return res, nil
}
