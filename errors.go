package session

import (
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

// DefaultErrorMessage is stored when a failure carries no server body.
const DefaultErrorMessage = "Something went wrong! Please try again later."

const unknownErrorMessage = "Unknown error occurred"

const (
	TextCodeMissingRefreshToken = "MISSING_REFRESH_TOKEN"
	TextCodeSessionInvalid      = "SESSION_INVALID"
	TextCodeStaleResponse       = "STALE_RESPONSE"
	TextCodeInvalidInput        = "INVALID_INPUT"
)

// ErrMissingRefreshToken is returned by Refresh when the store holds no refresh token
var ErrMissingRefreshToken = errors.New("refresh token not found", errors.CategoryAuth).
	WithTextCode(TextCodeMissingRefreshToken).
	WithCode(errors.CodeUnauthorized)

// ErrSessionInvalid is returned when a refresh fails and the session was destroyed
var ErrSessionInvalid = errors.New("session is no longer valid", errors.CategoryAuth).
	WithTextCode(TextCodeSessionInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrStaleResponse marks a response overtaken by a newer call
var ErrStaleResponse = errors.New("response superseded by a newer request", errors.CategoryConflict).
	WithTextCode(TextCodeStaleResponse).
	WithCode(errors.CodeConflict)

// ErrInvalidInput is returned when credentials fail client side validation
var ErrInvalidInput = errors.New("invalid input", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidInput).
	WithCode(errors.CodeBadRequest)

// ExtractErrorPayload returns the server body carried by err, or
// DefaultErrorMessage when there is none.
func ExtractErrorPayload(err error) ErrorPayload {
	if err == nil {
		return nil
	}

	var provider ErrorDataProvider
	if errors.As(err, &provider) {
		if data := provider.ResponseData(); !isEmptyPayload(data) {
			return data
		}
	}

	return DefaultErrorMessage
}

// ErrorStatus returns the HTTP status carried by err, 0 for transport
// failures.
func ErrorStatus(err error) int {
	var provider ErrorDataProvider
	if errors.As(err, &provider) {
		return provider.ResponseStatus()
	}
	return 0
}

func isEmptyPayload(data any) bool {
	switch v := data.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []byte:
		return len(v) == 0
	}
	return false
}

// ValidationPayload shapes client side validation errors like the core API
// does: {"errors": {"field": ["message"]}}.
func ValidationPayload(err error) map[string]any {
	fields := map[string]any{}

	verrs, ok := err.(validation.Errors)
	if !ok {
		return map[string]any{"non_field_errors": []any{err.Error()}}
	}

	for field, ferr := range verrs {
		if ferr == nil {
			continue
		}
		fields[field] = []any{ferr.Error()}
	}

	return map[string]any{"errors": fields}
}

// FormatErrorMessages flattens an error payload into display lines.
func FormatErrorMessages(payload ErrorPayload) []string {
	switch v := payload.(type) {
	case nil:
		return []string{unknownErrorMessage}
	case string:
		return []string{v}
	case map[string]any:
		if nfe, ok := v["non_field_errors"]; ok {
			return toStrings(nfe)
		}
		if fields, ok := v["errors"].(map[string]any); ok {
			keys := make([]string, 0, len(fields))
			for k := range fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			out := make([]string, 0, len(keys))
			for _, k := range keys {
				out = append(out, fmt.Sprintf("%s: %s", k, strings.Join(toStrings(fields[k]), ", ")))
			}
			return out
		}
	}
	return []string{unknownErrorMessage}
}

func toStrings(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return []string{vv}
	case nil:
		return nil
	default:
		return []string{fmt.Sprint(vv)}
	}
}
