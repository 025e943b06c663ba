package client

import (
	"encoding/json"
	"fmt"

	session "github.com/adaptivelearn/go-session"
)

// APIError is a failed call. For non 2xx responses StatusCode and Data hold
// the status and decoded body; transport failures only set Err.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Data       any
	Err        error
}

var _ session.ErrorDataProvider = &APIError{}

func newAPIError(method, url string, status int, body []byte) *APIError {
	e := &APIError{Method: method, URL: url, StatusCode: status}
	if len(body) > 0 {
		var data any
		if err := json.Unmarshal(body, &data); err == nil {
			e.Data = data
		} else {
			e.Data = string(body)
		}
	}
	return e
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) ResponseStatus() int {
	return e.StatusCode
}

func (e *APIError) ResponseData() any {
	return e.Data
}
