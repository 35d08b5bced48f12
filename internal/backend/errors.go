package backend

import (
	"errors"
	"fmt"
)

// RequestError describes a failed backend call: either a transport
// failure (StatusCode 0) or a non-2xx response whose body text is kept
// in Message.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf(
		"unexpected status %d on %s %s: %s",
		e.StatusCode, e.Method, e.Path, e.Message,
	)
}

func (e *RequestError) Unwrap() error { return e.Err }

// AuthError indicates the backend rejected the access token (HTTP 401).
// It is always wrapped by a RequestError.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "auth error: " + e.Message
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// StatusCode returns the HTTP status carried by a RequestError in err's
// chain, or 0 when there is none.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}

// defaultMessage is used when a failed response has an empty body.
func defaultMessage(status int) string {
	return fmt.Sprintf("request failed with status %d", status)
}
