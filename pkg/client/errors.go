package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotLoggedIn is returned when an authenticated call is attempted
	// without a valid session. The client never logs in on its own.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrSessionExpired is returned when the server rejected the session
	// token. The client is logged out and the caller may log in again.
	ErrSessionExpired = errors.New("session expired")

	// ErrTOTPRequired is returned by Login when the account needs a
	// one-time code. Retry with UserPasswordTOTP.
	ErrTOTPRequired = errors.New("one-time code required")
)

// Error codes the API puts in the "Code" member of error responses.
const (
	CodeInvalidSession = "InvalidSession"
	CodeSessionExpired = "SessionExpired"
	CodeValidation     = "Validation"
	CodeNotFound       = "NotFound"
	CodeTOTPRequired   = "TOTPRequired"
)

// APIError represents a non-200 response from the RACE RESULT API.
// Callers should prefer the predicate functions (IsNotFound, IsValidation,
// IsInvalidSession) over asserting on this type directly.
type APIError struct {
	command    string
	statusCode int
	code       string
	message    string
}

func newAPIError(command string, statusCode int, code, message string) *APIError {
	return &APIError{command: command, statusCode: statusCode, code: code, message: message}
}

func (e *APIError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("raceresult API error %d [%s] on %s: %s", e.statusCode, e.code, e.command, e.message)
	}
	return fmt.Sprintf("raceresult API error %d on %s: %s", e.statusCode, e.command, e.message)
}

// StatusCode returns the HTTP status code from the response.
func (e *APIError) StatusCode() int { return e.statusCode }

// Code returns the machine-readable error code, if the server sent one.
func (e *APIError) Code() string { return e.code }

// Message returns the server's error text.
func (e *APIError) Message() string { return e.message }

// Command returns the API command that failed.
func (e *APIError) Command() string { return e.command }

func (e *APIError) invalidSession() bool {
	switch e.code {
	case CodeInvalidSession, CodeSessionExpired:
		return true
	case "":
		return e.statusCode == http.StatusUnauthorized
	}
	return false
}

func (e *APIError) validation() bool {
	if e.code != "" {
		return e.code == CodeValidation
	}
	return e.statusCode == http.StatusBadRequest || e.statusCode == http.StatusUnprocessableEntity
}

func (e *APIError) notFound() bool {
	if e.code != "" {
		return e.code == CodeNotFound
	}
	return e.statusCode == http.StatusNotFound
}

func (e *APIError) totpRequired() bool {
	if e.code == CodeTOTPRequired {
		return true
	}
	msg := strings.ToLower(e.message)
	return strings.Contains(msg, "totp") || strings.Contains(msg, "two-factor") || strings.Contains(msg, "second factor")
}

// IsNotFound reports whether err is an API error for a missing resource.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.notFound()
}

// IsValidation reports whether err is an API error rejecting the request
// parameters, such as a malformed filter.
func IsValidation(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.validation()
}

// IsInvalidSession reports whether err is an API error rejecting the
// session token.
func IsInvalidSession(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.invalidSession()
}

// HasStatusCode reports whether err is an API error whose HTTP status code matches.
func HasStatusCode(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.statusCode == code
}

// AuthenticationError reports credentials the server rejected.
type AuthenticationError struct {
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode == 0 {
		return "authentication failed: " + e.Message
	}
	return fmt.Sprintf("authentication failed (%d): %s", e.StatusCode, e.Message)
}

// TransportError wraps a failure to get any response: connection errors,
// timeouts and cancellation. Calls are never retried.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a timeout.
func (e *TransportError) Timeout() bool {
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// BuildError reports a request that could not be constructed. Nothing was
// sent.
type BuildError struct {
	Command string
	Param   string
	Reason  string
	Err     error
}

func (e *BuildError) Error() string {
	var b strings.Builder
	b.WriteString("building request")
	if e.Command != "" {
		b.WriteString(" ")
		b.WriteString(e.Command)
	}
	if e.Param != "" {
		fmt.Fprintf(&b, " (%s)", e.Param)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *BuildError) Unwrap() error { return e.Err }
