package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/query"
	"github.com/usestring/raceresult-go/pkg/rrtype"
)

// Error codes for MCP tool responses.
const (
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeAuthRequired   = "AUTH_REQUIRED"
	ErrCodeSessionExpired = "SESSION_EXPIRED"
	ErrCodeQuery          = "QUERY_ERROR"
	ErrCodeDecode         = "DECODE_ERROR"
	ErrCodeTimeout        = "TIMEOUT"
	ErrCodeRaceResult     = "RR_ERROR"
)

// CodedError is an error with an associated error code.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WrapRRError converts an error from the client, the query engine or the
// codec to a coded error.
func WrapRRError(err error) error {
	if err == nil {
		return nil
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded
	}

	var (
		apiErr   *client.APIError
		authErr  *client.AuthenticationError
		buildErr *client.BuildError
		transErr *client.TransportError
		queryErr *query.QueryError
		decErr   *rrtype.DecodeError
		encErr   *rrtype.EncodeError
	)
	switch {
	case errors.Is(err, client.ErrSessionExpired):
		coded = &CodedError{Code: ErrCodeSessionExpired, Message: "session expired", Cause: err}
	case errors.Is(err, client.ErrNotLoggedIn), errors.Is(err, client.ErrTOTPRequired), errors.As(err, &authErr):
		coded = &CodedError{Code: ErrCodeAuthRequired, Message: "not authenticated", Cause: err}
	case errors.As(err, &queryErr):
		coded = &CodedError{Code: ErrCodeQuery, Message: queryErr.Reason, Cause: err}
	case errors.As(err, &decErr):
		coded = &CodedError{Code: ErrCodeDecode, Message: decErr.Reason, Cause: err}
	case errors.As(err, &buildErr), errors.As(err, &encErr):
		coded = &CodedError{Code: ErrCodeInvalidInput, Message: "invalid request", Cause: err}
	case client.IsNotFound(err):
		errors.As(err, &apiErr)
		coded = &CodedError{Code: ErrCodeNotFound, Message: apiErr.Message(), Cause: err}
	case errors.As(err, &apiErr):
		coded = &CodedError{Code: ErrCodeRaceResult, Message: apiErr.Message(), Cause: err}
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &transErr) && transErr.Timeout():
		coded = &CodedError{Code: ErrCodeTimeout, Message: "request timed out", Cause: err}
	default:
		coded = &CodedError{Code: ErrCodeRaceResult, Message: err.Error(), Cause: err}
	}

	slog.Warn("raceresult error",
		slog.String("code", coded.Code),
		slog.String("message", coded.Message),
	)

	return coded
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) error {
	return &CodedError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return &CodedError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}
