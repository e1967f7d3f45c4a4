package ebs

import (
	"errors"
	"fmt"
)

var (
	ErrNotLoggedIn       = errors.New("not logged in")
	ErrMultipleObjects   = errors.New("accounts with more than one object are not supported")
	ErrNoObjects         = errors.New("account has no monitored objects")
	ErrPartitionNotFound = errors.New("partition not found")
	ErrInvalidState      = errors.New("invalid partition state")
)

// TransportError means the HTTP round trip itself failed: either no response
// at all, or a status other than 200.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request failed: %v", e.Err)
	}
	return fmt.Sprintf("incorrect response code, expected 200, got %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a non-zero status_code reported by the server.
type APIError struct {
	Code    int64
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("incorrect status code, expected 0, got %d with message: %s", e.Code, e.Message)
}

type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("could not authenticate: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }
