package yelp

import "fmt"

// APIError is a structured error body returned by the search API.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s (status %d): %s", e.Code, e.StatusCode, e.Description)
}

// TransportError covers network failures and non-success responses that
// carry no structured error.
type TransportError struct {
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("transport error (status %d): %v", e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("transport error: %v", e.Err)
	default:
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MissingFieldError means a response lacked a field paging depends on.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("response missing %q", e.Field)
}
