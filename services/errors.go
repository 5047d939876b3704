package services

import (
	"errors"
	"fmt"
)

// Errors below are the full failure taxonomy for a chat turn. Adapters
// convert every vendor or protocol failure into one of these before it
// leaves the services package; raw vendor errors never cross the bridge.

// ErrEmptyMessage is returned for a blank message, before any network call.
var ErrEmptyMessage = errors.New("message is empty")

// ErrMissingAPIKey is returned when the selected backend has no API key configured.
var ErrMissingAPIKey = errors.New("API key is not configured")

// ErrNoAssistantResponse is returned when a completed run left no
// assistant-authored message in the thread.
var ErrNoAssistantResponse = errors.New("no assistant response in thread")

// TransportError wraps a network-level failure talking to a vendor.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("vendor request failed: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// VendorError is a non-success HTTP status from a vendor. Body carries the
// raw response for the server log; it is never shown to end users.
type VendorError struct {
	StatusCode int
	Body       string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("vendor returned status %d: %s", e.StatusCode, e.Body)
}

// MalformedResponseError is a 200 response whose shape did not match the
// vendor contract.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed vendor response: %s", e.Reason)
}

// RunFailedError is an assistant run that ended in a terminal state other
// than completed.
type RunFailedError struct {
	Status RunStatus
}

func (e *RunFailedError) Error() string { return fmt.Sprintf("run ended with status %q", e.Status) }

// RunTimeoutError is an assistant run that never reached a terminal state
// within the polling budget.
type RunTimeoutError struct {
	Attempts int
}

func (e *RunTimeoutError) Error() string {
	return fmt.Sprintf("run not finished after %d polls", e.Attempts)
}
