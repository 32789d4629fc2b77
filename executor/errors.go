package executor

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Typed errors below unwrap to these so callers
// can classify with errors.Is without reaching into concrete types.
var (
	// ErrNetwork marks a transport or HTTP-level failure. Retryable.
	ErrNetwork = errors.New("executor: network failure")

	// ErrTimeout marks a request that exceeded its deadline. A timeout
	// is a NetworkFailure subtype: errors.Is also matches ErrNetwork.
	ErrTimeout = errors.New("executor: request timed out")

	// ErrAuth marks an invalid or expired credential. Never retried
	// locally; triggers global invalidation.
	ErrAuth = errors.New("executor: authentication failed")

	// ErrMalformed marks a non-JSON or unexpected-content response,
	// distinct from an empty result or a structured error list.
	ErrMalformed = errors.New("executor: malformed response")

	// ErrApplication marks a well-formed structured error unrelated to
	// auth, propagated to the caller untouched.
	ErrApplication = errors.New("executor: application error")

	// ErrNilTransport indicates the executor was built without a transport.
	ErrNilTransport = errors.New("executor: transport is nil")
)

// NetworkError carries the raw status and body of a failed exchange.
type NetworkError struct {
	Status int
	Body   []byte
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("executor: network failure: status %d", e.Status)
	}
	return fmt.Sprintf("executor: network failure: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return ErrNetwork }

// TimeoutError marks a deadline hit. It matches both ErrTimeout and
// ErrNetwork under errors.Is.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("executor: request timed out: %v", e.Err)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout || target == ErrNetwork
}

// AuthError marks a credential judged invalid or expired. Signature is
// the matched auth-expiry marker, when one was recognized.
type AuthError struct {
	Signature string
}

func (e *AuthError) Error() string {
	if e.Signature != "" {
		return fmt.Sprintf("executor: authentication failed: %s", e.Signature)
	}
	return "executor: authentication failed"
}

func (e *AuthError) Unwrap() error { return ErrAuth }

// MalformedError marks a response body that could not be parsed.
type MalformedError struct {
	ContentType string
	Snippet     string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("executor: malformed response (content-type %q)", e.ContentType)
}

func (e *MalformedError) Unwrap() error { return ErrMalformed }

// GraphQLError is one structured error from the server.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// ApplicationError carries the server's structured error list.
type ApplicationError struct {
	Errors []GraphQLError
}

func (e *ApplicationError) Error() string {
	if len(e.Errors) == 0 {
		return "executor: application error"
	}
	return fmt.Sprintf("executor: application error: %s", e.Errors[0].Message)
}

func (e *ApplicationError) Unwrap() error { return ErrApplication }
