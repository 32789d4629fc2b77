package session

import "errors"

// Sentinel errors for session operations.
var (
	// ErrAlreadyInvalidating indicates an invalidation is in flight;
	// the second trigger was suppressed.
	ErrAlreadyInvalidating = errors.New("session: invalidation already in progress")

	// ErrNoNavigator indicates the invalidator has no navigation target.
	ErrNoNavigator = errors.New("session: navigator is required")

	// ErrNoCredential indicates a credential lookup found nothing.
	ErrNoCredential = errors.New("session: credential not found")

	// ErrCredentialUnavailable indicates the credential store failed
	// before a value could be read. Treated as an auth failure.
	ErrCredentialUnavailable = errors.New("session: credential store unavailable")

	// ErrTokenUndecodable indicates the access token could not be
	// decoded into claims.
	ErrTokenUndecodable = errors.New("session: token is not decodable")
)
