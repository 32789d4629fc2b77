package gateway

import (
	"context"
	"errors"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a store key.
const MaxKeyLength = 2048

// Sentinel errors for store operations.
var (
	ErrNilStore    = errors.New("gateway: store is nil")
	ErrInvalidKey  = errors.New("gateway: key is invalid")
	ErrKeyTooLong  = errors.New("gateway: key exceeds max length")
	ErrStoreClosed = errors.New("gateway: store is closed")
)

// Store is a named, versioned container of response snapshots.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
//   Concurrent writers to the same key may race; last write wins.
// - Errors: Get never errors; it returns (nil, false) on miss.
// - Idempotence: Delete and Clear are no-ops on absent keys/entries.
type Store interface {
	// Name returns the store's full name, "{prefix}-{version}".
	Name() string

	// Version returns the store version this container belongs to.
	Version() string

	// Get retrieves a stored entry. Returns (nil, false) on miss.
	Get(ctx context.Context, key string) (*Entry, bool)

	// Set stores an entry under the key.
	Set(ctx context.Context, key string, entry *Entry) error

	// Delete removes an entry. Idempotent.
	Delete(ctx context.Context, key string) error

	// DeleteScope removes every entry whose scope matches.
	DeleteScope(ctx context.Context, scope string) error

	// Clear removes every entry. Idempotent.
	Clear(ctx context.Context) error

	// Len returns the number of live entries.
	Len() int
}

// StoreName builds the canonical "{prefix}-{version}" store name so
// version bumps are detectable by simple prefix comparison.
func StoreName(prefix, version string) string {
	return prefix + "-" + version
}

// ValidateKey checks whether a key may identify a store entry.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
