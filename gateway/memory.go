package gateway

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store implementation.
type MemoryStore struct {
	name    string
	version string

	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	entry     *Entry
	expiresAt time.Time // zero means no freshness bound
}

// NewMemoryStore creates a named, versioned in-memory store.
func NewMemoryStore(prefix, version string) *MemoryStore {
	return &MemoryStore{
		name:    StoreName(prefix, version),
		version: version,
		entries: make(map[string]*memoryEntry),
	}
}

// Name returns the store's full name.
func (s *MemoryStore) Name() string { return s.name }

// Version returns the store's version.
func (s *MemoryStore) Version() string { return s.version }

// Get retrieves an entry. Expired entries are removed lazily and
// reported as misses.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, bool) {
	s.mu.RLock()
	me, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if !me.expiresAt.IsZero() && time.Now().After(me.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false
	}
	return me.entry, true
}

// Set stores an entry. A zero entry TTL means no freshness bound.
func (s *MemoryStore) Set(_ context.Context, key string, entry *Entry) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	me := &memoryEntry{entry: entry}
	if entry != nil && entry.TTL > 0 {
		me.expiresAt = time.Now().Add(entry.TTL)
	}
	s.mu.Lock()
	s.entries[key] = me
	s.mu.Unlock()
	return nil
}

// Delete removes an entry. Idempotent.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// DeleteScope removes every entry whose scope label matches.
func (s *MemoryStore) DeleteScope(_ context.Context, scope string) error {
	s.mu.Lock()
	for key, me := range s.entries {
		if me.entry != nil && me.entry.Scope == scope {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
	return nil
}

// Clear removes every entry. Idempotent.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]*memoryEntry)
	s.mu.Unlock()
	return nil
}

// Len returns the number of entries, including any not yet lazily expired.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
