package executor

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMemoSize bounds the memoized-result cache.
const DefaultMemoSize = 512

// DefaultMemoMaxTTL caps per-call TTLs.
const DefaultMemoMaxTTL = 15 * time.Minute

type memoEntry struct {
	data      []byte
	expiresAt time.Time
	tags      []string
}

// Memo is the process-level memoized-result cache. Entries carry their
// own TTL (clamped by the cache-wide maximum) and optional invalidation
// tags. It implements session.QueryCache so the invalidator can purge it.
type Memo struct {
	lru    *expirable.LRU[string, memoEntry]
	maxTTL time.Duration

	mu   sync.Mutex
	tags map[string]map[string]struct{} // tag -> keys
}

// NewMemo creates a memo cache. Zero size and maxTTL fall back to the
// defaults.
func NewMemo(size int, maxTTL time.Duration) *Memo {
	if size <= 0 {
		size = DefaultMemoSize
	}
	if maxTTL <= 0 {
		maxTTL = DefaultMemoMaxTTL
	}
	m := &Memo{
		maxTTL: maxTTL,
		tags:   make(map[string]map[string]struct{}),
	}
	m.lru = expirable.NewLRU[string, memoEntry](size, nil, maxTTL)
	return m
}

// Get returns memoized data. Entries past their own TTL report a miss.
func (m *Memo) Get(key string) ([]byte, bool) {
	entry, ok := m.lru.Get(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		m.lru.Remove(key)
		return nil, false
	}
	return entry.data, true
}

// Set memoizes data under the key for ttl, clamped to the cache-wide
// maximum, and indexes the entry under its tags.
func (m *Memo) Set(key string, data []byte, ttl time.Duration, tags []string) {
	if ttl <= 0 {
		return
	}
	if ttl > m.maxTTL {
		ttl = m.maxTTL
	}
	entry := memoEntry{
		data:      append([]byte(nil), data...),
		expiresAt: time.Now().Add(ttl),
		tags:      tags,
	}
	m.lru.Add(key, entry)

	if len(tags) == 0 {
		return
	}
	m.mu.Lock()
	for _, tag := range tags {
		keys, ok := m.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			m.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	m.mu.Unlock()
}

// InvalidateTag drops every entry indexed under the tag.
func (m *Memo) InvalidateTag(tag string) {
	m.mu.Lock()
	keys := m.tags[tag]
	delete(m.tags, tag)
	m.mu.Unlock()

	for key := range keys {
		m.lru.Remove(key)
	}
}

// Purge drops everything. It satisfies session.QueryCache.
func (m *Memo) Purge() {
	m.lru.Purge()
	m.mu.Lock()
	m.tags = make(map[string]map[string]struct{})
	m.mu.Unlock()
}

// Len returns the number of live entries.
func (m *Memo) Len() int {
	return m.lru.Len()
}
