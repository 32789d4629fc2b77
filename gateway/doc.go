// Package gateway intercepts requests at the cache boundary.
//
// It owns versioned, named cache stores and satisfies each request with
// the strategy chosen by the route classifier: cache-first, network-first,
// stale-while-revalidate, or network-only. Every network attempt is
// bounded by a per-request timeout, non-cacheable responses are never
// stored, and a message-based control surface accepts external
// invalidation commands.
package gateway
