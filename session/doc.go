// Package session owns authentication state convergence.
//
// It detects auth-expiry signatures with a single shared classifier,
// guards against re-entrant teardown, and coordinates the ordered
// invalidation of every cache tier and credential location followed by
// exactly one navigation to a recovery route. An inactivity monitor
// drives the same invalidator after a fixed idle period.
package session
