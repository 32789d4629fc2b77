// Package executor runs typed data operations with cache awareness.
//
// Each call configures three independent axes: whether it is
// authenticated, whether its result may be memoized for a bounded
// period, and an optional set of invalidation tags. Authenticated
// results never enter the memo cache. Auth failures degrade to an
// unauthenticated retry only when the caller marks the operation safe
// to degrade; otherwise they surface as a distinguishable error and the
// session layer tears the session down.
package executor
