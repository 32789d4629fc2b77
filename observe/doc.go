// Package observe provides observability primitives for the cache tiers.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. Consumers wire the observer into the gateway,
// executor, and session packages.
package observe
