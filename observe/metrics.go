package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recorder records cache and session telemetry.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly; recording is fire-and-forget.
// - Errors: implementations must not panic.
type Recorder interface {
	// CacheHit records a stored entry served for the given scope.
	CacheHit(ctx context.Context, scope string)

	// CacheMiss records a lookup that found no stored entry.
	CacheMiss(ctx context.Context, scope string)

	// CacheStore records a response snapshot entering a store.
	CacheStore(ctx context.Context, scope string)

	// Invalidation records a session invalidation with its reason.
	Invalidation(ctx context.Context, reason string)

	// OperationDuration records a completed operation with its outcome.
	OperationDuration(ctx context.Context, component string, d time.Duration, err error)
}

// recorderImpl is the concrete implementation of Recorder.
type recorderImpl struct {
	hits          metric.Int64Counter
	misses        metric.Int64Counter
	stores        metric.Int64Counter
	invalidations metric.Int64Counter
	durationHist  metric.Float64Histogram
}

// newRecorder creates a Recorder backed by the given meter.
func newRecorder(meter metric.Meter) (*recorderImpl, error) {
	hits, err := meter.Int64Counter(
		"cache.hits",
		metric.WithDescription("Requests served from a cache store"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"cache.misses",
		metric.WithDescription("Cache lookups that found no stored entry"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	stores, err := meter.Int64Counter(
		"cache.stores",
		metric.WithDescription("Response snapshots written to a cache store"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	invalidations, err := meter.Int64Counter(
		"session.invalidations",
		metric.WithDescription("Session invalidations by reason"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"request.duration_ms",
		metric.WithDescription("Request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &recorderImpl{
		hits:          hits,
		misses:        misses,
		stores:        stores,
		invalidations: invalidations,
		durationHist:  durationHist,
	}, nil
}

func scopeAttr(scope string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("cache.scope", scope))
}

func (r *recorderImpl) CacheHit(ctx context.Context, scope string) {
	r.hits.Add(ctx, 1, scopeAttr(scope))
}

func (r *recorderImpl) CacheMiss(ctx context.Context, scope string) {
	r.misses.Add(ctx, 1, scopeAttr(scope))
}

func (r *recorderImpl) CacheStore(ctx context.Context, scope string) {
	r.stores.Add(ctx, 1, scopeAttr(scope))
}

func (r *recorderImpl) Invalidation(ctx context.Context, reason string) {
	r.invalidations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("session.reason", reason),
	))
}

func (r *recorderImpl) OperationDuration(ctx context.Context, component string, d time.Duration, err error) {
	r.durationHist.Record(ctx, float64(d.Milliseconds()), metric.WithAttributes(
		attribute.String("component", component),
		attribute.Bool("error", err != nil),
	))
}

// noopRecorder is a recorder that does nothing.
type noopRecorder struct{}

func (noopRecorder) CacheHit(context.Context, string)                                {}
func (noopRecorder) CacheMiss(context.Context, string)                               {}
func (noopRecorder) CacheStore(context.Context, string)                              {}
func (noopRecorder) Invalidation(context.Context, string)                            {}
func (noopRecorder) OperationDuration(context.Context, string, time.Duration, error) {}

// NopRecorder returns a recorder that discards everything.
func NopRecorder() Recorder { return noopRecorder{} }
