// Package telemetry wires the Statistics Collector (spec.md §4.15/§2.15)
// to OpenTelemetry metrics: cache hit/miss, throttle events, HNSW search
// latency, and query fusion counts. Grounded on the teacher's
// internal/storage/dolt/store.go package-level instrument-registration
// idiom (`otel.Meter(name)` at init, instruments forward once a real
// provider is installed) and internal/hooks/hooks_otel.go's attribute
// usage, generalized from one SQL backend's retry/lock metrics to this
// store's four index-level signals.
package telemetry

import (
	"context"
	"io"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/brainyhq/brainy"

// Metrics holds every instrument this store reports against. Instruments
// are registered against the global delegating provider at construction
// time, the same way the teacher's doltMetrics forwards to whatever
// provider Init installs — callers that never call Init still get a
// working no-op meter.
type Metrics struct {
	CacheHits       metric.Int64Counter
	CacheMisses     metric.Int64Counter
	ThrottleEvents  metric.Int64Counter
	HNSWSearchMs    metric.Float64Histogram
	QueryFusions    metric.Int64Counter
	QueryDimensions metric.Int64Counter

	// OTel instruments are write-only: an exporter-less caller (the common
	// case for an embedded store) has no way to read a counter back. These
	// mirror the same events so Snapshot can answer a `getMemoryStats`-style
	// introspection call without requiring a configured exporter.
	cacheHits       atomic.Int64
	cacheMisses     atomic.Int64
	throttleEvents  atomic.Int64
	queryFusions    atomic.Int64
	queryDimensions atomic.Int64
}

// Snapshot is a point-in-time read of the mirrored counters, for local
// introspection without standing up an OTel exporter.
type Snapshot struct {
	CacheHits       int64
	CacheMisses     int64
	ThrottleEvents  int64
	QueryFusions    int64
	QueryDimensions int64
}

// New registers this store's instruments against the global OTel meter
// provider. Safe to call before Init — instruments no-op until a real
// provider is installed.
func New() *Metrics {
	m := otel.Meter(meterName)

	metrics := &Metrics{}
	metrics.CacheHits, _ = m.Int64Counter("brainy.cache.hits",
		metric.WithDescription("Write-through cache reads served without a backend fetch"),
		metric.WithUnit("{hit}"),
	)
	metrics.CacheMisses, _ = m.Int64Counter("brainy.cache.misses",
		metric.WithDescription("Write-through cache reads that fell through to the backend"),
		metric.WithUnit("{miss}"),
	)
	metrics.ThrottleEvents, _ = m.Int64Counter("brainy.throttle.events",
		metric.WithDescription("Backend errors classified as throttling signals"),
		metric.WithUnit("{event}"),
	)
	metrics.HNSWSearchMs, _ = m.Float64Histogram("brainy.hnsw.search_ms",
		metric.WithDescription("Per-type HNSW search latency"),
		metric.WithUnit("ms"),
	)
	metrics.QueryFusions, _ = m.Int64Counter("brainy.query.fusions",
		metric.WithDescription("Unified Query Engine find() calls that fused two or more dimensions"),
		metric.WithUnit("{query}"),
	)
	metrics.QueryDimensions, _ = m.Int64Counter("brainy.query.dimensions",
		metric.WithDescription("Vector/graph/field dimensions dispatched across all find() calls"),
		metric.WithUnit("{dimension}"),
	)
	return metrics
}

// RecordCacheHit/RecordCacheMiss record a single write-through cache read.
func (m *Metrics) RecordCacheHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheHits.Add(1)
	if m.CacheHits != nil {
		m.CacheHits.Add(ctx, 1)
	}
}

func (m *Metrics) RecordCacheMiss(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheMisses.Add(1)
	if m.CacheMisses != nil {
		m.CacheMisses.Add(ctx, 1)
	}
}

// RecordThrottleEvent records one classified throttling error for reason.
func (m *Metrics) RecordThrottleEvent(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.throttleEvents.Add(1)
	if m.ThrottleEvents != nil {
		m.ThrottleEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

// RecordHNSWSearch records one per-type HNSW search's latency.
func (m *Metrics) RecordHNSWSearch(ctx context.Context, nounType string, ms float64) {
	if m == nil || m.HNSWSearchMs == nil {
		return
	}
	m.HNSWSearchMs.Record(ctx, ms, metric.WithAttributes(attribute.String("noun_type", nounType)))
}

// RecordQuery records one find() call's dimension count, and whether it
// actually fused more than one dimension.
func (m *Metrics) RecordQuery(ctx context.Context, dimensions int) {
	if m == nil {
		return
	}
	m.queryDimensions.Add(int64(dimensions))
	if m.QueryDimensions != nil {
		m.QueryDimensions.Add(ctx, int64(dimensions))
	}
	if dimensions > 1 {
		m.queryFusions.Add(1)
		if m.QueryFusions != nil {
			m.QueryFusions.Add(ctx, 1)
		}
	}
}

// Snapshot returns a point-in-time read of the mirrored counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		CacheHits:       m.cacheHits.Load(),
		CacheMisses:     m.cacheMisses.Load(),
		ThrottleEvents:  m.throttleEvents.Load(),
		QueryFusions:    m.queryFusions.Load(),
		QueryDimensions: m.queryDimensions.Load(),
	}
}

// InitStdout installs a periodic stdout-exporting meter provider as the
// global OTel provider, for local inspection (e.g. via `cmd/brainy stats`).
// Callers that never need live metrics output can skip calling this —
// every Metrics instrument degrades to a documented no-op without it.
func InitStdout(w io.Writer) (func(context.Context) error, error) {
	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)
	otel.SetMeterProvider(provider)
	return provider.Shutdown, nil
}
