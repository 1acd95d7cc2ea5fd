// Package observe provides application-wide observability for griot:
// OpenTelemetry metrics, tracing, and HTTP middleware tying them together.
//
// Metrics go through the OpenTelemetry Metrics API with a Prometheus exporter
// bridge (see [InitProvider]) so they remain scrapeable at /metrics. A
// package-level default [Metrics] instance is available via [DefaultMetrics];
// tests should use [NewMetrics] with their own [metric.MeterProvider].
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for all griot metrics.
const meterName = "github.com/griotlabs/griot"

// Metrics holds the OTel instruments for the application. All fields are safe
// for concurrent use.
type Metrics struct {
	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks tutor model inference latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// TurnDuration tracks end-to-end turn processing latency, from audio
	// upload to stored result.
	TurnDuration metric.Float64Histogram

	// PatienceAtFinish records the patience value at the moment a scenario
	// ended, labelled with attribute.String("outcome", "won"|"lost").
	PatienceAtFinish metric.Float64Histogram

	// ProviderRequests counts provider API calls. Attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider failures by provider and kind.
	ProviderErrors metric.Int64Counter

	// TurnsProcessed counts completed turns by language and status.
	TurnsProcessed metric.Int64Counter

	// ScenariosFinished counts finished scenarios by language and stars.
	ScenariosFinished metric.Int64Counter

	// ActiveConversations tracks conversations with at least one turn in
	// flight.
	ActiveConversations metric.Int64UpDownCounter

	// ActiveLiveSessions tracks connected live gateway clients.
	ActiveLiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time by method and
	// route.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries in seconds, sized for
// provider round trips.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// patienceBuckets covers the 0–100 patience scale.
var patienceBuckets = []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// NewMetrics creates a fully initialised [Metrics] using the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.STTDuration, err = m.Float64Histogram("griot.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("griot.llm.duration",
		metric.WithDescription("Latency of tutor model inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("griot.tts.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = m.Float64Histogram("griot.turn.duration",
		metric.WithDescription("End-to-end turn processing latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PatienceAtFinish, err = m.Float64Histogram("griot.patience.at_finish",
		metric.WithDescription("Patience value at the moment a scenario ended."),
		metric.WithExplicitBucketBoundaries(patienceBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ProviderRequests, err = m.Int64Counter("griot.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("griot.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.TurnsProcessed, err = m.Int64Counter("griot.turns.processed",
		metric.WithDescription("Total processed turns by language and status."),
	); err != nil {
		return nil, err
	}
	if met.ScenariosFinished, err = m.Int64Counter("griot.scenarios.finished",
		metric.WithDescription("Total finished scenarios by language and stars."),
	); err != nil {
		return nil, err
	}

	if met.ActiveConversations, err = m.Int64UpDownCounter("griot.active_conversations",
		metric.WithDescription("Conversations with a turn currently in flight."),
	); err != nil {
		return nil, err
	}
	if met.ActiveLiveSessions, err = m.Int64UpDownCounter("griot.active_live_sessions",
		metric.WithDescription("Connected live gateway clients."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("griot.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], created on first call
// from [otel.GetMeterProvider]. Panics if instrument creation fails, which
// does not happen with the global provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordProviderRequest records one provider call with the standard attribute
// set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records one provider failure.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordTurn records one processed turn.
func (m *Metrics) RecordTurn(ctx context.Context, language, status string) {
	m.TurnsProcessed.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("language", language),
			attribute.String("status", status),
		),
	)
}

// RecordScenarioFinished records one finished scenario run.
func (m *Metrics) RecordScenarioFinished(ctx context.Context, language string, stars int) {
	m.ScenariosFinished.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("language", language),
			attribute.Int("stars", stars),
		),
	)
}
