// Package observe provides application-wide observability primitives for
// hearth: OpenTelemetry metrics, tracing helpers, and structured logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all hearth metrics.
const meterName = "github.com/hearthd/hearth"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// CaptureDuration tracks utterance capture length in seconds.
	CaptureDuration metric.Float64Histogram

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks fallback-tier completion latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// TurnDuration tracks end-to-end wake-to-response latency.
	TurnDuration metric.Float64Histogram

	// --- Counters ---

	// WakeEvents counts wake-gate triggers.
	WakeEvents metric.Int64Counter

	// RoutedTurns counts routed transcripts. Use with attribute:
	//   attribute.String("tier", "pattern"|"intent"|"fallback"|"followup")
	RoutedTurns metric.Int64Counter

	// ActionsExecuted counts executor runs. Use with attributes:
	//   attribute.String("action", ...), attribute.String("status", ...)
	ActionsExecuted metric.Int64Counter

	// FollowupQuestions counts clarifying questions asked by slot.
	FollowupQuestions metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts collaborator errors. Use with attribute:
	//   attribute.String("provider", "stt"|"tts"|"llm"|"device"|"mcp")
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveFollowups tracks open follow-up sessions (0 or 1 in the
	// single-session loop, useful for alerting on stuck sessions).
	ActiveFollowups metric.Int64UpDownCounter

	// ActiveTimers tracks pending background countdowns.
	ActiveTimers metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.CaptureDuration, err = m.Float64Histogram("hearth.capture.duration",
		metric.WithDescription("Length of captured utterances."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.STTDuration, err = m.Float64Histogram("hearth.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("hearth.llm.duration",
		metric.WithDescription("Latency of fallback-tier completions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("hearth.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = m.Float64Histogram("hearth.turn.duration",
		metric.WithDescription("End-to-end wake-to-response latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.WakeEvents, err = m.Int64Counter("hearth.wake.events",
		metric.WithDescription("Total wake-gate triggers."),
	); err != nil {
		return nil, err
	}
	if met.RoutedTurns, err = m.Int64Counter("hearth.router.turns",
		metric.WithDescription("Total routed transcripts by responding tier."),
	); err != nil {
		return nil, err
	}
	if met.ActionsExecuted, err = m.Int64Counter("hearth.actions.executed",
		metric.WithDescription("Total executor runs by action and status."),
	); err != nil {
		return nil, err
	}
	if met.FollowupQuestions, err = m.Int64Counter("hearth.followup.questions",
		metric.WithDescription("Total clarifying questions asked by slot."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("hearth.provider.errors",
		metric.WithDescription("Total collaborator errors by provider."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveFollowups, err = m.Int64UpDownCounter("hearth.active_followups",
		metric.WithDescription("Number of open follow-up sessions."),
	); err != nil {
		return nil, err
	}
	if met.ActiveTimers, err = m.Int64UpDownCounter("hearth.active_timers",
		metric.WithDescription("Number of pending background countdowns."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordRoutedTurn records which tier answered a transcript.
func (m *Metrics) RecordRoutedTurn(ctx context.Context, tier string) {
	m.RoutedTurns.Add(ctx, 1,
		metric.WithAttributes(attribute.String("tier", tier)),
	)
}

// RecordAction records one executor run.
func (m *Metrics) RecordAction(ctx context.Context, action, status string) {
	m.ActionsExecuted.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("status", status),
		),
	)
}

// RecordFollowupQuestion records one clarifying question.
func (m *Metrics) RecordFollowupQuestion(ctx context.Context, slot string) {
	m.FollowupQuestions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("slot", slot)),
	)
}

// RecordProviderError records one collaborator error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}
