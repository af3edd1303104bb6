// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	SessionsStarted    prometheus.Counter
	SessionsStopped    prometheus.Counter
	SessionsExpired    prometheus.Counter
	SessionsSelfHealed prometheus.Counter
	FragmentsEmitted   prometheus.Counter
	TrackChanges       prometheus.Counter
	PollErrors         prometheus.Counter
	SendErrors         prometheus.Counter
	CheapCalls         prometheus.Counter
	ExpensiveCalls     prometheus.Counter
	GeneratorFallbacks prometheus.Counter
	BudgetExhaustions  prometheus.Counter

	// Histograms (seconds)
	GenerateDuration prometheus.Observer
	TickDuration     prometheus.Observer

	// Gauges
	ActiveSessionsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "nerdout_sessions_started_total", Help: "Number of nerdout sessions started"})
		SessionsStopped = promauto.NewCounter(prometheus.CounterOpts{Name: "nerdout_sessions_stopped_total", Help: "Number of nerdout sessions stopped explicitly"})
		SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{Name: "nerdout_sessions_expired_total", Help: "Number of nerdout sessions terminated by the lifetime ceiling"})
		SessionsSelfHealed = promauto.NewCounter(prometheus.CounterOpts{Name: "nerdout_sessions_self_healed_total", Help: "Number of sessions torn down by the orphan check"})
		FragmentsEmitted = promauto.NewCounter(prometheus.CounterOpts{Name: "nerdout_fragments_emitted_total", Help: "Number of commentary fragments delivered"})
		TrackChanges = promauto.NewCounter(prometheus.CounterOpts{Name: "nerdout_track_changes_total", Help: "Number of track-change events observed"})
		PollErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "nerdout_poll_errors_total", Help: "Number of now-playing poll failures"})
		SendErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "nerdout_send_errors_total", Help: "Number of swallowed message delivery failures"})
		CheapCalls = promauto.NewCounter(prometheus.CounterOpts{Name: "generator_cheap_calls_total", Help: "Number of cheap-path generator invocations"})
		ExpensiveCalls = promauto.NewCounter(prometheus.CounterOpts{Name: "generator_expensive_calls_total", Help: "Number of expensive-path (web search) generator invocations"})
		GeneratorFallbacks = promauto.NewCounter(prometheus.CounterOpts{Name: "generator_fallbacks_total", Help: "Number of times the canned fallback narrative was used"})
		BudgetExhaustions = promauto.NewCounter(prometheus.CounterOpts{Name: "nerdout_budget_exhaustions_total", Help: "Number of downgrades to the cheap path due to the daily call cap"})
		GenerateDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "generator_duration_seconds", Help: "Fragment generation duration seconds", Buckets: prometheus.DefBuckets})
		TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "nerdout_tick_duration_seconds", Help: "Session tick duration seconds", Buckets: prometheus.DefBuckets})
		ActiveSessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "nerdout_active_sessions", Help: "Current number of live nerdout sessions"})
	})
}

// SetActiveSessions records the current registry size.
func SetActiveSessions(n int) {
	if ActiveSessionsGauge != nil {
		ActiveSessionsGauge.Set(float64(n))
	}
}

// Inc increments a counter if metrics are initialized. Collaborator packages
// call this so they stay usable in tests without Init.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
