package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes the bot's Prometheus metrics. A nil *Recorder is valid
// and records nothing, so components can be built without metrics in tests.
type Recorder struct {
	gatherer prometheus.Gatherer

	jobDuration     *prometheus.HistogramVec
	jobSkipped      *prometheus.CounterVec
	gateRejections  *prometheus.CounterVec
	alertsCommitted prometheus.Counter
	channelFailures *prometheus.CounterVec
	eventsNotified  *prometheus.CounterVec
	snapshotErrors  prometheus.Counter
}

// NewRecorder registers all collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		gatherer: reg,
		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricJobDuration,
				Help:    "Duration of scheduled job runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"job"},
		),
		jobSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricJobSkipped,
				Help: "Triggers skipped because the previous run of the same job was still active",
			},
			[]string{"job"},
		),
		gateRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricGateRejections,
				Help: "Candidates dropped by the alert gate, by stage",
			},
			[]string{"stage"},
		),
		alertsCommitted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: MetricAlertsCommitted,
				Help: "Urgent alerts committed by the alert gate",
			},
		),
		channelFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricChannelFailures,
				Help: "Notification channel operation failures",
			},
			[]string{"op"},
		),
		eventsNotified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricEventsNotified,
				Help: "Macro event notifications emitted",
			},
			[]string{"kind"},
		),
		snapshotErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: MetricSnapshotErrors,
				Help: "Market snapshot fetches that failed and were skipped",
			},
		),
	}
}

// ObserveJob records how long a job run took.
func (r *Recorder) ObserveJob(job string, d time.Duration) {
	if r == nil {
		return
	}
	r.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

// JobSkipped counts a trigger dropped by the single-flight guard.
func (r *Recorder) JobSkipped(job string) {
	if r == nil {
		return
	}
	r.jobSkipped.WithLabelValues(job).Inc()
}

// GateRejected counts a candidate dropped at the given gate stage.
func (r *Recorder) GateRejected(stage string) {
	if r == nil {
		return
	}
	r.gateRejections.WithLabelValues(stage).Inc()
}

// AlertCommitted counts a committed urgent alert.
func (r *Recorder) AlertCommitted() {
	if r == nil {
		return
	}
	r.alertsCommitted.Inc()
}

// ChannelFailed counts a failed send/edit/pin/unpin.
func (r *Recorder) ChannelFailed(op string) {
	if r == nil {
		return
	}
	r.channelFailures.WithLabelValues(op).Inc()
}

// EventNotified counts a pre- or post-event notification.
func (r *Recorder) EventNotified(kind string) {
	if r == nil {
		return
	}
	r.eventsNotified.WithLabelValues(kind).Inc()
}

// SnapshotFailed counts a skipped snapshot fetch.
func (r *Recorder) SnapshotFailed() {
	if r == nil {
		return
	}
	r.snapshotErrors.Inc()
}

// Handler returns HTTP handler for /metrics endpoint
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// Predefined metric names
const (
	MetricJobDuration     = "alert_bot_job_duration_seconds"
	MetricJobSkipped      = "alert_bot_job_skipped_total"
	MetricGateRejections  = "alert_bot_gate_rejections_total"
	MetricAlertsCommitted = "alert_bot_alerts_committed_total"
	MetricChannelFailures = "alert_bot_channel_failures_total"
	MetricEventsNotified  = "alert_bot_events_notified_total"
	MetricSnapshotErrors  = "alert_bot_snapshot_errors_total"
)
