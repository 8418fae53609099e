// Package metrics exposes workflow counters for Prometheus.
//
// Metrics live on a private registry so tests and multiple engines in one
// process never collide on the default registerer.
package metrics

import (
	"net/http"
	"time"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "postflow"

// OutcomeOK labels a command that returned no error.
const OutcomeOK = "ok"

// Recorder counts domain events and engine commands.
type Recorder struct {
	registry *prometheus.Registry

	events   *prometheus.CounterVec
	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
	released *prometheus.CounterVec
}

// NewRecorder creates a Recorder with its own registry. Go runtime and
// process collectors are included when withRuntime is set.
func NewRecorder(withRuntime bool) *Recorder {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	factory := promauto.With(reg)

	r := &Recorder{registry: reg}
	r.events = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Domain events delivered after commit, by type",
		},
		[]string{"type"},
	)
	r.commands = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Workflow commands executed, by command and outcome",
		},
		[]string{"command", "outcome"},
	)
	r.duration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time spent executing workflow commands",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"command"},
	)
	r.released = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_releases_total",
			Help:      "Scheduled posts processed by the release worker, by outcome",
		},
		[]string{"outcome"},
	)

	for _, t := range event.Types() {
		r.events.WithLabelValues(t)
	}
	return r
}

// HandleEvent is an event.Handler counting every delivered event.
func (r *Recorder) HandleEvent(e event.Event) error {
	r.events.WithLabelValues(e.EventType()).Inc()
	return nil
}

// Register subscribes the recorder to every event on bus.
func (r *Recorder) Register(bus *event.Bus) string {
	return bus.SubscribeAll(r.HandleEvent)
}

// ObserveCommand records one engine command. The outcome label is the
// error kind, or "ok".
func (r *Recorder) ObserveCommand(command string, err error, elapsed time.Duration) {
	outcome := OutcomeOK
	if err != nil {
		outcome = string(errors.KindOf(err))
	}
	r.commands.WithLabelValues(command, outcome).Inc()
	r.duration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// ObserveRelease records the result of one release pass.
func (r *Recorder) ObserveRelease(released, failed int) {
	r.released.WithLabelValues("released").Add(float64(released))
	r.released.WithLabelValues("failed").Add(float64(failed))
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
