// Package metrics exposes Prometheus counters for the LEDP service,
// fed from the internal event bus so the dispatch path stays free of
// metrics plumbing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/ledpd/internal/events"
)

// Recorder owns the registry and the bus subscriptions.
type Recorder struct {
	registry *prometheus.Registry

	commandsApplied  *prometheus.CounterVec
	packetsDropped   *prometheus.CounterVec
	channelsTouched  prometheus.Counter
	deviceErrors     *prometheus.CounterVec
	unsubscribeFuncs []func()
}

// NewRecorder creates a recorder with its own registry and subscribes
// it to the bus.
func NewRecorder(bus *events.Bus) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		commandsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledpd_commands_applied_total",
			Help: "LEDP commands accepted and applied, by backend.",
		}, []string{"backend"}),
		packetsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledpd_packets_dropped_total",
			Help: "Datagrams rejected by validation, by reason.",
		}, []string{"reason"}),
		channelsTouched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledpd_channels_touched_total",
			Help: "Channels addressed across all applied commands.",
		}),
		deviceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledpd_device_errors_total",
			Help: "Non-fatal device command failures, by backend.",
		}, []string{"backend"}),
	}

	r.registry.MustRegister(r.commandsApplied, r.packetsDropped, r.channelsTouched, r.deviceErrors)

	r.unsubscribeFuncs = append(r.unsubscribeFuncs,
		bus.Subscribe(func(e events.CommandAppliedEvent) {
			r.commandsApplied.WithLabelValues(e.Backend).Inc()
			r.channelsTouched.Add(float64(e.Channels))
		}),
		bus.Subscribe(func(e events.PacketDroppedEvent) {
			r.packetsDropped.WithLabelValues(e.Reason).Inc()
		}),
		bus.Subscribe(func(e events.DeviceErrorEvent) {
			r.deviceErrors.WithLabelValues(e.Backend).Inc()
		}),
	)

	return r
}

// Handler returns the /metrics HTTP handler for this recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Close drops the bus subscriptions.
func (r *Recorder) Close() {
	for _, unsub := range r.unsubscribeFuncs {
		unsub()
	}
}
