package eventstream

import "github.com/prometheus/client_golang/prometheus"

var (
	statusTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rgbctl",
			Subsystem: "eventstream",
			Name:      "status_transitions_total",
			Help:      "Status transitions reported to observers",
		},
		[]string{"status"},
	)

	rebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rgbctl",
			Subsystem: "eventstream",
			Name:      "rebuilds_total",
			Help:      "Transports replaced, by reason",
		},
		[]string{"reason"},
	)

	retriesScheduledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rgbctl",
			Subsystem: "eventstream",
			Name:      "retries_scheduled_total",
			Help:      "Reconnect attempts scheduled after a failure",
		},
	)

	retryDelaySeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rgbctl",
			Subsystem: "eventstream",
			Name:      "retry_delay_seconds",
			Help:      "Delay of the most recently scheduled reconnect",
		},
	)

	framesDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rgbctl",
			Subsystem: "eventstream",
			Name:      "frames_dispatched_total",
			Help:      "Frames delivered to handlers, by event name",
		},
		[]string{"event"},
	)

	decodeFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rgbctl",
			Subsystem: "eventstream",
			Name:      "decode_fallbacks_total",
			Help:      "Payloads that were not JSON objects and were wrapped as {msg}",
		},
	)

	handlerPanicsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rgbctl",
			Subsystem: "eventstream",
			Name:      "handler_panics_total",
			Help:      "Recovered panics in event handlers and status observers",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		statusTransitionsTotal,
		rebuildsTotal,
		retriesScheduledTotal,
		retryDelaySeconds,
		framesDispatchedTotal,
		decodeFallbacksTotal,
		handlerPanicsTotal,
	)
}
