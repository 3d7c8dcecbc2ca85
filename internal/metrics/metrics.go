// Package metrics registers this module's own health metrics, the way
// cmd/operator/main.go in the teacher registers a Go/process collector
// plus a custom gauge on a prometheus.Registry. These describe the
// core's own behavior (tick latency, error rates, active streamers) —
// not cluster metrics, which are out of scope per spec.md §1.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the module-wide registry; cmd/kubetui wires it to an
// HTTP /metrics handler the same way the teacher's main.go does.
var Registry = prometheus.NewRegistry()

var (
	pollerTickSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kubetui",
		Subsystem: "poller",
		Name:      "tick_duration_seconds",
		Help:      "Time spent servicing one poller tick, by poller name.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"poller"})

	pollerErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kubetui",
		Subsystem: "poller",
		Name:      "errors_total",
		Help:      "Number of poller ticks that returned an error, by poller name.",
	}, []string{"poller"})

	discoveryDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kubetui",
		Subsystem: "api_resources",
		Name:      "discovery_duration_seconds",
		Help:      "Time spent on one full server discovery pass.",
		Buckets:   prometheus.DefBuckets,
	})

	activeLogStreamers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kubetui",
		Subsystem: "logs",
		Name:      "active_streamers",
		Help:      "Number of ContainerLogStreamer tasks currently running.",
	})

	logLinesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kubetui",
		Subsystem: "logs",
		Name:      "lines_total",
		Help:      "Number of log lines appended to the LogBuffer after filtering.",
	})
)

func init() {
	Registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		pollerTickSeconds,
		pollerErrorsTotal,
		discoveryDurationSeconds,
		activeLogStreamers,
		logLinesTotal,
	)
}

func PollerTickDuration(poller string) prometheus.Observer {
	return pollerTickSeconds.WithLabelValues(poller)
}

func PollerErrors(poller string) prometheus.Counter {
	return pollerErrorsTotal.WithLabelValues(poller)
}

func DiscoveryDuration() prometheus.Observer { return discoveryDurationSeconds }

func ActiveLogStreamers() prometheus.Gauge { return activeLogStreamers }

func LogLinesTotal() prometheus.Counter { return logLinesTotal }
