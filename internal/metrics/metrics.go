package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	toolReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdftoolbox",
			Name:      "tool_requests_total",
			Help:      "Total tool requests by tool and result",
		},
		[]string{"tool", "result"},
	)

	toolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pdftoolbox",
			Name:      "tool_request_duration_seconds",
			Help:      "Duration of tool requests by tool",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	uploadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pdftoolbox",
			Name:      "upload_bytes",
			Help:      "Uploaded file sizes by tool",
			Buckets:   prometheus.ExponentialBuckets(64*1024, 4, 8),
		},
		[]string{"tool"},
	)

	artifactsProduced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdftoolbox",
			Name:      "artifacts_produced_total",
			Help:      "Output artifacts produced by tool (split slices count individually)",
		},
		[]string{"tool"},
	)

	breakerEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdftoolbox",
			Name:      "breaker_events_total",
			Help:      "Converter breaker events by tool and action",
		},
		[]string{"tool", "action"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(toolReqs, toolLatency, uploadBytes, artifactsProduced, breakerEvents)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveTool(tool, result string, dur time.Duration) {
	toolReqs.WithLabelValues(tool, result).Inc()
	toolLatency.WithLabelValues(tool).Observe(dur.Seconds())
}

func ObserveUpload(tool string, size int64) { uploadBytes.WithLabelValues(tool).Observe(float64(size)) }

func AddArtifacts(tool string, n int) {
	artifactsProduced.WithLabelValues(tool).Add(float64(n))
}

func BreakerOpened(tool string) { breakerEvents.WithLabelValues(tool, "opened").Inc() }
func BreakerClosed(tool string) { breakerEvents.WithLabelValues(tool, "closed").Inc() }
