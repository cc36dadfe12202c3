// Package metrics declares the Prometheus collectors shared by the frame
// driver, dataset loader and stream publisher.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FramesBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "derbyviz_frames_built_total",
		Help: "Frames assembled by the scene controller",
	})

	FrameBuildSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "derbyviz_frame_build_seconds",
		Help:    "Time to assemble one frame",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10us to ~80ms
	})

	ClockWraps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "derbyviz_clock_wraps_total",
		Help: "Animation loops completed while playing",
	})

	ViewRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "derbyviz_view_rebuilds_total",
		Help: "Dataset view rebuilds triggered by filter or dataset changes",
	})

	ViewSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "derbyviz_view_hits",
		Help: "Hits in the active dataset view",
	})

	TrajectoriesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "derbyviz_trajectories_rejected_total",
		Help: "Hits excluded at load time, by reason",
	}, []string{"reason"})

	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "derbyviz_stream_clients",
		Help: "Connected gRPC frame stream clients",
	})

	StreamFramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "derbyviz_stream_frames_dropped_total",
		Help: "Frames dropped because a stream client was not keeping up",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
