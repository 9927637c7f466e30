package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whalecam_frames_processed_total",
		Help: "Frames processed across all tracking sessions.",
	})

	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "whalecam_active_streams",
		Help: "Tracking sessions currently streaming.",
	})

	sessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whalecam_sessions_total",
		Help: "Completed tracking sessions by outcome.",
	}, []string{"status"})
)
