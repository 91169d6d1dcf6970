// Package metrics exposes the process-wide prometheus collectors for a
// frontend or backend instance. Both processes import this package;
// which metrics actually get updated depends on which side is running.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "retrohost_build_info",
		Help: "Build information of the running retrohost process",
	}, []string{"version", "commit", "role"})

	MessagesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retrohost_protocol_messages_sent_total",
		Help: "Total number of protocol messages sent, by tag",
	}, []string{"tag"})

	MessagesReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retrohost_protocol_messages_received_total",
		Help: "Total number of protocol messages received, by tag",
	}, []string{"tag"})

	PendingRepliesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "retrohost_protocol_pending_replies_in_flight",
		Help: "Number of blocking sends awaiting a reply",
	})

	RunRoundTripSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "retrohost_run_round_trip_seconds",
		Help:    "Time from issuing a blocking Run to receiving its RunResponse",
		Buckets: prometheus.DefBuckets,
	})

	AudioOccupancyFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "retrohost_audio_occupancy_frames",
		Help: "Number of buffered audio sample frames awaiting playback",
	})

	PacerDrainWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "retrohost_pacer_drain_wait_seconds",
		Help:    "Time the pacer spent busy-waiting for the audio sink to drain below its threshold",
		Buckets: prometheus.DefBuckets,
	})

	CoreLoadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retrohost_core_load_failures_total",
		Help: "Total number of failures to dlopen and bind a libretro core",
	})
)
