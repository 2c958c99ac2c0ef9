// Package metrics exposes the appliance's Prometheus instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecognitionCycles counts recognition loop iterations.
	// Labels:
	//   - result: "match", "unknown", "no_face", "skipped", "error"
	RecognitionCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doorwatch_recognition_cycles_total",
			Help: "Total number of recognition loop cycles",
		},
		[]string{"result"},
	)

	// CameraBusy counts camera acquisitions that timed out because
	// another role held the permit.
	CameraBusy = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doorwatch_camera_busy_total",
			Help: "Total number of camera acquisitions rejected while busy",
		},
		[]string{"role"}, // "stream", "recognition", "snapshot", "enroll"
	)

	// Notifications counts webhook notifications handed to the dispatcher.
	Notifications = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "doorwatch_notifications_total",
			Help: "Total number of recognition notifications emitted",
		},
	)

	// StreamFrames counts frames written to MJPEG stream clients.
	StreamFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doorwatch_stream_frames_total",
			Help: "Total number of frames served over MJPEG streams",
		},
		[]string{"stream"}, // "live", "recognition"
	)

	// RecognizeDuration measures end-to-end recognition latency per
	// cycle, frame capture included.
	RecognizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "doorwatch_recognize_duration_seconds",
			Help:    "Duration of recognition cycles in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	// EnrolledFaces tracks the current number of enrolled identities.
	EnrolledFaces = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doorwatch_enrolled_faces",
			Help: "Current number of enrolled identities",
		},
	)
)

// RecordCycle records one recognition loop iteration.
func RecordCycle(result string, duration time.Duration) {
	RecognitionCycles.WithLabelValues(result).Inc()
	RecognizeDuration.Observe(duration.Seconds())
}

// RecordCameraBusy records a camera acquisition rejected while busy.
func RecordCameraBusy(role string) {
	CameraBusy.WithLabelValues(role).Inc()
}

// RecordNotification records an emitted recognition notification.
func RecordNotification() {
	Notifications.Inc()
}

// RecordStreamFrame records a frame written to a stream client.
func RecordStreamFrame(stream string) {
	StreamFrames.WithLabelValues(stream).Inc()
}

// SetEnrolledFaces updates the enrolled identity gauge.
func SetEnrolledFaces(count int) {
	EnrolledFaces.Set(float64(count))
}
