// Package metrics счётчики конвейера в Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/port"
)

const namespace = "puck_scanner"

// PipelineMetrics метрики кадров и держателей с меткой камеры.
type PipelineMetrics struct {
	registry  *prometheus.Registry
	captured  *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	scanned   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	depth     *prometheus.GaugeVec
	completed *prometheus.CounterVec
}

// NewPipelineMetrics регистрирует метрики в собственном реестре.
func NewPipelineMetrics() *PipelineMetrics {
	m := &PipelineMetrics{
		registry: prometheus.NewRegistry(),
		captured: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_captured_total",
			Help:      "Frames read from the camera.",
		}, []string{"camera"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Frames dropped because the scan loop was busy.",
		}, []string{"camera"}),
		scanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_scanned_total",
			Help:      "Frames processed by the scanner by outcome.",
		}, []string{"camera", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Time spent scanning one frame.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"camera"}),
		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "task_queue_depth",
			Help:      "Frames waiting for the scan loop.",
		}, []string{"camera"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plates_completed_total",
			Help:      "Plates with every slot read or empty.",
		}, []string{"camera"}),
	}
	m.registry.MustRegister(m.captured, m.dropped, m.scanned, m.duration, m.depth, m.completed)
	return m
}

func (m *PipelineMetrics) FrameCaptured(pos entity.CameraPosition) {
	m.captured.WithLabelValues(string(pos)).Inc()
}

func (m *PipelineMetrics) FrameDropped(pos entity.CameraPosition) {
	m.dropped.WithLabelValues(string(pos)).Inc()
}

func (m *PipelineMetrics) FrameScanned(pos entity.CameraPosition, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.scanned.WithLabelValues(string(pos), outcome).Inc()
	m.duration.WithLabelValues(string(pos)).Observe(elapsed.Seconds())
}

func (m *PipelineMetrics) TaskQueueDepth(pos entity.CameraPosition, depth int) {
	m.depth.WithLabelValues(string(pos)).Set(float64(depth))
}

func (m *PipelineMetrics) PlateCompleted(pos entity.CameraPosition) {
	m.completed.WithLabelValues(string(pos)).Inc()
}

// Handler отдаёт метрики для /metrics.
func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

var _ port.PipelineMetrics = (*PipelineMetrics)(nil)
