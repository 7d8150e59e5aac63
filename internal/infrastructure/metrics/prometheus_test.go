package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"puck-scanner/internal/domain/entity"
)

func TestPipelineMetrics_Counters(t *testing.T) {
	m := NewPipelineMetrics()

	m.FrameCaptured(entity.CameraTop)
	m.FrameCaptured(entity.CameraTop)
	m.FrameDropped(entity.CameraTop)
	m.FrameScanned(entity.CameraTop, 20*time.Millisecond, nil)
	m.FrameScanned(entity.CameraTop, 30*time.Millisecond, errors.New("no barcodes"))
	m.TaskQueueDepth(entity.CameraSide, 1)
	m.PlateCompleted(entity.CameraTop)

	require.Equal(t, 2.0, testutil.ToFloat64(m.captured.WithLabelValues("top")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues("top")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.scanned.WithLabelValues("top", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.scanned.WithLabelValues("top", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.depth.WithLabelValues("side")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.completed.WithLabelValues("top")))
}

func TestPipelineMetrics_Handler(t *testing.T) {
	m := NewPipelineMetrics()
	m.FrameCaptured(entity.CameraSide)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `puck_scanner_frames_captured_total{camera="side"} 1`))
}
