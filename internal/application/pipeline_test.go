package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/require"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/port"
)

func testPipelineConfig() PipelineConfig {
	cfg := DefaultPipelineConfig()
	cfg.SampleInterval = 10 * time.Millisecond
	cfg.NoPuckGrace = 30 * time.Millisecond
	cfg.Scanners[entity.CameraTop] = testScannerConfig()
	cfg.Scanners[entity.CameraSide] = testScannerConfig()
	return cfg
}

func fullPuckCodec() *fakeCodec {
	codec := newFakeCodec()
	readablePuck(codec, slotPoints(0, r2.Point{}), slotRange(1, 16)...)
	return codec
}

func startPipeline(t *testing.T, p *Pipeline) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return cancel
}

func waitMessage(t *testing.T, p *Pipeline, substr string) entity.Message {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case m := <-p.Messages():
			if strings.Contains(m.Text, substr) {
				return m
			}
		case <-timeout:
			t.Fatalf("message %q not received", substr)
		}
	}
}

func TestPipeline_SlowScannerDropsFrames(t *testing.T) {
	cam := &fakeCamera{frame: grayFrame(200), interval: 2 * time.Millisecond}
	opener := &fakeOpener{cameras: map[entity.CameraPosition]*fakeCamera{entity.CameraTop: cam}}
	metrics := &countingMetrics{}
	preview := &recordingPreview{}

	codec := slowCodec{fakeCodec: fullPuckCodec(), delay: 40 * time.Millisecond}
	p := NewPipeline(testPipelineConfig(), opener, codec, WithMetrics(metrics), WithPreview(preview))
	startPipeline(t, p)

	require.NoError(t, p.Send(context.Background(), entity.StartCommand(entity.CameraTop)))

	select {
	case res := <-p.Results():
		require.True(t, res.Completed)
		require.Equal(t, entity.CameraTop, res.Camera)
		require.Equal(t, 16, res.Plate.ValidCount())
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}

	time.Sleep(300 * time.Millisecond)
	captured, dropped, scanned, maxDepth := metrics.snapshot()
	require.LessOrEqual(t, maxDepth, 1)
	require.Less(t, scanned, captured)
	require.Positive(t, dropped)

	require.Eventually(t, func() bool {
		_, overlays := preview.counts()
		return overlays > 0
	}, time.Second, 5*time.Millisecond)
	shown, _ := preview.counts()
	require.Greater(t, shown, scanned)
}

func TestPipeline_CompletionMessage(t *testing.T) {
	cam := &fakeCamera{frame: grayFrame(200), interval: 5 * time.Millisecond}
	opener := &fakeOpener{cameras: map[entity.CameraPosition]*fakeCamera{entity.CameraTop: cam}}
	p := NewPipeline(testPipelineConfig(), opener, fullPuckCodec())
	startPipeline(t, p)

	require.NoError(t, p.Send(context.Background(), entity.StartCommand(entity.CameraTop)))
	m := waitMessage(t, p, "complete")
	require.Equal(t, entity.LevelInfo, m.Level)
	require.Equal(t, entity.CameraTop, m.Camera)
}

func TestPipeline_NoPuckMessageAfterGrace(t *testing.T) {
	cam := &fakeCamera{frame: grayFrame(200), interval: 5 * time.Millisecond}
	opener := &fakeOpener{cameras: map[entity.CameraPosition]*fakeCamera{entity.CameraTop: cam}}
	p := NewPipeline(testPipelineConfig(), opener, newFakeCodec())
	startPipeline(t, p)

	require.NoError(t, p.Send(context.Background(), entity.StartCommand(entity.CameraTop)))
	m := waitMessage(t, p, "no puck")
	require.Equal(t, entity.LevelWarning, m.Level)
}

func TestPipeline_CameraErrorStopsCapture(t *testing.T) {
	cam := &fakeCamera{frame: grayFrame(200), interval: 5 * time.Millisecond, failAt: 3}
	opener := &fakeOpener{cameras: map[entity.CameraPosition]*fakeCamera{entity.CameraTop: cam}}
	p := NewPipeline(testPipelineConfig(), opener, newFakeCodec())
	startPipeline(t, p)

	require.NoError(t, p.Send(context.Background(), entity.StartCommand(entity.CameraTop)))
	m := waitMessage(t, p, "camera error")
	require.Equal(t, entity.LevelError, m.Level)
	require.Eventually(t, cam.isClosed, time.Second, 5*time.Millisecond)
}

func TestPipeline_UnconfiguredCamera(t *testing.T) {
	cfg := testPipelineConfig()
	delete(cfg.Scanners, entity.CameraSide)
	p := NewPipeline(cfg, &fakeOpener{}, newFakeCodec())
	startPipeline(t, p)

	require.NoError(t, p.Send(context.Background(), entity.StartCommand(entity.CameraSide)))
	m := waitMessage(t, p, "not configured")
	require.Equal(t, entity.LevelError, m.Level)
}

func TestPipeline_SwitchAndStopReleaseCamera(t *testing.T) {
	top := &fakeCamera{frame: grayFrame(200), interval: 5 * time.Millisecond}
	side := &fakeCamera{frame: grayFrame(200), interval: 5 * time.Millisecond}
	opener := &fakeOpener{cameras: map[entity.CameraPosition]*fakeCamera{
		entity.CameraTop:  top,
		entity.CameraSide: side,
	}}
	metrics := &countingMetrics{}
	p := NewPipeline(testPipelineConfig(), opener, fullPuckCodec(), WithMetrics(metrics))
	startPipeline(t, p)
	ctx := context.Background()

	require.NoError(t, p.Send(ctx, entity.StartCommand(entity.CameraTop)))
	require.Eventually(t, func() bool {
		captured, _, _, _ := metrics.snapshot()
		return captured > 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Send(ctx, entity.StartCommand(entity.CameraSide)))
	require.Eventually(t, top.isClosed, time.Second, 5*time.Millisecond)

	// После переключения в очередях остаются только результаты боковой камеры.
	select {
	case res := <-p.Results():
		require.Equal(t, entity.CameraSide, res.Camera)
	case <-time.After(2 * time.Second):
		t.Fatal("no result from side camera")
	}

	require.NoError(t, p.Send(ctx, entity.StopCommand()))
	require.Eventually(t, side.isClosed, time.Second, 5*time.Millisecond)

	opener.mu.Lock()
	defer opener.mu.Unlock()
	require.Equal(t, []entity.CameraPosition{entity.CameraTop, entity.CameraSide}, opener.opened)
}

var _ port.BarcodeCodec = slowCodec{}
