package container

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"puck-scanner/config"
	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/geometry"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Cameras = map[string]config.CameraConfig{
		"top":  {Device: "0", PlateType: "unipuck", BarcodeSizes: []int{14}},
		"side": {ReplayDir: t.TempDir(), PlateType: "unconstrained", BarcodeSizes: []int{12, 14}},
	}
	cfg.Scanner.Seed = 7
	return cfg
}

func TestScannerConfigs(t *testing.T) {
	scanners, err := ScannerConfigs(testConfig(t))
	require.NoError(t, err)
	require.Len(t, scanners, 2)

	top := scanners[entity.CameraTop]
	require.Equal(t, entity.CameraTop, top.Camera)
	require.Equal(t, geometry.KindUnipuck, top.PlateKind)
	require.Equal(t, 3, top.Retry.FramesBeforeDeep)
	require.Equal(t, int64(7), top.Retry.Seed)

	side := scanners[entity.CameraSide]
	require.Equal(t, geometry.KindUnconstrained, side.PlateKind)
	require.Equal(t, []int{12, 14}, side.BarcodeSizes)
}

func TestScannerConfigs_UnknownKind(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cameras["top"] = config.CameraConfig{Device: "0", PlateType: "hexpuck"}
	_, err := ScannerConfigs(cfg)
	require.ErrorIs(t, err, geometry.ErrUnknownKind)
}

func TestCameraConfigs(t *testing.T) {
	cfg := testConfig(t)
	cams := CameraConfigs(cfg)
	require.Equal(t, "0", cams[entity.CameraTop].Device)
	require.Equal(t, cfg.Cameras["side"].ReplayDir, cams[entity.CameraSide].ReplayDir)
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)
	cfg.Debug.Dir = filepath.Join(t.TempDir(), "crops")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := New(cfg, log)
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.Pipeline)
	require.NotNil(t, c.Dispatcher)
	require.NotNil(t, c.Still)
	require.NotNil(t, c.Operators)
	require.NotNil(t, c.Metrics)

	_, err = os.Stat(cfg.Debug.Dir)
	require.NoError(t, err)

	_, ok := c.Dispatcher.LastReport()
	require.False(t, ok)
}
