//go:build gocv
// +build gocv

package camera

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gocv.io/x/gocv"

	"puck-scanner/internal/domain/entity"
)

const defaultReadTimeout = 2 * time.Second

// DeviceCamera камера OpenCV. Используется только циклом захвата.
type DeviceCamera struct {
	capture *gocv.VideoCapture
	timeout time.Duration
	reading pendingRead
}

// OpenDevice открывает устройство по индексу или URL потока.
func OpenDevice(ctx context.Context, cfg Config) (*DeviceCamera, error) {
	_ = ctx
	var device interface{} = cfg.Device
	if idx, err := strconv.Atoi(cfg.Device); err == nil {
		device = idx
	}
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open video capture %q: %w", cfg.Device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("video capture %q is not opened", cfg.Device)
	}

	// Держим в буфере один кадр, чтобы не отставать от живого видео.
	capture.Set(gocv.VideoCaptureBufferSize, 1)
	if cfg.Width > 0 && cfg.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = defaultReadTimeout
	}
	return &DeviceCamera{capture: capture, timeout: timeout}, nil
}

// Read читает кадр и переводит его в оттенки серого. После таймаута
// следующий вызов дожидается того же чтения, а не запускает новое.
func (c *DeviceCamera) Read(ctx context.Context) (entity.Frame, error) {
	res, err := c.reading.do(ctx, c.timeout, c.read)
	if err != nil {
		return entity.Frame{}, err
	}
	if res.err != nil {
		return entity.Frame{}, res.err
	}
	return entity.NewFrame(res.img, time.Now()), nil
}

func (c *DeviceCamera) read() readResult {
	mat := gocv.NewMat()
	defer mat.Close()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		return readResult{err: errors.New("empty frame from device")}
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	img, err := gray.ToImage()
	if err != nil {
		return readResult{err: err}
	}
	return readResult{img: img}
}

// Close дожидается незавершённого чтения и освобождает устройство.
func (c *DeviceCamera) Close() error {
	c.reading.wait()
	return c.capture.Close()
}
