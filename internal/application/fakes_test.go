package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/golang/geo/r2"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/geometry"
	"puck-scanner/internal/domain/port"
)

const testBarcodeRadius = 10

type fakeCode struct {
	at   r2.Point
	data string
}

// fakeCodec находит штрихкоды в заданных точках и читает только те,
// для которых задан код в точке центра.
type fakeCodec struct {
	mu      sync.Mutex
	found   map[port.LocateMode][]r2.Point
	codes   []fakeCode
	decodes int
	locates map[port.LocateMode]int
}

func newFakeCodec() *fakeCodec {
	return &fakeCodec{
		found:   make(map[port.LocateMode][]r2.Point),
		locates: make(map[port.LocateMode]int),
	}
}

func (c *fakeCodec) setFound(mode port.LocateMode, points ...r2.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.found[mode] = append([]r2.Point(nil), points...)
}

func (c *fakeCodec) addCode(at r2.Point, data string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes = append(c.codes, fakeCode{at: at, data: data})
}

func (c *fakeCodec) clearCodes() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes = nil
}

func (c *fakeCodec) decodeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decodes
}

func (c *fakeCodec) locateCount(mode port.LocateMode) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locates[mode]
}

func (c *fakeCodec) Locate(img *image.Gray, mode port.LocateMode, _ []int) ([]*entity.Barcode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locates[mode]++
	var out []*entity.Barcode
	for _, p := range c.found[mode] {
		if geometry.InImage(p, img.Bounds()) {
			out = append(out, entity.NewBarcode(p, testBarcodeRadius))
		}
	}
	return out, nil
}

func (c *fakeCodec) Decode(_ *image.Gray, bc *entity.Barcode) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decodes++
	for _, code := range c.codes {
		if geometry.Distance(code.at, bc.Center()) < 0.1 {
			return code.data, nil
		}
	}
	return "", errors.New("unreadable")
}

type fakeCircleFinder struct {
	circles []geometry.Circle
}

func (f fakeCircleFinder) FindCircles(*image.Gray, float64) ([]geometry.Circle, error) {
	return f.circles, nil
}

type fakeDebugSink struct {
	mu    sync.Mutex
	names []string
}

func (d *fakeDebugSink) SaveCrop(name string, _ image.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names = append(d.names, name)
	return nil
}

// slotPoints центры слотов юнипака с центром (500, 500) и радиусом 200, повёрнутого и сдвинутого.
func slotPoints(rotation float64, shift r2.Point) []r2.Point {
	g := geometry.NewUnipuck(r2.Point{X: 500, Y: 500}.Add(shift), 200, rotation)
	points := make([]r2.Point, g.SlotCount())
	for i := range points {
		points[i] = g.SlotBounds(i + 1).Center
	}
	return points
}

func slotData(n int) string {
	return fmt.Sprintf("P%02d", n)
}

// pick выбирает точки по номерам слотов.
func pick(points []r2.Point, slots ...int) []r2.Point {
	out := make([]r2.Point, 0, len(slots))
	for _, n := range slots {
		out = append(out, points[n-1])
	}
	return out
}

func slotRange(from, to int) []int {
	var out []int
	for n := from; n <= to; n++ {
		out = append(out, n)
	}
	return out
}

// grayFrame кадр 1000x1000 с равномерной яркостью.
func grayFrame(level uint8) entity.Frame {
	img := image.NewGray(image.Rect(0, 0, 1000, 1000))
	for i := range img.Pix {
		img.Pix[i] = level
	}
	return entity.NewFrame(img, time.Now())
}

// darken закрашивает квадрат вокруг точки.
func darken(f entity.Frame, p r2.Point, half int, level uint8) {
	for y := int(p.Y) - half; y <= int(p.Y)+half; y++ {
		for x := int(p.X) - half; x <= int(p.X)+half; x++ {
			f.Image.SetGray(x, y, color.Gray{Y: level})
		}
	}
}

func testScannerConfig() ScannerConfig {
	return ScannerConfig{
		Camera:       entity.CameraTop,
		PlateKind:    geometry.KindUnipuck,
		BarcodeSizes: []int{14},
		Retry: RetryConfig{
			FramesBeforeDeep:     100,
			SquareScansPerFrame:  1,
			ContourScansPerFrame: 1,
			EmptyBrightnessRatio: 5,
			Seed:                 1,
		},
	}
}

// fakeCamera отдаёт один и тот же кадр с заданным интервалом.
type fakeCamera struct {
	frame    entity.Frame
	interval time.Duration
	failAt   int

	mu     sync.Mutex
	reads  int
	closed bool
}

func (c *fakeCamera) Read(ctx context.Context) (entity.Frame, error) {
	select {
	case <-ctx.Done():
		return entity.Frame{}, ctx.Err()
	case <-time.After(c.interval):
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if c.failAt > 0 && c.reads >= c.failAt {
		return entity.Frame{}, errors.New("device disconnected")
	}
	f := c.frame
	f.Timestamp = time.Now()
	return f, nil
}

func (c *fakeCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakeOpener struct {
	mu      sync.Mutex
	cameras map[entity.CameraPosition]*fakeCamera
	opened  []entity.CameraPosition
}

func (o *fakeOpener) Open(_ context.Context, pos entity.CameraPosition) (port.Camera, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	cam, ok := o.cameras[pos]
	if !ok {
		return nil, fmt.Errorf("no camera at %s", pos)
	}
	o.opened = append(o.opened, pos)
	return cam, nil
}

// countingMetrics считает кадры и запоминает максимальную глубину очереди.
type countingMetrics struct {
	mu       sync.Mutex
	captured int
	dropped  int
	scanned  int
	maxDepth int
	complete int
}

func (m *countingMetrics) FrameCaptured(entity.CameraPosition) {
	m.mu.Lock()
	m.captured++
	m.mu.Unlock()
}

func (m *countingMetrics) FrameDropped(entity.CameraPosition) {
	m.mu.Lock()
	m.dropped++
	m.mu.Unlock()
}

func (m *countingMetrics) FrameScanned(entity.CameraPosition, time.Duration, error) {
	m.mu.Lock()
	m.scanned++
	m.mu.Unlock()
}

func (m *countingMetrics) TaskQueueDepth(_ entity.CameraPosition, depth int) {
	m.mu.Lock()
	if depth > m.maxDepth {
		m.maxDepth = depth
	}
	m.mu.Unlock()
}

func (m *countingMetrics) PlateCompleted(entity.CameraPosition) {
	m.mu.Lock()
	m.complete++
	m.mu.Unlock()
}

func (m *countingMetrics) snapshot() (captured, dropped, scanned, maxDepth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captured, m.dropped, m.scanned, m.maxDepth
}

func (c *fakeCamera) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// slowCodec замедляет поиск, имитируя тяжёлое сканирование.
type slowCodec struct {
	*fakeCodec
	delay time.Duration
}

func (c slowCodec) Locate(img *image.Gray, mode port.LocateMode, sizes []int) ([]*entity.Barcode, error) {
	time.Sleep(c.delay)
	return c.fakeCodec.Locate(img, mode, sizes)
}

type recordingPreview struct {
	mu       sync.Mutex
	shown    int
	overlays int
}

func (p *recordingPreview) Show(_ entity.Frame, overlay *entity.Overlay) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown++
	if overlay != nil {
		p.overlays++
	}
}

func (p *recordingPreview) counts() (shown, overlays int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shown, p.overlays
}
