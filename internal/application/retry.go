package app

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math/rand"
	"time"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/geometry"
	"puck-scanner/internal/domain/port"
)

const (
	// cropScale размер вырезки вокруг слота относительно его радиуса.
	cropScale = 1.5
	// brightnessWindow полуразмер окна замера яркости относительно радиуса.
	brightnessWindow = 0.5
)

// wiggleOffsets субпиксельные сдвиги, компенсирующие ошибку округления локатора.
var wiggleOffsets = [][2]float64{
	{0, 0},
	{0.5, 0}, {-0.5, 0}, {0, 0.5}, {0, -0.5},
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
}

// RetryConfig бюджет повторного поиска на кадр.
type RetryConfig struct {
	FramesBeforeDeep     int     // кадров до первой попытки повторного поиска
	SquareScansPerFrame  int     // прицельных поисков квадрата на кадр
	ContourScansPerFrame int     // глубоких поисков по контурам на кадр
	EmptyBrightnessRatio float64 // во сколько раз пустой слот темнее штрихкода
	Seed                 int64   // 0: случайное зерно
}

// DefaultRetryConfig значения по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		FramesBeforeDeep:     3,
		SquareScansPerFrame:  1,
		ContourScansPerFrame: 1,
		EmptyBrightnessRatio: 5,
	}
}

// SlotRetryScheduler дорогой повторный поиск неразрешённых слотов в пределах
// бюджета кадра и определение пустых слотов по яркости.
type SlotRetryScheduler struct {
	cfg   RetryConfig
	codec port.BarcodeCodec
	sizes []int
	rng   *rand.Rand
	debug port.DebugSink
	log   *slog.Logger

	squareScans  int
	contourScans int
	frameSeq     uint64
}

// NewSlotRetryScheduler создаёт планировщик. debug может быть nil.
func NewSlotRetryScheduler(cfg RetryConfig, codec port.BarcodeCodec, sizes []int, debug port.DebugSink, log *slog.Logger) *SlotRetryScheduler {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.EmptyBrightnessRatio <= 0 {
		cfg.EmptyBrightnessRatio = DefaultRetryConfig().EmptyBrightnessRatio
	}
	if log == nil {
		log = slog.Default()
	}
	return &SlotRetryScheduler{
		cfg:   cfg,
		codec: codec,
		sizes: sizes,
		rng:   rand.New(rand.NewSource(seed)),
		debug: debug,
		log:   log,
	}
}

// Run обрабатывает неразрешённые слоты держателя. В режиме force ограничения
// бюджета и порог кадров не действуют, перебираются все кандидаты.
func (r *SlotRetryScheduler) Run(ctx context.Context, frame entity.Frame, plate *entity.Plate, located []*entity.Barcode, force bool) {
	r.squareScans, r.contourScans = 0, 0
	r.frameSeq = frame.Seq
	if !force && plate.FramesSeen() < r.cfg.FramesBeforeDeep {
		return
	}

	r.detectEmpty(frame.Image, plate, located)

	slots := plate.Unresolved()
	r.rng.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })

	for _, n := range slots {
		if ctx.Err() != nil {
			return
		}
		if !force && r.exhausted() {
			return
		}

		switch plate.Slot(n).State() {
		case entity.SlotUnreadable:
			if force || r.squareScans < r.cfg.SquareScansPerFrame {
				r.squareScans++
				if r.escalate(frame, plate, n, port.LocateSquare, force) || !force {
					continue
				}
				r.escalate(frame, plate, n, port.LocateDeep, force)
			}
		case entity.SlotNoResult:
			if force || r.contourScans < r.cfg.ContourScansPerFrame {
				r.contourScans++
				r.escalate(frame, plate, n, port.LocateDeep, force)
			}
		}
	}
}

func (r *SlotRetryScheduler) exhausted() bool {
	return r.squareScans >= r.cfg.SquareScansPerFrame && r.contourScans >= r.cfg.ContourScansPerFrame
}

// escalate ищет штрихкод в вырезке вокруг слота и пытается его прочитать.
func (r *SlotRetryScheduler) escalate(frame entity.Frame, plate *entity.Plate, n int, mode port.LocateMode, force bool) bool {
	bounds := plate.Slot(n).Bounds()
	crop := cropCircle(frame.Image, bounds, cropScale)
	if crop == nil {
		return false
	}
	r.dump(n, mode, crop)

	found, err := r.codec.Locate(crop, mode, r.sizes)
	if err != nil {
		r.log.Debug("scanner: slot relocate failed", "slot", n, "error", err)
		return false
	}

	var candidates []*entity.Barcode
	for _, bc := range found {
		if bounds.Contains(bc.Center()) {
			candidates = append(candidates, bc)
		}
	}
	if len(candidates) == 0 {
		return false
	}
	if !force && len(candidates) > 1 {
		candidates = []*entity.Barcode{candidates[r.rng.Intn(len(candidates))]}
	}

	for _, bc := range candidates {
		if decoded := r.wiggle(frame.Image, bc); decoded != nil {
			plate.Resolve(n, decoded)
			r.log.Debug("scanner: slot resolved by relocate", "slot", n, "mode", mode)
			return true
		}
	}
	plate.Resolve(n, candidates[0])
	return false
}

// wiggle читает штрихкод в исходном положении и с небольшими сдвигами.
func (r *SlotRetryScheduler) wiggle(img *image.Gray, bc *entity.Barcode) *entity.Barcode {
	for i, off := range wiggleOffsets {
		candidate := bc
		if i > 0 {
			candidate = bc.Shifted(off[0], off[1])
		}
		if readBarcode(r.codec, img, candidate) {
			return candidate
		}
	}
	return nil
}

// detectEmpty помечает пустыми слоты без результата, которые заметно темнее
// средней яркости найденных штрихкодов.
func (r *SlotRetryScheduler) detectEmpty(img *image.Gray, plate *entity.Plate, located []*entity.Barcode) {
	var sum float64
	var samples int
	for _, bc := range located {
		if b, ok := meanBrightness(img, bc.Center().X, bc.Center().Y, bc.Radius()*brightnessWindow); ok {
			sum += b
			samples++
		}
	}
	if samples == 0 {
		return
	}
	threshold := sum / float64(samples) / r.cfg.EmptyBrightnessRatio

	for _, n := range plate.Unresolved() {
		slot := plate.Slot(n)
		if slot.State() != entity.SlotNoResult {
			continue
		}
		c := slot.Bounds()
		if !geometry.InImage(c.Center, img.Bounds()) {
			continue
		}
		if b, ok := meanBrightness(img, c.Center.X, c.Center.Y, c.Radius*brightnessWindow); ok && b < threshold {
			plate.MarkEmpty(n)
		}
	}
}

func (r *SlotRetryScheduler) dump(n int, mode port.LocateMode, crop *image.Gray) {
	if r.debug == nil {
		return
	}
	name := fmt.Sprintf("frame%06d_slot%02d_%s.png", r.frameSeq, n, modeName(mode))
	if err := r.debug.SaveCrop(name, crop); err != nil {
		r.log.Warn("scanner: failed to save debug crop", "name", name, "error", err)
	}
}

func modeName(mode port.LocateMode) string {
	switch mode {
	case port.LocateDeep:
		return "contour"
	case port.LocateSquare:
		return "square"
	default:
		return "wide"
	}
}

// cropCircle вырезает квадрат вокруг окружности, сохраняя координаты кадра.
func cropCircle(img *image.Gray, c geometry.Circle, scale float64) *image.Gray {
	rect := c.Rect(scale).Intersect(img.Bounds())
	if rect.Empty() {
		return nil
	}
	return img.SubImage(rect).(*image.Gray)
}

// meanBrightness средняя яркость в квадратном окне с центром (x, y).
func meanBrightness(img *image.Gray, x, y, half float64) (float64, bool) {
	if half < 1 {
		half = 1
	}
	rect := image.Rect(int(x-half), int(y-half), int(x+half)+1, int(y+half)+1).Intersect(img.Bounds())
	if rect.Empty() {
		return 0, false
	}
	var sum, n int
	for py := rect.Min.Y; py < rect.Max.Y; py++ {
		row := img.Pix[img.PixOffset(rect.Min.X, py):img.PixOffset(rect.Max.X, py)]
		for _, v := range row {
			sum += int(v)
		}
		n += len(row)
	}
	return float64(sum) / float64(n), true
}
