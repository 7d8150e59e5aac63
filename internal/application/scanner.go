package app

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/golang/geo/r2"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/geometry"
	"puck-scanner/internal/domain/port"
)

// ScannerConfig параметры сканирования для одного положения камеры.
type ScannerConfig struct {
	Camera       entity.CameraPosition
	PlateKind    geometry.Kind
	BarcodeSizes []int
	Retry        RetryConfig
}

// Scanner обрабатывает кадры одного держателя: поиск, выравнивание,
// сопоставление с предыдущим держателем, объединение и повторный поиск.
// Принадлежит одному циклу сканирования, не потокобезопасен.
type Scanner struct {
	cfg     ScannerConfig
	codec   port.BarcodeCodec
	circles port.CircleFinder
	debug   port.DebugSink
	retry   *SlotRetryScheduler
	plate   *entity.Plate
	log     *slog.Logger

	unresolved int // кадров подряд без прочитанных кандидатов

	computeGeometry func(geometry.Kind, []r2.Point) (geometry.Geometry, error)
}

// ScannerOption дополнительная настройка сканера.
type ScannerOption func(*Scanner)

// WithCircleFinder добавляет поиск пустых слотов, когда штрихкодов мало для выравнивания.
func WithCircleFinder(f port.CircleFinder) ScannerOption {
	return func(s *Scanner) { s.circles = f }
}

// WithDebugSink включает сохранение вырезок повторного поиска.
func WithDebugSink(d port.DebugSink) ScannerOption {
	return func(s *Scanner) { s.debug = d }
}

// WithLogger задаёт логгер.
func WithLogger(l *slog.Logger) ScannerOption {
	return func(s *Scanner) { s.log = l }
}

// NewScanner создаёт сканер.
func NewScanner(cfg ScannerConfig, codec port.BarcodeCodec, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		cfg:             cfg,
		codec:           codec,
		log:             slog.Default(),
		computeGeometry: geometry.Compute,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.retry = NewSlotRetryScheduler(cfg.Retry, codec, cfg.BarcodeSizes, s.debug, s.log)
	return s
}

// Plate снимок текущего держателя или nil.
func (s *Scanner) Plate() *entity.Plate {
	if s.plate == nil {
		return nil
	}
	return s.plate.Clone()
}

// ScanFrame сканирует очередной кадр живого видео.
func (s *Scanner) ScanFrame(ctx context.Context, frame entity.Frame) entity.ScanResult {
	return s.scan(ctx, frame, false)
}

// ScanStill сканирует отдельный снимок без ограничений бюджета, начиная с нового держателя.
func (s *Scanner) ScanStill(ctx context.Context, frame entity.Frame) entity.ScanResult {
	s.plate = nil
	s.unresolved = 0
	return s.scan(ctx, frame, true)
}

func (s *Scanner) scan(ctx context.Context, frame entity.Frame, force bool) entity.ScanResult {
	start := time.Now()
	result := entity.ScanResult{
		Seq:       frame.Seq,
		Camera:    s.cfg.Camera,
		Timestamp: frame.Timestamp,
	}

	prev := s.plate
	var prevValid int
	var prevFull bool
	if prev != nil {
		prevValid, prevFull = prev.ValidCount(), prev.IsFull()
	}

	located, geom, err := s.scanFrame(ctx, frame, force)
	if err != nil {
		s.log.Debug("scanner: frame not merged", "seq", frame.Seq, "error", err)
	}

	result.Barcodes = make([]*entity.Barcode, len(located))
	for i, bc := range located {
		result.Barcodes[i] = bc.Clone()
	}
	result.Geometry = geom
	result.Err = err

	if s.plate != nil {
		result.Plate = s.plate.Clone()
		result.NewPlate = prev == nil || prev.ID() != s.plate.ID()
		valid := s.plate.ValidCount()
		if result.NewPlate {
			result.NewData = valid > 0
			result.Completed = s.plate.IsFull()
		} else {
			result.NewData = valid > prevValid
			result.Completed = s.plate.IsFull() && !prevFull
		}
	}
	result.Elapsed = time.Since(start)
	return result
}

func (s *Scanner) scanFrame(ctx context.Context, frame entity.Frame, force bool) ([]*entity.Barcode, geometry.Geometry, error) {
	located, err := s.codec.Locate(frame.Image, port.LocateWide, s.cfg.BarcodeSizes)
	if err != nil {
		return nil, nil, fmt.Errorf("locate barcodes: %w", err)
	}
	if len(located) == 0 && force {
		located, err = s.codec.Locate(frame.Image, port.LocateDeep, s.cfg.BarcodeSizes)
		if err != nil {
			return nil, nil, fmt.Errorf("deep locate barcodes: %w", err)
		}
	}
	if len(located) == 0 {
		return nil, nil, entity.ErrNoBarcodesDetected
	}

	points := make([]r2.Point, len(located))
	for i, bc := range located {
		points[i] = bc.Center()
	}
	if s.circles != nil && len(points) < geometry.MinPoints(s.cfg.PlateKind) {
		points = s.supplementEmptySlots(frame.Image, located, points)
	}

	geom, err := s.computeGeometry(s.cfg.PlateKind, points)
	if err != nil {
		return located, nil, err
	}

	read := s.reader(frame.Image)
	merged, identity := s.reconcile(geom, located, read, s.unresolved)
	if identity == identityUnresolved {
		s.unresolved++
		if s.unresolved < maxUnresolvedFrames {
			return located, geom, entity.ErrIdentityUnresolved
		}
		s.log.Info("scanner: plate identity unresolved, replacing plate", "plate_id", s.plate.ID(), "frames", s.unresolved)
		identity = identityNew
	}
	s.unresolved = 0

	switch identity {
	case identityNew:
		s.plate = entity.NewPlate(merged)
		s.log.Info("scanner: new plate", "plate_id", s.plate.ID(), "camera", s.cfg.Camera, "barcodes", len(located))
	case identityAdjusted:
		s.log.Info("scanner: geometry adjusted to previous frame", "plate_id", s.plate.ID())
	}

	if identity != identityNew && s.plate.IsFull() {
		s.plate.Merge(merged, located, nil)
		return located, merged, nil
	}

	s.plate.Merge(merged, located, read)
	s.retry.Run(ctx, frame, s.plate, located, force)
	return located, merged, nil
}

// supplementEmptySlots добавляет центры пустых слотов, не занятые штрихкодами.
func (s *Scanner) supplementEmptySlots(img *image.Gray, located []*entity.Barcode, points []r2.Point) []r2.Point {
	var radius float64
	for _, bc := range located {
		radius += bc.Radius()
	}
	radius /= float64(len(located))

	circles, err := s.circles.FindCircles(img, radius)
	if err != nil {
		s.log.Debug("scanner: empty slot search failed", "error", err)
		return points
	}

	limit := geometry.SlotCount(s.cfg.PlateKind)
	for _, c := range circles {
		if len(points) >= limit {
			break
		}
		occupied := false
		for _, bc := range located {
			if c.Intersects(bc.Bounds()) {
				occupied = true
				break
			}
		}
		if !occupied {
			points = append(points, c.Center)
		}
	}
	return points
}

func (s *Scanner) reader(img *image.Gray) func(*entity.Barcode) {
	return func(bc *entity.Barcode) {
		readBarcode(s.codec, img, bc)
	}
}

// readBarcode декодирует штрихкод, если он ещё не читался.
func readBarcode(codec port.BarcodeCodec, img *image.Gray, bc *entity.Barcode) bool {
	if bc.IsRead() {
		return bc.IsValid()
	}
	data, err := codec.Decode(img, bc)
	if err != nil || data == "" {
		bc.SetUnreadable()
		return false
	}
	bc.SetData(data)
	return true
}
