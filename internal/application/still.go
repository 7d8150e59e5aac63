package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"
	"time"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/port"
)

// StillScanService сканирует отдельные снимки (фото оператора, файлы).
type StillScanService struct {
	scanner  *Scanner
	renderer port.OverlayRenderer
	mu       sync.Mutex
}

// StillOutput содержит результат сканирования и картинку с подсветкой.
type StillOutput struct {
	Result      entity.ScanResult
	Report      *entity.PlateReport
	Highlighted []byte
}

// NewStillScanService создаёт сервис. renderer может быть nil, тогда подсветки нет.
func NewStillScanService(cfg ScannerConfig, codec port.BarcodeCodec, renderer port.OverlayRenderer, opts ...ScannerOption) *StillScanService {
	return &StillScanService{
		scanner:  NewScanner(cfg, codec, opts...),
		renderer: renderer,
	}
}

// ScanImage декодирует JPEG/PNG и сканирует его без ограничений бюджета.
func (s *StillScanService) ScanImage(ctx context.Context, data []byte) (*StillOutput, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return s.Scan(ctx, img)
}

// Scan сканирует уже декодированное изображение.
func (s *StillScanService) Scan(ctx context.Context, img image.Image) (*StillOutput, error) {
	now := time.Now()
	frame := entity.NewFrame(img, now)

	// Сканер хранит состояние держателя, снимки обрабатываем по одному.
	s.mu.Lock()
	result := s.scanner.ScanStill(ctx, frame)
	s.mu.Unlock()

	out := &StillOutput{Result: result}
	if result.Plate == nil {
		if result.Err != nil {
			return out, result.Err
		}
		return out, entity.ErrNoBarcodesDetected
	}

	report := result.Plate.Report(result.Camera, now)
	out.Report = &report

	if s.renderer != nil {
		// Без подсветки ответ всё равно полезен.
		jpeg, err := s.renderer.Highlight(img, entity.NewOverlay(result.Plate, now, 0))
		if err != nil {
			s.scanner.log.Warn("still: failed to highlight plate", "plate_id", result.Plate.ID(), "error", err)
		} else {
			out.Highlighted = jpeg
		}
	}
	return out, nil
}
