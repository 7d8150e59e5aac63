package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/port"
)

// PipelineConfig параметры конвейера кадров.
type PipelineConfig struct {
	SampleInterval   time.Duration // минимальный интервал между кадрами для сканирования
	NoPuckGrace      time.Duration // через сколько без штрихкодов сообщать об отсутствии держателя
	OverlayLifetime  time.Duration // сколько показывать подсветку
	ResultQueueSize  int
	MessageQueueSize int
	Scanners         map[entity.CameraPosition]ScannerConfig
}

// DefaultPipelineConfig значения по умолчанию.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		SampleInterval:   100 * time.Millisecond,
		NoPuckGrace:      time.Second,
		OverlayLifetime:  time.Second,
		ResultQueueSize:  16,
		MessageQueueSize: 16,
		Scanners:         make(map[entity.CameraPosition]ScannerConfig),
	}
}

// Pipeline два цикла (захват и сканирование), связанные очередями, и канал команд.
// Очередь задач имеет глубину 1: если сканирование не успевает, кадры отбрасываются.
type Pipeline struct {
	cfg         PipelineConfig
	cameras     port.CameraOpener
	codec       port.BarcodeCodec
	scannerOpts []ScannerOption
	preview     port.Preview
	metrics     port.PipelineMetrics
	log         *slog.Logger

	commands chan entity.Command
	results  chan entity.ScanResult
	overlays chan entity.Overlay
	messages chan entity.Message
}

// PipelineOption дополнительная настройка конвейера.
type PipelineOption func(*Pipeline)

func WithPreview(p port.Preview) PipelineOption {
	return func(pl *Pipeline) { pl.preview = p }
}

func WithMetrics(m port.PipelineMetrics) PipelineOption {
	return func(pl *Pipeline) { pl.metrics = m }
}

func WithPipelineLogger(l *slog.Logger) PipelineOption {
	return func(pl *Pipeline) { pl.log = l }
}

// WithScannerOptions передаёт опции каждому создаваемому сканеру.
func WithScannerOptions(opts ...ScannerOption) PipelineOption {
	return func(pl *Pipeline) { pl.scannerOpts = append(pl.scannerOpts, opts...) }
}

// NewPipeline создаёт конвейер. Сканирование начинается после команды Start.
func NewPipeline(cfg PipelineConfig, cameras port.CameraOpener, codec port.BarcodeCodec, opts ...PipelineOption) *Pipeline {
	if cfg.ResultQueueSize <= 0 {
		cfg.ResultQueueSize = 1
	}
	if cfg.MessageQueueSize <= 0 {
		cfg.MessageQueueSize = 1
	}
	p := &Pipeline{
		cfg:      cfg,
		cameras:  cameras,
		codec:    codec,
		metrics:  nopMetrics{},
		log:      slog.Default(),
		commands: make(chan entity.Command),
		results:  make(chan entity.ScanResult, cfg.ResultQueueSize),
		overlays: make(chan entity.Overlay, 1),
		messages: make(chan entity.Message, cfg.MessageQueueSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Results очередь результатов с новыми данными.
func (p *Pipeline) Results() <-chan entity.ScanResult { return p.results }

// Messages очередь статусных сообщений.
func (p *Pipeline) Messages() <-chan entity.Message { return p.messages }

// Send отправляет команду в цикл управления.
func (p *Pipeline) Send(ctx context.Context, cmd entity.Command) error {
	select {
	case p.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// session одна сессия камеры: пара циклов и очередь задач.
type session struct {
	pos    entity.CameraPosition
	cancel context.CancelFunc
	done   chan error
	tasks  chan entity.Frame
}

// Run цикл управления. Блокируется до отмены ctx.
func (p *Pipeline) Run(ctx context.Context) error {
	var sess *session
	defer func() { p.stopSession(sess) }()

	for {
		var done <-chan error
		if sess != nil {
			done = sess.done
		}

		select {
		case <-ctx.Done():
			return nil

		case cmd := <-p.commands:
			switch cmd.Kind {
			case entity.CommandStart:
				p.stopSession(sess)
				sess = p.startSession(ctx, cmd.Position)
			case entity.CommandStop:
				p.stopSession(sess)
				sess = nil
				p.log.Info("pipeline: scanning stopped")
			default:
				p.log.Warn("pipeline: unknown command", "kind", cmd.Kind)
			}

		case err := <-done:
			// Сессия завершилась сама (ошибка камеры). Сообщения оставляем потребителю.
			if err != nil {
				p.log.Error("pipeline: session stopped", "camera", sess.pos, "error", err)
			}
			drain(sess.tasks)
			drain(p.overlays)
			sess = nil
		}
	}
}

func (p *Pipeline) startSession(ctx context.Context, pos entity.CameraPosition) *session {
	cfg, ok := p.cfg.Scanners[pos]
	if !ok {
		p.publishMessage(entity.LevelError, pos, fmt.Sprintf("camera %q is not configured", pos))
		return nil
	}
	cfg.Camera = pos

	sctx, cancel := context.WithCancel(ctx)
	s := &session{
		pos:    pos,
		cancel: cancel,
		done:   make(chan error, 1),
		tasks:  make(chan entity.Frame, 1),
	}
	scanner := NewScanner(cfg, p.codec, append([]ScannerOption{WithLogger(p.log)}, p.scannerOpts...)...)

	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error { return p.captureLoop(gctx, s) })
	g.Go(func() error { return p.scanLoop(gctx, s, scanner) })
	go func() { s.done <- g.Wait() }()

	p.log.Info("pipeline: scanning started", "camera", pos, "plate_type", cfg.PlateKind)
	return s
}

// stopSession останавливает циклы и очищает все очереди, чтобы устаревшие
// кадры и результаты не пересекли границу переключения.
func (p *Pipeline) stopSession(s *session) {
	if s == nil {
		return
	}
	s.cancel()
	<-s.done
	drain(s.tasks)
	drain(p.overlays)
	drain(p.results)
	drain(p.messages)
}

// captureLoop читает кадры камеры, передаёт копии на сканирование не чаще
// SampleInterval и только в свободную очередь, показывает превью с последней подсветкой.
func (p *Pipeline) captureLoop(ctx context.Context, s *session) error {
	cam, err := p.cameras.Open(ctx, s.pos)
	if err != nil {
		p.publishMessage(entity.LevelError, s.pos, fmt.Sprintf("camera error: %v", err))
		return fmt.Errorf("%w: open %s camera: %v", entity.ErrCamera, s.pos, err)
	}
	defer func() {
		if err := cam.Close(); err != nil {
			p.log.Warn("pipeline: failed to close camera", "camera", s.pos, "error", err)
		}
	}()

	var (
		seq      uint64
		lastSent time.Time
		overlay  *entity.Overlay
	)
	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := cam.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.publishMessage(entity.LevelError, s.pos, fmt.Sprintf("camera error: %v", err))
			return fmt.Errorf("%w: read %s camera: %v", entity.ErrCamera, s.pos, err)
		}
		seq++
		frame.Seq = seq
		p.metrics.FrameCaptured(s.pos)

		now := time.Now()
		if now.Sub(lastSent) >= p.cfg.SampleInterval {
			select {
			case s.tasks <- frame.Clone():
				lastSent = now
			default:
				p.metrics.FrameDropped(s.pos)
			}
		}
		p.metrics.TaskQueueDepth(s.pos, len(s.tasks))

		select {
		case o := <-p.overlays:
			overlay = &o
		default:
		}
		if overlay != nil && overlay.Expired(now) {
			overlay = nil
		}
		if p.preview != nil {
			p.preview.Show(frame, overlay)
		}
	}
}

// scanLoop сканирует кадры из очереди задач в порядке захвата.
func (p *Pipeline) scanLoop(ctx context.Context, s *session, scanner *Scanner) error {
	lastSeen := time.Now()
	reported := false

	for {
		var frame entity.Frame
		select {
		case <-ctx.Done():
			return nil
		case frame = <-s.tasks:
		}

		result := scanner.ScanFrame(ctx, frame)
		p.metrics.FrameScanned(s.pos, result.Elapsed, result.Err)
		now := time.Now()

		if errors.Is(result.Err, entity.ErrNoBarcodesDetected) {
			if !reported && now.Sub(lastSeen) >= p.cfg.NoPuckGrace {
				p.publishMessage(entity.LevelWarning, s.pos, "no puck detected")
				reported = true
			}
		} else {
			lastSeen = now
			reported = false
		}

		if result.NewData || result.Completed {
			select {
			case p.results <- result:
			case <-ctx.Done():
				return nil
			}
		}

		if result.Plate != nil && result.Plate.ValidCount() > 0 {
			p.publishOverlay(entity.NewOverlay(result.Plate, now, p.cfg.OverlayLifetime))
		}

		if result.Completed {
			p.metrics.PlateCompleted(s.pos)
			p.publishMessage(entity.LevelInfo, s.pos, fmt.Sprintf("plate %s complete: %d barcodes", result.Plate.ID(), result.Plate.ValidCount()))
		}
	}
}

// publishOverlay заменяет непоказанную подсветку новой. Писатель один.
func (p *Pipeline) publishOverlay(o entity.Overlay) {
	select {
	case p.overlays <- o:
		return
	default:
	}
	select {
	case <-p.overlays:
	default:
	}
	select {
	case p.overlays <- o:
	default:
	}
}

func (p *Pipeline) publishMessage(level entity.MessageLevel, pos entity.CameraPosition, text string) {
	msg := entity.Message{Level: level, Camera: pos, Text: text, Time: time.Now()}
	select {
	case p.messages <- msg:
	default:
		p.log.Warn("pipeline: message queue full, dropping message", "text", text)
	}
}

func drain[T any](ch chan T) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

type nopMetrics struct{}

func (nopMetrics) FrameCaptured(entity.CameraPosition)                      {}
func (nopMetrics) FrameDropped(entity.CameraPosition)                       {}
func (nopMetrics) FrameScanned(entity.CameraPosition, time.Duration, error) {}
func (nopMetrics) TaskQueueDepth(entity.CameraPosition, int)                {}
func (nopMetrics) PlateCompleted(entity.CameraPosition)                     {}
