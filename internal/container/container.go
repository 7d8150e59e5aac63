package container

import (
	"fmt"
	"log/slog"

	"puck-scanner/config"
	telegram "puck-scanner/internal/api"
	app "puck-scanner/internal/application"
	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/geometry"
	"puck-scanner/internal/domain/port"
	"puck-scanner/internal/infrastructure/camera"
	"puck-scanner/internal/infrastructure/debug"
	"puck-scanner/internal/infrastructure/metrics"
	"puck-scanner/internal/infrastructure/notify"
	"puck-scanner/internal/infrastructure/storage"
	"puck-scanner/internal/infrastructure/vision"
)

type Container struct {
	Config     *config.Config
	Operators  *app.OperatorService
	Pipeline   *app.Pipeline
	Dispatcher *app.ResultDispatcher
	Still      *app.StillScanService
	Metrics    *metrics.PipelineMetrics

	codec       *vision.Codec
	renderer    *vision.Renderer
	scannerOpts []app.ScannerOption
	kafka       *notify.KafkaPlateSink
	preview     *vision.WindowPreview
	log         *slog.Logger
}

// New собирает сервисы приложения. extra дополнительные получатели отчётов.
func New(cfg *config.Config, log *slog.Logger, extra ...port.PlateSink) (*Container, error) {
	if log == nil {
		log = slog.Default()
	}
	scanners, err := ScannerConfigs(cfg)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:   cfg,
		Metrics:  metrics.NewPipelineMetrics(),
		codec:    vision.NewCodec(vision.NewLocator(), vision.NewDecoder()),
		renderer: vision.NewRenderer(),
		log:      log,
	}
	c.scannerOpts = []app.ScannerOption{
		app.WithCircleFinder(vision.NewCircleFinder()),
		app.WithLogger(log),
	}
	if cfg.Debug.Dir != "" {
		crops, err := debug.NewCropDir(cfg.Debug.Dir)
		if err != nil {
			return nil, err
		}
		c.scannerOpts = append(c.scannerOpts, app.WithDebugSink(crops))
	}

	sinks := append([]port.PlateSink(nil), extra...)
	if cfg.Kafka.BootstrapServers != "" {
		c.kafka, err = notify.NewKafkaPlateSink(notify.KafkaConfig{
			BootstrapServers: cfg.Kafka.BootstrapServers,
			Topic:            cfg.Kafka.Topic,
			ClientID:         cfg.Kafka.ClientID,
			Acks:             cfg.Kafka.Acks,
		}, log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, c.kafka)
	}

	pipelineOpts := []app.PipelineOption{
		app.WithMetrics(c.Metrics),
		app.WithPipelineLogger(log),
		app.WithScannerOptions(c.scannerOpts...),
	}
	if cfg.Preview.Enabled {
		c.preview, err = vision.NewWindowPreview(cfg.Preview.Title, log)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("preview: %w", err)
		}
		pipelineOpts = append(pipelineOpts, app.WithPreview(c.preview))
	}

	pcfg := app.PipelineConfig{
		SampleInterval:   cfg.Pipeline.SampleInterval,
		NoPuckGrace:      cfg.Pipeline.NoPuckGrace,
		OverlayLifetime:  cfg.Pipeline.OverlayLifetime,
		ResultQueueSize:  cfg.Pipeline.ResultQueueSize,
		MessageQueueSize: cfg.Pipeline.MessageQueueSize,
		Scanners:         scanners,
	}
	c.Pipeline = app.NewPipeline(pcfg, camera.NewOpener(CameraConfigs(cfg), log), c.codec, pipelineOpts...)
	c.Dispatcher = app.NewResultDispatcher(nil, log, sinks...)
	c.Operators = app.NewOperatorService(storage.NewMemoryOperatorRepository())

	still, ok := scanners[entity.CameraTop]
	if !ok {
		still = app.ScannerConfig{Camera: entity.CameraTop, PlateKind: geometry.KindUnipuck, BarcodeSizes: []int{14}, Retry: retryConfig(cfg.Scanner)}
	}
	c.Still = c.NewStillService(still.PlateKind, still.BarcodeSizes)

	return c, nil
}

// NewStillService сервис сканирования снимков для заданного типа держателя.
func (c *Container) NewStillService(kind geometry.Kind, sizes []int) *app.StillScanService {
	cfg := app.ScannerConfig{
		Camera:       entity.CameraTop,
		PlateKind:    kind,
		BarcodeSizes: sizes,
		Retry:        retryConfig(c.Config.Scanner),
	}
	return app.NewStillScanService(cfg, c.codec, c.renderer, c.scannerOpts...)
}

// NewBot создаёт Telegram-бота и подключает его к уведомлениям диспетчера.
func (c *Container) NewBot() (*telegram.Bot, error) {
	bot, err := telegram.NewBot(c.Config.TelegramToken, c.Operators, c.Pipeline, c.Still, c.Dispatcher, c.log)
	if err != nil {
		return nil, err
	}
	c.Dispatcher.SetNotifier(bot)
	return bot, nil
}

// Close освобождает внешние ресурсы.
func (c *Container) Close() {
	if c.kafka != nil {
		c.kafka.Close()
	}
	if c.preview != nil {
		if err := c.preview.Close(); err != nil {
			c.log.Warn("container: failed to close preview", "error", err)
		}
	}
}

// ScannerConfigs настройки сканера для каждой камеры.
func ScannerConfigs(cfg *config.Config) (map[entity.CameraPosition]app.ScannerConfig, error) {
	out := make(map[entity.CameraPosition]app.ScannerConfig, len(cfg.Cameras))
	for name, cam := range cfg.Cameras {
		pos, err := entity.ParseCameraPosition(name)
		if err != nil {
			return nil, err
		}
		kind, err := geometry.ParseKind(cam.PlateType)
		if err != nil {
			return nil, fmt.Errorf("camera %s: %w", name, err)
		}
		out[pos] = app.ScannerConfig{
			Camera:       pos,
			PlateKind:    kind,
			BarcodeSizes: cam.BarcodeSizes,
			Retry:        retryConfig(cfg.Scanner),
		}
	}
	return out, nil
}

// CameraConfigs настройки камер по положению.
func CameraConfigs(cfg *config.Config) map[entity.CameraPosition]camera.Config {
	out := make(map[entity.CameraPosition]camera.Config, len(cfg.Cameras))
	for name, cam := range cfg.Cameras {
		pos, err := entity.ParseCameraPosition(name)
		if err != nil {
			continue
		}
		out[pos] = camera.Config{
			Device:      cam.Device,
			ReplayDir:   cam.ReplayDir,
			Width:       cam.Width,
			Height:      cam.Height,
			ReadTimeout: cam.ReadTimeout,
			Interval:    cam.Interval,
			Loop:        cam.Loop,
		}
	}
	return out
}

func retryConfig(s config.ScannerConfig) app.RetryConfig {
	return app.RetryConfig{
		FramesBeforeDeep:     s.FramesBeforeDeep,
		SquareScansPerFrame:  s.SquareScansPerFrame,
		ContourScansPerFrame: s.ContourScansPerFrame,
		EmptyBrightnessRatio: s.EmptyBrightnessRatio,
		Seed:                 s.Seed,
	}
}
