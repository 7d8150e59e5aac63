package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/geometry"
)

type Config struct {
	TelegramToken string                  `yaml:"telegram_token"`
	Scanner       ScannerConfig           `yaml:"scanner"`
	Pipeline      PipelineConfig          `yaml:"pipeline"`
	Cameras       map[string]CameraConfig `yaml:"cameras"`
	Metrics       MetricsConfig           `yaml:"metrics"`
	Kafka         KafkaConfig             `yaml:"kafka"`
	Debug         DebugConfig             `yaml:"debug"`
	Preview       PreviewConfig           `yaml:"preview"`
}

// ScannerConfig параметры повторного поиска штрихкодов.
type ScannerConfig struct {
	FramesBeforeDeep     int     `yaml:"frames_before_deep"`
	SquareScansPerFrame  int     `yaml:"square_scans_per_frame"`
	ContourScansPerFrame int     `yaml:"contour_scans_per_frame"`
	EmptyBrightnessRatio float64 `yaml:"empty_brightness_ratio"`
	Seed                 int64   `yaml:"seed"`
}

type PipelineConfig struct {
	SampleInterval   time.Duration `yaml:"sample_interval"`
	NoPuckGrace      time.Duration `yaml:"no_puck_grace"`
	OverlayLifetime  time.Duration `yaml:"overlay_lifetime"`
	ResultQueueSize  int           `yaml:"result_queue_size"`
	MessageQueueSize int           `yaml:"message_queue_size"`
}

// CameraConfig камера на одном положении и держатель, который она видит.
type CameraConfig struct {
	Device       string        `yaml:"device"`
	ReplayDir    string        `yaml:"replay_dir"`
	Width        int           `yaml:"width"`
	Height       int           `yaml:"height"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	Interval     time.Duration `yaml:"interval"`
	Loop         bool          `yaml:"loop"`
	PlateType    string        `yaml:"plate_type"`
	BarcodeSizes []int         `yaml:"barcode_sizes"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // пусто: без /metrics
}

type KafkaConfig struct {
	BootstrapServers string `yaml:"bootstrap_servers"` // пусто: без Kafka
	Topic            string `yaml:"topic"`
	ClientID         string `yaml:"client_id"`
	Acks             string `yaml:"acks"`
}

type DebugConfig struct {
	Dir string `yaml:"dir"` // пусто: вырезки не сохраняются
}

type PreviewConfig struct {
	Enabled bool   `yaml:"enabled"`
	Title   string `yaml:"title"`
}

// Default конфигурация без файла и переменных окружения.
func Default() *Config {
	return &Config{
		Scanner: ScannerConfig{
			FramesBeforeDeep:     3,
			SquareScansPerFrame:  1,
			ContourScansPerFrame: 1,
			EmptyBrightnessRatio: 5,
		},
		Pipeline: PipelineConfig{
			SampleInterval:   100 * time.Millisecond,
			NoPuckGrace:      time.Second,
			OverlayLifetime:  time.Second,
			ResultQueueSize:  16,
			MessageQueueSize: 16,
		},
		Cameras: map[string]CameraConfig{
			string(entity.CameraTop):  {Device: "0"},
			string(entity.CameraSide): {Device: "1"},
		},
		Kafka: KafkaConfig{
			Topic:    "puck-scanner.plates",
			ClientID: "puck-scanner",
			Acks:     "all",
		},
		Preview: PreviewConfig{Title: "puck-scanner"},
	}
}

// Load собирает конфигурацию: значения по умолчанию, YAML-файл (path или PUCK_CONFIG),
// затем переменные окружения.
func Load(path string) (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("PUCK_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.fillCameraDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.TelegramToken = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("KAFKA_BOOTSTRAP_SERVERS"); v != "" {
		c.Kafka.BootstrapServers = v
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("PUCK_DEBUG_DIR"); v != "" {
		c.Debug.Dir = v
	}
}

func (c *Config) fillCameraDefaults() {
	for name, cam := range c.Cameras {
		if cam.PlateType == "" {
			cam.PlateType = string(geometry.KindUnipuck)
		}
		if len(cam.BarcodeSizes) == 0 {
			cam.BarcodeSizes = []int{14}
		}
		c.Cameras[name] = cam
	}
}

// Validate проверяет согласованность конфигурации.
func (c *Config) Validate() error {
	var errs []error

	p := c.Pipeline
	if p.SampleInterval <= 0 {
		errs = append(errs, errors.New("pipeline.sample_interval must be positive"))
	}
	if p.NoPuckGrace <= 0 {
		errs = append(errs, errors.New("pipeline.no_puck_grace must be positive"))
	}
	if p.OverlayLifetime <= 0 {
		errs = append(errs, errors.New("pipeline.overlay_lifetime must be positive"))
	}
	if p.ResultQueueSize <= 0 || p.MessageQueueSize <= 0 {
		errs = append(errs, errors.New("pipeline queue sizes must be positive"))
	}

	s := c.Scanner
	if s.FramesBeforeDeep < 0 || s.SquareScansPerFrame < 0 || s.ContourScansPerFrame < 0 {
		errs = append(errs, errors.New("scanner budgets must not be negative"))
	}
	if s.EmptyBrightnessRatio <= 0 {
		errs = append(errs, errors.New("scanner.empty_brightness_ratio must be positive"))
	}

	for name, cam := range c.Cameras {
		if _, err := entity.ParseCameraPosition(name); err != nil {
			errs = append(errs, fmt.Errorf("cameras: %w", err))
		}
		if _, err := geometry.ParseKind(cam.PlateType); err != nil {
			errs = append(errs, fmt.Errorf("cameras.%s: %w", name, err))
		}
		if strings.TrimSpace(cam.Device) == "" && cam.ReplayDir == "" {
			errs = append(errs, fmt.Errorf("cameras.%s: device or replay_dir is required", name))
		}
		for _, size := range cam.BarcodeSizes {
			if size <= 0 {
				errs = append(errs, fmt.Errorf("cameras.%s: barcode size %d must be positive", name, size))
			}
		}
	}

	if c.Kafka.BootstrapServers != "" && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required with bootstrap servers"))
	}

	return errors.Join(errs...)
}
