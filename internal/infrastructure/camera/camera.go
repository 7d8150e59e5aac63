// Package camera источники кадров: USB/IP-камеры через OpenCV и повтор снимков из каталога.
package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/port"
)

var errNotEnabled = errors.New("gocv build tag is not enabled")

// Config источник кадров для одного положения камеры.
type Config struct {
	Device      string // индекс устройства или URL потока
	ReplayDir   string // каталог со снимками вместо устройства
	Width       int    // 0: разрешение устройства по умолчанию
	Height      int
	ReadTimeout time.Duration // ограничение на чтение одного кадра
	Interval    time.Duration // пауза между снимками при повторе
	Loop        bool          // повторять каталог по кругу
}

// Opener открывает камеры по положению.
type Opener struct {
	cameras map[entity.CameraPosition]Config
	log     *slog.Logger
}

func NewOpener(cameras map[entity.CameraPosition]Config, log *slog.Logger) *Opener {
	if log == nil {
		log = slog.Default()
	}
	return &Opener{cameras: cameras, log: log}
}

// Open открывает камеру положения pos.
func (o *Opener) Open(ctx context.Context, pos entity.CameraPosition) (port.Camera, error) {
	cfg, ok := o.cameras[pos]
	if !ok {
		return nil, fmt.Errorf("camera %q is not configured", pos)
	}
	if cfg.ReplayDir != "" {
		o.log.Info("camera: replaying images", "camera", pos, "dir", cfg.ReplayDir)
		cam, err := OpenReplay(cfg.ReplayDir, cfg.Interval, cfg.Loop)
		if err != nil {
			return nil, err
		}
		return cam, nil
	}

	o.log.Info("camera: opening device", "camera", pos, "device", cfg.Device)
	cam, err := OpenDevice(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return cam, nil
}

var _ port.CameraOpener = (*Opener)(nil)
