//go:build !gocv
// +build !gocv

package camera

import (
	"context"

	"puck-scanner/internal/domain/entity"
)

type DeviceCamera struct{}

// OpenDevice возвращает ошибку, если сборка без тега gocv.
func OpenDevice(ctx context.Context, cfg Config) (*DeviceCamera, error) {
	_ = ctx
	_ = cfg
	return nil, errNotEnabled
}

func (c *DeviceCamera) Read(ctx context.Context) (entity.Frame, error) {
	_ = ctx
	return entity.Frame{}, errNotEnabled
}

func (c *DeviceCamera) Close() error { return nil }
