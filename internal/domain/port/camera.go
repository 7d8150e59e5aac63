package port

import (
	"context"

	"puck-scanner/internal/domain/entity"
)

// Camera источник кадров. Принадлежит циклу захвата.
type Camera interface {
	// Read блокируется до получения кадра или таймаута камеры.
	Read(ctx context.Context) (entity.Frame, error)
	Close() error
}

// CameraOpener открывает камеру для положения pos.
type CameraOpener interface {
	Open(ctx context.Context, pos entity.CameraPosition) (Camera, error)
}
