package port

import (
	"time"

	"puck-scanner/internal/domain/entity"
)

// PipelineMetrics метрики конвейера кадров.
type PipelineMetrics interface {
	FrameCaptured(pos entity.CameraPosition)
	FrameDropped(pos entity.CameraPosition)
	FrameScanned(pos entity.CameraPosition, elapsed time.Duration, err error)
	TaskQueueDepth(pos entity.CameraPosition, depth int)
	PlateCompleted(pos entity.CameraPosition)
}
