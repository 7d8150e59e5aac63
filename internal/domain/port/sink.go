package port

import (
	"context"

	"puck-scanner/internal/domain/entity"
)

// PlateSink получатель отчётов о готовых держателях.
type PlateSink interface {
	PublishPlate(ctx context.Context, report entity.PlateReport) error
}

// Notifier доставка текстовых уведомлений операторам.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
