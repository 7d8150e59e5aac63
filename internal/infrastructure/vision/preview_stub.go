//go:build !gocv
// +build !gocv

package vision

import (
	"log/slog"

	"puck-scanner/internal/domain/entity"
)

type WindowPreview struct{}

// NewWindowPreview возвращает ошибку, если сборка без тега gocv.
func NewWindowPreview(title string, log *slog.Logger) (*WindowPreview, error) {
	_ = title
	_ = log
	return nil, errNotEnabled
}

func (p *WindowPreview) Show(frame entity.Frame, overlay *entity.Overlay) {}

func (p *WindowPreview) Close() error { return nil }
