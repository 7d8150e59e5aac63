//go:build !gocv
// +build !gocv

package vision

import (
	"image"

	"puck-scanner/internal/domain/entity"
)

type Renderer struct {
	Quality int
}

// NewRenderer создаёт рендерер-заглушку (без OpenCV).
func NewRenderer() *Renderer {
	return &Renderer{Quality: 90}
}

// Highlight возвращает ошибку, если сборка без тега gocv.
func (r *Renderer) Highlight(img image.Image, overlay entity.Overlay) ([]byte, error) {
	_ = img
	_ = overlay
	return nil, errNotEnabled
}
