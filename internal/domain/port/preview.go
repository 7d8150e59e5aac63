package port

import (
	"image"

	"puck-scanner/internal/domain/entity"
)

// Preview живое превью камеры с подсветкой.
type Preview interface {
	// Show отображает кадр; overlay может быть nil.
	Show(frame entity.Frame, overlay *entity.Overlay)
}

// OverlayRenderer рисует подсветку держателя и кодирует результат в JPEG.
type OverlayRenderer interface {
	Highlight(img image.Image, overlay entity.Overlay) ([]byte, error)
}
