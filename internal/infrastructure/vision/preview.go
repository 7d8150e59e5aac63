//go:build gocv
// +build gocv

package vision

import (
	"log/slog"

	"gocv.io/x/gocv"

	"puck-scanner/internal/domain/entity"
)

// WindowPreview окно OpenCV с живым видео и подсветкой.
type WindowPreview struct {
	window *gocv.Window
	log    *slog.Logger
}

// NewWindowPreview открывает окно с заданным заголовком.
func NewWindowPreview(title string, log *slog.Logger) (*WindowPreview, error) {
	if log == nil {
		log = slog.Default()
	}
	return &WindowPreview{window: gocv.NewWindow(title), log: log}, nil
}

// Show рисует кадр; вызывается только из цикла захвата.
func (p *WindowPreview) Show(frame entity.Frame, overlay *entity.Overlay) {
	if frame.Image == nil {
		return
	}
	gray, err := gocv.ImageGrayToMatGray(compactGray(frame.Image))
	if err != nil {
		p.log.Warn("preview: failed to convert frame", "error", err)
		return
	}
	defer gray.Close()

	mat := gocv.NewMat()
	defer mat.Close()
	gocv.CvtColor(gray, &mat, gocv.ColorGrayToBGR)

	if overlay != nil {
		drawOverlay(&mat, *overlay)
	}
	p.window.IMShow(mat)
	p.window.WaitKey(1)
}

func (p *WindowPreview) Close() error {
	return p.window.Close()
}
