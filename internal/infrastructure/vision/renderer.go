//go:build gocv
// +build gocv

package vision

import (
	"errors"
	"image"
	"image/color"
	"strconv"

	"gocv.io/x/gocv"

	"puck-scanner/internal/domain/entity"
)

var (
	green  = color.RGBA{G: 255, A: 255}
	red    = color.RGBA{R: 255, A: 255}
	yellow = color.RGBA{R: 255, G: 255, A: 255}
	gray   = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

func slotColor(s entity.SlotState) color.RGBA {
	switch s {
	case entity.SlotValid:
		return green
	case entity.SlotUnreadable:
		return red
	case entity.SlotEmpty:
		return gray
	default:
		return yellow
	}
}

// drawOverlay рисует границы слотов, их номера и счётчик.
func drawOverlay(mat *gocv.Mat, overlay entity.Overlay) {
	for _, s := range overlay.Slots {
		c := image.Pt(int(s.Bounds.Center.X), int(s.Bounds.Center.Y))
		col := slotColor(s.State)
		gocv.Circle(mat, c, int(s.Bounds.Radius), col, 2)
		gocv.PutText(mat, strconv.Itoa(s.Number), c.Add(image.Pt(-6, 5)), gocv.FontHersheySimplex, 0.5, col, 1)
	}
	if overlay.Text != "" {
		gocv.PutText(mat, overlay.Text, image.Pt(10, 30), gocv.FontHersheySimplex, 1, green, 2)
	}
}

// Renderer рисует подсветку держателя на снимке.
type Renderer struct {
	Quality int
}

func NewRenderer() *Renderer {
	return &Renderer{Quality: 90}
}

// Highlight рисует подсветку и возвращает JPEG.
func (r *Renderer) Highlight(img image.Image, overlay entity.Overlay) ([]byte, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.New("empty image")
	}

	drawOverlay(&mat, overlay)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, r.Quality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}
