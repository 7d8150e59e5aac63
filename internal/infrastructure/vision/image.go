package vision

import (
	"errors"
	"image"
	"math"

	"github.com/golang/geo/r2"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/geometry"
)

var errNotEnabled = errors.New("gocv build tag is not enabled")

// compactGray копирует изображение в плотный буфер с началом в (0, 0).
// Вырезки через SubImage делят буфер с кадром, а OpenCV ждёт Stride == ширине.
func compactGray(img *image.Gray) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):img.PixOffset(b.Max.X, b.Min.Y+y)]
		copy(out.Pix[y*out.Stride:], src)
	}
	return out
}

// cropAround вырезает квадрат вокруг окружности, координаты остаются кадровыми.
func cropAround(img *image.Gray, c geometry.Circle, scale float64) *image.Gray {
	rect := c.Rect(scale).Intersect(img.Bounds())
	if rect.Empty() {
		return nil
	}
	return img.SubImage(rect).(*image.Gray)
}

// barcodeFromQuad строит штрихкод по четырём углам символа, сдвинутым на offset.
func barcodeFromQuad(corners []image.Point, offset image.Point) *entity.Barcode {
	pts := make([]r2.Point, len(corners))
	for i, c := range corners {
		pts[i] = r2.Point{X: float64(c.X + offset.X), Y: float64(c.Y + offset.Y)}
	}
	center := geometry.Centroid(pts)
	var radius float64
	for _, p := range pts {
		radius = math.Max(radius, geometry.Distance(p, center))
	}
	return entity.NewBarcode(center, radius, pts...)
}

// dedupe убирает вложенные контуры одного символа, оставляя больший.
func dedupe(barcodes []*entity.Barcode) []*entity.Barcode {
	var out []*entity.Barcode
	for _, bc := range barcodes {
		merged := false
		for i, kept := range out {
			if geometry.Distance(bc.Center(), kept.Center()) < math.Max(bc.Radius(), kept.Radius())/2 {
				if bc.Radius() > kept.Radius() {
					out[i] = bc
				}
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, bc)
		}
	}
	return out
}

// sideRange допустимая длина стороны символа в пикселях для размеров в модулях.
func sideRange(sizes []int, minModule, maxModule float64) (float64, float64) {
	if len(sizes) == 0 {
		return 0, math.Inf(1)
	}
	lo, hi := math.Inf(1), 0.0
	for _, s := range sizes {
		lo = math.Min(lo, float64(s)*minModule)
		hi = math.Max(hi, float64(s)*maxModule)
	}
	return lo, hi
}
