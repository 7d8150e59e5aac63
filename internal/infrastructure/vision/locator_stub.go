//go:build !gocv
// +build !gocv

package vision

import (
	"image"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/geometry"
	"puck-scanner/internal/domain/port"
)

type Locator struct {
	MinModulePx float64
	MaxModulePx float64
	BlockSize   int
	ApproxRatio float64
}

// NewLocator создаёт локатор-заглушку (без OpenCV).
func NewLocator() *Locator {
	return &Locator{
		MinModulePx: 1.5,
		MaxModulePx: 12,
		BlockSize:   31,
		ApproxRatio: 0.04,
	}
}

// Locate возвращает ошибку, если сборка без тега gocv.
func (l *Locator) Locate(img *image.Gray, mode port.LocateMode, sizes []int) ([]*entity.Barcode, error) {
	_ = img
	_ = mode
	_ = sizes
	return nil, errNotEnabled
}

type CircleFinder struct {
	MinDistRatio float64
	Canny        float64
	Accumulator  float64
}

func NewCircleFinder() *CircleFinder {
	return &CircleFinder{MinDistRatio: 1.5, Canny: 100, Accumulator: 30}
}

// FindCircles возвращает ошибку, если сборка без тега gocv.
func (f *CircleFinder) FindCircles(img *image.Gray, radius float64) ([]geometry.Circle, error) {
	_ = img
	_ = radius
	return nil, errNotEnabled
}
