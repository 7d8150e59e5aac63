//go:build gocv
// +build gocv

package vision

import (
	"image"

	"github.com/golang/geo/r2"
	"gocv.io/x/gocv"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/geometry"
	"puck-scanner/internal/domain/port"
)

// Locator ищет символы Data Matrix как выпуклые четырёхугольники на бинаризованном кадре.
type Locator struct {
	MinModulePx float64 // минимальный размер модуля в пикселях
	MaxModulePx float64
	BlockSize   int     // окно адаптивного порога, нечётное
	ApproxRatio float64 // точность аппроксимации контура относительно периметра
}

// NewLocator создаёт локатор с порогами по умолчанию.
func NewLocator() *Locator {
	return &Locator{
		MinModulePx: 1.5,
		MaxModulePx: 12,
		BlockSize:   31,
		ApproxRatio: 0.04,
	}
}

// Locate ищет символы. Координаты возвращаются в системе кадра, даже если img вырезан из него.
func (l *Locator) Locate(img *image.Gray, mode port.LocateMode, sizes []int) ([]*entity.Barcode, error) {
	mat, err := gocv.ImageGrayToMatGray(compactGray(img))
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	bin := gocv.NewMat()
	defer bin.Close()

	switch mode {
	case port.LocateWide:
		gocv.AdaptiveThreshold(mat, &bin, 255, gocv.AdaptiveThresholdMean, gocv.ThresholdBinaryInv, l.BlockSize, 7)
	default:
		// Глубокий поиск: размытие, порог Оцу и замыкание, чтобы модули слились в квадрат.
		blur := gocv.NewMat()
		defer blur.Close()
		gocv.GaussianBlur(mat, &blur, image.Pt(5, 5), 0, 0, gocv.BorderDefault)
		gocv.Threshold(blur, &bin, 0, 255, gocv.ThresholdBinaryInv+gocv.ThresholdOtsu)

		kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(5, 5))
		defer kernel.Close()
		gocv.MorphologyEx(bin, &bin, gocv.MorphClose, kernel)
	}

	found := l.squares(bin, sizes, img.Bounds().Min)
	if mode == port.LocateSquare && len(found) > 1 {
		// Прицельный поиск: в вырезке слота ожидается один символ.
		best := found[0]
		for _, bc := range found[1:] {
			if bc.Radius() > best.Radius() {
				best = bc
			}
		}
		found = []*entity.Barcode{best}
	}
	return found, nil
}

func (l *Locator) squares(bin gocv.Mat, sizes []int, offset image.Point) []*entity.Barcode {
	contours := gocv.FindContours(bin, gocv.RetrievalList, gocv.ChainApproxSimple)
	defer contours.Close()

	minSide, maxSide := sideRange(sizes, l.MinModulePx, l.MaxModulePx)
	var out []*entity.Barcode
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		peri := gocv.ArcLength(c, true)
		side := peri / 4
		if side < minSide || side > maxSide {
			continue
		}

		approx := gocv.ApproxPolyDP(c, l.ApproxRatio*peri, true)
		if approx.Size() != 4 || !gocv.IsContourConvex(approx) {
			approx.Close()
			continue
		}
		corners := approx.ToPoints()
		approx.Close()

		// Отсекаем вытянутые четырёхугольники.
		rect := gocv.BoundingRect(c)
		if rect.Dy() == 0 {
			continue
		}
		aspect := float64(rect.Dx()) / float64(rect.Dy())
		if aspect < 0.5 || aspect > 2 {
			continue
		}
		out = append(out, barcodeFromQuad(corners, offset))
	}
	return dedupe(out)
}

// CircleFinder ищет пустые слоты преобразованием Хафа.
type CircleFinder struct {
	MinDistRatio float64 // минимальное расстояние между центрами относительно радиуса
	Canny        float64
	Accumulator  float64
}

func NewCircleFinder() *CircleFinder {
	return &CircleFinder{MinDistRatio: 1.5, Canny: 100, Accumulator: 30}
}

// FindCircles ищет окружности радиуса около radius.
func (f *CircleFinder) FindCircles(img *image.Gray, radius float64) ([]geometry.Circle, error) {
	mat, err := gocv.ImageGrayToMatGray(compactGray(img))
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	blur := gocv.NewMat()
	defer blur.Close()
	gocv.MedianBlur(mat, &blur, 5)

	circles := gocv.NewMat()
	defer circles.Close()
	gocv.HoughCirclesWithParams(blur, &circles, gocv.HoughGradient, 1, radius*f.MinDistRatio,
		f.Canny, f.Accumulator, int(radius*0.7), int(radius*1.5))

	offset := img.Bounds().Min
	out := make([]geometry.Circle, 0, circles.Cols())
	for i := 0; i < circles.Cols(); i++ {
		v := circles.GetVecfAt(0, i)
		if len(v) < 3 {
			continue
		}
		out = append(out, geometry.Circle{
			Center: r2.Point{X: float64(v[0]) + float64(offset.X), Y: float64(v[1]) + float64(offset.Y)},
			Radius: float64(v[2]),
		})
	}
	return out, nil
}
