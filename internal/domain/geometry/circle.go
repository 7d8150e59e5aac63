package geometry

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
)

// Circle окружность в координатах кадра (пиксели).
type Circle struct {
	Center r2.Point
	Radius float64
}

// Contains проверяет, лежит ли точка внутри окружности (граница включительно).
func (c Circle) Contains(p r2.Point) bool {
	return Distance(c.Center, p) <= c.Radius
}

// Intersects проверяет пересечение двух окружностей.
func (c Circle) Intersects(o Circle) bool {
	return Distance(c.Center, o.Center) < c.Radius+o.Radius
}

// Rect возвращает квадрат, описанный вокруг окружности, увеличенной в scale раз.
func (c Circle) Rect(scale float64) image.Rectangle {
	r := c.Radius * scale
	return image.Rect(
		int(math.Floor(c.Center.X-r)),
		int(math.Floor(c.Center.Y-r)),
		int(math.Ceil(c.Center.X+r)),
		int(math.Ceil(c.Center.Y+r)),
	)
}

// Distance евклидово расстояние между точками.
func Distance(a, b r2.Point) float64 {
	return a.Sub(b).Norm()
}

func distanceSq(a, b r2.Point) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}

// Centroid среднее арифметическое точек.
func Centroid(points []r2.Point) r2.Point {
	if len(points) == 0 {
		return r2.Point{}
	}
	var sum r2.Point
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float64(len(points)))
}

// InImage проверяет, что точка попадает в границы изображения.
func InImage(p r2.Point, bounds image.Rectangle) bool {
	return image.Pt(int(p.X), int(p.Y)).In(bounds)
}
