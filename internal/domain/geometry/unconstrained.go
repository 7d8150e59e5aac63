package geometry

import (
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r2"
)

const (
	// MaxUnconstrainedSlots предел слотов для держателя без шаблона.
	MaxUnconstrainedSlots = 64
	// singleSlotRadius радиус слота, когда найдена только одна точка.
	singleSlotRadius = 32.0
)

// UnconstrainedGeometry геометрия без шаблона: слот на каждую найденную точку,
// нумерация сверху вниз и слева направо.
type UnconstrainedGeometry struct {
	center r2.Point
	radius float64
	slots  []Circle
}

// NewUnconstrained строит геометрию без шаблона. Радиус слота равен половине
// расстояния до ближайшего соседа, поэтому слоты не пересекаются.
func NewUnconstrained(points []r2.Point) (*UnconstrainedGeometry, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: got 0 points", ErrTooFewPoints)
	}
	if len(points) > MaxUnconstrainedSlots {
		return nil, fmt.Errorf("%w: got %d, limit is %d", ErrTooManyPoints, len(points), MaxUnconstrainedSlots)
	}

	slotRadius := singleSlotRadius
	if len(points) > 1 {
		slotRadius = math.Inf(1)
		for i := range points {
			for j := i + 1; j < len(points); j++ {
				slotRadius = math.Min(slotRadius, Distance(points[i], points[j])/2)
			}
		}
	}

	ordered := readingOrder(points, slotRadius)
	slots := make([]Circle, len(ordered))
	for i, p := range ordered {
		slots[i] = Circle{Center: p, Radius: slotRadius}
	}

	center := Centroid(points)
	var radius float64
	for _, p := range points {
		radius = math.Max(radius, Distance(p, center)+slotRadius)
	}

	return &UnconstrainedGeometry{center: center, radius: radius, slots: slots}, nil
}

// readingOrder сортирует точки по строкам (сверху вниз), внутри строки слева направо.
func readingOrder(points []r2.Point, rowHeight float64) []r2.Point {
	sorted := make([]r2.Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	result := make([]r2.Point, 0, len(sorted))
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) && sorted[end].Y-sorted[start].Y < rowHeight {
			end++
		}
		row := sorted[start:end]
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		result = append(result, row...)
		start = end
	}
	return result
}

func (g *UnconstrainedGeometry) Kind() Kind        { return KindUnconstrained }
func (g *UnconstrainedGeometry) SlotCount() int    { return len(g.slots) }
func (g *UnconstrainedGeometry) Center() r2.Point  { return g.center }
func (g *UnconstrainedGeometry) Radius() float64   { return g.radius }
func (g *UnconstrainedGeometry) Rotation() float64 { return 0 }

func (g *UnconstrainedGeometry) SlotBounds(slot int) Circle {
	if slot < 1 || slot > len(g.slots) {
		return Circle{}
	}
	return g.slots[slot-1]
}

func (g *UnconstrainedGeometry) ContainingSlot(p r2.Point) int {
	for i, s := range g.slots {
		if s.Contains(p) {
			return i + 1
		}
	}
	return 0
}

func (g *UnconstrainedGeometry) Transform(t Similarity) Geometry {
	slots := make([]Circle, len(g.slots))
	for i, s := range g.slots {
		slots[i] = Circle{Center: t.Apply(s.Center), Radius: s.Radius * t.Scale}
	}
	return &UnconstrainedGeometry{
		center: t.Apply(g.center),
		radius: g.radius * t.Scale,
		slots:  slots,
	}
}
