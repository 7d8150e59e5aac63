package geometry

import (
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/optimize"
)

const (
	// UnipuckSlots количество слотов юнипака.
	UnipuckSlots = 16
	// MinAlignPoints минимальное количество точек для выравнивания юнипака.
	MinAlignPoints = 6

	// fitTolerance допустимая средняя квадратичная ошибка на точку,
	// нормированная на квадрат радиуса пака.
	fitTolerance = 0.003

	coarseStepDeg = 2.0
	fineStepDeg   = 0.1
	fineSpanDeg   = 2.0
)

type ring struct {
	count  int
	radius float64 // доля от радиуса пака
}

// template относительная раскладка слотов держателя.
type template struct {
	rings      []ring
	slotRadius float64 // доля от радиуса пака
}

var unipuckTemplate = template{
	rings: []ring{
		{count: 5, radius: 0.371},
		{count: 11, radius: 0.788},
	},
	slotRadius: 0.197,
}

func (t template) slotCount() int {
	n := 0
	for _, r := range t.rings {
		n += r.count
	}
	return n
}

// outerRatio отношение радиуса внешнего кольца к радиусу пака.
func (t template) outerRatio() float64 {
	return t.rings[len(t.rings)-1].radius
}

// slotCenters центры слотов по порядку номеров: сначала внутреннее кольцо.
// Первый слот каждого кольца при нулевом повороте находится сверху.
func (t template) slotCenters(center r2.Point, radius, rotation float64) []r2.Point {
	centers := make([]r2.Point, 0, t.slotCount())
	for _, r := range t.rings {
		for i := 0; i < r.count; i++ {
			a := rotation - math.Pi/2 + 2*math.Pi*float64(i)/float64(r.count)
			centers = append(centers, r2.Point{
				X: center.X + r.radius*radius*math.Cos(a),
				Y: center.Y + r.radius*radius*math.Sin(a),
			})
		}
	}
	return centers
}

// alignmentError сумма квадратов расстояний от точек до ближайших центров слотов.
// Слоты не пересекаются, поэтому поиск останавливается, как только точка попала в слот.
func (t template) alignmentError(points []r2.Point, center r2.Point, radius, rotation float64) float64 {
	slots := t.slotCenters(center, radius, rotation)
	limit := t.slotRadius * radius
	limit *= limit

	var sse float64
	for _, p := range points {
		best := math.Inf(1)
		for _, s := range slots {
			d := distanceSq(p, s)
			if d < best {
				best = d
			}
			if d < limit {
				break
			}
		}
		sse += best
	}
	return sse
}

// fitRotation перебирает углы поворота и возвращает лучший угол и
// нормированную ошибку на точку.
func (t template) fitRotation(points []r2.Point, center r2.Point, radius float64) (float64, float64) {
	best := math.Inf(1)
	var rotation float64
	for deg := -180.0; deg < 180.0; deg += coarseStepDeg {
		a := deg * math.Pi / 180
		if e := t.alignmentError(points, center, radius, a); e < best {
			best, rotation = e, a
		}
	}

	coarse := rotation
	steps := int(fineSpanDeg / fineStepDeg)
	for i := -steps; i <= steps; i++ {
		a := coarse + float64(i)*fineStepDeg*math.Pi/180
		if e := t.alignmentError(points, center, radius, a); e < best {
			best, rotation = e, a
		}
	}

	return normalizeAngle(rotation), best / float64(len(points)) / (radius * radius)
}

// UnipuckGeometry выровненная геометрия юнипака.
type UnipuckGeometry struct {
	center   r2.Point
	radius   float64
	rotation float64
	slots    []Circle
}

// NewUnipuck строит геометрию юнипака по центру, радиусу и повороту (радианы).
func NewUnipuck(center r2.Point, radius, rotation float64) *UnipuckGeometry {
	centers := unipuckTemplate.slotCenters(center, radius, rotation)
	slots := make([]Circle, len(centers))
	for i, c := range centers {
		slots[i] = Circle{Center: c, Radius: unipuckTemplate.slotRadius * radius}
	}
	return &UnipuckGeometry{
		center:   center,
		radius:   radius,
		rotation: normalizeAngle(rotation),
		slots:    slots,
	}
}

// AlignUnipuck вычисляет геометрию юнипака по найденным центрам слотов.
func AlignUnipuck(points []r2.Point) (*UnipuckGeometry, error) {
	if len(points) < MinAlignPoints {
		return nil, fmt.Errorf("%w: got %d, need at least %d", ErrTooFewPoints, len(points), MinAlignPoints)
	}
	if len(points) > UnipuckSlots {
		return nil, fmt.Errorf("%w: got %d, template has %d slots", ErrTooManyPoints, len(points), UnipuckSlots)
	}

	centroid := Centroid(points)
	groups := partitionRings(points, centroid)
	center := fitCenter(centroid, groups)

	outer := groups[len(groups)-1]
	radius := median(distancesFrom(outer, center)) / unipuckTemplate.outerRatio()
	if radius <= 0 || math.IsNaN(radius) {
		return nil, fmt.Errorf("%w: degenerate radius", ErrAlignmentFailed)
	}

	rotation, fitErr := unipuckTemplate.fitRotation(points, center, radius)
	if fitErr > fitTolerance {
		return nil, fmt.Errorf("%w: fit error %.4f exceeds %.4f", ErrAlignmentFailed, fitErr, fitTolerance)
	}

	return NewUnipuck(center, radius, rotation), nil
}

// partitionRings делит точки на внутреннее и внешнее кольцо. Отсортированный
// по расстоянию список разрезается на первой точке, которая ближе к среднему
// второй группы, чем к среднему первой. Пропуски внутри кольца не мешают разбиению.
func partitionRings(points []r2.Point, center r2.Point) [][]r2.Point {
	sorted := make([]r2.Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		return distanceSq(sorted[i], center) < distanceSq(sorted[j], center)
	})
	d := distancesFrom(sorted, center)

	for k := 1; k < len(d); k++ {
		first := mean(d[:k])
		second := mean(d[k:])
		if math.Abs(d[k]-second) < math.Abs(d[k]-first) {
			return [][]r2.Point{sorted[:k], sorted[k:]}
		}
	}
	return [][]r2.Point{sorted}
}

// ringDeviation сумма квадратов отклонений расстояний точек от среднего
// расстояния своей группы.
func ringDeviation(center r2.Point, groups [][]r2.Point) float64 {
	var total float64
	for _, g := range groups {
		d := distancesFrom(g, center)
		m := mean(d)
		for _, v := range d {
			total += (v - m) * (v - m)
		}
	}
	return total
}

// fitCenter ищет центр, равноудалённый от точек каждой группы (Нелдер–Мид).
func fitCenter(seed r2.Point, groups [][]r2.Point) r2.Point {
	var all []r2.Point
	for _, g := range groups {
		all = append(all, g...)
	}
	step := mean(distancesFrom(all, seed)) / 10
	if step <= 0 {
		return seed
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return ringDeviation(r2.Point{X: x[0], Y: x[1]}, groups)
		},
	}
	res, err := optimize.Minimize(problem, []float64{seed.X, seed.Y}, nil, &optimize.NelderMead{SimplexSize: step})
	if res == nil || len(res.X) != 2 {
		return seed
	}
	found := r2.Point{X: res.X[0], Y: res.X[1]}
	if err != nil && ringDeviation(found, groups) > ringDeviation(seed, groups) {
		return seed
	}
	return found
}

func (g *UnipuckGeometry) Kind() Kind        { return KindUnipuck }
func (g *UnipuckGeometry) SlotCount() int    { return len(g.slots) }
func (g *UnipuckGeometry) Center() r2.Point  { return g.center }
func (g *UnipuckGeometry) Radius() float64   { return g.radius }
func (g *UnipuckGeometry) Rotation() float64 { return g.rotation }

func (g *UnipuckGeometry) SlotBounds(slot int) Circle {
	if slot < 1 || slot > len(g.slots) {
		return Circle{}
	}
	return g.slots[slot-1]
}

func (g *UnipuckGeometry) ContainingSlot(p r2.Point) int {
	for i, s := range g.slots {
		if s.Contains(p) {
			return i + 1
		}
	}
	return 0
}

func (g *UnipuckGeometry) Transform(t Similarity) Geometry {
	return NewUnipuck(t.Apply(g.center), g.radius*t.Scale, g.rotation+t.Angle)
}

func distancesFrom(points []r2.Point, center r2.Point) []float64 {
	d := make([]float64, len(points))
	for i, p := range points {
		d[i] = Distance(p, center)
	}
	return d
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}
