package geometry

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/golang/geo/r2"
)

// minPairDistance минимальное расстояние между опорными точками, при котором
// преобразование по двум парам считается определённым.
const minPairDistance = 1.0

// Similarity преобразование подобия: поворот, масштаб и сдвиг.
// Точка p переходит в Scale*R(Angle)*p + Offset.
type Similarity struct {
	Scale  float64
	Angle  float64 // радианы
	Offset r2.Point
}

// Identity тождественное преобразование.
func Identity() Similarity {
	return Similarity{Scale: 1}
}

// SimilarityFromPairs вычисляет преобразование, переводящее from1 в to1 и from2 в to2.
func SimilarityFromPairs(from1, from2, to1, to2 r2.Point) (Similarity, error) {
	z1, z2 := toComplex(from1), toComplex(from2)
	w1, w2 := toComplex(to1), toComplex(to2)

	d := z2 - z1
	if cmplx.Abs(d) < minPairDistance || cmplx.Abs(w2-w1) < minPairDistance {
		return Similarity{}, fmt.Errorf("%w: reference points are too close", ErrDegeneratePairs)
	}

	a := (w2 - w1) / d
	b := w1 - a*z1
	return Similarity{
		Scale:  cmplx.Abs(a),
		Angle:  cmplx.Phase(a),
		Offset: r2.Point{X: real(b), Y: imag(b)},
	}, nil
}

// Apply применяет преобразование к точке.
func (t Similarity) Apply(p r2.Point) r2.Point {
	z := cmplx.Rect(t.Scale, t.Angle)*toComplex(p) + toComplex(t.Offset)
	return r2.Point{X: real(z), Y: imag(z)}
}

// IsIdentity проверяет, что преобразование практически ничего не меняет.
func (t Similarity) IsIdentity(eps float64) bool {
	return math.Abs(t.Scale-1) < eps && math.Abs(t.Angle) < eps && t.Offset.Norm() < eps
}

func toComplex(p r2.Point) complex128 {
	return complex(p.X, p.Y)
}

// normalizeAngle приводит угол к диапазону (-π, π].
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
