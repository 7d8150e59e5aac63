// Package geometry вычисляет положение, размер и поворот держателя (пака)
// по найденным центрам слотов и отображает точки кадра в номера слотов.
package geometry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang/geo/r2"
)

// Kind тип держателя.
type Kind string

const (
	KindUnipuck       Kind = "unipuck"       // юнипак: 16 слотов в двух кольцах
	KindUnconstrained Kind = "unconstrained" // без шаблона: слот на каждый штрихкод
)

var (
	ErrTooFewPoints    = errors.New("too few points to align geometry")
	ErrTooManyPoints   = errors.New("too many points to align geometry")
	ErrAlignmentFailed = errors.New("geometry alignment failed")
	ErrDegeneratePairs = errors.New("degenerate point pairs")
	ErrUnknownKind     = errors.New("unknown plate type")
)

// Geometry отображение координат кадра в логические слоты держателя.
// Значения неизменяемы: каждый кадр получает новую геометрию.
type Geometry interface {
	Kind() Kind
	// SlotCount количество слотов.
	SlotCount() int
	// SlotBounds окружность слота с номером slot (1..SlotCount).
	SlotBounds(slot int) Circle
	// ContainingSlot номер слота, содержащего точку, или 0.
	ContainingSlot(p r2.Point) int
	Center() r2.Point
	Radius() float64
	Rotation() float64
	// Transform возвращает геометрию, перенесённую преобразованием t.
	Transform(t Similarity) Geometry
}

// ParseKind разбирает строковое имя типа держателя.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindUnipuck:
		return KindUnipuck, nil
	case KindUnconstrained, "none", "":
		return KindUnconstrained, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Compute строит геометрию заданного типа по центрам слотов.
func Compute(kind Kind, points []r2.Point) (Geometry, error) {
	switch kind {
	case KindUnipuck:
		g, err := AlignUnipuck(points)
		if err != nil {
			return nil, err
		}
		return g, nil
	case KindUnconstrained:
		g, err := NewUnconstrained(points)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// SlotCount максимальное количество слотов для типа держателя.
func SlotCount(kind Kind) int {
	switch kind {
	case KindUnipuck:
		return UnipuckSlots
	case KindUnconstrained:
		return MaxUnconstrainedSlots
	}
	return 0
}

// MinPoints минимальное количество точек, нужное для выравнивания.
func MinPoints(kind Kind) int {
	if kind == KindUnipuck {
		return MinAlignPoints
	}
	return 1
}
