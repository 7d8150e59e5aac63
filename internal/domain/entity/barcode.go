package entity

import (
	"github.com/golang/geo/r2"

	"puck-scanner/internal/domain/geometry"
)

// BarcodeState состояние чтения штрихкода.
type BarcodeState int

const (
	BarcodeUnread     BarcodeState = iota // ещё не декодировался
	BarcodeValid                          // успешно прочитан
	BarcodeUnreadable                     // декодирование не удалось
)

func (s BarcodeState) String() string {
	switch s {
	case BarcodeValid:
		return "valid"
	case BarcodeUnreadable:
		return "unreadable"
	default:
		return "unread"
	}
}

// Barcode найденный в кадре штрихкод Data Matrix.
// Прочитанный штрихкод повторно не декодируется.
type Barcode struct {
	center  r2.Point
	radius  float64
	corners []r2.Point
	state   BarcodeState
	data    string
}

// NewBarcode создаёт непрочитанный штрихкод с центром и радиусом описанной окружности.
func NewBarcode(center r2.Point, radius float64, corners ...r2.Point) *Barcode {
	return &Barcode{
		center:  center,
		radius:  radius,
		corners: append([]r2.Point(nil), corners...),
	}
}

func (b *Barcode) Center() r2.Point    { return b.center }
func (b *Barcode) Radius() float64     { return b.radius }
func (b *Barcode) State() BarcodeState { return b.state }
func (b *Barcode) Data() string        { return b.data }

// Corners углы символа в координатах кадра (если локатор их вернул).
func (b *Barcode) Corners() []r2.Point {
	return append([]r2.Point(nil), b.corners...)
}

// Bounds окружность, описанная вокруг символа.
func (b *Barcode) Bounds() geometry.Circle {
	return geometry.Circle{Center: b.center, Radius: b.radius}
}

func (b *Barcode) IsValid() bool { return b.state == BarcodeValid }

// IsRead true, если декодирование уже выполнялось.
func (b *Barcode) IsRead() bool { return b.state != BarcodeUnread }

// SetData фиксирует успешное чтение. Уже прочитанные данные не перезаписываются.
func (b *Barcode) SetData(data string) {
	if b.state == BarcodeValid {
		return
	}
	b.state = BarcodeValid
	b.data = data
}

// SetUnreadable фиксирует неудачное чтение.
func (b *Barcode) SetUnreadable() {
	if b.state == BarcodeValid {
		return
	}
	b.state = BarcodeUnreadable
}

// Shifted возвращает непрочитанную копию, сдвинутую на (dx, dy) пикселей.
func (b *Barcode) Shifted(dx, dy float64) *Barcode {
	shift := r2.Point{X: dx, Y: dy}
	corners := make([]r2.Point, len(b.corners))
	for i, c := range b.corners {
		corners[i] = c.Add(shift)
	}
	return &Barcode{center: b.center.Add(shift), radius: b.radius, corners: corners}
}

// Clone глубокая копия.
func (b *Barcode) Clone() *Barcode {
	c := *b
	c.corners = append([]r2.Point(nil), b.corners...)
	return &c
}
