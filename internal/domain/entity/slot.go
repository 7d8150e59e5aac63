package entity

import (
	"github.com/golang/geo/r2"

	"puck-scanner/internal/domain/geometry"
)

// SlotState состояние слота держателя.
type SlotState int

const (
	SlotNoResult   SlotState = iota // результата пока нет
	SlotValid                       // штрихкод прочитан, состояние окончательное
	SlotUnreadable                  // штрихкод найден, но не прочитан
	SlotEmpty                       // в слоте нет образца, состояние окончательное
)

func (s SlotState) String() string {
	switch s {
	case SlotValid:
		return "valid"
	case SlotUnreadable:
		return "unreadable"
	case SlotEmpty:
		return "empty"
	default:
		return "no_result"
	}
}

// Slot одна позиция держателя. Изменяется только через Plate.
type Slot struct {
	number     int
	bounds     geometry.Circle
	barcodePos r2.Point
	hasPos     bool
	barcode    *Barcode
	state      SlotState
}

func (s Slot) Number() int             { return s.number }
func (s Slot) Bounds() geometry.Circle { return s.bounds }
func (s Slot) State() SlotState        { return s.state }

// BarcodePosition последнее наблюдавшееся положение штрихкода слота.
func (s Slot) BarcodePosition() (r2.Point, bool) {
	return s.barcodePos, s.hasPos
}

// Data прочитанные данные штрихкода или пустая строка.
func (s Slot) Data() string {
	if s.state != SlotValid || s.barcode == nil {
		return ""
	}
	return s.barcode.Data()
}

// IsResolved true для окончательных состояний.
func (s Slot) IsResolved() bool {
	return s.state == SlotValid || s.state == SlotEmpty
}

// assign связывает найденный в кадре штрихкод со слотом.
func (s *Slot) assign(bc *Barcode) {
	switch s.state {
	case SlotEmpty:
		return
	case SlotValid:
		s.barcodePos, s.hasPos = bc.Center(), true
		return
	}

	s.barcodePos, s.hasPos = bc.Center(), true
	switch bc.State() {
	case BarcodeValid:
		s.barcode = bc
		s.state = SlotValid
	case BarcodeUnreadable:
		s.barcode = bc
		s.state = SlotUnreadable
	}
}

func (s *Slot) markEmpty() bool {
	if s.state != SlotNoResult {
		return false
	}
	s.state = SlotEmpty
	return true
}

func (s Slot) clone() Slot {
	c := s
	if s.barcode != nil {
		c.barcode = s.barcode.Clone()
	}
	return c
}
