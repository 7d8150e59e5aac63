package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"puck-scanner/internal/domain/geometry"
)

// CameraPosition положение камеры.
type CameraPosition string

const (
	CameraSide CameraPosition = "side" // сбоку: штрихкод держателя
	CameraTop  CameraPosition = "top"  // сверху: штрихкоды пинов
)

// ParseCameraPosition разбирает имя положения камеры.
func ParseCameraPosition(s string) (CameraPosition, error) {
	switch p := CameraPosition(strings.ToLower(strings.TrimSpace(s))); p {
	case CameraSide, CameraTop:
		return p, nil
	}
	return "", fmt.Errorf("unknown camera position %q", s)
}

// CommandKind тип команды конвейера.
type CommandKind int

const (
	CommandStart CommandKind = iota + 1
	CommandStop
)

// Command команда управления конвейером.
type Command struct {
	Kind     CommandKind
	Position CameraPosition
}

// StartCommand переключает конвейер на камеру pos.
func StartCommand(pos CameraPosition) Command {
	return Command{Kind: CommandStart, Position: pos}
}

// StopCommand останавливает сканирование.
func StopCommand() Command {
	return Command{Kind: CommandStop}
}

// MessageLevel уровень сообщения для оператора.
type MessageLevel int

const (
	LevelInfo MessageLevel = iota
	LevelWarning
	LevelError
)

// Message статусное сообщение конвейера.
type Message struct {
	Level  MessageLevel
	Camera CameraPosition
	Text   string
	Time   time.Time
}

// OverlaySlot слот для подсветки на превью.
type OverlaySlot struct {
	Number int
	Bounds geometry.Circle
	State  SlotState
}

// Overlay подсветка держателя поверх живого видео.
type Overlay struct {
	PlateID   uuid.UUID
	Slots     []OverlaySlot
	Text      string
	ExpiresAt time.Time
}

// NewOverlay строит подсветку по состоянию держателя.
func NewOverlay(p *Plate, now time.Time, lifetime time.Duration) Overlay {
	o := Overlay{
		PlateID:   p.ID(),
		Slots:     make([]OverlaySlot, 0, p.SlotCount()),
		Text:      fmt.Sprintf("%d/%d", p.ValidCount(), p.SlotCount()-p.EmptyCount()),
		ExpiresAt: now.Add(lifetime),
	}
	for _, s := range p.slots {
		o.Slots = append(o.Slots, OverlaySlot{Number: s.number, Bounds: s.bounds, State: s.state})
	}
	return o
}

// Expired true, если подсветка устарела.
func (o Overlay) Expired(now time.Time) bool {
	return !o.ExpiresAt.IsZero() && now.After(o.ExpiresAt)
}
