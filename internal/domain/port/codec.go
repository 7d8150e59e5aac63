package port

import (
	"image"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/geometry"
)

// LocateMode режим поиска штрихкодов.
type LocateMode int

const (
	// LocateWide быстрый поиск по всему кадру.
	LocateWide LocateMode = iota
	// LocateDeep глубокий поиск по контурам в вырезанной области.
	LocateDeep
	// LocateSquare поиск одного квадрата в вырезанной области слота.
	LocateSquare
)

// BarcodeCodec поиск и чтение символов Data Matrix.
type BarcodeCodec interface {
	// Locate ищет штрихкоды заданных размеров (в модулях). Координаты
	// результатов в системе координат кадра, даже если img вырезан из него.
	Locate(img *image.Gray, mode LocateMode, sizes []int) ([]*entity.Barcode, error)

	// Decode читает штрихкод в его текущем положении.
	Decode(img *image.Gray, bc *entity.Barcode) (string, error)
}

// CircleFinder поиск пустых слотов (круглых отверстий) заданного радиуса.
type CircleFinder interface {
	FindCircles(img *image.Gray, radius float64) ([]geometry.Circle, error)
}
