package entity

import (
	"time"

	"puck-scanner/internal/domain/geometry"
)

// ScanResult неизменяемый итог сканирования одного кадра.
type ScanResult struct {
	Seq       uint64
	Camera    CameraPosition
	Timestamp time.Time
	Barcodes  []*Barcode        // найденные в кадре (копии)
	Geometry  geometry.Geometry // nil, если выравнивание не удалось
	Plate     *Plate            // снимок держателя или nil
	Err       error
	Elapsed   time.Duration

	NewPlate  bool // держатель пересоздан на этом кадре
	NewData   bool // появились новые прочитанные штрихкоды
	Completed bool // держатель стал полностью разрешённым на этом кадре
}

// HasPlate true, если в результате есть держатель.
func (r ScanResult) HasPlate() bool {
	return r.Plate != nil
}
