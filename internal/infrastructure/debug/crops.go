// Package debug сохранение вырезок повторного поиска для отладки локатора.
package debug

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"puck-scanner/internal/domain/port"
)

// CropDir сохраняет вырезки в каталог.
type CropDir struct {
	dir string
}

// NewCropDir создаёт каталог, если его нет.
func NewCropDir(dir string) (*CropDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}
	return &CropDir{dir: dir}, nil
}

// SaveCrop сохраняет вырезку; формат определяется расширением имени.
func (d *CropDir) SaveCrop(name string, img image.Image) error {
	path := filepath.Join(d.dir, filepath.Base(name))
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("save crop %s: %w", name, err)
	}
	return nil
}

func (d *CropDir) Dir() string { return d.dir }

var _ port.DebugSink = (*CropDir)(nil)
