package port

import "image"

// DebugSink сохраняет промежуточные изображения повторного поиска.
type DebugSink interface {
	SaveCrop(name string, img image.Image) error
}
