package entity

import (
	"image"
	"image/draw"
	"time"
)

// Frame один кадр в оттенках серого с временем получения.
type Frame struct {
	Image     *image.Gray
	Timestamp time.Time
	Seq       uint64
}

// NewFrame приводит изображение к оттенкам серого.
func NewFrame(img image.Image, ts time.Time) Frame {
	if gray, ok := img.(*image.Gray); ok {
		return Frame{Image: gray, Timestamp: ts}
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return Frame{Image: gray, Timestamp: ts}
}

// Clone копирует пиксели, чтобы рисование поверх кадра не затрагивало копию в очереди.
func (f Frame) Clone() Frame {
	if f.Image == nil {
		return f
	}
	img := &image.Gray{
		Pix:    append([]uint8(nil), f.Image.Pix...),
		Stride: f.Image.Stride,
		Rect:   f.Image.Rect,
	}
	return Frame{Image: img, Timestamp: f.Timestamp, Seq: f.Seq}
}

func (f Frame) Bounds() image.Rectangle {
	if f.Image == nil {
		return image.Rectangle{}
	}
	return f.Image.Bounds()
}
