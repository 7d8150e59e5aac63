package vision

import (
	"errors"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/datamatrix"

	"puck-scanner/internal/domain/entity"
)

// decodeMargin запас вокруг символа для тихой зоны.
const decodeMargin = 1.4

// Decoder читает Data Matrix в окрестности найденного символа.
// Читатель создаётся на каждый вызов: декодер вызывают оба цикла и обработчики бота.
type Decoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

func NewDecoder() *Decoder {
	return &Decoder{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Decode читает штрихкод в его текущем положении.
func (d *Decoder) Decode(img *image.Gray, bc *entity.Barcode) (string, error) {
	crop := cropAround(img, bc.Bounds(), decodeMargin)
	if crop == nil {
		return "", errors.New("barcode is outside of the frame")
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(compactGray(crop))
	if err != nil {
		return "", fmt.Errorf("binarize: %w", err)
	}
	res, err := datamatrix.NewDataMatrixReader().Decode(bmp, d.hints)
	if err != nil {
		return "", fmt.Errorf("decode data matrix: %w", err)
	}
	return res.GetText(), nil
}
