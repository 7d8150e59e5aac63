package vision

import "puck-scanner/internal/domain/port"

// Codec поиск символов средствами OpenCV и чтение через gozxing.
type Codec struct {
	*Locator
	*Decoder
}

func NewCodec(locator *Locator, decoder *Decoder) *Codec {
	return &Codec{Locator: locator, Decoder: decoder}
}

var _ port.BarcodeCodec = (*Codec)(nil)
