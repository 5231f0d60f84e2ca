package scan

import (
	"image"

	"github.com/liyue201/goqr"
)

// QRDetector recognises QR codes with goqr.
type QRDetector struct{}

func NewQRDetector() *QRDetector {
	return &QRDetector{}
}

func (d *QRDetector) Name() string {
	return "goqr"
}

func (d *QRDetector) Available() bool {
	return true
}

func (d *QRDetector) Detect(img image.Image) (string, error) {
	codes, err := goqr.Recognize(img)
	if err != nil || len(codes) == 0 {
		return "", ErrNoCode
	}
	for _, c := range codes {
		if len(c.Payload) > 0 {
			return string(c.Payload), nil
		}
	}
	return "", ErrNoCode
}
