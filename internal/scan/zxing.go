package scan

import (
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

var linearFormats = []gozxing.BarcodeFormat{
	gozxing.BarcodeFormat_EAN_13,
	gozxing.BarcodeFormat_EAN_8,
	gozxing.BarcodeFormat_UPC_A,
	gozxing.BarcodeFormat_UPC_E,
	gozxing.BarcodeFormat_CODE_128,
	gozxing.BarcodeFormat_CODE_39,
	gozxing.BarcodeFormat_ITF,
}

// linearReaders tries UPC-A ahead of EAN-13 so that a UPC-A symbol comes
// back as its 12 digits rather than the 13-digit form with a leading 0.
func linearReaders() []gozxing.Reader {
	return []gozxing.Reader{
		oned.NewUPCAReader(),
		oned.NewEAN13Reader(),
		oned.NewEAN8Reader(),
		oned.NewUPCEReader(),
		oned.NewCode128Reader(),
		oned.NewCode39Reader(),
		oned.NewITFReader(),
	}
}

type ZXingDetector struct {
	name    string
	readers []gozxing.Reader
	hints   map[gozxing.DecodeHintType]interface{}
}

// NewLinearDetector is the low-latency reader for retail 1D symbologies.
func NewLinearDetector() *ZXingDetector {
	return &ZXingDetector{
		name:    "zxing-linear",
		readers: linearReaders(),
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_POSSIBLE_FORMATS: linearFormats,
		},
	}
}

// NewMultiFormatDetector reads 1D codes and QR with TRY_HARDER.
func NewMultiFormatDetector() *ZXingDetector {
	formats := append(append([]gozxing.BarcodeFormat{}, linearFormats...), gozxing.BarcodeFormat_QR_CODE)
	return &ZXingDetector{
		name:    "zxing-multi",
		readers: append(linearReaders(), qrcode.NewQRCodeReader()),
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_POSSIBLE_FORMATS: formats,
			gozxing.DecodeHintType_TRY_HARDER:       true,
		},
	}
}

func (d *ZXingDetector) Name() string {
	return d.name
}

func (d *ZXingDetector) Available() bool {
	return len(d.readers) > 0
}

func (d *ZXingDetector) Detect(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binary bitmap: %w", err)
	}
	for _, r := range d.readers {
		res, err := r.Decode(bmp, d.hints)
		if err == nil && res != nil && res.GetText() != "" {
			return res.GetText(), nil
		}
	}
	return "", ErrNoCode
}
