package scan

import (
	"image"
	"image/draw"
	"math"
)

const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// ToRGBA draws img into buf at the frame's native resolution, reallocating
// buf only when the size changes. Frames without bounds get the default size.
func ToRGBA(img image.Image, buf *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		w, h = DefaultWidth, DefaultHeight
	}
	if buf == nil || buf.Bounds().Dx() != w || buf.Bounds().Dy() != h {
		buf = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	draw.Draw(buf, buf.Bounds(), img, bounds.Min, draw.Src)
	return buf
}

// Enhance converts the frame to grayscale and stretches its contrast to the
// full 0..255 range, in place.
func Enhance(img *image.RGBA) {
	pix := img.Pix
	lo, hi := 255, 0
	for i := 0; i+3 < len(pix); i += 4 {
		g := int(math.Round(0.299*float64(pix[i]) + 0.587*float64(pix[i+1]) + 0.114*float64(pix[i+2])))
		if g > 255 {
			g = 255
		}
		pix[i], pix[i+1], pix[i+2] = uint8(g), uint8(g), uint8(g)
		if g < lo {
			lo = g
		}
		if g > hi {
			hi = g
		}
	}

	span := hi - lo
	if span < 1 {
		span = 1
	}
	for i := 0; i+3 < len(pix); i += 4 {
		v := int(math.Round(float64(int(pix[i])-lo) * 255 / float64(span)))
		if v > 255 {
			v = 255
		}
		pix[i], pix[i+1], pix[i+2] = uint8(v), uint8(v), uint8(v)
	}
}
