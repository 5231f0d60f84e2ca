package scan

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
)

// Mock Detector
type mockDetector struct {
	name      string
	code      string
	err       error
	available bool
	calls     int
	sawGray   bool
	mu        sync.Mutex
}

func (m *mockDetector) Name() string    { return m.name }
func (m *mockDetector) Available() bool { return m.available }

func (m *mockDetector) Detect(img image.Image) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	r, g, b, _ := img.At(0, 0).RGBA()
	m.sawGray = r == g && g == b
	if m.err != nil {
		return "", m.err
	}
	if m.code == "" {
		return "", ErrNoCode
	}
	return m.code, nil
}

func colorFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.RGBA{200, 40, 90, 255}}, image.Point{}, draw.Src)
	img.Set(3, 3, color.RGBA{0, 0, 0, 255})
	return img
}

func TestAdapter_FirstHitWins(t *testing.T) {
	native := &mockDetector{name: "native", code: "111", available: true}
	fallback := &mockDetector{name: "fallback", code: "222", available: true}
	a := NewAdapter(&Provider{Detector: native}, &Provider{Detector: fallback, Preprocess: true})

	code, ok := a.Detect(colorFrame(), time.Now())
	if !ok || code != "111" {
		t.Fatalf("expected native hit 111, got %q (%v)", code, ok)
	}
	if fallback.calls != 0 {
		t.Error("fallback must not run after a native hit")
	}
}

func TestAdapter_SkipsUnavailableAndAbsorbsErrors(t *testing.T) {
	missing := &mockDetector{name: "missing", code: "000"}
	broken := &mockDetector{name: "broken", err: errors.New("boom"), available: true}
	fallback := &mockDetector{name: "fallback", code: "222", available: true}
	a := NewAdapter(&Provider{Detector: missing}, &Provider{Detector: broken}, &Provider{Detector: fallback, Preprocess: true})

	code, ok := a.Detect(colorFrame(), time.Now())
	if !ok || code != "222" {
		t.Fatalf("expected fallback hit 222, got %q (%v)", code, ok)
	}
	if missing.calls != 0 {
		t.Error("unavailable detector must be skipped")
	}
	if !fallback.sawGray {
		t.Error("fallback must see the preprocessed frame")
	}
	if broken.sawGray {
		t.Error("native detector must see the raw frame")
	}
}

func TestAdapter_FallbackRateLimited(t *testing.T) {
	native := &mockDetector{name: "native", available: true}
	fallback := &mockDetector{name: "fallback", available: true}
	a := NewAdapter(
		&Provider{Detector: native},
		&Provider{Detector: fallback, Preprocess: true, MinInterval: 600 * time.Millisecond},
	)

	t0 := time.Now()
	for _, offset := range []time.Duration{0, 300, 600, 900, 1200} {
		a.Detect(colorFrame(), t0.Add(offset*time.Millisecond))
	}

	if native.calls != 5 {
		t.Errorf("expected native on every tick, got %d", native.calls)
	}
	if fallback.calls != 3 {
		t.Errorf("expected fallback at 0, 600 and 1200ms, got %d calls", fallback.calls)
	}
}

func TestAdapter_AllMiss(t *testing.T) {
	a := NewAdapter(&Provider{Detector: &mockDetector{name: "native", available: true}})
	if _, ok := a.Detect(colorFrame(), time.Now()); ok {
		t.Error("expected no detection")
	}
}

func encodeBarcode(t *testing.T, w gozxing.Writer, contents string, format gozxing.BarcodeFormat) image.Image {
	t.Helper()
	matrix, err := w.Encode(contents, format, 400, 120, nil)
	if err != nil {
		t.Fatalf("encode %s: %v", contents, err)
	}
	return matrix
}

func TestLinearDetector_Code128(t *testing.T) {
	img := encodeBarcode(t, oned.NewCode128Writer(), "SCAN-12345", gozxing.BarcodeFormat_CODE_128)

	code, err := NewLinearDetector().Detect(ToRGBA(img, nil))
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if code != "SCAN-12345" {
		t.Errorf("expected SCAN-12345, got %q", code)
	}
}

func TestLinearDetector_EAN13(t *testing.T) {
	img := encodeBarcode(t, oned.NewEAN13Writer(), "4006381333931", gozxing.BarcodeFormat_EAN_13)

	code, err := NewLinearDetector().Detect(ToRGBA(img, nil))
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if code != "4006381333931" {
		t.Errorf("expected 4006381333931, got %q", code)
	}
}

func TestLinearDetector_UPCA(t *testing.T) {
	img := encodeBarcode(t, oned.NewUPCAWriter(), "036000291452", gozxing.BarcodeFormat_UPC_A)

	code, err := NewLinearDetector().Detect(ToRGBA(img, nil))
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if code != "036000291452" {
		t.Errorf("expected 12-digit UPC-A 036000291452, got %q", code)
	}
}

func TestMultiFormatDetector_UPCA(t *testing.T) {
	img := encodeBarcode(t, oned.NewUPCAWriter(), "036000291452", gozxing.BarcodeFormat_UPC_A)

	code, err := NewMultiFormatDetector().Detect(ToRGBA(img, nil))
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if code != "036000291452" {
		t.Errorf("expected 12-digit UPC-A 036000291452, got %q", code)
	}
}

func TestLinearDetector_BlankFrame(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 80))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	if _, err := NewLinearDetector().Detect(img); !errors.Is(err, ErrNoCode) {
		t.Errorf("expected ErrNoCode, got: %v", err)
	}
}

func TestDefaultAdapter_LowContrast(t *testing.T) {
	img := encodeBarcode(t, oned.NewCode128Writer(), "LOWCONTRAST", gozxing.BarcodeFormat_CODE_128)
	frame := ToRGBA(img, nil)

	// squeeze the frame into a narrow gray band
	for i := 0; i+3 < len(frame.Pix); i += 4 {
		v := 120 + frame.Pix[i]/16
		frame.Pix[i], frame.Pix[i+1], frame.Pix[i+2] = v, v, v
	}

	code, ok := DefaultAdapter(600*time.Millisecond).Detect(frame, time.Now())
	if !ok || code != "LOWCONTRAST" {
		t.Errorf("expected LOWCONTRAST, got %q (%v)", code, ok)
	}
}

func TestPipeline_Debounces(t *testing.T) {
	native := &mockDetector{name: "native", code: "111", available: true}
	p := NewPipeline(NewAdapter(&Provider{Detector: native}), NewGate(800*time.Millisecond))
	t0 := time.Now()

	if code, ok := p.Decode(colorFrame(), t0); !ok || code != "111" {
		t.Fatalf("expected first frame accepted, got %q (%v)", code, ok)
	}
	if _, ok := p.Decode(colorFrame(), t0.Add(300*time.Millisecond)); ok {
		t.Error("expected repeat suppressed")
	}
	if _, ok := p.Decode(colorFrame(), t0.Add(900*time.Millisecond)); !ok {
		t.Error("expected repeat after window accepted")
	}
}
