package scan

import (
	"errors"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Detector is one barcode decoding backend. Detect returns ErrNoCode when
// the frame holds no readable code.
type Detector interface {
	Name() string
	Available() bool
	Detect(img image.Image) (string, error)
}

// Provider ranks a Detector inside an Adapter. Preprocess providers see the
// enhanced frame; MinInterval rate-limits attempts independently of the
// capture tick.
type Provider struct {
	Detector    Detector
	Preprocess  bool
	MinInterval time.Duration

	last time.Time
}

// Adapter tries its providers in rank order and returns the first hit.
// Misses and decoder errors are absorbed.
type Adapter struct {
	mu        sync.Mutex
	providers []*Provider
}

func NewAdapter(providers ...*Provider) *Adapter {
	return &Adapter{providers: providers}
}

// DefaultAdapter ranks the fast linear reader first and falls back to the
// try-harder multi-format reader and the QR recogniser on the enhanced frame,
// at most once per fallbackInterval.
func DefaultAdapter(fallbackInterval time.Duration) *Adapter {
	return NewAdapter(
		&Provider{Detector: NewLinearDetector()},
		&Provider{Detector: NewMultiFormatDetector(), Preprocess: true, MinInterval: fallbackInterval},
		&Provider{Detector: NewQRDetector(), Preprocess: true, MinInterval: fallbackInterval},
	)
}

// Detect may enhance frame in place once a preprocessing provider is due.
func (a *Adapter) Detect(frame *image.RGBA, now time.Time) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	enhanced := false
	for _, p := range a.providers {
		if !p.Detector.Available() {
			continue
		}
		if p.MinInterval > 0 && !p.last.IsZero() && now.Sub(p.last) < p.MinInterval {
			continue
		}
		p.last = now

		if p.Preprocess && !enhanced {
			Enhance(frame)
			enhanced = true
		}

		code, err := p.Detector.Detect(frame)
		if err == nil && code != "" {
			return code, true
		}
		if err != nil && !errors.Is(err, ErrNoCode) {
			zap.S().Debugf("%s decode error: %v", p.Detector.Name(), err)
		}
	}
	return "", false
}

// Pipeline decodes single uploaded frames through an Adapter and a Gate.
type Pipeline struct {
	adapter *Adapter
	gate    *Gate

	mu  sync.Mutex
	buf *image.RGBA
}

func NewPipeline(adapter *Adapter, gate *Gate) *Pipeline {
	return &Pipeline{adapter: adapter, gate: gate}
}

func (p *Pipeline) Decode(img image.Image, now time.Time) (string, bool) {
	p.mu.Lock()
	p.buf = ToRGBA(img, p.buf)
	code, ok := p.adapter.Detect(p.buf, now)
	p.mu.Unlock()

	if !ok {
		return "", false
	}
	return code, p.gate.Accept(code, now)
}
