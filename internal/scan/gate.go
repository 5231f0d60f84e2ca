package scan

import (
	"sync"
	"time"

	"github.com/rl1809/scan-catalog/internal/core/domain"
)

const DefaultDebounce = 800 * time.Millisecond

// Gate drops a code seen again within the window of its last acceptance.
// Suppressed detections do not extend the window.
type Gate struct {
	window time.Duration

	mu   sync.Mutex
	last domain.Detection
}

func NewGate(window time.Duration) *Gate {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Gate{window: window}
}

func (g *Gate) Accept(code string, now time.Time) bool {
	if code == "" {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if code == g.last.Code && now.Sub(g.last.At) < g.window {
		return false
	}
	g.last = domain.Detection{Code: code, At: now}
	return true
}

func (g *Gate) Reset() {
	g.mu.Lock()
	g.last = domain.Detection{}
	g.mu.Unlock()
}
