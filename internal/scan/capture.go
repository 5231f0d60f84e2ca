package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/scan-catalog/internal/core/domain"
)

const DefaultInterval = 300 * time.Millisecond

// Scanner is the capture loop: read a frame, detect, debounce, report. The
// next tick is scheduled only after the current one finishes.
type Scanner struct {
	source   Source
	adapter  *Adapter
	gate     *Gate
	interval time.Duration
	onDetect func(domain.Detection)
	now      func() time.Time

	mu      sync.Mutex
	stream  Stream
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
	running bool
	stops   uint64
	buf     *image.RGBA
}

func NewScanner(source Source, adapter *Adapter, gate *Gate, interval time.Duration, onDetect func(domain.Detection)) *Scanner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if gate == nil {
		gate = NewGate(DefaultDebounce)
	}
	return &Scanner{
		source:   source,
		adapter:  adapter,
		gate:     gate,
		interval: interval,
		onDetect: onDetect,
		now:      time.Now,
	}
}

// Start opens the camera and launches the loop. If the camera cannot be
// opened the error wraps ErrCameraUnavailable and no loop runs. Starting a
// running scanner is a no-op; a stopped loop is awaited before restarting.
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running && !s.stopped {
		s.mu.Unlock()
		return nil
	}
	prev := s.done
	s.mu.Unlock()
	if prev != nil {
		<-prev
	}

	s.mu.Lock()
	gen := s.stops
	s.mu.Unlock()

	// Opening a camera can block on device permission, so it runs unlocked.
	stream, err := s.source.Open(ctx)
	if err != nil {
		if !errors.Is(err, ErrCameraUnavailable) {
			err = fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A Stop during Open, or a concurrent Start that got there first, wins.
	if s.stops != gen || (s.running && !s.stopped) {
		if stream != s.stream {
			if err := stream.Close(); err != nil {
				zap.S().Warnf("failed to close camera stream: %v", err)
			}
		}
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.stream = stream
	s.cancel = cancel
	s.done = make(chan struct{})
	s.stopped = false
	s.running = true
	s.gate.Reset()

	go s.loop(loopCtx, stream, s.done)
	return nil
}

// Stop halts the loop and releases the camera. It is safe to call more than
// once and from the detection callback.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	s.stops++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.releaseLocked()
}

// Wait blocks until the loop goroutine has exited.
func (s *Scanner) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Scanner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && !s.stopped
}

func (s *Scanner) releaseLocked() {
	if s.stream == nil {
		return
	}
	if err := s.stream.Close(); err != nil {
		zap.S().Warnf("failed to close camera stream: %v", err)
	}
	s.stream = nil
}

func (s *Scanner) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Scanner) loop(ctx context.Context, stream Stream, done chan struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.stopped = true
		if s.stream == stream {
			s.releaseLocked()
		}
		s.mu.Unlock()
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if s.isStopped() {
			return
		}
		if !s.tick(stream) {
			return
		}
		timer.Reset(s.interval)
	}
}

// tick processes one frame and reports whether the loop should continue.
func (s *Scanner) tick(stream Stream) bool {
	img, err := stream.Frame()
	if err != nil {
		if errors.Is(err, ErrStreamClosed) {
			zap.S().Infof("Camera stream ended: %v", err)
			return false
		}
		if !errors.Is(err, ErrNoFrame) {
			zap.S().Debugf("frame read failed: %v", err)
		}
		return true
	}

	now := s.now()
	s.buf = ToRGBA(img, s.buf)
	code, ok := s.adapter.Detect(s.buf, now)
	if !ok || !s.gate.Accept(code, now) {
		return true
	}
	if s.isStopped() {
		return false
	}
	if s.onDetect != nil {
		s.onDetect(domain.Detection{Code: code, At: now})
	}
	return true
}
