package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	readChunkSize = 4096
	maxFrameSize  = 10 << 20
	staleAfter    = 5 * time.Second
)

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// MJPEGSource reads a motion-JPEG stream over HTTP. URL is the preferred
// camera; Fallbacks are tried in order when it cannot be opened.
type MJPEGSource struct {
	URL       string
	Fallbacks []string
	Client    *http.Client
}

func (s *MJPEGSource) Open(ctx context.Context) (Stream, error) {
	urls := make([]string, 0, 1+len(s.Fallbacks))
	if s.URL != "" {
		urls = append(urls, s.URL)
	}
	urls = append(urls, s.Fallbacks...)
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no camera configured", ErrCameraUnavailable)
	}

	var errs []error
	for _, u := range urls {
		stream, err := s.open(ctx, u)
		if err == nil {
			zap.S().Infof("Camera stream opened: %s", u)
			return stream, nil
		}
		zap.S().Warnf("Camera %s unavailable: %v", u, err)
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, errors.Join(errs...))
}

func (s *MJPEGSource) open(ctx context.Context, url string) (*mjpegStream, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	stream := newMJPEGStream(resp.Body)
	go stream.pump()
	return stream, nil
}

type mjpegStream struct {
	body io.ReadCloser

	mu      sync.RWMutex
	frame   []byte
	frameAt time.Time
	err     error

	closeOnce sync.Once
}

func newMJPEGStream(body io.ReadCloser) *mjpegStream {
	return &mjpegStream{body: body}
}

func (s *mjpegStream) pump() {
	err := extractFrames(s.body, func(frame []byte) {
		s.mu.Lock()
		s.frame = frame
		s.frameAt = time.Now()
		s.mu.Unlock()
	})
	if err == nil {
		err = io.EOF
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *mjpegStream) Frame() (image.Image, error) {
	s.mu.RLock()
	frame, at, streamErr := s.frame, s.frameAt, s.err
	s.mu.RUnlock()

	if streamErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamClosed, streamErr)
	}
	if len(frame) == 0 {
		return nil, ErrNoFrame
	}
	if time.Since(at) > staleAfter {
		return nil, fmt.Errorf("%w: frame is stale", ErrNoFrame)
	}
	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return img, nil
}

func (s *mjpegStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.body.Close()
	})
	return err
}

// extractFrames scans r for complete JPEG images delimited by SOI/EOI
// markers and hands each one to emit. Multipart boundaries and headers
// between frames are skipped. It returns the first read error other than
// io.EOF.
func extractFrames(r io.Reader, emit func([]byte)) error {
	buf := make([]byte, readChunkSize)
	var pending []byte

	for {
		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			pending = drainFrames(pending, emit)
			if len(pending) > maxFrameSize {
				zap.S().Warn("MJPEG frame buffer overflow, resetting")
				pending = nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func drainFrames(pending []byte, emit func([]byte)) []byte {
	for {
		start := bytes.Index(pending, jpegSOI)
		if start < 0 {
			// keep a trailing 0xFF in case the marker is split across reads
			if n := len(pending); n > 0 && pending[n-1] == 0xFF {
				return pending[n-1:]
			}
			return pending[:0]
		}
		end := bytes.Index(pending[start+2:], jpegEOI)
		if end < 0 {
			return pending[start:]
		}
		end += start + 2 + len(jpegEOI)

		frame := make([]byte, end-start)
		copy(frame, pending[start:end])
		emit(frame)
		pending = pending[end:]
	}
}
