package scan

import (
	"context"
	"image"
)

// Stream is an open camera. Frame returns the most recent frame, ErrNoFrame
// while none is available, and ErrStreamClosed once the stream has ended.
type Stream interface {
	Frame() (image.Image, error)
	Close() error
}

// Source acquires a Stream. Open fails with ErrCameraUnavailable when no
// camera can be opened.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}
