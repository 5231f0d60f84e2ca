package scan

import "errors"

var (
	ErrCameraUnavailable = errors.New("camera unavailable")
	ErrNoCode            = errors.New("no barcode in frame")
	ErrNoFrame           = errors.New("no frame available yet")
	ErrStreamClosed      = errors.New("stream closed")
)
