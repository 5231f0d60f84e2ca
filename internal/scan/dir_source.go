package scan

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DirSource replays the images of a directory in name order, one per frame.
// With Loop set the sequence restarts after the last image.
type DirSource struct {
	Dir  string
	Loop bool
}

func (s *DirSource) Open(ctx context.Context) (Stream, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(s.Dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", ErrCameraUnavailable, s.Dir)
	}
	sort.Strings(files)
	return &dirStream{files: files, loop: s.Loop}, nil
}

type dirStream struct {
	mu     sync.Mutex
	files  []string
	next   int
	loop   bool
	closed bool
}

func (s *dirStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStreamClosed
	}
	if s.next >= len(s.files) {
		if !s.loop {
			return nil, ErrStreamClosed
		}
		s.next = 0
	}
	path := s.files[s.next]
	s.next++

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func (s *dirStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
