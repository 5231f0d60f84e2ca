package service

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/scan-catalog/internal/core/domain"
)

// ScanControl is the handle of a running capture loop.
type ScanControl interface {
	Stop()
	Running() bool
}

// FrameDecoder turns an uploaded frame into a debounced barcode. ok is false
// on a miss or when the code was accepted too recently.
type FrameDecoder interface {
	Decode(img image.Image, now time.Time) (code string, ok bool)
}

type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

const (
	NoticeSuccess = "success"
	NoticeError   = "error"
	NoticeInfo    = "info"
)

// Session is the explicit state of one storefront: mode, cart, browse view,
// last product shown and the attached scanner. All mutation goes through a
// Dispatcher while holding mu.
type Session struct {
	ID string

	mu       sync.Mutex
	catalog  *Catalog
	mode     domain.Mode
	cart     *Cart
	browser  *Browser
	product  *domain.Product
	notFound bool
	notice   *Notice
	checkout *Checkout
	scanner  ScanControl
	decoder  FrameDecoder
	touched  time.Time
}

func NewSession(id string, catalog *Catalog, pageSize int) *Session {
	return &Session{
		ID:      id,
		catalog: catalog,
		mode:    domain.ModePrice,
		cart:    NewCart(catalog),
		browser: NewBrowser(pageSize),
		touched: time.Now(),
	}
}

func (s *Session) Cart() *Cart {
	return s.cart
}

// AttachScanner registers the capture loop that price-mode hits and mode
// switches stop.
func (s *Session) AttachScanner(sc ScanControl) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanner = sc
}

func (s *Session) SetDecoder(d FrameDecoder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decoder = d
}

// DecodeFrame runs the session's decoder; it reports false when the session
// has none.
func (s *Session) DecodeFrame(img image.Image, now time.Time) (string, bool) {
	s.mu.Lock()
	d := s.decoder
	s.mu.Unlock()
	if d == nil {
		return "", false
	}
	return d.Decode(img, now)
}

func (s *Session) stopScanner() {
	if s.scanner != nil && s.scanner.Running() {
		s.scanner.Stop()
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.touched = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

type SessionStoreConfig struct {
	PageSize int
	IdleTTL  time.Duration
	// NewDecoder, when set, gives every new session its own frame decoder.
	NewDecoder func() FrameDecoder
}

// SessionStore keeps storefront sessions in memory. Carts are never
// persisted; an idle session is dropped by Sweep.
type SessionStore struct {
	catalog *Catalog
	cfg     SessionStoreConfig
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionStore(catalog *Catalog, cfg SessionStoreConfig) *SessionStore {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	return &SessionStore{
		catalog:  catalog,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (st *SessionStore) Create() *Session {
	s := NewSession(uuid.NewString(), st.catalog, st.cfg.PageSize)
	s.touched = st.now()
	if st.cfg.NewDecoder != nil {
		s.decoder = st.cfg.NewDecoder()
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(st.now())
	return s, nil
}

func (st *SessionStore) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	return true
}

func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops sessions idle for longer than the configured TTL and returns
// how many were removed.
func (st *SessionStore) Sweep() int {
	cutoff := st.now().Add(-st.cfg.IdleTTL)

	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if s.idleSince().Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps periodically until ctx is cancelled.
func (st *SessionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				zap.S().Infof("Expired %d idle sessions", n)
			}
		}
	}
}
