package service

import (
	"errors"
	"image"
	"testing"
	"time"
)

type stubDecoder struct {
	code string
}

func (d *stubDecoder) Decode(img image.Image, now time.Time) (string, bool) {
	return d.code, d.code != ""
}

func TestSessionStore_CreateGetDelete(t *testing.T) {
	st := NewSessionStore(NewCatalog(&mockSource{}), SessionStoreConfig{})

	s := st.Create()
	if s.ID == "" {
		t.Fatal("expected session id")
	}
	got, err := st.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("expected same session, got %v (%v)", got, err)
	}
	if !st.Delete(s.ID) {
		t.Error("expected delete to succeed")
	}
	if _, err := st.Get(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got: %v", err)
	}
}

func TestSessionStore_SessionsAreIsolated(t *testing.T) {
	catalog := newTestCatalog(t, product("111", "Tea", 1))
	st := NewSessionStore(catalog, SessionStoreConfig{})

	a, b := st.Create(), st.Create()
	a.Cart().Add("111")

	if b.Cart().Len() != 0 {
		t.Error("carts must not be shared between sessions")
	}
}

func TestSessionStore_Sweep(t *testing.T) {
	now := time.Now()
	st := NewSessionStore(NewCatalog(&mockSource{}), SessionStoreConfig{IdleTTL: time.Minute})
	st.now = func() time.Time { return now }

	idle := st.Create()
	now = now.Add(45 * time.Second)
	active := st.Create()
	now = now.Add(30 * time.Second)

	if n := st.Sweep(); n != 1 {
		t.Fatalf("expected 1 expired session, got %d", n)
	}
	if _, err := st.Get(idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("expected idle session to be gone")
	}
	if _, err := st.Get(active.ID); err != nil {
		t.Errorf("expected active session to survive: %v", err)
	}
}

func TestSession_DecodeFrame(t *testing.T) {
	st := NewSessionStore(NewCatalog(&mockSource{}), SessionStoreConfig{
		NewDecoder: func() FrameDecoder { return &stubDecoder{code: "111"} },
	})
	s := st.Create()

	code, ok := s.DecodeFrame(image.NewGray(image.Rect(0, 0, 1, 1)), time.Now())
	if !ok || code != "111" {
		t.Errorf("expected 111, got %q (%v)", code, ok)
	}

	bare := NewSession("x", NewCatalog(&mockSource{}), 0)
	if _, ok := bare.DecodeFrame(nil, time.Now()); ok {
		t.Error("expected no decode without a decoder")
	}
}
