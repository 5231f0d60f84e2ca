package scan

import (
	"testing"
	"time"
)

func TestGate_SuppressesWithinWindow(t *testing.T) {
	g := NewGate(800 * time.Millisecond)
	t0 := time.Now()

	if !g.Accept("111", t0) {
		t.Fatal("expected first detection accepted")
	}
	if g.Accept("111", t0.Add(799*time.Millisecond)) {
		t.Error("expected repeat within window suppressed")
	}
	if !g.Accept("111", t0.Add(800*time.Millisecond)) {
		t.Error("expected repeat at window boundary accepted")
	}
}

func TestGate_SuppressedDoesNotExtendWindow(t *testing.T) {
	g := NewGate(800 * time.Millisecond)
	t0 := time.Now()

	g.Accept("111", t0)
	g.Accept("111", t0.Add(500*time.Millisecond))
	if !g.Accept("111", t0.Add(900*time.Millisecond)) {
		t.Error("window must be measured from the last acceptance")
	}
}

func TestGate_DifferentCodePasses(t *testing.T) {
	g := NewGate(0)
	t0 := time.Now()

	g.Accept("111", t0)
	if !g.Accept("222", t0.Add(10*time.Millisecond)) {
		t.Error("expected a different code to pass immediately")
	}
	if !g.Accept("111", t0.Add(20*time.Millisecond)) {
		t.Error("expected the first code to pass after another was accepted")
	}
	if g.Accept("", t0.Add(time.Second)) {
		t.Error("expected empty code rejected")
	}
}
