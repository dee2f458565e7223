package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
)

func TestLocateRegistered(t *testing.T) {
	s := New(Config{}).AddElement(core.ByID("android:id/title"), "title", "Sample menu")
	ctx := context.Background()

	h, err := s.Locate(ctx, core.ByID("android:id/title"))
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if h.SessionID != "mock-session" {
		t.Errorf("unexpected session id %q", h.SessionID)
	}

	text, err := s.Text(ctx, h)
	if err != nil || text != "Sample menu" {
		t.Errorf("Text = %q, %v", text, err)
	}
}

func TestLocateFromSource(t *testing.T) {
	s := New(Config{})
	ctx := context.Background()

	h, err := s.Locate(ctx, core.ByAccessibilityID("mock-element"))
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	text, _ := s.Text(ctx, h)
	if text != "Mock Element" {
		t.Errorf("expected text from source, got %q", text)
	}

	if _, err := s.Locate(ctx, core.ByAccessibilityID("missing")); !errors.Is(err, core.ErrElementNotFound) {
		t.Errorf("expected ErrElementNotFound, got %v", err)
	}
}

func TestScrollExhaustion(t *testing.T) {
	s := New(Config{ScrollsBeforeEnd: 2})
	scroll := core.Scroll{Width: 10, Height: 10, Direction: core.DirectionDown, Percent: 100}

	want := []bool{true, true, false, false}
	for i, w := range want {
		res, err := s.Act(context.Background(), scroll)
		if err != nil {
			t.Fatalf("scroll %d: %v", i, err)
		}
		if res.CanScrollMore != w {
			t.Errorf("scroll %d: CanScrollMore = %v, want %v", i, res.CanScrollMore, w)
		}
	}
	if n := len(s.Gestures(core.GestureScroll)); n != 4 {
		t.Errorf("expected 4 recorded scrolls, got %d", n)
	}
}

func TestStaleOnRotate(t *testing.T) {
	s := New(Config{StaleOnRotate: true}).AddElement(core.ByID("cb"), "cb", "")
	ctx := context.Background()

	h, _ := s.Locate(ctx, core.ByID("cb"))
	if _, err := s.Act(ctx, core.Rotate{Z: 90}); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if s.Rotation().Z != 90 {
		t.Errorf("rotation not recorded")
	}

	if _, err := s.Text(ctx, h); !errors.Is(err, core.ErrStaleElement) {
		t.Errorf("expected ErrStaleElement, got %v", err)
	}
	if _, err := s.Act(ctx, core.Tap{Target: h}); !errors.Is(err, core.ErrGestureExecution) {
		t.Errorf("expected ErrGestureExecution for stale tap, got %v", err)
	}

	fresh, err := s.Locate(ctx, core.ByID("cb"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Act(ctx, core.Tap{Target: fresh}); err != nil {
		t.Errorf("fresh handle should work after rotation: %v", err)
	}
}

func TestFailOn(t *testing.T) {
	s := New(Config{}).AddElement(core.ByID("dot"), "dot", "")
	s.FailOn("drag", errors.New("boom")).FailOn("rotate", errors.New("locked"))
	ctx := context.Background()

	h, _ := s.Locate(ctx, core.ByID("dot"))
	if _, err := s.Act(ctx, core.Drag{Source: h, EndX: 1, EndY: 1}); !errors.Is(err, core.ErrGestureExecution) {
		t.Errorf("expected ErrGestureExecution, got %v", err)
	}
	if err := s.Rotate(ctx, core.Rotate{Z: 90}); !errors.Is(err, core.ErrDevice) {
		t.Errorf("expected ErrDevice, got %v", err)
	}
}

func TestSources(t *testing.T) {
	s := New(Config{}).SetSources("a", "b")
	ctx := context.Background()

	for _, want := range []string{"a", "b", "b"} {
		got, err := s.Source(ctx)
		if err != nil || got != want {
			t.Errorf("Source = %q, %v; want %q", got, err, want)
		}
	}
}

func TestStop(t *testing.T) {
	s := New(Config{}).AddElement(core.ByID("x"), "x", "")
	ctx := context.Background()
	h, _ := s.Locate(ctx, core.ByID("x"))

	if err := s.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Errorf("second Stop: %v", err)
	}
	if !s.Closed() || s.StopCalls() != 2 {
		t.Errorf("unexpected stop state closed=%v calls=%d", s.Closed(), s.StopCalls())
	}

	if _, err := s.Locate(ctx, core.ByID("x")); !errors.Is(err, core.ErrSessionClosed) {
		t.Errorf("Locate after Stop: %v", err)
	}
	if _, err := s.Act(ctx, core.Tap{Target: h}); !errors.Is(err, core.ErrSessionClosed) {
		t.Errorf("Act after Stop: %v", err)
	}
	if _, err := s.Act(ctx, core.Rotate{Z: 90}); !errors.Is(err, core.ErrSessionClosed) {
		t.Errorf("Act(Rotate) after Stop: %v", err)
	}
	if _, err := s.Text(ctx, h); !errors.Is(err, core.ErrSessionClosed) {
		t.Errorf("Text after Stop: %v", err)
	}
	if _, err := s.Source(ctx); !errors.Is(err, core.ErrSessionClosed) {
		t.Errorf("Source after Stop: %v", err)
	}
}

func TestLenient(t *testing.T) {
	ctx := context.Background()

	strict := New(Config{})
	if _, err := strict.Locate(ctx, core.ByAccessibilityID("Views")); !errors.Is(err, core.ErrElementNotFound) {
		t.Fatalf("expected ErrElementNotFound, got %v", err)
	}

	s := New(Config{Lenient: true})
	h, err := s.Locate(ctx, core.ByXPath("//*[contains(@text, 'x')]"))
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	visible, err := s.Displayed(ctx, h)
	if err != nil || !visible {
		t.Errorf("Displayed = %v, %v", visible, err)
	}
	if _, err := s.Act(ctx, core.Tap{Target: h}); err != nil {
		t.Errorf("Tap failed: %v", err)
	}

	// Elements present in the source still resolve with their text.
	h, _ = s.Locate(ctx, core.ByAccessibilityID("mock-element"))
	if text, _ := s.Text(ctx, h); text != "Mock Element" {
		t.Errorf("expected source text, got %q", text)
	}
}
