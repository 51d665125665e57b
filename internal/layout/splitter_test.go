package layout

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		width, min, viewport, want int
	}{
		{380, 280, 1000, 380},
		{100, 280, 1000, 280},
		{900, 280, 1000, 600},
		{500, 280, 300, 280}, // viewport too narrow: minimum wins
	}
	for _, tt := range tests {
		if got := Clamp(tt.width, tt.min, tt.viewport); got != tt.want {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tt.width, tt.min, tt.viewport, got, tt.want)
		}
	}
}

func TestSplitter_Defaults(t *testing.T) {
	s := NewSplitter(0, 0, 1200)
	if s.Width() != DefaultInitialWidth {
		t.Errorf("expected initial width %d, got %d", DefaultInitialWidth, s.Width())
	}
	if got := s.SetWidth(10); got != DefaultMinWidth {
		t.Errorf("expected min width %d, got %d", DefaultMinWidth, got)
	}
}

func TestSplitter_ResizeReclamps(t *testing.T) {
	s := NewSplitter(100, 500, 1000)
	s.Resize(600)
	if s.Width() != 360 {
		t.Errorf("expected width 360 after shrinking viewport, got %d", s.Width())
	}
}

func TestSplitter_DragAppliesMovesUntilRelease(t *testing.T) {
	s := NewSplitter(280, 380, 1000)
	events := make(chan Pointer, 4)
	events <- Pointer{Kind: PointerMove, X: 450}
	events <- Pointer{Kind: PointerMove, X: 900}
	events <- Pointer{Kind: PointerRelease}
	events <- Pointer{Kind: PointerMove, X: 300}

	if err := s.Drag(context.Background(), events); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Width() != 600 {
		t.Errorf("expected clamped width 600, got %d", s.Width())
	}
	if s.Dragging() {
		t.Error("drag should be inactive after release")
	}
	if len(events) != 1 {
		t.Errorf("move after release should not be consumed, %d left", len(events))
	}
}

func TestSplitter_DragEndsOnCancel(t *testing.T) {
	s := NewSplitter(280, 380, 1000)
	events := make(chan Pointer)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Drag(ctx, events) }()

	deadline := time.Now().Add(time.Second)
	for !s.Dragging() {
		if time.Now().After(deadline) {
			t.Fatal("drag never became active")
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.Drag(context.Background(), events); !errors.Is(err, ErrDragActive) {
		t.Errorf("expected ErrDragActive for concurrent drag, got %v", err)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if s.Dragging() {
		t.Error("drag should be inactive after cancellation")
	}
}

func TestSplitter_DragEndsOnClose(t *testing.T) {
	s := NewSplitter(280, 380, 1000)
	events := make(chan Pointer, 1)
	events <- Pointer{Kind: PointerMove, X: 320}
	close(events)

	if err := s.Drag(context.Background(), events); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Width() != 320 || s.Dragging() {
		t.Errorf("width=%d dragging=%v", s.Width(), s.Dragging())
	}
}
