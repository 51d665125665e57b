// Package layout sizes the sidebar next to the code panel and implements the
// drag gesture that resizes it.
package layout

import (
	"context"
	"errors"
	"sync"
)

const (
	DefaultMinWidth     = 280
	DefaultInitialWidth = 380

	// maxViewportShare caps the sidebar at this fraction of the viewport.
	maxViewportShare = 0.6
)

// ErrDragActive is returned when a drag starts while another is running.
var ErrDragActive = errors.New("layout: drag already active")

// PointerKind distinguishes gesture events.
type PointerKind int

const (
	PointerMove PointerKind = iota
	PointerRelease
)

// Pointer is one gesture event. X is the pointer position measured from the
// left edge of the viewport, which is the sidebar width it implies.
type Pointer struct {
	Kind PointerKind
	X    int
}

// Splitter holds the sidebar width. It is safe for concurrent use.
type Splitter struct {
	mu       sync.Mutex
	minWidth int
	viewport int
	width    int
	dragging bool
}

func NewSplitter(minWidth, initial, viewport int) *Splitter {
	if minWidth <= 0 {
		minWidth = DefaultMinWidth
	}
	if initial <= 0 {
		initial = DefaultInitialWidth
	}
	s := &Splitter{minWidth: minWidth, viewport: viewport}
	s.width = s.clamp(initial)
	return s
}

// Clamp bounds width to [min, 0.6 × viewport]. When the viewport is too
// narrow for the minimum, the minimum wins.
func Clamp(width, minWidth, viewport int) int {
	maxWidth := int(float64(viewport) * maxViewportShare)
	if width > maxWidth {
		width = maxWidth
	}
	if width < minWidth {
		width = minWidth
	}
	return width
}

func (s *Splitter) clamp(w int) int {
	return Clamp(w, s.minWidth, s.viewport)
}

// Width returns the current sidebar width.
func (s *Splitter) Width() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width
}

// SetWidth sets the width, clamped, and returns the value applied.
func (s *Splitter) SetWidth(w int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = s.clamp(w)
	return s.width
}

// Resize updates the viewport and re-clamps the current width.
func (s *Splitter) Resize(viewport int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = viewport
	s.width = s.clamp(s.width)
}

// Dragging reports whether a drag gesture is in progress.
func (s *Splitter) Dragging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dragging
}

// Drag runs one resize gesture. Move events are applied only while the
// gesture is active; it ends on release, when events is closed, or when ctx
// is done. The active flag is cleared on every one of those exits.
func (s *Splitter) Drag(ctx context.Context, events <-chan Pointer) error {
	s.mu.Lock()
	if s.dragging {
		s.mu.Unlock()
		return ErrDragActive
	}
	s.dragging = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.dragging = false
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Kind {
			case PointerMove:
				s.SetWidth(ev.X)
			case PointerRelease:
				return nil
			}
		}
	}
}
