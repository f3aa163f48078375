package app

import (
	"context"
	"slices"

	"mask-reviewer/internal/annotation"
	"mask-reviewer/pkg/geometry"
)

// EventKind identifies the kind of input event.
type EventKind int

const (
	KeyEvent EventKind = iota
	WheelEvent
	ButtonDownEvent
	MotionEvent
	ButtonUpEvent
	ResizeEvent
	SelectionEvent
)

// Key names, matching fyne.KeyName values.
const (
	KeyLeft  = "Left"
	KeyRight = "Right"
	KeySpace = "Space"
	KeyMask  = "Q"
)

// Event is one input event from the front end.
type Event struct {
	Kind EventKind

	// Key is the key name of a KeyEvent.
	Key string

	// X and Y are canvas coordinates for pointer events.
	X, Y float64

	// Delta is the wheel movement; positive zooms in.
	Delta float64

	// Width and Height are the new canvas size of a ResizeEvent.
	Width, Height float64

	// ID is the identifier chosen in a SelectionEvent.
	ID string
}

// Dispatcher routes input events to a Session. It owns the drag state and
// debounces resizes.
type Dispatcher struct {
	session  *Session
	resize   *Debouncer
	zoomStep float64
	tagKeys  map[string]annotation.Tag

	dragging bool
	last     geometry.Point2D
}

// NewDispatcher creates a Dispatcher. tagKeys maps key names to the tag they
// toggle. A nil resize debouncer applies resizes immediately.
func NewDispatcher(session *Session, resize *Debouncer, zoomStep float64, tagKeys map[string]annotation.Tag) *Dispatcher {
	return &Dispatcher{
		session:  session,
		resize:   resize,
		zoomStep: zoomStep,
		tagKeys:  tagKeys,
	}
}

// Dragging reports whether a drag is in progress.
func (d *Dispatcher) Dragging() bool {
	return d.dragging
}

// Dispatch handles ev and reports whether it was consumed.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) bool {
	s := d.session
	switch ev.Kind {
	case KeyEvent:
		return d.key(ctx, ev.Key)

	case WheelEvent:
		if ev.Delta == 0 {
			return false
		}
		factor := d.zoomStep
		if ev.Delta < 0 {
			factor = 2 - d.zoomStep
		}
		return s.ZoomAt(ev.X, ev.Y, factor)

	case ButtonDownEvent:
		d.dragging = true
		d.last = geometry.NewPoint2D(ev.X, ev.Y)
		return true

	case MotionEvent:
		if !d.dragging {
			return false
		}
		p := geometry.NewPoint2D(ev.X, ev.Y)
		delta := p.Sub(d.last)
		d.last = p
		s.PanBy(delta.X, delta.Y)
		return true

	case ButtonUpEvent:
		wasDragging := d.dragging
		d.dragging = false
		return wasDragging

	case ResizeEvent:
		w, h := ev.Width, ev.Height
		if geometry.NewSize(w, h).Empty() {
			return false
		}
		if d.resize == nil {
			s.Resize(w, h)
		} else {
			d.resize.Trigger(func() { s.Resize(w, h) })
		}
		return true

	case SelectionEvent:
		i := slices.Index(s.Order(), ev.ID)
		if i < 0 {
			return false
		}
		s.Request(ctx, i)
		return true
	}
	return false
}

func (d *Dispatcher) key(ctx context.Context, key string) bool {
	s := d.session
	switch key {
	case KeyLeft:
		s.Request(ctx, s.Target()-1)
	case KeyRight:
		s.Request(ctx, s.Target()+1)
	case KeySpace:
		// Only the displayed pair can be saved; its successor is not shown yet.
		if _, ok := s.CurrentID(); !ok || s.Loading() {
			return false
		}
		s.MarkReviewed()
		s.Request(ctx, s.Index()+1)
	case KeyMask:
		s.ToggleMask()
	default:
		tag, ok := d.tagKeys[key]
		if !ok {
			return false
		}
		s.ToggleTag(tag)
	}
	return true
}
