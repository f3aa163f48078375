package app

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"mask-reviewer/internal/annotation"
)

func defaultTagKeys() map[string]annotation.Tag {
	return map[string]annotation.Tag{
		"1": annotation.TagMissingLabel,
		"2": annotation.TagWrongLabel,
		"3": annotation.TagShapeMismatch,
	}
}

func TestDispatchKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t, "A", "B", "C")
	d := NewDispatcher(s, nil, 1.1, defaultTagKeys())

	steps := []struct {
		key       string
		wantIndex int
	}{
		{KeyRight, 0},
		{"1", 0},
		{KeySpace, 1},
		{KeyRight, 2},
		{KeyRight, 2},
		{KeyLeft, 1},
		{KeyLeft, 0},
	}
	for _, step := range steps {
		d.Dispatch(ctx, Event{Kind: KeyEvent, Key: step.key})
		if s.Index() != step.wantIndex {
			t.Fatalf("after %q: expected index %d, got %d", step.key, step.wantIndex, s.Index())
		}
	}

	if !s.Pending().Equal(annotation.TagSet{1}) {
		t.Errorf("expected A's saved toggle, got %v", s.Pending())
	}
	if s.Store().Has("B") {
		t.Error("expected B to stay unreviewed")
	}

	d.Dispatch(ctx, Event{Kind: KeyEvent, Key: KeyMask})
	if s.MaskVisible() {
		t.Error("expected mask to be hidden")
	}

	d.Dispatch(ctx, Event{Kind: KeyEvent, Key: "Q"})
	if !s.MaskVisible() {
		t.Error("expected Q to show the mask again")
	}

	if d.Dispatch(ctx, Event{Kind: KeyEvent, Key: "F7"}) {
		t.Error("expected unbound key to be ignored")
	}
}

func TestDispatchStepsFromPendingLoad(t *testing.T) {
	ctx := context.Background()
	queue := make(chan func(), 8)
	loader := &fakeLoader{fail: make(map[string]error)}
	s := NewSession(SessionConfig{
		Order:  []string{"A", "B", "C", "D"},
		Loader: loader,
		Viewer: testViewer(),
		Post:   func(fn func()) { queue <- fn },
	})
	d := NewDispatcher(s, nil, 1.1, nil)

	if err := s.GoTo(ctx, 0); err != nil {
		t.Fatal(err)
	}

	d.Dispatch(ctx, Event{Kind: KeyEvent, Key: KeyRight})
	d.Dispatch(ctx, Event{Kind: KeyEvent, Key: KeyRight})
	if s.Target() != 2 || !s.Loading() {
		t.Fatalf("expected second step to target C, got target %d loading %v", s.Target(), s.Loading())
	}
	if d.Dispatch(ctx, Event{Kind: KeyEvent, Key: KeySpace}) {
		t.Error("expected save-and-advance to wait for the pending load")
	}

	for i := 0; i < 2; i++ {
		select {
		case fn := <-queue:
			fn()
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for a posted load")
		}
	}

	if id, _ := s.CurrentID(); id != "C" || s.Loading() {
		t.Errorf("expected C displayed with nothing pending, got %s loading %v", id, s.Loading())
	}
	if s.Store().Len() != 0 {
		t.Errorf("expected no records, got %d", s.Store().Len())
	}

	d.Dispatch(ctx, Event{Kind: KeyEvent, Key: KeyLeft})
	d.Dispatch(ctx, Event{Kind: KeyEvent, Key: KeyRight})
	if s.Loading() || s.Target() != 2 {
		t.Errorf("expected stepping back to C to cancel the load, got target %d loading %v", s.Target(), s.Loading())
	}
}

func TestDispatchDragPans(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t, "A")
	d := NewDispatcher(s, nil, 1.1, nil)
	d.Dispatch(ctx, Event{Kind: KeyEvent, Key: KeyRight})
	d.Dispatch(ctx, Event{Kind: ResizeEvent, Width: 160, Height: 80})

	start := s.Viewport().Origin()

	if d.Dispatch(ctx, Event{Kind: MotionEvent, X: 50, Y: 50}) {
		t.Error("expected motion without a button to be ignored")
	}
	d.Dispatch(ctx, Event{Kind: ButtonDownEvent, X: 10, Y: 10})
	d.Dispatch(ctx, Event{Kind: MotionEvent, X: 15, Y: 20})
	d.Dispatch(ctx, Event{Kind: MotionEvent, X: 12, Y: 25})
	d.Dispatch(ctx, Event{Kind: ButtonUpEvent, X: 12, Y: 25})
	d.Dispatch(ctx, Event{Kind: MotionEvent, X: 100, Y: 100})

	got := s.Viewport().Origin()
	if got.X-start.X != 2 || got.Y-start.Y != 15 {
		t.Errorf("expected pan by (2,15), got (%v,%v)", got.X-start.X, got.Y-start.Y)
	}
	if d.Dragging() {
		t.Error("expected drag to end on button up")
	}
}

func TestDispatchWheelZooms(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t, "A")
	d := NewDispatcher(s, nil, 1.1, nil)
	d.Dispatch(ctx, Event{Kind: KeyEvent, Key: KeyRight})
	d.Dispatch(ctx, Event{Kind: ResizeEvent, Width: 16, Height: 8})

	z := s.Viewport().Zoom()
	d.Dispatch(ctx, Event{Kind: WheelEvent, X: 4, Y: 4, Delta: 1})
	if math.Abs(s.Viewport().Zoom()-z*1.1) > 1e-9 {
		t.Errorf("expected zoom %v, got %v", z*1.1, s.Viewport().Zoom())
	}

	z = s.Viewport().Zoom()
	d.Dispatch(ctx, Event{Kind: WheelEvent, X: 4, Y: 4, Delta: -3})
	if math.Abs(s.Viewport().Zoom()-z*0.9) > 1e-9 {
		t.Errorf("expected zoom %v, got %v", z*0.9, s.Viewport().Zoom())
	}
}

func TestDispatchSelection(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t, "A", "B", "C")
	d := NewDispatcher(s, nil, 1.1, nil)

	if !d.Dispatch(ctx, Event{Kind: SelectionEvent, ID: "B"}) || s.Index() != 1 {
		t.Errorf("expected selection to move to B, got index %d", s.Index())
	}
	if d.Dispatch(ctx, Event{Kind: SelectionEvent, ID: "nope"}) {
		t.Error("expected unknown selection to be ignored")
	}
}

func TestDebouncerRunsLastTriggerOnce(t *testing.T) {
	var runs, last atomic.Int32
	done := make(chan struct{}, 4)
	d := NewDebouncer(30*time.Millisecond, func(fn func()) {
		fn()
		done <- struct{}{}
	})

	for i := int32(1); i <= 5; i++ {
		d.Trigger(func() {
			runs.Add(1)
			last.Store(i)
		})
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced action")
	}
	time.Sleep(60 * time.Millisecond)

	if runs.Load() != 1 || last.Load() != 5 {
		t.Errorf("expected one run of the last trigger, got %d runs, last %d", runs.Load(), last.Load())
	}
}

func TestDebouncerStop(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(10*time.Millisecond, nil)
	d.Trigger(func() { runs.Add(1) })
	d.Stop()

	time.Sleep(50 * time.Millisecond)
	if runs.Load() != 0 {
		t.Errorf("expected stopped action not to run, got %d runs", runs.Load())
	}
}

func TestDispatchResizeDebounced(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t, "A")
	queue := make(chan func(), 8)
	d := NewDispatcher(s, NewDebouncer(20*time.Millisecond, func(fn func()) { queue <- fn }), 1.1, nil)
	d.Dispatch(ctx, Event{Kind: KeyEvent, Key: KeyRight})

	d.Dispatch(ctx, Event{Kind: ResizeEvent, Width: 100, Height: 100})
	d.Dispatch(ctx, Event{Kind: ResizeEvent, Width: 80, Height: 40})
	if got := s.Viewport().CanvasSize(); !got.Empty() {
		t.Fatalf("expected no resize before the interval, got %+v", got)
	}

	select {
	case fn := <-queue:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for resize")
	}

	if got := s.Viewport().CanvasSize(); got.Width != 80 || got.Height != 40 {
		t.Errorf("expected canvas 80x40, got %+v", got)
	}
	if z := s.Viewport().Zoom(); z != 10 {
		t.Errorf("expected fit zoom 10 for an 8x4 image, got %v", z)
	}
}
