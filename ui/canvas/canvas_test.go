package canvas

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"mask-reviewer/internal/app"
	"mask-reviewer/internal/config"
	"mask-reviewer/internal/dataset"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
)

type solidLoader struct{}

func (solidLoader) LoadPair(_ context.Context, id string) (dataset.Pair, error) {
	base := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for i := range base.Pix {
		base.Pix[i] = 0xFF
		if i%4 == 1 || i%4 == 2 {
			base.Pix[i] = 0
		}
	}
	return dataset.Pair{ID: id, Base: base, Mask: image.NewGray(image.Rect(0, 0, 8, 4))}, nil
}

func newTestCanvas(t *testing.T) (*ReviewCanvas, *app.Session) {
	t.Helper()
	test.NewTempApp(t)

	s := app.NewSession(app.SessionConfig{
		Order:  []string{"A"},
		Loader: solidLoader{},
		Viewer: config.DefaultConfig().ViewerOptions(),
	})
	d := app.NewDispatcher(s, nil, 1.1, nil)
	rc := NewReviewCanvas(context.Background(), s, d, color.Black)
	rc.Resize(fyne.NewSize(80, 40))

	if err := s.GoTo(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	return rc, s
}

func TestDrawFitsPairOnFirstFrame(t *testing.T) {
	rc, s := newTestCanvas(t)

	rc.draw(80, 40)
	if z := s.Viewport().Zoom(); z != 10 {
		t.Errorf("expected fit zoom 10, got %v", z)
	}

	// A second draw renders with the fitted view.
	out := rc.draw(80, 40).(*image.RGBA)
	if c := out.RGBAAt(40, 20); c.R < 250 || c.G > 5 {
		t.Errorf("expected red image pixel at the centre, got %+v", c)
	}
	if rc.GetRenderedOutput() != out {
		t.Error("expected the last output to be kept")
	}
}

func TestScrollZoomsAndDragPans(t *testing.T) {
	rc, s := newTestCanvas(t)
	rc.draw(80, 40)
	rc.draw(40, 20)
	if z := s.Viewport().Zoom(); z != 5 {
		t.Fatalf("expected fit zoom 5 after shrinking, got %v", z)
	}

	rc.Scrolled(&fyne.ScrollEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(10, 10)},
		Scrolled:   fyne.NewDelta(0, 1),
	})
	if z := s.Viewport().Zoom(); z <= 5 {
		t.Errorf("expected scroll up to zoom in, got %v", z)
	}

	before := s.Viewport().Origin()
	rc.Dragged(&fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(12, 14)},
		Dragged:    fyne.NewDelta(2, 4),
	})
	rc.Dragged(&fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(15, 14)},
		Dragged:    fyne.NewDelta(3, 0),
	})
	rc.DragEnd()

	after := s.Viewport().Origin()
	// Widget is 80 units wide and the raster 40 pixels, so one unit is half a pixel.
	if dx, dy := after.X-before.X, after.Y-before.Y; math.Abs(dx-2.5) > 1e-9 || math.Abs(dy-2) > 1e-9 {
		t.Errorf("expected pan by (2.5,2), got (%v,%v)", dx, dy)
	}
}

func TestTapReleasesFocus(t *testing.T) {
	rc, _ := newTestCanvas(t)
	entry := widget.NewEntry()
	w := fyne.CurrentApp().NewWindow("review")
	w.SetContent(container.NewVBox(entry, rc))

	w.Canvas().Focus(entry)
	if w.Canvas().Focused() == nil {
		t.Fatal("expected the entry to take focus")
	}

	test.Tap(rc)
	if f := w.Canvas().Focused(); f != nil {
		t.Errorf("expected tapping the image to clear focus, got %T", f)
	}
}
