// Package canvas provides the review canvas: a raster showing the session's
// current frame, forwarding wheel, drag and size changes to a dispatcher.
package canvas

import (
	"context"
	"image"
	"image/color"

	"mask-reviewer/internal/app"
	"mask-reviewer/internal/view"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

// ReviewCanvas displays the current pair. Pointer positions are converted to
// raster pixels so they share the viewport's coordinate space.
type ReviewCanvas struct {
	widget.BaseWidget

	ctx        context.Context
	session    *app.Session
	dispatcher *app.Dispatcher
	background color.Color

	raster *fynecanvas.Raster

	// Raster size in pixels and pixels per logical unit, from the last draw
	pixelW, pixelH int
	scale          float64

	dragging bool

	// Last rendered output for inspection
	lastOutput *image.RGBA
}

// NewReviewCanvas creates a canvas bound to session.
func NewReviewCanvas(ctx context.Context, session *app.Session, dispatcher *app.Dispatcher, background color.Color) *ReviewCanvas {
	rc := &ReviewCanvas{
		ctx:        ctx,
		session:    session,
		dispatcher: dispatcher,
		background: background,
		scale:      1,
	}

	rc.raster = fynecanvas.NewRaster(rc.draw)
	rc.raster.ScaleMode = fynecanvas.ImageScalePixels

	session.On(app.EventViewChanged, func(interface{}) {
		rc.Refresh()
	})

	rc.ExtendBaseWidget(rc)
	return rc
}

// CreateRenderer implements fyne.Widget.
func (rc *ReviewCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(rc.raster)
}

// MinSize keeps the canvas usable in small windows.
func (rc *ReviewCanvas) MinSize() fyne.Size {
	return fyne.NewSize(320, 240)
}

// Tapped returns keyboard focus to the window so review shortcuts reach it.
func (rc *ReviewCanvas) Tapped(*fyne.PointEvent) {
	rc.releaseFocus()
}

// Scrolled zooms toward the pointer.
func (rc *ReviewCanvas) Scrolled(ev *fyne.ScrollEvent) {
	x, y := rc.toPixels(ev.Position)
	rc.dispatch(app.Event{Kind: app.WheelEvent, X: x, Y: y, Delta: float64(ev.Scrolled.DY)})
}

// Dragged pans the view.
func (rc *ReviewCanvas) Dragged(ev *fyne.DragEvent) {
	if !rc.dragging {
		rc.dragging = true
		rc.releaseFocus()
		start := ev.Position.Subtract(ev.Dragged)
		x, y := rc.toPixels(start)
		rc.dispatch(app.Event{Kind: app.ButtonDownEvent, X: x, Y: y})
	}
	x, y := rc.toPixels(ev.Position)
	rc.dispatch(app.Event{Kind: app.MotionEvent, X: x, Y: y})
}

// DragEnd finishes a pan.
func (rc *ReviewCanvas) DragEnd() {
	rc.dragging = false
	rc.dispatch(app.Event{Kind: app.ButtonUpEvent})
}

// GetRenderedOutput returns the last rendered canvas output.
func (rc *ReviewCanvas) GetRenderedOutput() *image.RGBA {
	return rc.lastOutput
}

// Refresh redraws the raster.
func (rc *ReviewCanvas) Refresh() {
	rc.raster.Refresh()
}

func (rc *ReviewCanvas) dispatch(ev app.Event) {
	rc.dispatcher.Dispatch(rc.ctx, ev)
}

func (rc *ReviewCanvas) releaseFocus() {
	if c := fyne.CurrentApp().Driver().CanvasForObject(rc); c != nil {
		c.Unfocus()
	}
}

func (rc *ReviewCanvas) toPixels(p fyne.Position) (float64, float64) {
	return float64(p.X) * rc.scale, float64(p.Y) * rc.scale
}

// draw is the raster drawing function. A change of raster size is reported as
// a resize, which the dispatcher debounces.
func (rc *ReviewCanvas) draw(w, h int) image.Image {
	if w != rc.pixelW || h != rc.pixelH {
		rc.pixelW, rc.pixelH = w, h
		if size := rc.Size(); size.Width > 0 {
			rc.scale = float64(w) / float64(size.Width)
		}
		rc.dispatch(app.Event{Kind: app.ResizeEvent, Width: float64(w), Height: float64(h)})
	}

	output := image.NewRGBA(image.Rect(0, 0, w, h))
	frame, _ := rc.session.Render()
	view.Draw(output, frame, rc.background)

	rc.lastOutput = output
	return output
}
