// Package view maps image space to screen space and renders scaled frames.
package view

import (
	"math"

	"mask-reviewer/internal/config"
	"mask-reviewer/pkg/geometry"
)

// State is the zoom and pan of a viewport: screen = image*Zoom + Origin.
type State struct {
	Zoom   float64
	Origin geometry.Point2D
}

// Viewport owns the view state for one canvas. It is not safe for concurrent
// use.
type Viewport struct {
	opts   config.Viewer
	state  State
	image  geometry.Size
	canvas geometry.Size

	last     Frame
	hasFrame bool
	cache    scaledCache
}

// NewViewport creates a viewport at zoom 1 with the origin at the canvas corner.
func NewViewport(opts config.Viewer) *Viewport {
	return &Viewport{
		opts:  opts,
		state: State{Zoom: 1},
	}
}

// State returns the current zoom and origin.
func (v *Viewport) State() State {
	return v.state
}

// Zoom returns the current zoom level.
func (v *Viewport) Zoom() float64 {
	return v.state.Zoom
}

// Origin returns the screen position of the image's top-left corner.
func (v *Viewport) Origin() geometry.Point2D {
	return v.state.Origin
}

// CanvasSize returns the canvas size given to the last Reset.
func (v *Viewport) CanvasSize() geometry.Size {
	return v.canvas
}

// Reset fits the image inside the canvas and centres it. A fit zoom outside
// the configured range is clamped and the clamped image is centred. Sizes that
// are not positive leave the viewport unchanged.
func (v *Viewport) Reset(imageSize, canvasSize geometry.Size) {
	if imageSize.Empty() || canvasSize.Empty() {
		return
	}

	zoom := math.Min(canvasSize.Width/imageSize.Width, canvasSize.Height/imageSize.Height)
	zoom = math.Max(v.opts.MinZoom, math.Min(v.opts.MaxZoom, zoom))

	v.image = imageSize
	v.canvas = canvasSize
	v.state = State{
		Zoom: zoom,
		Origin: geometry.Point2D{
			X: (canvasSize.Width - imageSize.Width*zoom) / 2,
			Y: (canvasSize.Height - imageSize.Height*zoom) / 2,
		},
	}
}

// ZoomAt multiplies the zoom by factor keeping the image point under (x, y)
// fixed on screen. A factor that would leave the zoom range, or that is not a
// positive finite number, is rejected and the state is untouched.
func (v *Viewport) ZoomAt(x, y, factor float64) bool {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return false
	}
	zoom := v.state.Zoom * factor
	if zoom < v.opts.MinZoom || zoom > v.opts.MaxZoom {
		return false
	}

	p := geometry.Point2D{X: x, Y: y}
	v.state = State{
		Zoom:   zoom,
		Origin: p.Sub(p.Sub(v.state.Origin).Scale(factor)),
	}
	return true
}

// PanBy moves the origin by (dx, dy) screen pixels. The origin is unbounded.
func (v *Viewport) PanBy(dx, dy float64) {
	v.state.Origin = v.state.Origin.Add(geometry.Point2D{X: dx, Y: dy})
}

// Transform returns the image-to-screen transform.
func (v *Viewport) Transform() geometry.AffineTransform {
	return geometry.Translation(v.state.Origin.X, v.state.Origin.Y).
		Compose(geometry.Scale(v.state.Zoom, v.state.Zoom))
}

// ImageToScreen converts image coordinates to canvas coordinates.
func (v *Viewport) ImageToScreen(p geometry.Point2D) geometry.Point2D {
	return v.Transform().Apply(p)
}

// ScreenToImage converts canvas coordinates to image coordinates.
func (v *Viewport) ScreenToImage(p geometry.Point2D) (geometry.Point2D, bool) {
	inv, ok := v.Transform().Inverse()
	if !ok {
		return geometry.Point2D{}, false
	}
	return inv.Apply(p), true
}
