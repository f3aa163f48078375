package view

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"mask-reviewer/pkg/geometry"

	"github.com/disintegration/imaging"
)

// Frame is a scaled bitmap and where its top-left corner sits on the canvas.
// A nil Image means nothing of the composite is visible.
type Frame struct {
	Image *image.NRGBA
	At    image.Point
	Zoom  float64
}

// scaledCache holds the last resampled region so pans within it skip the
// resample.
type scaledCache struct {
	src    image.Image
	zoom   float64
	region image.Rectangle
	scaled *image.NRGBA
}

func (c *scaledCache) covers(src image.Image, zoom float64, visible image.Rectangle) bool {
	return c.scaled != nil && c.src == src && c.zoom == zoom && visible.In(c.region)
}

// Render scales the visible part of composite by the current zoom with Lanczos
// resampling. A region around the visible part is resampled too and cached, so
// a following pan usually reuses it. When the scaled image would be smaller
// than one pixel in either dimension nothing is rendered and the previous frame
// is returned with false.
func (v *Viewport) Render(composite image.Image) (Frame, bool) {
	if composite == nil {
		return v.last, false
	}
	bounds := composite.Bounds()
	zoom := v.state.Zoom
	if float64(bounds.Dx())*zoom < 1 || float64(bounds.Dy())*zoom < 1 {
		return v.last, false
	}

	visible := v.visibleRegion(bounds, 0)
	if visible.Empty() {
		v.last = Frame{Zoom: zoom}
		v.hasFrame = true
		return v.last, true
	}

	if !v.cache.covers(composite, zoom, visible) {
		region := v.visibleRegion(bounds, 0.5)
		w := max(1, int(math.Round(float64(region.Dx())*zoom)))
		h := max(1, int(math.Round(float64(region.Dy())*zoom)))
		v.cache = scaledCache{
			src:    composite,
			zoom:   zoom,
			region: region,
			scaled: imaging.Resize(imaging.Crop(composite, region), w, h, imaging.Lanczos),
		}
	}

	rel := v.cache.region.Min.Sub(bounds.Min)
	v.last = Frame{
		Image: v.cache.scaled,
		At: image.Point{
			X: int(math.Round(v.state.Origin.X + float64(rel.X)*zoom)),
			Y: int(math.Round(v.state.Origin.Y + float64(rel.Y)*zoom)),
		},
		Zoom: zoom,
	}
	v.hasFrame = true
	return v.last, true
}

// LastFrame returns the most recently rendered frame.
func (v *Viewport) LastFrame() (Frame, bool) {
	return v.last, v.hasFrame
}

// visibleRegion returns the part of bounds shown on the canvas, grown by margin
// canvas extents on every side. Without a canvas the whole image is visible.
func (v *Viewport) visibleRegion(bounds image.Rectangle, margin float64) image.Rectangle {
	if v.canvas.Empty() {
		return bounds
	}
	zoom := v.state.Zoom
	mx := v.canvas.Width * margin
	my := v.canvas.Height * margin

	shown := geometry.NewRect(
		(-mx-v.state.Origin.X)/zoom,
		(-my-v.state.Origin.Y)/zoom,
		(v.canvas.Width+2*mx)/zoom,
		(v.canvas.Height+2*my)/zoom,
	).Intersect(geometry.NewRect(0, 0, float64(bounds.Dx()), float64(bounds.Dy())))
	if shown.Width == 0 || shown.Height == 0 {
		return image.Rectangle{}
	}

	return image.Rect(
		int(math.Floor(shown.X)), int(math.Floor(shown.Y)),
		int(math.Ceil(shown.X+shown.Width)), int(math.Ceil(shown.Y+shown.Height)),
	).Add(bounds.Min)
}

// Draw fills dst with background and paints frame over it.
func Draw(dst *image.RGBA, frame Frame, background color.Color) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	if frame.Image == nil {
		return
	}
	src := frame.Image.Bounds()
	r := image.Rectangle{Min: frame.At, Max: frame.At.Add(src.Size())}
	draw.Draw(dst, r, frame.Image, src.Min, draw.Over)
}
