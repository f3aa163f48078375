package image

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"gocv.io/x/gocv"
)

// DimensionMismatchError reports a mask whose size differs from its base image
// when strict dimensions are required.
type DimensionMismatchError struct {
	Base image.Point
	Mask image.Point
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("mask is %dx%d but base image is %dx%d",
		e.Mask.X, e.Mask.Y, e.Base.X, e.Base.Y)
}

// Compositor turns binary masks into coloured overlays.
type Compositor struct {
	// Color is applied to every nonzero mask pixel.
	Color color.NRGBA

	// Strict rejects masks that would need resampling.
	Strict bool
}

// NewCompositor creates a Compositor painting masks with col.
func NewCompositor(col color.NRGBA, strict bool) *Compositor {
	return &Compositor{Color: col, Strict: strict}
}

// BuildOverlay maps every zero mask pixel to transparent and every nonzero one
// to the overlay colour. The result is always size; a mask of another size is
// resampled nearest-neighbour first so it stays binary.
func (c *Compositor) BuildOverlay(mask *image.Gray, size image.Point) (*image.NRGBA, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("invalid overlay size %dx%d", size.X, size.Y)
	}
	mask = ToGray(mask)
	maskSize := mask.Bounds().Size()
	if maskSize.X == 0 || maskSize.Y == 0 {
		return nil, fmt.Errorf("mask has no pixels")
	}
	if maskSize != size && c.Strict {
		return nil, &DimensionMismatchError{Base: size, Mask: maskSize}
	}

	src, err := gocv.NewMatFromBytes(maskSize.Y, maskSize.X, gocv.MatTypeCV8UC1, mask.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap mask: %w", err)
	}
	defer src.Close()

	work := src
	if maskSize != size {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(src, &resized, size, 0, 0, gocv.InterpolationNearestNeighbor)
		work = resized
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(work, &binary, 0, 255, gocv.ThresholdBinary)

	bits := binary.ToBytes()
	if len(bits) != size.X*size.Y {
		return nil, fmt.Errorf("thresholded mask has %d bytes, want %d", len(bits), size.X*size.Y)
	}

	out := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
	px := [4]uint8{c.Color.R, c.Color.G, c.Color.B, c.Color.A}
	for i, v := range bits {
		if v != 0 {
			copy(out.Pix[i*4:i*4+4], px[:])
		}
	}
	return out, nil
}

// Coverage returns the fraction of nonzero mask pixels.
func Coverage(mask *image.Gray) float64 {
	mask = ToGray(mask)
	size := mask.Bounds().Size()
	total := size.X * size.Y
	if total == 0 {
		return 0
	}

	m, err := gocv.NewMatFromBytes(size.Y, size.X, gocv.MatTypeCV8UC1, mask.Pix)
	if err != nil {
		return 0
	}
	defer m.Close()

	return float64(gocv.CountNonZero(m)) / float64(total)
}

// CompositeOver draws overlay on top of base using Porter-Duff "over" and
// returns a new buffer the size of base. Neither input is modified.
func CompositeOver(base, overlay image.Image) *image.RGBA {
	b := base.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), base, b.Min, draw.Src)
	if overlay != nil {
		draw.Draw(out, out.Bounds(), overlay, overlay.Bounds().Min, draw.Over)
	}
	return out
}
