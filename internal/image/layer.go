// Package image provides raster loading, mask overlays, and compositing.
package image

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeError reports a file that exists but could not be decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode opens and decodes the image at path with whichever registered
// decoder matches its header.
func Decode(path string) (image.Image, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", &DecodeError{Path: path, Err: err}
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, "", &DecodeError{Path: path, Err: err}
	}
	if img.Bounds().Empty() {
		return nil, "", &DecodeError{Path: path, Err: fmt.Errorf("image has no pixels")}
	}
	return img, format, nil
}

// LoadRGBA decodes a base image into an RGBA buffer anchored at (0,0).
func LoadRGBA(path string) (*image.RGBA, error) {
	img, _, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return ToRGBA(img), nil
}

// LoadGray decodes a mask into a single-channel intensity buffer.
func LoadGray(path string) (*image.Gray, error) {
	img, _, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return ToGray(img), nil
}

// ToRGBA copies img into a new RGBA buffer whose bounds start at the origin.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// ToGray converts img to a packed single-channel buffer whose bounds start at
// the origin. 16-bit masks keep every nonzero sample nonzero.
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()

	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) && g.Stride == b.Dx() {
		return g
	}

	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	if g16, ok := img.(*image.Gray16); ok {
		i := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				v := g16.Gray16At(x, y).Y
				switch {
				case v == 0:
				case v < 256:
					out.Pix[i] = 1
				default:
					out.Pix[i] = uint8(v >> 8)
				}
				i++
			}
		}
		return out
	}

	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// SupportedFormats returns the default extensions recognised for pairing.
func SupportedFormats() []string {
	return []string{"jpg", "png", "tif"}
}

// HasExtension reports whether path ends in one of exts. Extensions are
// compared case-insensitively and may be given with or without the dot.
func HasExtension(path string, exts []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == strings.TrimPrefix(strings.ToLower(e), ".") {
			return true
		}
	}
	return false
}
