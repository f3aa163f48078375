// Command pairtest decodes one image pair, reports its sizes and mask coverage,
// and writes the composite (optionally rendered through the viewport) as PNG.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"

	"mask-reviewer/internal/config"
	"mask-reviewer/internal/dataset"
	maskimage "mask-reviewer/internal/image"
	"mask-reviewer/internal/view"
	"mask-reviewer/pkg/geometry"

	"github.com/disintegration/imaging"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	baseDir := flag.String("base", "", "Directory of satellite images (overrides data.baseDir)")
	maskDir := flag.String("mask", "", "Directory of masks (overrides data.maskDir)")
	id := flag.String("id", "", "Identifier to load (default: first matched pair)")
	out := flag.String("out", "", "Write the composite to this PNG file")
	width := flag.Int("w", 0, "Render through a canvas of this width")
	height := flag.Int("h", 0, "Render through a canvas of this height")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *baseDir != "" {
		cfg.Data.BaseDir = *baseDir
	}
	if *maskDir != "" {
		cfg.Data.MaskDir = *maskDir
	}
	opts := cfg.ViewerOptions()

	src := dataset.NewSource(cfg.Data.BaseDir, cfg.Data.MaskDir, cfg.Data.Extensions, nil)
	order, err := src.Resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve pairs: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Matched %d pairs in %s and %s\n", len(order), cfg.Data.BaseDir, cfg.Data.MaskDir)

	target := *id
	if target == "" {
		target = order[0]
	}

	pair, err := src.LoadPair(context.Background(), target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", target, err)
		os.Exit(1)
	}

	baseSize := pair.Base.Bounds().Size()
	maskSize := pair.Mask.Bounds().Size()
	fmt.Printf("\n=== %s ===\n", pair.ID)
	fmt.Printf("  Base: %s (%dx%d)\n", pair.BasePath, baseSize.X, baseSize.Y)
	fmt.Printf("  Mask: %s (%dx%d)\n", pair.MaskPath, maskSize.X, maskSize.Y)
	if baseSize != maskSize {
		fmt.Printf("  Mask size differs from base; strict=%v\n", opts.StrictMaskDimensions)
	}
	fmt.Printf("  Coverage: %.3f%%\n", maskimage.Coverage(pair.Mask)*100)

	overlay, err := maskimage.NewCompositor(opts.OverlayColor, opts.StrictMaskDimensions).BuildOverlay(pair.Mask, baseSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build overlay: %v\n", err)
		os.Exit(1)
	}
	var result image.Image = maskimage.CompositeOver(pair.Base, overlay)

	if *width > 0 && *height > 0 {
		vp := view.NewViewport(opts)
		vp.Reset(
			geometry.NewSize(float64(baseSize.X), float64(baseSize.Y)),
			geometry.NewSize(float64(*width), float64(*height)),
		)
		frame, ok := vp.Render(result)
		if !ok {
			fmt.Fprintln(os.Stderr, "Canvas too small to render")
			os.Exit(1)
		}
		canvas := image.NewRGBA(image.Rect(0, 0, *width, *height))
		view.Draw(canvas, frame, opts.Background)
		fmt.Printf("  Rendered at zoom %.3f, origin (%.1f, %.1f)\n", vp.Zoom(), vp.Origin().X, vp.Origin().Y)
		result = canvas
	}

	if *out == "" {
		return
	}
	if err := imaging.Save(result, *out); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("\nWrote %s\n", *out)
}
