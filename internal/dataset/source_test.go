package dataset

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	maskimage "mask-reviewer/internal/image"
)

// writePNG writes a w x h image filled with c.
func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// createDataset lays out sat/ and mask/ under a temp dir.
func createDataset(t *testing.T, baseNames, maskNames []string) (string, string) {
	t.Helper()
	root := t.TempDir()
	baseDir := filepath.Join(root, "sat")
	maskDir := filepath.Join(root, "mask")
	for _, dir := range []string{baseDir, maskDir} {
		if err := os.Mkdir(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range baseNames {
		writePNG(t, filepath.Join(baseDir, name), 4, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	}
	for _, name := range maskNames {
		writePNG(t, filepath.Join(maskDir, name), 4, 3, color.White)
	}
	return baseDir, maskDir
}

func TestIdentifierOf(t *testing.T) {
	tests := map[string]string{
		"T001_sat.png":       "T001",
		"T001_mask_v2.tif":   "T001",
		"/data/sat/A7_x.jpg": "A7",
		"plain.png":          "plain",
		"_leading.png":       "",
		"cafe\u0301_sat.png": "caf\u00e9",
	}
	for name, want := range tests {
		if got := IdentifierOf(name); got != want {
			t.Errorf("IdentifierOf(%q): expected %q, got %q", name, want, got)
		}
	}
}

func TestResolveIntersection(t *testing.T) {
	baseDir, maskDir := createDataset(t,
		[]string{"T003_sat.png", "T001_sat.png", "T002_sat.png", "T009_sat.png"},
		[]string{"T002_mask.png", "T001_mask.png", "T003_mask.png", "T004_mask.png"},
	)
	// Unrecognised extensions never take part in pairing.
	if err := os.WriteFile(filepath.Join(baseDir, "T004_notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	src := NewSource(baseDir, maskDir, nil, nil)
	ids, err := src.Resolve()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"T001", "T002", "T003"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("expected %v, got %v", want, ids)
	}
}

func TestResolveNoMatch(t *testing.T) {
	baseDir, maskDir := createDataset(t, []string{"A_sat.png"}, []string{"B_mask.png"})

	_, err := NewSource(baseDir, maskDir, nil, nil).Resolve()
	var noMatch *NoMatchError
	if !errors.As(err, &noMatch) {
		t.Fatalf("expected NoMatchError, got %v", err)
	}
}

func TestResolveMissingDirectory(t *testing.T) {
	baseDir, _ := createDataset(t, []string{"A_sat.png"}, nil)
	missing := filepath.Join(t.TempDir(), "nope")

	_, err := NewSource(baseDir, missing, nil, nil).Resolve()
	var dirErr *DirectoryMissingError
	if !errors.As(err, &dirErr) {
		t.Fatalf("expected DirectoryMissingError, got %v", err)
	}
	if dirErr.Path != missing {
		t.Errorf("expected path %s, got %s", missing, dirErr.Path)
	}
}

func TestLoadPair(t *testing.T) {
	baseDir, maskDir := createDataset(t,
		[]string{"T1_sat.png", "T10_sat.png"},
		[]string{"T10_mask.png", "T1_mask.png"},
	)

	pair, err := NewSource(baseDir, maskDir, nil, nil).LoadPair(context.Background(), "T1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if filepath.Base(pair.BasePath) != "T1_sat.png" || filepath.Base(pair.MaskPath) != "T1_mask.png" {
		t.Errorf("expected T1 files, got %s and %s", pair.BasePath, pair.MaskPath)
	}
	if pair.Base.Bounds().Size() != image.Pt(4, 3) {
		t.Errorf("expected 4x3 base, got %v", pair.Base.Bounds().Size())
	}
	if pair.Mask.GrayAt(0, 0).Y == 0 {
		t.Error("expected white mask to load as nonzero intensity")
	}
}

func TestLoadPairMissingFile(t *testing.T) {
	baseDir, maskDir := createDataset(t, []string{"T1_sat.png"}, []string{"T1_mask.png"})
	if err := os.Remove(filepath.Join(maskDir, "T1_mask.png")); err != nil {
		t.Fatal(err)
	}

	_, err := NewSource(baseDir, maskDir, nil, nil).LoadPair(context.Background(), "T1")
	var missing *FileMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected FileMissingError, got %v", err)
	}
	if missing.Dir != maskDir || missing.ID != "T1" {
		t.Errorf("unexpected error fields %+v", missing)
	}
}

func TestLoadPairDecodeError(t *testing.T) {
	baseDir, maskDir := createDataset(t, nil, []string{"T1_mask.png"})
	if err := os.WriteFile(filepath.Join(baseDir, "T1_sat.png"), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewSource(baseDir, maskDir, nil, nil).LoadPair(context.Background(), "T1")
	var decErr *maskimage.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestLoadPairCancelled(t *testing.T) {
	baseDir, maskDir := createDataset(t, []string{"T1_sat.png"}, []string{"T1_mask.png"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSource(baseDir, maskDir, nil, nil).LoadPair(ctx, "T1")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
