package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", prefsFile)

	p := LoadFrom(path)
	if got := p.FloatWithFallback(KeyWindowWidth, 1280); got != 1280 {
		t.Errorf("expected fallback 1280, got %v", got)
	}

	p.SetFloat(KeyWindowWidth, 1024)
	p.SetString(KeyLastDir, "/data/review")
	if err := p.Save(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reloaded := LoadFrom(path)
	if got := reloaded.FloatWithFallback(KeyWindowWidth, 0); got != 1024 {
		t.Errorf("expected 1024, got %v", got)
	}
	if got := reloaded.String(KeyLastDir); got != "/data/review" {
		t.Errorf("expected /data/review, got %q", got)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), prefsFile)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := LoadFrom(path)
	if got := p.String(KeyLastDir); got != "" {
		t.Errorf("expected empty value, got %q", got)
	}
}
