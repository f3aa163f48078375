// Package dataset pairs base images with their masks and loads them.
package dataset

import (
	"context"
	"fmt"
	stdimage "image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mask-reviewer/internal/image"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

// DirectoryMissingError reports a base or mask directory that does not exist.
type DirectoryMissingError struct {
	Path string
	Err  error
}

func (e *DirectoryMissingError) Error() string {
	return fmt.Sprintf("directory %s not found: %v", e.Path, e.Err)
}

func (e *DirectoryMissingError) Unwrap() error { return e.Err }

// NoMatchError reports that no identifier appears in both directories.
type NoMatchError struct {
	BaseDir string
	MaskDir string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no matching files in %s and %s", e.BaseDir, e.MaskDir)
}

// FileMissingError reports an identifier with no file in one of the directories.
type FileMissingError struct {
	ID  string
	Dir string
}

func (e *FileMissingError) Error() string {
	return fmt.Sprintf("no file for %s in %s", e.ID, e.Dir)
}

// Pair is one decoded base image and its mask.
type Pair struct {
	ID       string
	BasePath string
	MaskPath string
	Base     *stdimage.RGBA
	Mask     *stdimage.Gray
}

// Source resolves identifiers from two sibling directories.
type Source struct {
	BaseDir    string
	MaskDir    string
	Extensions []string

	logger *slog.Logger
}

// NewSource creates a Source. A nil logger uses slog.Default; empty
// extensions use image.SupportedFormats.
func NewSource(baseDir, maskDir string, exts []string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	if len(exts) == 0 {
		exts = image.SupportedFormats()
	}
	return &Source{
		BaseDir:    baseDir,
		MaskDir:    maskDir,
		Extensions: exts,
		logger:     logger,
	}
}

// IdentifierOf derives the identifier from a file name: everything before the
// first underscore, or before the extension when there is none.
func IdentifierOf(name string) string {
	base := filepath.Base(name)
	if i := strings.IndexByte(base, '_'); i >= 0 {
		base = base[:i]
	} else {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return norm.NFC.String(base)
}

// Resolve returns the sorted identifiers present in both directories.
func (s *Source) Resolve() ([]string, error) {
	baseFiles, err := s.list(s.BaseDir)
	if err != nil {
		return nil, err
	}
	maskFiles, err := s.list(s.MaskDir)
	if err != nil {
		return nil, err
	}

	baseIDs := make(map[string]bool, len(baseFiles))
	for _, name := range baseFiles {
		if id := IdentifierOf(name); id != "" {
			baseIDs[id] = true
		}
	}

	seen := make(map[string]bool)
	var ids []string
	for _, name := range maskFiles {
		id := IdentifierOf(name)
		if id == "" || !baseIDs[id] || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, &NoMatchError{BaseDir: s.BaseDir, MaskDir: s.MaskDir}
	}

	sort.Strings(ids)
	s.logger.Info("resolved image pairs",
		"pairs", len(ids), "base_files", len(baseFiles), "mask_files", len(maskFiles))
	return ids, nil
}

// LoadPair finds and decodes the base image and mask for id. Both files are
// decoded concurrently.
func (s *Source) LoadPair(ctx context.Context, id string) (Pair, error) {
	basePath, err := s.find(s.BaseDir, id)
	if err != nil {
		return Pair{}, err
	}
	maskPath, err := s.find(s.MaskDir, id)
	if err != nil {
		return Pair{}, err
	}

	pair := Pair{ID: id, BasePath: basePath, MaskPath: maskPath}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		img, err := image.LoadRGBA(basePath)
		if err != nil {
			return err
		}
		pair.Base = img
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		mask, err := image.LoadGray(maskPath)
		if err != nil {
			return err
		}
		pair.Mask = mask
		return nil
	})
	if err := g.Wait(); err != nil {
		return Pair{}, err
	}

	s.logger.Debug("loaded pair", "id", id,
		"base", filepath.Base(basePath), "mask", filepath.Base(maskPath),
		"size", pair.Base.Bounds().Size())
	return pair, nil
}

// list returns the sorted names of regular files with a recognised extension.
func (s *Source) list(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &DirectoryMissingError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &DirectoryMissingError{Path: dir, Err: fmt.Errorf("not a directory")}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &DirectoryMissingError{Path: dir, Err: err}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !image.HasExtension(e.Name(), s.Extensions) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// find returns the first file in dir, in lexical order, that starts with id
// and whose identifier is exactly id.
func (s *Source) find(dir, id string) (string, error) {
	names, err := s.list(dir)
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if strings.HasPrefix(norm.NFC.String(name), id) && IdentifierOf(name) == id {
			return filepath.Join(dir, name), nil
		}
	}
	return "", &FileMissingError{ID: id, Dir: dir}
}
