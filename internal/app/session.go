package app

import (
	"context"
	"image"
	"log/slog"
	"slices"
	"sync"

	"mask-reviewer/internal/annotation"
	"mask-reviewer/internal/config"
	"mask-reviewer/internal/dataset"
	maskimage "mask-reviewer/internal/image"
	"mask-reviewer/internal/view"
	"mask-reviewer/pkg/geometry"
)

// PairLoader loads the base image and mask for an identifier.
type PairLoader interface {
	LoadPair(ctx context.Context, id string) (dataset.Pair, error)
}

// SessionConfig holds the collaborators of a Session.
type SessionConfig struct {
	// Order is the fixed review order of identifiers.
	Order  []string
	Loader PairLoader
	Store  *annotation.Store
	Viewer config.Viewer

	// Post runs a function on the control goroutine. When nil, Request loads
	// synchronously.
	Post   func(func())
	Logger *slog.Logger
}

// Session walks the ordered identifiers, keeps the displayed pair and the
// pending tag toggles, and commits toggles to the store before moving on.
// Everything except On and Emit must be called from the control goroutine.
type Session struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventListener

	loader     PairLoader
	store      *annotation.Store
	viewport   *view.Viewport
	compositor *maskimage.Compositor
	post       func(func())
	logger     *slog.Logger

	order []string
	index int

	pair      *dataset.Pair
	composite *image.RGBA
	coverage  float64
	showMask  bool
	canvas    geometry.Size

	pending annotation.TagSet
	dirty   bool

	generation uint64

	// Index of the asynchronous load in flight; valid while loading is set.
	target  int
	loading bool
}

// NewSession creates a session positioned before the first identifier.
func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := cfg.Store
	if store == nil {
		store = annotation.NewStore(logger)
	}
	return &Session{
		listeners:  make(map[EventType][]EventListener),
		loader:     cfg.Loader,
		store:      store,
		viewport:   view.NewViewport(cfg.Viewer),
		compositor: maskimage.NewCompositor(cfg.Viewer.OverlayColor, cfg.Viewer.StrictMaskDimensions),
		post:       cfg.Post,
		logger:     logger,
		order:      slices.Clone(cfg.Order),
		index:      -1,
		showMask:   true,
	}
}

// Order returns the review order.
func (s *Session) Order() []string { return s.order }

// Len returns the number of identifiers under review.
func (s *Session) Len() int { return len(s.order) }

// Index returns the index of the displayed pair, or -1 before the first load.
func (s *Session) Index() int { return s.index }

// Target returns the index a pending Request is loading, or Index when no
// request is in flight. Relative navigation steps from it.
func (s *Session) Target() int {
	if s.loading {
		return s.target
	}
	return s.index
}

// Loading reports whether an asynchronous load is in flight.
func (s *Session) Loading() bool { return s.loading }

// Store returns the annotation store.
func (s *Session) Store() *annotation.Store { return s.store }

// Viewport returns the session's viewport.
func (s *Session) Viewport() *view.Viewport { return s.viewport }

// CurrentID returns the identifier of the displayed pair.
func (s *Session) CurrentID() (string, bool) {
	if s.pair == nil {
		return "", false
	}
	return s.pair.ID, true
}

// Pair returns the displayed pair, or nil.
func (s *Session) Pair() *dataset.Pair { return s.pair }

// Coverage returns the mask coverage of the displayed pair.
func (s *Session) Coverage() float64 { return s.coverage }

// Pending returns the toggle state for the displayed pair.
func (s *Session) Pending() annotation.TagSet { return s.pending.Clone() }

// Dirty reports whether the toggles were edited since the last commit or load.
func (s *Session) Dirty() bool { return s.dirty }

// MaskVisible reports whether the overlay is shown.
func (s *Session) MaskVisible() bool { return s.showMask }

// Progress returns how many identifiers in the order have a record.
func (s *Session) Progress() (reviewed, total int) {
	for _, id := range s.order {
		if s.store.Has(id) {
			reviewed++
		}
	}
	return reviewed, len(s.order)
}

// Displayed returns the composite when the mask is visible, otherwise the base
// image. It is nil before the first load.
func (s *Session) Displayed() image.Image {
	if s.pair == nil {
		return nil
	}
	if s.showMask {
		return s.composite
	}
	return s.pair.Base
}

// Render renders the displayed image through the viewport.
func (s *Session) Render() (view.Frame, bool) {
	img := s.Displayed()
	if img == nil {
		return s.viewport.LastFrame()
	}
	return s.viewport.Render(img)
}

// GoTo displays the pair at index. An index out of range, or the index already
// displayed, is a no-op. A failed load is returned and emitted as EventError;
// the displayed pair and index are left as they were.
func (s *Session) GoTo(ctx context.Context, index int) error {
	if index < 0 || index >= len(s.order) {
		return nil
	}
	if s.pair != nil && index == s.index {
		return nil
	}
	return s.load(ctx, index)
}

// Next moves to the following identifier.
func (s *Session) Next(ctx context.Context) error {
	return s.GoTo(ctx, s.index+1)
}

// Prev moves to the preceding identifier.
func (s *Session) Prev(ctx context.Context) error {
	return s.GoTo(ctx, s.index-1)
}

// SaveAndAdvance records the current toggles, even when untouched, and moves
// to the next identifier.
func (s *Session) SaveAndAdvance(ctx context.Context) error {
	s.MarkReviewed()
	return s.Next(ctx)
}

// Jump moves to id. An unknown identifier is ignored.
func (s *Session) Jump(ctx context.Context, id string) error {
	i := slices.Index(s.order, id)
	if i < 0 {
		s.logger.Debug("jump to unknown identifier ignored", "id", id)
		return nil
	}
	return s.GoTo(ctx, i)
}

// Request is the asynchronous form of GoTo. The pair is decoded on another
// goroutine and applied through Post; a result that arrives after a newer
// request or load has started is dropped. Requesting the displayed index
// cancels a pending load.
func (s *Session) Request(ctx context.Context, index int) {
	if s.post == nil {
		_ = s.GoTo(ctx, index)
		return
	}
	if index < 0 || index >= len(s.order) {
		return
	}
	if s.pair != nil && index == s.index {
		if s.loading {
			s.generation++
			s.loading = false
		}
		return
	}
	if s.loading && index == s.target {
		return
	}

	s.generation++
	gen := s.generation
	s.target = index
	s.loading = true
	id := s.order[index]
	go func() {
		pair, err := s.loader.LoadPair(ctx, id)
		s.post(func() {
			if gen != s.generation {
				s.logger.Debug("discarding stale load", "id", id)
				return
			}
			s.loading = false
			if err != nil {
				s.fail(err)
				return
			}
			_ = s.apply(index, pair)
		})
	}()
}

// MarkReviewed commits the current toggles unconditionally.
func (s *Session) MarkReviewed() {
	s.commit(true)
}

// CommitCurrent writes the pending toggles of the displayed identifier into the
// store when they were edited since the last commit or load.
func (s *Session) CommitCurrent() {
	s.commit(false)
}

func (s *Session) commit(force bool) {
	if s.pair == nil || (!force && !s.dirty) {
		return
	}
	s.store.SetTags(s.pair.ID, s.pending)
	s.dirty = false
	s.logger.Debug("tags committed", "id", s.pair.ID, "tags", s.pending.String())
}

// ToggleTag flips tag for the displayed pair without reloading it.
func (s *Session) ToggleTag(tag annotation.Tag) {
	if s.pair == nil {
		return
	}
	s.pending = s.pending.Toggle(tag)
	s.dirty = true
	s.Emit(EventTagsChanged, s.Pending())
}

// SetTag sets tag on or off, doing nothing when it already is.
func (s *Session) SetTag(tag annotation.Tag, on bool) {
	if s.pending.Contains(tag) == on {
		return
	}
	s.ToggleTag(tag)
}

// ToggleMask shows or hides the overlay.
func (s *Session) ToggleMask() {
	s.showMask = !s.showMask
	s.Emit(EventViewChanged, s.viewport.State())
}

// ZoomAt zooms by factor around canvas point (x, y).
func (s *Session) ZoomAt(x, y, factor float64) bool {
	if !s.viewport.ZoomAt(x, y, factor) {
		return false
	}
	s.Emit(EventViewChanged, s.viewport.State())
	return true
}

// PanBy moves the view by (dx, dy) canvas pixels.
func (s *Session) PanBy(dx, dy float64) {
	s.viewport.PanBy(dx, dy)
	s.Emit(EventViewChanged, s.viewport.State())
}

// Resize records the canvas size and refits the displayed pair.
func (s *Session) Resize(width, height float64) {
	size := geometry.NewSize(width, height)
	if size.Empty() {
		return
	}
	s.canvas = size
	s.ResetView()
}

// ResetView fits the displayed pair to the canvas.
func (s *Session) ResetView() {
	if s.pair == nil {
		return
	}
	b := s.pair.Base.Bounds()
	s.viewport.Reset(geometry.NewSize(float64(b.Dx()), float64(b.Dy())), s.canvas)
	s.Emit(EventViewChanged, s.viewport.State())
}

// Import replaces all records with the ledger at path and displays the resume
// identifier, reloading it even when it is already displayed.
func (s *Session) Import(ctx context.Context, path string) error {
	s.CommitCurrent()
	resume, err := s.store.ImportFile(path, s.order)
	if err != nil {
		s.fail(err)
		return err
	}
	s.Emit(EventImported, Imported{Path: path, Records: s.store.Len(), Resume: resume})

	if len(s.order) == 0 {
		return nil
	}
	if err := s.load(ctx, resume); err != nil {
		// The previous pair stays on screen; show its imported tags.
		if s.pair != nil {
			s.pending = s.store.Tags(s.pair.ID)
			s.dirty = false
			s.Emit(EventTagsChanged, s.Pending())
		}
		return err
	}
	return nil
}

// Export commits pending toggles and writes every record to path.
func (s *Session) Export(path string) error {
	s.CommitCurrent()
	if err := s.store.ExportFile(path); err != nil {
		s.fail(err)
		return err
	}
	s.Emit(EventExported, Exported{Path: path, Records: s.store.Len()})
	return nil
}

// Close commits pending toggles and, when autosavePath is set, exports.
func (s *Session) Close(autosavePath string) error {
	s.CommitCurrent()
	if autosavePath == "" {
		return nil
	}
	return s.Export(autosavePath)
}

func (s *Session) load(ctx context.Context, index int) error {
	s.generation++
	s.loading = false
	id := s.order[index]
	pair, err := s.loader.LoadPair(ctx, id)
	if err != nil {
		s.fail(err)
		return err
	}
	return s.apply(index, pair)
}

// apply makes pair the displayed pair. Pending toggles of the previous pair
// are committed first.
func (s *Session) apply(index int, pair dataset.Pair) error {
	size := pair.Base.Bounds().Size()
	overlay, err := s.compositor.BuildOverlay(pair.Mask, size)
	if err != nil {
		s.fail(err)
		return err
	}

	s.CommitCurrent()

	s.index = index
	s.pair = &pair
	s.composite = maskimage.CompositeOver(pair.Base, overlay)
	s.coverage = maskimage.Coverage(pair.Mask)
	s.pending = s.store.Tags(pair.ID)
	s.dirty = false
	s.viewport.Reset(geometry.NewSize(float64(size.X), float64(size.Y)), s.canvas)

	s.logger.Info("pair loaded", "index", index, "id", pair.ID, "coverage", s.coverage)
	s.Emit(EventPairLoaded, PairLoaded{
		Index:    index,
		Total:    len(s.order),
		ID:       pair.ID,
		BasePath: pair.BasePath,
		MaskPath: pair.MaskPath,
		Coverage: s.coverage,
	})
	s.Emit(EventTagsChanged, s.Pending())
	s.Emit(EventViewChanged, s.viewport.State())
	return nil
}

func (s *Session) fail(err error) {
	s.logger.Error("session operation failed", "index", s.index, "err", err)
	s.Emit(EventError, err)
}
