// Package mainwindow provides the main review window.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mask-reviewer/internal/annotation"
	"mask-reviewer/internal/app"
	"mask-reviewer/internal/config"
	"mask-reviewer/internal/version"
	"mask-reviewer/ui/canvas"
	"mask-reviewer/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const defaultExportName = "annotations.txt"

// MainWindow is the review window.
type MainWindow struct {
	fyne.Window
	app        fyne.App
	ctx        context.Context
	cfg        *config.Config
	prefs      *prefs.Prefs
	session    *app.Session
	dispatcher *app.Dispatcher
	resize     *app.Debouncer
	logger     *slog.Logger

	canvas    *canvas.ReviewCanvas
	jump      *widget.Select
	checks    map[annotation.Tag]*widget.Check
	statusBar *widget.Label

	progressBind binding.Float
	progressText binding.String

	// Set while widgets are updated from session state so their callbacks
	// don't feed the change back.
	syncing bool
	closed  bool
}

// New creates the main window for session.
func New(ctx context.Context, fyneApp fyne.App, session *app.Session, cfg *config.Config, p *prefs.Prefs, logger *slog.Logger) *MainWindow {
	if logger == nil {
		logger = slog.Default()
	}
	win := fyneApp.NewWindow(cfg.Window.Title)

	mw := &MainWindow{
		Window:  win,
		app:     fyneApp,
		ctx:     ctx,
		cfg:     cfg,
		prefs:   p,
		session: session,
		logger:  logger,
		checks:  make(map[annotation.Tag]*widget.Check),
	}

	opts := cfg.ViewerOptions()
	tagKeys := make(map[string]annotation.Tag, len(cfg.Tags))
	for _, tc := range cfg.Tags {
		tagKeys[tc.Key] = annotation.Tag(tc.Code)
	}
	mw.resize = app.NewDebouncer(opts.DebounceInterval, fyne.Do)
	mw.dispatcher = app.NewDispatcher(session, mw.resize, opts.ZoomStep, tagKeys)

	mw.canvas = canvas.NewReviewCanvas(ctx, session, mw.dispatcher, opts.Background)

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()

	mw.Resize(fyne.NewSize(
		float32(p.FloatWithFallback(prefs.KeyWindowWidth, float64(cfg.Window.Width))),
		float32(p.FloatWithFallback(prefs.KeyWindowHeight, float64(cfg.Window.Height))),
	))
	mw.SetCloseIntercept(mw.quit)
	mw.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		mw.key(string(ev.Name))
	})

	mw.updateProgress()
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.statusBar = widget.NewLabel("Ready")

	mw.progressBind = binding.NewFloat()
	mw.progressText = binding.NewString()
	progress := widget.NewProgressBarWithData(mw.progressBind)
	progressRow := container.NewBorder(nil, nil, nil, widget.NewLabelWithData(mw.progressText), progress)

	mw.jump = widget.NewSelect(mw.session.Order(), func(id string) {
		if mw.syncing {
			return
		}
		mw.Canvas().Unfocus()
		mw.dispatcher.Dispatch(mw.ctx, app.Event{Kind: app.SelectionEvent, ID: id})
	})
	mw.jump.PlaceHolder = "Jump to..."

	tagRow := container.NewHBox(widget.NewLabel("Tags:"))
	for _, tc := range mw.cfg.Tags {
		tag := annotation.Tag(tc.Code)
		check := widget.NewCheck(fmt.Sprintf("%s (%s)", tc.Label, tc.Key), func(on bool) {
			if mw.syncing {
				return
			}
			// A focused check would swallow the review shortcuts.
			mw.Canvas().Unfocus()
			mw.session.SetTag(tag, on)
		})
		mw.checks[tag] = check
		tagRow.Add(check)
	}

	toolbar := container.NewHBox(
		mw.button("Prev", theme.NavigateBackIcon(), func() { mw.key(app.KeyLeft) }),
		mw.button("Next", theme.NavigateNextIcon(), func() { mw.key(app.KeyRight) }),
		mw.button("Save & Next", theme.ConfirmIcon(), func() { mw.key(app.KeySpace) }),
		mw.button("Mask", theme.VisibilityIcon(), func() { mw.key(app.KeyMask) }),
		mw.button("Fit", theme.ZoomFitIcon(), mw.session.ResetView),
		widget.NewSeparator(),
		mw.button("Import", theme.FolderOpenIcon(), mw.onImport),
		mw.button("Export", theme.DocumentSaveIcon(), mw.onExport),
		layout.NewSpacer(),
		mw.jump,
	)

	content := container.NewBorder(
		container.NewVBox(toolbar, tagRow, progressRow), // top
		container.NewPadded(mw.statusBar),              // bottom
		nil,                                            // left
		nil,                                            // right
		mw.canvas,                                      // center
	)
	mw.SetContent(content)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	quitItem := fyne.NewMenuItem("Quit", mw.quit)
	quitItem.IsQuit = true
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Import Ledger...", mw.onImport),
		fyne.NewMenuItem("Export Ledger...", mw.onExport),
		fyne.NewMenuItemSeparator(),
		quitItem,
	)
	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Fit to Window", mw.session.ResetView),
		fyne.NewMenuItem("Toggle Mask", mw.session.ToggleMask),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)
	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, helpMenu))
}

// setupEventHandlers registers for session events.
func (mw *MainWindow) setupEventHandlers() {
	mw.session.On(app.EventPairLoaded, func(data interface{}) {
		ev, ok := data.(app.PairLoaded)
		if !ok {
			return
		}
		mw.SetTitle(fmt.Sprintf("%s - %s (%d/%d)",
			mw.cfg.Window.Title, filepath.Base(ev.BasePath), ev.Index+1, ev.Total))
		mw.syncJump()
		mw.updateProgress()
		mw.updateStatus()
	})

	mw.session.On(app.EventTagsChanged, func(data interface{}) {
		tags, _ := data.(annotation.TagSet)
		mw.syncing = true
		for tag, check := range mw.checks {
			check.SetChecked(tags.Contains(tag))
		}
		mw.syncing = false
		mw.updateStatus()
	})

	mw.session.On(app.EventViewChanged, func(interface{}) {
		mw.updateStatus()
	})

	mw.session.On(app.EventImported, func(data interface{}) {
		if ev, ok := data.(app.Imported); ok {
			mw.statusBar.SetText(fmt.Sprintf("Imported %d records from %s", ev.Records, filepath.Base(ev.Path)))
		}
		mw.updateProgress()
	})

	mw.session.On(app.EventExported, func(data interface{}) {
		if ev, ok := data.(app.Exported); ok {
			mw.statusBar.SetText(fmt.Sprintf("Exported %d records to %s", ev.Records, filepath.Base(ev.Path)))
		}
		mw.updateProgress()
	})

	mw.session.On(app.EventError, func(data interface{}) {
		// A failed jump leaves the previous pair on screen.
		mw.syncJump()
		if err, ok := data.(error); ok && !mw.closed {
			dialog.ShowError(err, mw.Window)
		}
	})
}

// syncJump shows the displayed identifier in the jump list.
func (mw *MainWindow) syncJump() {
	mw.syncing = true
	defer func() { mw.syncing = false }()
	if id, ok := mw.session.CurrentID(); ok {
		mw.jump.SetSelected(id)
		return
	}
	mw.jump.ClearSelected()
}

// button creates a toolbar button that leaves keyboard focus with the window.
func (mw *MainWindow) button(label string, icon fyne.Resource, action func()) *widget.Button {
	return widget.NewButtonWithIcon(label, icon, func() {
		mw.Canvas().Unfocus()
		action()
	})
}

func (mw *MainWindow) key(name string) {
	mw.dispatcher.Dispatch(mw.ctx, app.Event{Kind: app.KeyEvent, Key: name})
}

// updateProgress moves the progress bar to the displayed position and labels
// it "position / total (n reviewed)".
func (mw *MainWindow) updateProgress() {
	reviewed, total := mw.session.Progress()
	position := mw.session.Index() + 1
	frac := 0.0
	if total > 0 {
		frac = float64(position) / float64(total)
	}
	_ = mw.progressBind.Set(frac)
	_ = mw.progressText.Set(fmt.Sprintf("%d / %d (%d reviewed)", position, total, reviewed))
}

// updateStatus shows the current identifier, coverage, zoom and toggles.
func (mw *MainWindow) updateStatus() {
	id, ok := mw.session.CurrentID()
	if !ok {
		return
	}
	mask := "on"
	if !mw.session.MaskVisible() {
		mask = "off"
	}
	mw.statusBar.SetText(fmt.Sprintf("%s  coverage %.2f%%  zoom %.2fx  mask %s  tags [%s]",
		id, mw.session.Coverage()*100, mw.session.Viewport().Zoom(), mask, mw.session.Pending()))
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
}

func (mw *MainWindow) onImport() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		// Failures are reported through EventError.
		_ = mw.session.Import(mw.ctx, path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".txt", ".csv"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// onExport asks for a folder and a file name. The file save dialog is not used
// because it truncates the chosen file before the ledger is written.
func (mw *MainWindow) onExport() {
	fd := dialog.NewFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil || dir == nil {
			return
		}
		mw.promptExportName(dir.Path())
	}, mw.Window)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) promptExportName(dir string) {
	name := widget.NewEntry()
	name.SetText(defaultExportName)
	name.Validator = func(s string) error {
		if strings.TrimSpace(s) == "" || strings.ContainsRune(s, filepath.Separator) {
			return errors.New("enter a file name")
		}
		return nil
	}
	dialog.ShowForm("Export Ledger", "Export", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("File name", name)},
		func(ok bool) {
			if !ok {
				return
			}
			path := filepath.Join(dir, strings.TrimSpace(name.Text))
			if _, err := os.Stat(path); err == nil {
				dialog.ShowConfirm("Overwrite Ledger",
					fmt.Sprintf("%s already exists. Replace it?", filepath.Base(path)),
					func(replace bool) {
						if replace {
							_ = mw.exportTo(path)
						}
					}, mw.Window)
				return
			}
			_ = mw.exportTo(path)
		}, mw.Window)
}

// exportTo writes the ledger to path. Failures are reported through EventError
// and leave an existing file as it was.
func (mw *MainWindow) exportTo(path string) error {
	mw.saveLastDir(path)
	return mw.session.Export(path)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+mw.cfg.Window.Title,
		fmt.Sprintf("%s v%s\n\nReview satellite images against their segmentation masks.\n\nBuilt: %s\nCommit: %s",
			mw.cfg.Window.Title, version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}

// quit commits pending toggles, writes the autosave ledger, stores the
// window size and closes the window.
func (mw *MainWindow) quit() {
	if mw.closed {
		return
	}
	mw.closed = true
	mw.resize.Stop()

	if err := mw.session.Close(mw.cfg.Ledger.AutosavePath); err != nil {
		mw.logger.Error("autosave failed", "path", mw.cfg.Ledger.AutosavePath, "err", err)
	}

	size := mw.Canvas().Size()
	mw.prefs.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
	mw.prefs.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
	if err := mw.prefs.Save(); err != nil {
		mw.logger.Warn("failed to save preferences", "err", err)
	}

	mw.Close()
}
