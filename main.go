// Package main provides the entry point for the mask reviewer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"mask-reviewer/internal/annotation"
	"mask-reviewer/internal/app"
	"mask-reviewer/internal/config"
	"mask-reviewer/internal/dataset"
	"mask-reviewer/internal/version"
	"mask-reviewer/ui/mainwindow"
	"mask-reviewer/ui/prefs"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to a YAML config file")
		baseDir     = flag.String("base", "", "Directory of satellite images (overrides data.baseDir)")
		maskDir     = flag.String("mask", "", "Directory of masks (overrides data.maskDir)")
		ledgerPath  = flag.String("ledger", "", "Ledger to import at startup; review resumes at the first unreviewed image")
		writeConfig = flag.String("write-config", "", "Write a default config file to this path and exit")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("mask-reviewer %s (built %s, commit %s)\n", version.Version, version.BuildTime, version.GitCommit)
		return
	}

	if *writeConfig != "" {
		if err := config.CreateDefaultConfigFile(*writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote default config to %s\n", *writeConfig)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *baseDir != "" {
		cfg.Data.BaseDir = *baseDir
	}
	if *maskDir != "" {
		cfg.Data.MaskDir = *maskDir
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)
	logger.Info("starting", "version", version.Version, "base", cfg.Data.BaseDir, "mask", cfg.Data.MaskDir)

	src := dataset.NewSource(cfg.Data.BaseDir, cfg.Data.MaskDir, cfg.Data.Extensions, logger)
	order, err := src.Resolve()
	if err != nil {
		logger.Error("cannot start review", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	opts := cfg.ViewerOptions()

	fyneApp := fyneapp.NewWithID("io.maskreviewer")
	fyneApp.Settings().SetTheme(app.NewReviewerTheme(opts.OverlayColor))

	session := app.NewSession(app.SessionConfig{
		Order:  order,
		Loader: src,
		Store:  annotation.NewStore(logger),
		Viewer: opts,
		Post:   fyne.Do,
		Logger: logger,
	})

	win := mainwindow.New(ctx, fyneApp, session, cfg, prefs.Load(), logger)
	win.SetMaster()

	start(ctx, session, *ledgerPath, logger)

	win.ShowAndRun()
}

// start shows the first pair, or the resume point of ledgerPath when given.
// Load failures are already reported to the window through EventError.
func start(ctx context.Context, session *app.Session, ledgerPath string, logger *slog.Logger) {
	if ledgerPath != "" {
		if err := session.Import(ctx, ledgerPath); err == nil {
			return
		}
		logger.Warn("starting without ledger", "path", ledgerPath)
	}
	_ = session.GoTo(ctx, 0)
}
