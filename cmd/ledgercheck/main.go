// Command ledgercheck validates a review ledger against a dataset and prints
// review progress and the identifier where review would resume.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"

	"mask-reviewer/internal/annotation"
	"mask-reviewer/internal/config"
	"mask-reviewer/internal/dataset"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	baseDir := flag.String("base", "", "Directory of satellite images (overrides data.baseDir)")
	maskDir := flag.String("mask", "", "Directory of masks (overrides data.maskDir)")
	ledgerPath := flag.String("ledger", "", "Path to the ledger to check")
	flag.Parse()

	if *ledgerPath == "" {
		fmt.Println("Usage: ledgercheck -ledger <path> [-config <file>] [-base <dir>] [-mask <dir>]")
		os.Exit(1)
	}

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

	order, err := dataset.NewSource(cfg.Data.BaseDir, cfg.Data.MaskDir, cfg.Data.Extensions, nil).Resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve pairs: %v\n", err)
		os.Exit(1)
	}

	store := annotation.NewStore(nil)
	fmt.Printf("=== Parsing %s ===\n", *ledgerPath)
	resume, err := store.ImportFile(*ledgerPath, order)
	if err != nil {
		reportParseErrors(err)
		os.Exit(1)
	}

	known := make(map[string]bool, len(order))
	reviewed := 0
	for _, id := range order {
		known[id] = true
		if store.Has(id) {
			reviewed++
		}
	}
	var unknown []string
	for _, id := range store.IDs() {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}

	stats := store.Stats()
	fmt.Printf("\nRecords:    %d\n", store.Len())
	fmt.Printf("Reviewed:   %d / %d\n", reviewed, len(order))
	fmt.Printf("Unreviewed: %d\n", len(order)-reviewed)
	fmt.Printf("Flagged:    %d\n", stats.Flagged)

	tags := make([]annotation.Tag, 0, len(stats.PerTag))
	for tag := range stats.PerTag {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	for _, tag := range tags {
		label := fmt.Sprintf("tag %d", tag)
		for _, tc := range cfg.Tags {
			if annotation.Tag(tc.Code) == tag {
				label = tc.Label
			}
		}
		fmt.Printf("  %-16s %d\n", label+":", stats.PerTag[tag])
	}

	if len(unknown) > 0 {
		fmt.Printf("\n%d identifiers not in the dataset:\n", len(unknown))
		for _, id := range unknown {
			fmt.Printf("  %s\n", id)
		}
	}

	fmt.Printf("\nResume at %d: %s\n", resume, order[resume])
}

func reportParseErrors(err error) {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}

	fmt.Fprintf(os.Stderr, "Ledger rejected:\n")
	for _, e := range errs {
		var pe *annotation.ParseError
		if errors.As(e, &pe) {
			fmt.Fprintf(os.Stderr, "  line %d: %q: %v\n", pe.Line, pe.Text, pe.Err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %v\n", e)
	}
}
