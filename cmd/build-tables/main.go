package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/config"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/corpus"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/refdata"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/snapshot"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/ui"
)

// #region main
func main() {
	fs := flag.NewFlagSet("build-tables", flag.ExitOnError)
	countsPath := fs.String("counts", "", "transition counts CSV (from_state,from_sub_status,to_state,to_sub_status,count)")
	dryRun := fs.Bool("dry-run", false, "report thresholds without writing a build")
	prune := fs.String("prune", "", "delete an inactive build and its edges, then exit")
	cfg, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}

	if *prune != "" {
		runPrune(cfg, *prune, logger)
		return
	}

	paths := cfg.PatternPaths()
	if (len(paths) == 0) == (*countsPath == "") {
		fmt.Fprintln(os.Stderr, "usage: build-tables -patterns a.csv[,b.csv] [-db path] [-dry-run]")
		fmt.Fprintln(os.Stderr, "       build-tables -counts transitions.csv [-db path] [-dry-run]")
		fmt.Fprintln(os.Stderr, "       build-tables -prune <build-id> [-db path]")
		os.Exit(2)
	}

	fmt.Println(ui.RenderHeader("=== Build Admission Tables ==="))
	fmt.Printf("  DB: %s\n", cfg.DB)

	ctx := context.Background()
	var (
		counts   gate.Counts
		patterns []corpus.Pattern
		stats    corpus.LoadStats
		source   string
	)
	if *countsPath != "" {
		source = *countsPath
		f, err := os.Open(*countsPath)
		if err != nil {
			logger.Error("open counts", "path", *countsPath, "err", err)
			os.Exit(1)
		}
		var skipped int
		counts, skipped, err = gate.LoadCountsCSV(f)
		f.Close()
		if err != nil {
			logger.Error("read counts", "path", *countsPath, "err", err)
			os.Exit(1)
		}
		if skipped > 0 {
			logger.Warn("skipped malformed count rows", "rows", skipped)
		}
	} else {
		source = cfg.Patterns
		patterns, stats, err = corpus.LoadFiles(ctx, paths)
		if err != nil {
			logger.Error("load patterns", "err", err)
			os.Exit(1)
		}
		if stats.Skipped > 0 {
			logger.Warn("skipped malformed pattern rows", "rows", stats.Skipped, "of", stats.Rows)
		}
		fmt.Printf("  Patterns: %s loaded, %s skipped\n", ui.Count(stats.Loaded), ui.Count(stats.Skipped))
		counts = corpus.Aggregate(patterns)
	}

	tables := gate.BuildTables(counts, gate.DefaultBuildConfig())
	printThresholds(tables)

	if *dryRun {
		fmt.Println(ui.RenderMuted("\nDry run, nothing written."))
		return
	}

	store, err := snapshot.NewStore(cfg.DB)
	if err != nil {
		logger.Error("open store", "db", cfg.DB, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	var b snapshot.Build
	if patterns != nil {
		b, err = refdata.ImportPatterns(ctx, store, source, patterns, stats)
	} else {
		b, err = refdata.ImportCounts(ctx, store, source, counts)
	}
	if err != nil {
		logger.Error("import build", "err", err)
		os.Exit(1)
	}
	logger.Info("build activated", "build", b.BuildID, "parent", b.ParentID)

	fmt.Printf("\n%s\n", ui.RenderPass("=== Build Complete ==="))
	fmt.Printf("  Build:       %s\n", b.BuildID)
	fmt.Printf("  Parent:      %s\n", orDash(b.ParentID))
	fmt.Printf("  Patterns:    %s\n", ui.Count(b.PatternCount))
	fmt.Printf("  Transitions: %s\n", ui.Count(len(counts.Transitions())))
}

func runPrune(cfg config.Config, buildID string, logger *slog.Logger) {
	store, err := snapshot.NewStore(cfg.DB)
	if err != nil {
		logger.Error("open store", "db", cfg.DB, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	n, err := refdata.Prune(context.Background(), store, buildID)
	if errors.Is(err, snapshot.ErrActiveBuild) {
		logger.Error("refusing to prune the active build, activate another one first", "build", buildID)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("prune build", "build", buildID, "err", err)
		os.Exit(1)
	}
	logger.Info("build pruned", "build", buildID, "edges", n)
	fmt.Printf("%s %s (%s edges)\n", ui.RenderPass("Pruned"), buildID, ui.Count(int(n)))
}

// #endregion main

// #region helpers
func printThresholds(t gate.Tables) {
	fmt.Printf("\n%-8s  %10s  %12s\n", "Tier", "Threshold", "Transitions")
	for _, tier := range gate.Tiers() {
		fmt.Printf("%-8s  %10s  %12s\n", tier, ui.Count(t.Threshold(tier)), ui.Count(t.Size(tier)))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion helpers
