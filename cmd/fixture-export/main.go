package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/config"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/corpus"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/replay"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/snapshot"
)

// #region main

func main() {
	fs := flag.NewFlagSet("fixture-export", flag.ExitOnError)
	raw := fs.String("pattern", "", `pattern to export, e.g. "2-2 -> 2-3 -> 10-2"`)
	top := fs.Int("top", 0, "export the N most frequent patterns of the pattern source instead")
	outDir := fs.String("out", "", "directory for scenario files (default: stdout)")
	detect := fs.Bool("detect-committee", true, "derive the committee from each pattern's states")
	scenarioTier := fs.String("scenario-tier", "", "tier written into the scenarios (default: none)")
	cfg, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if (*raw == "") == (*top == 0) {
		fmt.Fprintln(os.Stderr, `usage: fixture-export -pattern "2-2 -> 2-3" [-out dir]`)
		fmt.Fprintln(os.Stderr, "       fixture-export -top N [-patterns a.csv] [-out dir]")
		os.Exit(2)
	}
	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}

	var tier gate.Tier
	if *scenarioTier != "" {
		if tier, err = gate.ParseTier(*scenarioTier); err != nil {
			fmt.Fprintf(os.Stderr, "scenario-tier: %v\n", err)
			os.Exit(2)
		}
	}
	var committee catalog.Committee
	if !*detect {
		committee = cfg.DefaultCommittee()
	}

	var patterns []corpus.Pattern
	if *raw != "" {
		p, err := corpus.ParsePattern(*raw, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pattern: %v\n", err)
			os.Exit(2)
		}
		patterns = []corpus.Pattern{p}
	} else {
		patterns, err = loadTop(cfg, *top)
		if err != nil {
			logger.Error("load patterns", "err", err)
			os.Exit(1)
		}
	}

	exported, skipped := 0, 0
	for _, p := range patterns {
		s, err := replay.FromPattern(p, committee, tier)
		if err != nil {
			logger.Warn("pattern not reproducible", "pattern", p.Raw, "err", err)
			skipped++
			continue
		}
		if err := write(*outDir, s); err != nil {
			logger.Error("write scenario", "err", err)
			os.Exit(1)
		}
		exported++
	}
	logger.Info("export complete", "exported", exported, "skipped", skipped)
	if exported == 0 {
		os.Exit(1)
	}
}

// #endregion main

// #region helpers

func loadTop(cfg config.Config, n int) ([]corpus.Pattern, error) {
	var ps []corpus.Pattern
	if paths := cfg.PatternPaths(); len(paths) > 0 {
		var err error
		if ps, _, err = corpus.LoadFiles(context.Background(), paths); err != nil {
			return nil, err
		}
	} else {
		store, err := snapshot.NewStore(cfg.DB)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		b, err := store.GetActive()
		if err != nil {
			return nil, fmt.Errorf("no pattern source: set -patterns or import a build: %w", err)
		}
		if ps, err = store.Patterns(b.BuildID); err != nil {
			return nil, err
		}
	}
	corpus.SortByOccurrence(ps)
	if len(ps) > n {
		ps = ps[:n]
	}
	return ps, nil
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

func fileName(s *replay.Scenario) string {
	name := unsafeChars.ReplaceAllString(strings.ToLower(s.Name), "_")
	return strings.Trim(name, "_") + ".yaml"
}

func write(dir string, s *replay.Scenario) error {
	if dir == "" {
		fmt.Println("---")
		return replay.WriteScenario(os.Stdout, s)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	f, err := os.Create(filepath.Join(dir, fileName(s)))
	if err != nil {
		return fmt.Errorf("create scenario file: %w", err)
	}
	if err := replay.WriteScenario(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// #endregion helpers
