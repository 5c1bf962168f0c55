package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/config"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/corpus"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/engine"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/eval"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/graph"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/refdata"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/snapshot"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/ui"
)

const usage = `usage: inspect [flags] <mode> [arg]

modes:
  patterns          list patterns matching the filter flags
  next <step>       observed successors of a step, most frequent first
  walk <step>       most likely path from a step
  coverage          compare the rulebook with the reference data
  guide [state] [sub]
                    commands that lead into a target, for -committee at -tier
  builds            list dataset builds`

type options struct {
	limit    int
	jsonOut  bool
	search   string
	minOcc   int
	maxOcc   int
	minLen   int
	maxLen   int
	state    string
	sub      string
	minCount int
	maxSteps int
}

// #region main

func main() {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	var o options
	fs.IntVar(&o.limit, "limit", 20, "maximum rows to show")
	fs.BoolVar(&o.jsonOut, "json", false, "output as JSON instead of table")
	fs.StringVar(&o.search, "search", "", "case-insensitive substring of the pattern")
	fs.IntVar(&o.minOcc, "min", -1, "minimum occurrences")
	fs.IntVar(&o.maxOcc, "max", -1, "maximum occurrences")
	fs.IntVar(&o.minLen, "min-len", -1, "minimum pattern length")
	fs.IntVar(&o.maxLen, "max-len", -1, "maximum pattern length")
	fs.StringVar(&o.state, "state", "", "pattern must contain this state")
	fs.StringVar(&o.sub, "sub-status", "", "pattern must contain this sub-status")
	fs.IntVar(&o.minCount, "min-count", 1, "ignore edges below this count when walking")
	fs.IntVar(&o.maxSteps, "steps", 10, "maximum walk length")
	fs.Usage = func() { fmt.Fprintln(os.Stderr, usage); fs.PrintDefaults() }

	cfg, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	store, err := snapshot.NewStore(cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	args := fs.Args()
	switch args[0] {
	case "patterns":
		err = runPatterns(store, cfg, o)
	case "next":
		err = withStep(args, func(st catalog.Step) error { return runNext(store, st, o) })
	case "walk":
		err = withStep(args, func(st catalog.Step) error { return runWalk(store, st, o) })
	case "coverage":
		err = runCoverage(store, o)
	case "guide":
		err = runGuide(store, cfg, args[1:], o)
	case "builds":
		err = runBuilds(store, o)
	default:
		fs.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func withStep(args []string, fn func(catalog.Step) error) error {
	if len(args) < 2 {
		return fmt.Errorf("%s needs a step, e.g. 2-3", args[0])
	}
	st, err := catalog.ParseStep(args[1])
	if err != nil {
		return err
	}
	return fn(st)
}

// #endregion main

// #region patterns-mode

type patternRow struct {
	Pattern     string  `json:"pattern"`
	Occurrences int     `json:"occurrences"`
	Length      int     `json:"length"`
	Percent     float64 `json:"percent"`
	Committee   string  `json:"committee"`
}

func (o options) filter() (corpus.Filter, error) {
	f := corpus.Filter{SearchText: o.search}
	opt := func(v int) *int {
		if v < 0 {
			return nil
		}
		return corpus.Ptr(v)
	}
	f.MinOccurrences, f.MaxOccurrences = opt(o.minOcc), opt(o.maxOcc)
	f.MinLength, f.MaxLength = opt(o.minLen), opt(o.maxLen)
	if o.state != "" {
		s, err := catalog.ParseState(o.state)
		if err != nil {
			return f, err
		}
		f.State = &s
	}
	if o.sub != "" {
		ss, err := catalog.ParseSubStatus(o.sub)
		if err != nil {
			return f, err
		}
		f.SubStatus = &ss
	}
	return f, nil
}

// loadPatterns prefers explicit CSV paths, then the active build.
func loadPatterns(store *snapshot.Store, cfg config.Config) ([]corpus.Pattern, string, error) {
	if paths := cfg.PatternPaths(); len(paths) > 0 {
		ps, _, err := corpus.LoadFiles(context.Background(), paths)
		return ps, cfg.Patterns, err
	}
	b, err := store.GetActive()
	if err != nil {
		return nil, "", fmt.Errorf("no pattern source: set -patterns or import a build: %w", err)
	}
	ps, err := store.Patterns(b.BuildID)
	return ps, b.Source, err
}

func runPatterns(store *snapshot.Store, cfg config.Config, o options) error {
	f, err := o.filter()
	if err != nil {
		return err
	}
	ps, source, err := loadPatterns(store, cfg)
	if err != nil {
		return err
	}

	matched := corpus.FilterPatterns(ps, f)
	shares := corpus.Shares(matched)
	rows := make([]patternRow, 0, len(shares))
	for i, s := range shares {
		if o.limit > 0 && i >= o.limit {
			break
		}
		rows = append(rows, patternRow{
			Pattern:     s.Raw,
			Occurrences: s.OccurrenceCount,
			Length:      s.Length,
			Percent:     s.Percent,
			Committee:   string(corpus.DetectCommittee(s.Pattern)),
		})
	}
	if o.jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%s  %s of %s patterns from %s, %s occurrences\n\n",
		ui.RenderHeader("Patterns"), ui.Count(len(matched)), ui.Count(len(ps)), source,
		ui.Count(corpus.TotalOccurrences(matched)))
	fmt.Printf("%8s  %7s  %3s  %-11s  %s\n", "Count", "Share", "Len", "Committee", "Pattern")
	for _, r := range rows {
		fmt.Printf("%8s  %7s  %3d  %-11s  %s\n",
			corpus.FormatOccurrenceCount(r.Occurrences), ui.Percent(r.Percent), r.Length, r.Committee, r.Pattern)
	}
	return nil
}

// #endregion patterns-mode

// #region graph-modes

func runNext(store *snapshot.Store, from catalog.Step, o options) error {
	src, err := refdata.Active(store)
	if err != nil {
		return err
	}
	g := gate.NewGate(src.Tables, gate.TierAll)
	targets := g.TopTargets(from, o.limit)
	if o.jsonOut {
		return printJSON(targets)
	}
	fmt.Printf("%s %s %s (%s)\n\n", ui.RenderHeader("Next steps from"), from.Key(), from, src.Origin)
	if len(targets) == 0 {
		fmt.Println(ui.RenderMuted("no observed successors"))
		return nil
	}
	for _, t := range targets {
		var tiers []string
		for _, tier := range gate.Tiers() {
			if g.IsAllowedAt(tier, from, t.To) {
				tiers = append(tiers, string(tier))
			}
		}
		fmt.Printf("  %-6s %-40s %10s  %7s  %s\n", t.To.Key(), t.To, ui.Count(t.Count), ui.Percent(t.Percent),
			ui.RenderMuted(strings.Join(tiers, ",")))
	}
	return nil
}

// edgeStore returns the graph holding the active build's edges. The
// embedded dataset is loaded into an in-memory database.
func edgeStore(store *snapshot.Store) (*graph.Store, string, func(), error) {
	src, err := refdata.Active(store)
	if err != nil {
		return nil, "", nil, err
	}
	if src.BuildID != "" {
		gs, err := graph.NewStore(store.DB())
		return gs, src.BuildID, func() {}, err
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, "", nil, err
	}
	db.SetMaxOpenConns(1)
	gs, err := graph.NewStore(db)
	if err == nil {
		_, err = gs.ImportCounts(context.Background(), refdata.OriginEmbedded, src.Counts)
	}
	if err != nil {
		db.Close()
		return nil, "", nil, err
	}
	return gs, refdata.OriginEmbedded, func() { db.Close() }, nil
}

func runWalk(store *snapshot.Store, start catalog.Step, o options) error {
	gs, buildID, closeFn, err := edgeStore(store)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := gs.Walk(buildID, start, o.maxSteps, o.minCount)
	if err != nil {
		return err
	}
	if o.jsonOut {
		return printJSON(res)
	}
	fmt.Printf("%s from %s (min count %d)\n\n", ui.RenderHeader("Most likely path"), start.Key(), o.minCount)
	for i, st := range res.Steps {
		if i == 0 {
			fmt.Printf("  %-6s %s\n", st.Key(), st)
			continue
		}
		fmt.Printf("  %-6s %-40s %10s  %7s\n", st.Key(), st, ui.Count(res.Counts[i]), ui.Percent(res.Shares[i]*100))
	}
	fmt.Printf("\nPath probability: %s\n", ui.Percent(res.Probability*100))
	return nil
}

// #endregion graph-modes

// #region coverage-mode

func runCoverage(store *snapshot.Store, o options) error {
	src, err := refdata.Active(store)
	if err != nil {
		return err
	}
	res := eval.NewEvalHarness(eval.DefaultEvalConfig()).Run(engine.Rules(), src.Counts)
	if o.jsonOut {
		return printJSON(res)
	}

	fmt.Printf("%s against %s\n\n", ui.RenderHeader("Rulebook coverage"), src.Origin)
	for _, m := range res.Metrics {
		mark := ui.RenderPass(ui.IconPass)
		if !m.Pass {
			mark = ui.RenderFail(ui.IconFail)
		}
		fmt.Printf("  %s %-20s %7s  (min %s)\n", mark, m.Name, ui.Percent(m.Value*100), ui.Percent(m.Min*100))
	}
	if len(res.Unexplained) > 0 {
		fmt.Printf("\nTransitions no rule proposes:\n")
		for i, tr := range res.Unexplained {
			if o.limit > 0 && i >= o.limit {
				break
			}
			fmt.Printf("  %-6s -> %-6s %10s\n", tr.From.Key(), tr.To.Key(), ui.Count(tr.Count))
		}
	}
	fmt.Printf("\n%s\n", res.Reason)
	if !res.Passed {
		os.Exit(1)
	}
	return nil
}

// #endregion coverage-mode

// #region guide-mode

type guideOutput struct {
	Committee catalog.Committee   `json:"committee"`
	Tier      gate.Tier           `json:"tier"`
	Reachable []catalog.SubStatus `json:"reachable_sub_statuses,omitempty"`
	Routes    []engine.Route      `json:"routes"`
}

func runGuide(store *snapshot.Store, cfg config.Config, args []string, o options) error {
	var (
		target *catalog.State
		sub    *catalog.SubStatus
	)
	if len(args) > 0 && !strings.EqualFold(args[0], "all") {
		s, err := catalog.ParseState(args[0])
		if err != nil {
			return err
		}
		target = &s
	}
	if len(args) > 1 && !strings.EqualFold(args[1], "all") {
		ss, err := catalog.ParseSubStatus(args[1])
		if err != nil {
			return err
		}
		sub = &ss
	}

	src, err := refdata.Active(store)
	if err != nil {
		return err
	}
	committee, tier := cfg.DefaultCommittee(), cfg.GateTier()
	e := engine.New(gate.NewGate(src.Tables, tier))

	out := guideOutput{Committee: committee, Tier: tier, Routes: e.Routes(committee, target, sub)}
	if target != nil {
		out.Reachable = e.ReachableSubStatuses(committee, *target)
	}
	if o.jsonOut {
		return printJSON(out)
	}

	what := "any state"
	if target != nil {
		what = target.String()
		if sub != nil {
			what += " / " + sub.String()
		}
	}
	fmt.Printf("%s into %s for %s at %s (%s)\n\n", ui.RenderHeader("Routes"), what, committee, tier, src.Origin)
	if target != nil {
		names := make([]string, 0, len(out.Reachable))
		for _, ss := range out.Reachable {
			names = append(names, ss.String())
		}
		fmt.Printf("Reachable sub-statuses: %s\n\n", strings.Join(names, ", "))
	}
	if len(out.Routes) == 0 {
		fmt.Println(ui.RenderMuted("no command leads there"))
		return nil
	}
	for i, r := range out.Routes {
		if o.limit > 0 && i >= o.limit {
			fmt.Println(ui.RenderMuted(fmt.Sprintf("... %d more", len(out.Routes)-i)))
			break
		}
		fmt.Printf("  %-6s %-40s %-28s -> %-6s %s\n", r.From.Key(), r.From, r.Command, r.To.Key(), r.To)
	}
	return nil
}

// #endregion guide-mode

// #region builds-mode

func runBuilds(store *snapshot.Store, o options) error {
	builds, err := store.ListBuilds(o.limit)
	if err != nil {
		return err
	}
	if o.jsonOut {
		return printJSON(builds)
	}
	if len(builds) == 0 {
		fmt.Fprintln(os.Stderr, "no builds found, the embedded dataset is in use")
		return nil
	}

	fmt.Printf("%-1s %-8s  %-8s  %8s  %11s  %-20s  %s\n", "", "Build", "Parent", "Patterns", "Transitions", "Created", "Source")
	for _, b := range builds {
		mark := " "
		if b.Active {
			mark = "*"
		}
		fmt.Printf("%-1s %-8s  %-8s  %8s  %11s  %-20s  %s\n", mark, shortID(b.BuildID), shortID(b.ParentID),
			ui.Count(b.PatternCount), ui.Count(b.TransitionCount), b.CreatedAt.Format("2006-01-02T15:04:05Z"), b.Source)
	}

	for _, b := range builds {
		if !b.Active {
			continue
		}
		byCommittee, err := store.CommitteeCounts(b.BuildID)
		if err != nil {
			return err
		}
		fmt.Printf("\nActive build patterns by committee:\n")
		for _, c := range catalog.Committees() {
			fmt.Printf("  %-12s %s\n", c, ui.Count(byCommittee[c]))
		}
	}
	return nil
}

// #endregion builds-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}

// #endregion output
