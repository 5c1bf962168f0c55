package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/config"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/engine"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/logging"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/refdata"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/replay"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/snapshot"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/ui"
)

// #region main

func main() {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	audit := fs.Bool("audit", false, "record every decision in the database decision_log")
	embedded := fs.Bool("embedded", false, "use the embedded dataset, ignoring the database")
	show := fs.String("show", "", "print the decisions recorded for an audited run and exit")
	cfg, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *show != "" {
		if err := showRun(cfg.DB, *show); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: replay [-audit] [-embedded] [-tier t] scenario.yaml...")
		fmt.Fprintln(os.Stderr, "       replay -show <run-id> [-db path]")
		os.Exit(2)
	}
	if *audit && *embedded {
		fmt.Fprintln(os.Stderr, "-audit needs the database, drop -embedded")
		os.Exit(2)
	}
	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}

	src := refdata.Embedded()
	var store *snapshot.Store
	if !*embedded {
		store, err = snapshot.NewStore(cfg.DB)
		if err != nil {
			logger.Error("open store", "db", cfg.DB, "err", err)
			os.Exit(2)
		}
		defer store.Close()
		if src, err = refdata.Active(store); err != nil {
			logger.Error("load reference data", "err", err)
			os.Exit(2)
		}
		if *audit {
			if err := logging.EnsureSchema(store.DB()); err != nil {
				logger.Error("decision log", "err", err)
				os.Exit(2)
			}
		}
	}

	eng := engine.New(gate.NewGate(src.Tables, cfg.GateTier()))
	a := auditor{enabled: *audit, store: store, src: src, eng: eng}

	exitCode := 0
	for _, path := range fs.Args() {
		if !runScenario(path, eng, a, logger) {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

// #endregion main

// #region run

func runScenario(path string, eng *engine.Engine, a auditor, logger *slog.Logger) bool {
	s, err := replay.LoadScenario(path)
	if err != nil {
		logger.Error("load scenario", "err", err)
		return false
	}
	plan, err := s.ToPlan()
	if err != nil {
		logger.Error("invalid scenario", "path", path, "err", err)
		return false
	}

	results := replay.Replay(eng, plan)
	sum := replay.Summarize(plan.Start, results)

	tier := plan.Tier
	if tier == "" {
		tier = eng.Gate().Tier()
	}
	fmt.Printf("%s %s [%s, %s]\n", ui.RenderHeader("Scenario"), plan.Name, plan.Start.Committee, tier)
	for _, r := range results {
		mark := ui.RenderPass(ui.IconPass)
		if !r.Matched {
			mark = ui.RenderFail(ui.IconFail)
		}
		outcome := r.Next.Key()
		if r.Err != nil {
			outcome = "reject " + engine.KindOf(r.Err).String()
		}
		fmt.Printf("  %s %2d  %-6s %-32s %-20s %s\n", mark, r.Index+1, r.From.Key(), r.Command, outcome,
			ui.RenderMuted(r.Expected.String()))
		if !r.Matched {
			fmt.Printf("        %s\n", ui.RenderFail(r.Reason))
		}
	}
	fmt.Printf("  Steps: %d | Accepted: %d | Rejected: %d | Mismatches: %d | Final: %s\n\n",
		sum.Total, sum.Accepted, sum.Rejected, sum.Mismatches, sum.Final.Step().Key())

	if a.enabled {
		runID := uuid.New().String()
		if err := a.record(runID, plan, tier, results); err != nil {
			logger.Error("audit", "scenario", plan.Name, "err", err)
			return false
		}
		logger.Info("decisions recorded", "scenario", plan.Name, "run", runID, "rows", len(results))
	}
	return sum.Mismatches == 0
}

// #endregion run

// #region audit

type auditor struct {
	enabled bool
	store   *snapshot.Store
	src     refdata.Source
	eng     *engine.Engine
}

func (a auditor) record(runID string, plan replay.Plan, tier gate.Tier, results []replay.Result) error {
	thresholds := make(map[string]int)
	for t, v := range a.eng.Gate().Thresholds() {
		thresholds[string(t)] = v
	}

	act := plan.Start
	for _, r := range results {
		var rec logging.DecisionRecord
		rec.Scenario = plan.Name
		rec.Activity.State = int(act.State)
		rec.Activity.SubStatus = int(act.SubStatus)
		rec.Activity.Committee = string(act.Committee)
		rec.Command = string(r.Command)
		if r.Proposed != nil {
			rec.Proposed = r.Proposed.Key()
		}
		rec.Tier = string(tier)
		rec.Thresholds = thresholds
		rec.Observed = r.Observed
		rec.Outcome = r.Action
		rec.Expected = r.Expected.String()
		rec.Matched = r.Matched
		recJSON, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}

		entry := logging.DecisionEntry{
			RunID:      runID,
			BuildID:    a.src.BuildID,
			StepIndex:  r.Index,
			Committee:  string(act.Committee),
			FromStep:   r.From.Key(),
			Command:    string(r.Command),
			Decision:   logging.DecisionAccept,
			Tier:       string(tier),
			RecordJSON: string(recJSON),
		}
		if r.Err != nil {
			entry.Decision = logging.DecisionReject
			entry.Kind = engine.KindOf(r.Err).String()
			entry.Reason = r.Err.Error()
		} else {
			entry.ToStep = r.Next.Key()
			act = act.At(r.Next)
		}
		if err := logging.LogDecision(a.store.DB(), entry); err != nil {
			return err
		}
	}
	return nil
}

// showRun prints the audit rows of one run in step order.
func showRun(dbPath, runID string) error {
	store, err := snapshot.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := logging.EnsureSchema(store.DB()); err != nil {
		return err
	}

	entries, err := logging.ListDecisions(store.DB(), runID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no decisions recorded for run %s", runID)
	}

	var rec logging.DecisionRecord
	_ = json.Unmarshal([]byte(entries[0].RecordJSON), &rec)
	build := entries[0].BuildID
	if build == "" {
		build = refdata.OriginEmbedded
	}
	fmt.Printf("%s %s [%s, %s] build %s\n", ui.RenderHeader("Run"), runID, entries[0].Committee, entries[0].Tier, build)
	if rec.Scenario != "" {
		fmt.Printf("  Scenario: %s\n", rec.Scenario)
	}
	rejected := 0
	for _, e := range entries {
		outcome := e.ToStep
		mark := ui.RenderPass(ui.IconPass)
		if e.Decision == logging.DecisionReject {
			outcome = "reject " + e.Kind
			mark = ui.RenderWarn(ui.IconWarn)
			rejected++
		}
		fmt.Printf("  %s %2d  %-6s %-32s %-20s %s\n", mark, e.StepIndex+1, e.FromStep, e.Command, outcome,
			ui.RenderMuted(e.CreatedAt.Format("2006-01-02T15:04:05Z")))
		if e.Reason != "" {
			fmt.Printf("        %s\n", ui.RenderMuted(e.Reason))
		}
	}
	fmt.Printf("  Steps: %d | Accepted: %d | Rejected: %d\n", len(entries), len(entries)-rejected, rejected)
	return nil
}

// #endregion audit
