package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/config"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/engine"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/refdata"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/snapshot"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/ui"
)

// #region main
func main() {
	fs := flag.NewFlagSet("controller", flag.ExitOnError)
	embedded := fs.Bool("embedded", false, "use the embedded dataset, ignoring the database")
	start := fs.String("start", "1-1", "initial step")
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

	src := refdata.Embedded()
	if !*embedded {
		store, err := snapshot.NewStore(cfg.DB)
		if err != nil {
			logger.Error("open store", "db", cfg.DB, "err", err)
			os.Exit(1)
		}
		src, err = refdata.Active(store)
		store.Close()
		if err != nil {
			logger.Error("load reference data", "err", err)
			os.Exit(1)
		}
	}
	logger.Info("reference data loaded", "origin", src.Origin, "build", src.BuildID,
		"transitions", len(src.Counts.Transitions()))

	step, err := catalog.ParseStep(*start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		os.Exit(2)
	}

	s := &session{
		eng:    engine.New(gate.NewGate(src.Tables, cfg.GateTier())),
		act:    engine.Activity{State: step.State, SubStatus: step.SubStatus, Committee: cfg.DefaultCommittee()},
		out:    os.Stdout,
		logger: logger,
	}
	s.act0 = s.act

	fmt.Println(ui.RenderHeader("Activity State Controller ready."))
	fmt.Printf("  Origin: %s | Tier: %s | Committee: %s\n", src.Origin, cfg.Tier, s.act.Committee)
	fmt.Println("Type a command name, 'help', or 'quit':")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("%s> ", s.act.Step().Key())
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := s.exec(line); err != nil {
			fmt.Println(ui.RenderWarn(err.Error()))
		}
	}
}

// #endregion main

// #region session
type session struct {
	eng     *engine.Engine
	act     engine.Activity
	act0    engine.Activity
	history []catalog.Step
	out     io.Writer
	logger  *slog.Logger
}

func (s *session) exec(line string) error {
	fields := strings.Fields(line)
	arg := strings.Join(fields[1:], " ")

	switch strings.ToLower(fields[0]) {
	case "help":
		s.help()
	case "show":
		fmt.Fprintf(s.out, "%s\n", s.act)
	case "options":
		s.options()
	case "next":
		s.next()
	case "history":
		for i, st := range append(s.history, s.act.Step()) {
			fmt.Fprintf(s.out, "  %2d  %s  %s\n", i, st.Key(), st)
		}
	case "reset":
		s.act, s.history = s.act0, nil
	case "state":
		st, err := catalog.ParseStep(arg)
		if err != nil {
			return err
		}
		s.act = s.act.At(st)
		s.history = nil
	case "committee":
		c, err := catalog.ParseCommittee(arg)
		if err != nil {
			return err
		}
		s.act.Committee = c
	case "tier":
		t, err := gate.ParseTier(arg)
		if err != nil {
			return err
		}
		// The session is the gate's only writer.
		s.eng.Gate().SetTier(t)
		s.logger.Info("tier changed", "tier", t)
	default:
		cmd, err := catalog.ParseCommand(fields[0])
		if err != nil {
			return fmt.Errorf("%w (try 'help')", err)
		}
		s.apply(cmd)
	}
	return nil
}

func (s *session) apply(cmd catalog.Command) {
	res := s.eng.ProcessCommand(s.act, cmd)
	s.logger.Debug("command processed", "from", s.act.Step().Key(), "command", cmd,
		"next", res.Next.Key(), "err", res.Err)
	fmt.Fprintln(s.out, ui.Result(res))
	if res.Rejected() {
		return
	}
	s.history = append(s.history, s.act.Step())
	s.act = s.act.At(res.Next)
}

func (s *session) options() {
	for _, o := range s.eng.AvailableCommands(s.act) {
		if !o.Outcome.Usable() {
			continue
		}
		fmt.Fprintf(s.out, "  %-32s %-10s -> %s\n", o.Command, ui.Outcome(o.Outcome), o.Result.Next.Key())
	}
}

func (s *session) next() {
	targets := s.eng.Gate().TopTargets(s.act.Step(), 5)
	if len(targets) == 0 {
		fmt.Fprintln(s.out, ui.RenderMuted("  no observed successors"))
		return
	}
	for _, t := range targets {
		fmt.Fprintf(s.out, "  %-6s %-40s %10s  %s\n", t.To.Key(), t.To, ui.Count(t.Count), ui.Percent(t.Percent))
	}
}

func (s *session) help() {
	fmt.Fprintln(s.out, `Commands:
  <Command>            apply a workflow command, e.g. CommitAgenda
  options              list usable commands with their outcome
  next                 most frequent observed successors
  show | history       current activity | steps taken
  state <step>         jump to a step, e.g. 2-3
  committee <name>     switch committee
  tier <tier>          switch strictness tier (top75, top150, all)
  reset | quit`)
}

// #endregion session
