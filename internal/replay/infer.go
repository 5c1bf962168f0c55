package replay

import (
	"fmt"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/corpus"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/engine"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
)

// #region infer

// Inference lists the commands whose rulebook proposal moves From to To.
type Inference struct {
	From     catalog.Step
	To       catalog.Step
	Commands []catalog.Command
}

// InferCommands walks the consecutive steps of p and, for each pair, finds
// the commands that reproduce it for the committee. Admission is not
// consulted: every step of a pattern was observed in production.
func InferCommands(committee catalog.Committee, p corpus.Pattern) []Inference {
	out := make([]Inference, 0, len(p.Steps))
	for _, pair := range p.Pairs() {
		from, to := pair[0], pair[1]
		a := engine.Activity{State: from.State, SubStatus: from.SubStatus, Committee: committee}
		inf := Inference{From: from, To: to}
		for _, cmd := range catalog.Commands() {
			res := engine.Propose(a, cmd)
			if !res.Rejected() && res.Next == to {
				inf.Commands = append(inf.Commands, cmd)
			}
		}
		out = append(out, inf)
	}
	return out
}

// pick prefers a workflow command over Cancel when both reproduce a pair.
func pick(cmds []catalog.Command) catalog.Command {
	for _, c := range cmds {
		if c != catalog.CmdCancel {
			return c
		}
	}
	return cmds[0]
}

// FromPattern builds a scenario that replays p step by step. An empty
// committee is detected from the pattern's states. A pair no command
// reproduces is an error.
func FromPattern(p corpus.Pattern, committee catalog.Committee, tier gate.Tier) (*Scenario, error) {
	if len(p.Steps) == 0 {
		return nil, fmt.Errorf("pattern %q has no steps", p.Raw)
	}
	if committee == "" {
		committee = corpus.DetectCommittee(p)
	}
	if !committee.Valid() {
		return nil, fmt.Errorf("unknown committee %q", string(committee))
	}

	s := &Scenario{
		Name:        p.ID,
		Description: fmt.Sprintf("%d occurrences", p.OccurrenceCount),
		Committee:   string(committee),
		Tier:        string(tier),
		Start:       p.Steps[0].Key(),
	}
	for _, inf := range InferCommands(committee, p) {
		if len(inf.Commands) == 0 {
			return nil, fmt.Errorf("no command reproduces %s -> %s", inf.From.Key(), inf.To.Key())
		}
		s.Steps = append(s.Steps, ScenarioStep{
			Command: string(pick(inf.Commands)),
			Expect:  inf.To.Key(),
		})
	}
	return s, nil
}

// #endregion infer
