package engine

import (
	"fmt"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
)

// #region outcome
// Outcome is how a command looks from the caller's side.
type Outcome int

const (
	OutcomeInvalid Outcome = iota
	OutcomeTerminal
	OutcomeStall
	OutcomeProceed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInvalid:
		return "invalid"
	case OutcomeTerminal:
		return "terminal"
	case OutcomeStall:
		return "stall"
	case OutcomeProceed:
		return "proceed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Usable reports whether the command may be applied.
func (o Outcome) Usable() bool { return o != OutcomeInvalid }

// #endregion outcome

// #region classify
// Classify evaluates cmd at the active tier.
func (e *Engine) Classify(a Activity, cmd catalog.Command) Outcome {
	return e.ClassifyAt(a, cmd, e.gate.Tier())
}

// ClassifyAt evaluates cmd at an explicit tier.
//
// A command is invalid when it is rejected, leaves the activity where it is,
// or leads outside the committee's states. An accepted command is terminal
// when it lands on DONE, a stall when nothing but Cancel can move on from
// the result, and proceed otherwise.
func (e *Engine) ClassifyAt(a Activity, cmd catalog.Command, tier gate.Tier) Outcome {
	if cmd == catalog.CmdNewRequest {
		return OutcomeInvalid
	}
	res := e.ProcessCommandAt(a, cmd, tier)
	if res.Rejected() || res.Next == a.Step() {
		return OutcomeInvalid
	}
	if !catalog.InCommittee(a.Committee, res.Next.State) {
		return OutcomeInvalid
	}
	if res.Next.SubStatus == catalog.SubStatusDone {
		return OutcomeTerminal
	}
	if !e.hasProductiveCommand(a.At(res.Next), tier) {
		return OutcomeStall
	}
	return OutcomeProceed
}

func (e *Engine) hasProductiveCommand(a Activity, tier gate.Tier) bool {
	if a.SubStatus == catalog.SubStatusDone {
		return false
	}
	for _, cmd := range catalog.Commands() {
		if cmd == catalog.CmdCancel || cmd == catalog.CmdNewRequest {
			continue
		}
		res := e.ProcessCommandAt(a, cmd, tier)
		if !res.Rejected() && res.Next != a.Step() {
			return true
		}
	}
	return false
}

// #endregion classify

// #region available
// Option is one command evaluated against an activity.
type Option struct {
	Command catalog.Command
	Outcome Outcome
	Result  Result
}

// AvailableCommands evaluates every command against a at the active tier,
// in catalogue order.
func (e *Engine) AvailableCommands(a Activity) []Option {
	tier := e.gate.Tier()
	out := make([]Option, 0, len(catalog.Commands()))
	for _, cmd := range catalog.Commands() {
		out = append(out, Option{
			Command: cmd,
			Outcome: e.ClassifyAt(a, cmd, tier),
			Result:  e.ProcessCommandAt(a, cmd, tier),
		})
	}
	return out
}

// Usable filters opts down to the commands that may be applied.
func Usable(opts []Option) []Option {
	var out []Option
	for _, o := range opts {
		if o.Outcome.Usable() {
			out = append(out, o)
		}
	}
	return out
}

// #endregion available
