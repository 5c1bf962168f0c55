// Package engine applies workflow commands to activities. The rulebook
// proposes a successor and the admission gate decides whether production
// ever took that path.
package engine

import (
	"fmt"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
)

// #region types
// Activity is the caller-owned unit the engine evaluates.
type Activity struct {
	State     catalog.State     `json:"state" yaml:"state"`
	SubStatus catalog.SubStatus `json:"sub_status" yaml:"sub_status"`
	Committee catalog.Committee `json:"committee" yaml:"committee"`
}

// Step returns the (state, sub-status) pair of the activity.
func (a Activity) Step() catalog.Step {
	return catalog.Step{State: a.State, SubStatus: a.SubStatus}
}

// At returns a copy of a moved to s.
func (a Activity) At(s catalog.Step) Activity {
	a.State, a.SubStatus = s.State, s.SubStatus
	return a
}

func (a Activity) String() string {
	return fmt.Sprintf("%s [%s]", a.Step(), a.Committee)
}

// Result is the outcome of a command. When Err is set, Next equals the
// input activity's step.
type Result struct {
	Next catalog.Step
	Err  error
}

// Rejected reports whether the command was refused.
func (r Result) Rejected() bool { return r.Err != nil }

// #endregion types

// #region propose
func mustValid(a Activity, cmd catalog.Command) {
	catalog.MustValid(a.State, a.SubStatus, a.Committee)
	if !cmd.Valid() {
		panic(fmt.Sprintf("engine: unknown command %q", string(cmd)))
	}
}

// Propose applies the rulebook alone, without admission. It panics on
// identifiers outside the catalogue.
func Propose(a Activity, cmd catalog.Command) Result {
	mustValid(a, cmd)
	from := a.Step()

	if a.State == catalog.StateUnknown && cmd != catalog.CmdNewRequest {
		return Result{Next: from, Err: &RejectionError{Kind: KindEntry, Command: cmd, From: from}}
	}
	r, ok := lookup(a.State, cmd)
	if !ok {
		return Result{Next: from, Err: &RejectionError{Kind: KindInapplicable, Command: cmd, From: from}}
	}
	return Result{Next: r.Target(a)}
}

// #endregion propose

// #region engine
// Engine composes the rulebook with an admission gate. It holds no mutable
// state of its own and is safe for concurrent use.
type Engine struct {
	gate *gate.Gate
}

// New returns an engine that admits transitions through g.
func New(g *gate.Gate) *Engine {
	if g == nil {
		panic("engine: nil gate")
	}
	return &Engine{gate: g}
}

// Gate returns the admission gate the engine consults.
func (e *Engine) Gate() *gate.Gate { return e.gate }

// ProcessCommand applies cmd to a at the gate's active tier.
func (e *Engine) ProcessCommand(a Activity, cmd catalog.Command) Result {
	return e.ProcessCommandAt(a, cmd, e.gate.Tier())
}

// ProcessCommandAt applies cmd to a at an explicit tier, ignoring the gate's
// active tier.
func (e *Engine) ProcessCommandAt(a Activity, cmd catalog.Command, tier gate.Tier) Result {
	res := Propose(a, cmd)
	if res.Rejected() || a.State == catalog.StateUnknown {
		// Entry into the workflow has no production key to check against.
		return res
	}

	from := a.Step()
	d := e.gate.EvaluateAt(tier, from, res.Next)
	if !d.Admitted() {
		return Result{Next: from, Err: &RejectionError{
			Kind:     KindNotAdmitted,
			Command:  cmd,
			From:     from,
			Proposed: res.Next,
			Tier:     tier,
			Reason:   d.Reason,
		}}
	}
	return res
}

// #endregion engine
