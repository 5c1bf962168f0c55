package engine

import (
	"fmt"
	"sort"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
)

// #region route
// Route is one productive transition read backwards from its target:
// applying Command to an activity of Committee at From lands on To.
type Route struct {
	Committee catalog.Committee `json:"committee"`
	From      catalog.Step      `json:"from"`
	Command   catalog.Command   `json:"command"`
	To        catalog.Step      `json:"to"`
}

func (r Route) String() string {
	return fmt.Sprintf("%s --%s--> %s", r.From, r.Command, r.To)
}

// #endregion route

// #region guide
// Routes answers "how do I get there" at the active tier. See RoutesAt.
func (e *Engine) Routes(c catalog.Committee, state *catalog.State, sub *catalog.SubStatus) []Route {
	return e.RoutesAt(e.gate.Tier(), c, state, sub)
}

// RoutesAt lists the accepted, moving transitions of committee c whose source
// and target states both belong to the committee. A non-nil state or sub
// narrows the target. Routes are ordered by target, then source, then
// command in catalogue order.
func (e *Engine) RoutesAt(tier gate.Tier, c catalog.Committee, state *catalog.State, sub *catalog.SubStatus) []Route {
	var out []Route
	for _, r := range e.transitions(tier, c) {
		if !catalog.InCommittee(c, r.From.State) || !catalog.InCommittee(c, r.To.State) {
			continue
		}
		if state != nil && r.To.State != *state {
			continue
		}
		if sub != nil && r.To.SubStatus != *sub {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ReachableSubStatuses lists, in catalogue order, the sub-statuses that some
// accepted command of committee c lands on within state at the active tier.
func (e *Engine) ReachableSubStatuses(c catalog.Committee, state catalog.State) []catalog.SubStatus {
	return e.ReachableSubStatusesAt(e.gate.Tier(), c, state)
}

// ReachableSubStatusesAt is ReachableSubStatuses at an explicit tier. Unlike
// RoutesAt it does not require the source to belong to the committee.
func (e *Engine) ReachableSubStatusesAt(tier gate.Tier, c catalog.Committee, state catalog.State) []catalog.SubStatus {
	seen := make(map[catalog.SubStatus]bool)
	for _, r := range e.transitions(tier, c) {
		if r.To.State == state {
			seen[r.To.SubStatus] = true
		}
	}
	var out []catalog.SubStatus
	for _, ss := range catalog.SubStatuses() {
		if seen[ss] {
			out = append(out, ss)
		}
	}
	return out
}

// transitions enumerates every state, sub-status and command for c and keeps
// the results that were accepted and moved the activity. NewRequest is left
// out since it only applies to UNKNOWN.
func (e *Engine) transitions(tier gate.Tier, c catalog.Committee) []Route {
	commands := catalog.Commands()
	order := make(map[catalog.Command]int, len(commands))
	for i, cmd := range commands {
		order[cmd] = i
	}

	var out []Route
	for _, s := range catalog.States() {
		for _, ss := range catalog.SubStatuses() {
			a := Activity{State: s, SubStatus: ss, Committee: c}
			for _, cmd := range commands {
				if cmd == catalog.CmdNewRequest {
					continue
				}
				res := e.ProcessCommandAt(a, cmd, tier)
				if res.Rejected() || res.Next == a.Step() {
					continue
				}
				out = append(out, Route{Committee: c, From: a.Step(), Command: cmd, To: res.Next})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].To != out[j].To {
			return stepBefore(out[i].To, out[j].To)
		}
		if out[i].From != out[j].From {
			return stepBefore(out[i].From, out[j].From)
		}
		return order[out[i].Command] < order[out[j].Command]
	})
	return out
}

func stepBefore(a, b catalog.Step) bool {
	if a.State != b.State {
		return a.State < b.State
	}
	return a.SubStatus < b.SubStatus
}

// #endregion guide
