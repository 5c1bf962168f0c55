// Package replay runs scripted command sequences through the engine and
// derives such scripts from historical patterns.
package replay

import (
	"fmt"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/engine"
)

// #region types
const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

// Result captures the outcome of replaying one command.
type Result struct {
	Index    int
	Command  catalog.Command
	From     catalog.Step
	Next     catalog.Step
	Err      error
	Action   string        // "accept" | "reject"
	Proposed *catalog.Step // rulebook proposal before admission, nil when the rulebook refused
	Observed int           // production occurrences of From -> proposal
	Expected Expectation
	Matched  bool
	Reason   string
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Total      int
	Accepted   int
	Rejected   int
	ByKind     map[engine.Kind]int
	Mismatches int
	Final      engine.Activity
}

// #endregion types

// #region replay

// Replay applies each step of p in order. A rejected command leaves the
// activity where it was and the run continues.
func Replay(e *engine.Engine, p Plan) []Result {
	tier := p.Tier
	if tier == "" {
		tier = e.Gate().Tier()
	}

	current := p.Start
	results := make([]Result, 0, len(p.Steps))
	for i, st := range p.Steps {
		from := current.Step()
		res := e.ProcessCommandAt(current, st.Command, tier)
		r := Result{
			Index:    i,
			Command:  st.Command,
			From:     from,
			Next:     res.Next,
			Err:      res.Err,
			Expected: st.Expect,
		}

		if prop := engine.Propose(current, st.Command); !prop.Rejected() {
			next := prop.Next
			r.Proposed = &next
			r.Observed = e.Gate().OccurrenceCount(from, next)
		}

		if res.Rejected() {
			r.Action = ActionReject
			r.Reason = res.Err.Error()
		} else {
			r.Action = ActionAccept
			current = current.At(res.Next)
		}
		r.Matched, r.Reason = check(r, st.Expect)
		results = append(results, r)
	}
	return results
}

// check compares a result with its expectation and returns the reason to
// report.
func check(r Result, x Expectation) (bool, string) {
	switch {
	case x.Next != nil:
		if r.Err != nil {
			return false, fmt.Sprintf("expected %s, rejected: %v", x.Next.Key(), r.Err)
		}
		if r.Next != *x.Next {
			return false, fmt.Sprintf("expected %s, got %s", x.Next.Key(), r.Next.Key())
		}
	case x.Reject != 0:
		if r.Err == nil {
			return false, fmt.Sprintf("expected %s rejection, accepted %s", x.Reject, r.Next.Key())
		}
		if got := engine.KindOf(r.Err); got != x.Reject {
			return false, fmt.Sprintf("expected %s rejection, got %s: %v", x.Reject, got, r.Err)
		}
	}
	return true, r.Reason
}

// Summarize computes aggregate stats from replay results.
func Summarize(start engine.Activity, results []Result) Summary {
	s := Summary{
		Total:  len(results),
		ByKind: make(map[engine.Kind]int),
		Final:  start,
	}
	for _, r := range results {
		switch r.Action {
		case ActionAccept:
			s.Accepted++
			s.Final = s.Final.At(r.Next)
		case ActionReject:
			s.Rejected++
			s.ByKind[engine.KindOf(r.Err)]++
		}
		if !r.Matched {
			s.Mismatches++
		}
	}
	return s
}

// #endregion replay
