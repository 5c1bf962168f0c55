package engine

import (
	"sort"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
)

// #region rule
// Rule is one row of the rulebook: command applied in state From proposes To,
// unless the activity's committee has its own entry in ByCommittee.
type Rule struct {
	From          catalog.State
	Command       catalog.Command
	To            catalog.Step
	KeepSubStatus bool // To.SubStatus is ignored and the current sub-status is kept
	ByCommittee   map[catalog.Committee]catalog.Step
}

// Target resolves the proposed successor for an activity.
func (r Rule) Target(a Activity) catalog.Step {
	if to, ok := r.ByCommittee[a.Committee]; ok {
		return to
	}
	if r.KeepSubStatus {
		return catalog.Step{State: r.To.State, SubStatus: a.SubStatus}
	}
	return r.To
}

// Targets returns every successor the rule can propose from the given
// sub-status, one per distinct committee branch.
func (r Rule) Targets(from catalog.SubStatus) []catalog.Step {
	base := r.To
	if r.KeepSubStatus {
		base.SubStatus = from
	}
	out := []catalog.Step{base}
	for _, c := range catalog.Committees() {
		to, ok := r.ByCommittee[c]
		if ok && to != base {
			out = append(out, to)
		}
	}
	return out
}

type ruleKey struct {
	state   catalog.State
	command catalog.Command
}

// #endregion rule

// #region rulebook
func step(s catalog.State, ss catalog.SubStatus) catalog.Step {
	return catalog.Step{State: s, SubStatus: ss}
}

func rule(from catalog.State, cmd catalog.Command, to catalog.State, ss catalog.SubStatus) Rule {
	return Rule{From: from, Command: cmd, To: step(to, ss)}
}

func (r Rule) forEE(to catalog.State, ss catalog.SubStatus) Rule {
	r.ByCommittee = map[catalog.Committee]catalog.Step{catalog.CommitteeEE: step(to, ss)}
	return r
}

const (
	ready   = catalog.SubStatusReadyForAgenda
	waiting = catalog.SubStatusWaitingForDecision
	asking  = catalog.SubStatusWaitingForRequestor
	done    = catalog.SubStatusDone
)

// missingInfoRules covers MISSINGINFO_CP and MISSINGINFO_EE, which share
// their shape and differ in the decision targets.
func missingInfoRules(s, approved, refused catalog.State, refusedSub catalog.SubStatus) []Rule {
	return []Rule{
		rule(s, catalog.CmdReceiveMissingInfoFromRequestor, s, ready),
		rule(s, catalog.CmdCommitAgenda, s, waiting),
		rule(s, catalog.CmdRegisterMissingInfoNeed, s, asking),
		rule(s, catalog.CmdRegisterWrongComiteParitaire, catalog.StateWrongCP, ready),
		rule(s, catalog.CmdRegisterNotTreated, s, ready),
		rule(s, catalog.CmdApprove, approved, ready),
		rule(s, catalog.CmdRefuse, refused, refusedSub),
		rule(s, catalog.CmdRegisterDecsByGda, catalog.StateDecisionByGDA, ready),
		rule(s, catalog.CmdRegisterDecsByGdpq, catalog.StateDecisionByGDPQ, ready),
	}
}

// finalDecisionRules is the tail shared by the late-stage states: a final
// approval or refusal closes the request.
func finalDecisionRules(s catalog.State) []Rule {
	return []Rule{
		rule(s, catalog.CmdApprove, catalog.StateApproved, done),
		rule(s, catalog.CmdRefuse, catalog.StateRefused, done),
		rule(s, catalog.CmdRegisterNotTreated, s, ready),
	}
}

func canonicalRules() []Rule {
	var rs []Rule
	add := func(r ...Rule) { rs = append(rs, r...) }

	add(Rule{From: catalog.StateUnknown, Command: catalog.CmdNewRequest, To: step(catalog.StateRequested, ready)})
	for _, s := range catalog.States() {
		if s != catalog.StateUnknown {
			add(rule(s, catalog.CmdCancel, catalog.StateCancelled, done))
		}
	}

	req := catalog.StateRequested
	add(
		rule(req, catalog.CmdCommitAgenda, req, waiting),
		rule(req, catalog.CmdRegisterMissingInfoNeed, catalog.StateMissingInfoCP, asking).
			forEE(catalog.StateMissingInfoEE, asking),
		rule(req, catalog.CmdRegisterMissingInfoCENeed, catalog.StateMissingInfoCE, ready),
		rule(req, catalog.CmdApprove, catalog.StateApprovedCP, ready).
			forEE(catalog.StateApprovedEE, ready),
		rule(req, catalog.CmdRefuse, catalog.StateRefusedCP, asking).
			forEE(catalog.StateRefusedEE, ready),
		rule(req, catalog.CmdRegisterDecsByGda, catalog.StateDecisionByGDA, ready),
		rule(req, catalog.CmdRegisterWrongComiteParitaire, catalog.StateWrongCP, ready),
		rule(req, catalog.CmdRegisterNotTreated, req, ready),
		rule(req, catalog.CmdApproveCE, catalog.StateApprovedCE, ready),
		rule(req, catalog.CmdRefuseCE, catalog.StateRefusedCE, ready),
		rule(req, catalog.CmdRegisterDecsByGdpq, catalog.StateDecisionByGDPQ, ready),
	)

	add(Rule{From: catalog.StateCancelled, Command: catalog.CmdRegisterNotTreated,
		To: step(catalog.StateCancelled, done), KeepSubStatus: true})

	add(missingInfoRules(catalog.StateMissingInfoCP, catalog.StateApprovedCP, catalog.StateRefusedCP, asking)...)
	add(missingInfoRules(catalog.StateMissingInfoEE, catalog.StateApprovedEE, catalog.StateRefusedEE, ready)...)

	gda := catalog.StateMissingInfoGDA
	add(
		rule(gda, catalog.CmdReceiveMissingInfoFromRequestor, gda, ready),
		rule(gda, catalog.CmdCommitAgenda, gda, waiting),
		rule(gda, catalog.CmdRegisterMissingInfoNeed, gda, asking),
		rule(gda, catalog.CmdRegisterWrongComiteParitaire, catalog.StateWrongCP, ready),
	)
	add(finalDecisionRules(gda)...)

	rcp := catalog.StateRefusedCP
	add(
		rule(rcp, catalog.CmdDispute, catalog.StateDisputedCP, ready),
		rule(rcp, catalog.CmdRegisterMissingInfoNeed, gda, asking),
		rule(rcp, catalog.CmdRegisterWrongComiteParitaire, catalog.StateReturnToOriginalCP, ready),
		rule(rcp, catalog.CmdApprove, catalog.StateApproved, done),
		rule(rcp, catalog.CmdRegisterDecsByGda, catalog.StateDecisionByGDA, ready),
		rule(rcp, catalog.CmdRegisterDecsByGdpq, catalog.StateDecisionByGDPQ, ready),
	)

	rcp2 := catalog.StateRefusedCP2
	add(
		rule(rcp2, catalog.CmdDispute, catalog.StateDisputedCP2, ready),
		rule(rcp2, catalog.CmdRegisterMissingInfoNeed, gda, asking),
		rule(rcp2, catalog.CmdRegisterWrongComiteParitaire, catalog.StateReturnToOriginalCP, ready),
		rule(rcp2, catalog.CmdApprove, catalog.StateApproved, done),
	)

	ree := catalog.StateRefusedEE
	add(
		rule(ree, catalog.CmdCommitAgenda, ree, waiting),
		rule(ree, catalog.CmdRegisterMissingInfoNeed, gda, asking),
		rule(ree, catalog.CmdRegisterNotTreated, ree, ready),
		rule(ree, catalog.CmdDispute, catalog.StateDisputedEE, ready),
		rule(ree, catalog.CmdApprove, catalog.StateApproved, done),
		rule(ree, catalog.CmdRefuse, ree, asking),
	)

	for _, s := range []catalog.State{catalog.StateApprovedCP, catalog.StateApprovedEE} {
		add(
			rule(s, catalog.CmdCommitAgenda, s, waiting),
			rule(s, catalog.CmdRegisterMissingInfoNeed, gda, asking),
			rule(s, catalog.CmdRegisterWrongComiteParitaire, catalog.StateWrongCP, ready),
		)
		add(finalDecisionRules(s)...)
	}
	add(rule(catalog.StateApprovedCP, catalog.CmdRegisterDecsByGda, catalog.StateDecisionByGDA, ready))

	dcp := catalog.StateDisputedCP
	add(
		rule(dcp, catalog.CmdCommitAgenda, dcp, waiting),
		rule(dcp, catalog.CmdRegisterMissingInfoNeed, catalog.StateMissingInfoCP, asking),
		rule(dcp, catalog.CmdRegisterWrongComiteParitaire, catalog.StateWrongCP, ready),
		rule(dcp, catalog.CmdRegisterNotTreated, dcp, ready),
		rule(dcp, catalog.CmdApprove, catalog.StateApprovedCP, ready),
		rule(dcp, catalog.CmdRefuse, catalog.StateRefusedCP2, asking),
		rule(dcp, catalog.CmdRegisterDecsByGda, catalog.StateDecisionByGDA, ready),
		rule(dcp, catalog.CmdRegisterDecsByGdpq, catalog.StateDecisionByGDPQ, ready),
	)

	for _, s := range []catalog.State{catalog.StateDisputedCP2, catalog.StateDisputedEE} {
		add(
			rule(s, catalog.CmdCommitAgenda, s, waiting),
			rule(s, catalog.CmdRegisterMissingInfoNeed, gda, asking),
			rule(s, catalog.CmdRegisterWrongComiteParitaire, catalog.StateWrongCP, ready),
		)
		add(finalDecisionRules(s)...)
	}

	wcp := catalog.StateWrongCP
	add(
		rule(wcp, catalog.CmdCommitAgenda, req, waiting),
		rule(wcp, catalog.CmdRegisterNotTreated, wcp, ready),
		rule(wcp, catalog.CmdReturnToOriginalCP, catalog.StateReturnToOriginalCP, ready),
	)

	ret := catalog.StateReturnToOriginalCP
	add(
		rule(ret, catalog.CmdCommitAgenda, req, waiting),
		rule(ret, catalog.CmdRegisterNotTreated, ret, ready),
		rule(ret, catalog.CmdApprove, catalog.StateApprovedCP, ready),
		rule(ret, catalog.CmdRefuse, catalog.StateRefusedCP, asking),
	)

	ce := catalog.StateMissingInfoCE
	gdpq := catalog.StateMissingInfoGDPQ
	add(
		rule(ce, catalog.CmdCommitAgenda, ce, waiting),
		rule(ce, catalog.CmdRegisterMissingInfoNeed, gdpq, asking),
	)
	add(finalDecisionRules(ce)...)

	add(
		rule(gdpq, catalog.CmdReceiveMissingInfoFromRequestor, gdpq, ready),
		rule(gdpq, catalog.CmdCommitAgenda, gdpq, waiting),
		rule(gdpq, catalog.CmdApproveCE, catalog.StateApprovedCE, ready),
		rule(gdpq, catalog.CmdRefuseCE, catalog.StateRefusedCE, ready),
		rule(gdpq, catalog.CmdRegisterDecsByGdpq, catalog.StateDecisionByGDPQ, ready),
		rule(gdpq, catalog.CmdRegisterMissingInfoCENeed, ce, ready),
	)

	for _, s := range []catalog.State{catalog.StateApprovedCE, catalog.StateRefusedCE} {
		add(
			rule(s, catalog.CmdCommitAgenda, s, waiting),
			rule(s, catalog.CmdRegisterMissingInfoNeed, gdpq, asking),
		)
		add(finalDecisionRules(s)...)
	}

	byGDA := catalog.StateDecisionByGDA
	add(
		rule(byGDA, catalog.CmdCommitAgenda, byGDA, waiting),
		rule(byGDA, catalog.CmdRegisterMissingInfoNeed, gda, asking),
		rule(byGDA, catalog.CmdRegisterWrongComiteParitaire, catalog.StateWrongCP, ready),
	)
	add(finalDecisionRules(byGDA)...)

	byGDPQ := catalog.StateDecisionByGDPQ
	add(
		rule(byGDPQ, catalog.CmdCommitAgenda, byGDPQ, waiting),
		rule(byGDPQ, catalog.CmdRegisterMissingInfoNeed, gdpq, asking),
	)
	add(finalDecisionRules(byGDPQ)...)

	return rs
}

// rulebook is the canonical (state, command) index. Built once; a duplicate
// key is a defect in canonicalRules.
var rulebook = func() map[ruleKey]Rule {
	rs := canonicalRules()
	m := make(map[ruleKey]Rule, len(rs))
	for _, r := range rs {
		k := ruleKey{r.From, r.Command}
		if _, dup := m[k]; dup {
			panic("engine: duplicate rule for " + r.From.String() + " " + string(r.Command))
		}
		m[k] = r
	}
	return m
}()

// #endregion rulebook

// #region rules-api
// Rules returns the rulebook sorted by state then command order.
func Rules() []Rule {
	order := make(map[catalog.Command]int)
	for i, c := range catalog.Commands() {
		order[c] = i
	}
	out := make([]Rule, 0, len(rulebook))
	for _, r := range rulebook {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return order[out[i].Command] < order[out[j].Command]
	})
	return out
}

// lookup returns the rule for (state, command), if any.
func lookup(s catalog.State, cmd catalog.Command) (Rule, bool) {
	r, ok := rulebook[ruleKey{s, cmd}]
	return r, ok
}

// #endregion rules-api
