package gate

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
)

// #region gate
// Gate admits or rejects proposed transitions against production data.
//
// The active tier is owned by the Gate and read atomically on every check.
// Switching it affects subsequent calls only; callers that need a fixed tier
// for a whole computation should use the *At variants instead. A zero Gate
// has empty tables and reports TierAll until SetTier is called.
type Gate struct {
	tables Tables
	active atomic.Pointer[Tier]
}

// NewGate creates a gate over tables with the given active tier.
func NewGate(tables Tables, tier Tier) *Gate {
	mustTier(tier)
	g := &Gate{tables: tables}
	g.active.Store(&tier)
	return g
}

// SetTier switches the active tier. Writers must be serialised by the caller.
func (g *Gate) SetTier(tier Tier) {
	mustTier(tier)
	g.active.Store(&tier)
}

// Tier returns the active tier.
func (g *Gate) Tier() Tier {
	if t := g.active.Load(); t != nil {
		return *t
	}
	return TierAll
}

// Tables exposes the underlying immutable tables.
func (g *Gate) Tables() Tables {
	return g.tables
}

// Thresholds returns the minimum occurrence count of every tier.
func (g *Gate) Thresholds() map[Tier]int {
	out := make(map[Tier]int, 3)
	for _, t := range Tiers() {
		out[t] = g.tables.Threshold(t)
	}
	return out
}

// #endregion gate

// #region admission
// IsAllowed reports whether from -> to was observed at the active tier.
func (g *Gate) IsAllowed(from, to catalog.Step) bool {
	return g.IsAllowedAt(g.Tier(), from, to)
}

// IsAllowedAt reports whether from -> to was observed at the given tier. A
// from-step with no entry at all is never allowed.
func (g *Gate) IsAllowedAt(tier Tier, from, to catalog.Step) bool {
	for _, t := range g.tables.Table(tier)[from] {
		if t.To == to {
			return true
		}
	}
	return false
}

// ValidTargets returns the successors of from admitted at the active tier.
func (g *Gate) ValidTargets(from catalog.Step) []Target {
	return g.tables.Lookup(g.Tier(), from)
}

// ValidTargetsAt returns the successors of from admitted at the given tier.
func (g *Gate) ValidTargetsAt(tier Tier, from catalog.Step) []Target {
	return g.tables.Lookup(tier, from)
}

// OccurrenceCount returns how often from -> to occurred in the unfiltered
// dataset, whatever the active tier.
func (g *Gate) OccurrenceCount(from, to catalog.Step) int {
	for _, t := range g.tables.Table(TierAll)[from] {
		if t.To == to {
			return t.Count
		}
	}
	return 0
}

// Evaluate checks from -> to at the active tier.
func (g *Gate) Evaluate(from, to catalog.Step) Decision {
	return g.EvaluateAt(g.Tier(), from, to)
}

// EvaluateAt checks from -> to at the given tier.
func (g *Gate) EvaluateAt(tier Tier, from, to catalog.Step) Decision {
	count := g.OccurrenceCount(from, to)
	if !g.IsAllowedAt(tier, from, to) {
		reason := fmt.Sprintf("%s -> %s not observed in production", from.Key(), to.Key())
		if count > 0 {
			reason = fmt.Sprintf("%s -> %s observed %d times, below %s threshold %d",
				from.Key(), to.Key(), count, tier, g.tables.Threshold(tier))
		}
		return Decision{Action: ActionReject, Reason: reason, Tier: tier, Count: count}
	}
	return Decision{
		Action: ActionAdmit,
		Reason: fmt.Sprintf("%s -> %s observed %d times", from.Key(), to.Key(), count),
		Tier:   tier,
		Count:  count,
	}
}

// #endregion admission

// #region ranking
// TopTargets returns up to n unfiltered successors of from, most frequent
// first, each with its percentage of the most frequent one.
func (g *Gate) TopTargets(from catalog.Step, n int) []RankedTarget {
	targets := g.tables.Lookup(TierAll, from)
	sort.SliceStable(targets, func(i, j int) bool { return targets[i].Count > targets[j].Count })
	if n > 0 && len(targets) > n {
		targets = targets[:n]
	}
	if len(targets) == 0 {
		return nil
	}

	top := float64(targets[0].Count)
	out := make([]RankedTarget, len(targets))
	for i, t := range targets {
		out[i] = RankedTarget{Target: t, Percent: float64(t.Count) / top * 100}
	}
	return out
}

// #endregion ranking
