package gate

import (
	"sort"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
)

// #region tables
// Table maps a from-step to its viable successors, sorted by (state, sub-status).
type Table map[catalog.Step][]Target

// Tables is the complete set of per-tier lookup tables derived from one
// dataset. It is immutable after BuildTables returns.
type Tables struct {
	byTier     map[Tier]Table
	thresholds map[Tier]int
	counts     Counts
}

// Table returns the lookup table for a tier.
func (t Tables) Table(tier Tier) Table {
	mustTier(tier)
	return t.byTier[tier]
}

// Threshold returns the minimum occurrence count admitted by a tier.
func (t Tables) Threshold(tier Tier) int {
	mustTier(tier)
	return t.thresholds[tier]
}

// Lookup returns a copy of the successors of from in the given tier.
func (t Tables) Lookup(tier Tier, from catalog.Step) []Target {
	src := t.Table(tier)[from]
	if len(src) == 0 {
		return nil
	}
	out := make([]Target, len(src))
	copy(out, src)
	return out
}

// Size returns the number of transitions admitted by a tier.
func (t Tables) Size(tier Tier) int {
	n := 0
	for _, targets := range t.Table(tier) {
		n += len(targets)
	}
	return n
}

// Transitions returns every admitted-at-least-once transition, ranked by count.
func (t Tables) Transitions() []Transition {
	return t.counts.Transitions()
}

// #endregion tables

// #region build
// BuildTables ranks every transition in counts and truncates the ranking at
// each tier's threshold. Identical counts always yield identical tables.
func BuildTables(counts Counts, cfg BuildConfig) Tables {
	ranked := counts.Transitions()

	thresholds := map[Tier]int{
		TierTop75:  rankThreshold(ranked, cfg.Top75Rank),
		TierTop150: rankThreshold(ranked, cfg.Top150Rank),
		TierAll:    1,
	}

	snapshot := make(Counts, len(counts))
	byTier := make(map[Tier]Table, len(thresholds))
	for tier, floor := range thresholds {
		byTier[tier] = make(Table)
		for _, tr := range ranked {
			if tr.Count < 1 || tr.Count < floor {
				continue
			}
			byTier[tier][tr.From] = append(byTier[tier][tr.From], Target{To: tr.To, Count: tr.Count})
		}
		for from := range byTier[tier] {
			targets := byTier[tier][from]
			sort.Slice(targets, func(i, j int) bool { return stepLess(targets[i].To, targets[j].To) })
		}
	}
	for _, tr := range ranked {
		if tr.Count >= 1 {
			snapshot.Add(tr.From, tr.To, tr.Count)
		}
	}

	return Tables{byTier: byTier, thresholds: thresholds, counts: snapshot}
}

// rankThreshold returns the count at the given 1-based rank, or 0 when the
// ranking is shorter than rank.
func rankThreshold(ranked []Transition, rank int) int {
	if rank <= 0 || rank > len(ranked) {
		return 0
	}
	return ranked[rank-1].Count
}

// #endregion build
