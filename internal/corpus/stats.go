package corpus

import (
	"strconv"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
)

// #region shares
// Share is a pattern with its percentage of the set it was computed over.
type Share struct {
	Pattern
	Percent float64 `json:"percent"`
}

// TotalOccurrences sums the occurrence counts of ps.
func TotalOccurrences(ps []Pattern) int {
	total := 0
	for _, p := range ps {
		total += p.OccurrenceCount
	}
	return total
}

// Shares annotates ps with their percentage of TotalOccurrences(ps). Pass the
// filtered set, not the full corpus. A zero total yields zero percentages.
func Shares(ps []Pattern) []Share {
	total := TotalOccurrences(ps)
	out := make([]Share, len(ps))
	for i, p := range ps {
		out[i] = Share{Pattern: p}
		if total > 0 {
			out[i].Percent = float64(p.OccurrenceCount) / float64(total) * 100
		}
	}
	return out
}

// #endregion shares

// #region aggregate
// Aggregate accumulates every consecutive step pair of every pattern,
// weighted by the pattern's occurrence count.
func Aggregate(ps []Pattern) gate.Counts {
	counts := make(gate.Counts)
	for _, p := range ps {
		if p.OccurrenceCount < 1 {
			continue
		}
		for _, pair := range p.Pairs() {
			counts.Add(pair[0], pair[1], p.OccurrenceCount)
		}
	}
	return counts
}

// #endregion aggregate

// #region presentation
var (
	dentistStates = []catalog.State{
		catalog.StateMissingInfoCE, catalog.StateMissingInfoGDPQ, catalog.StateApprovedCE,
		catalog.StateRefusedCE, catalog.StateDecisionByGDPQ,
	}
	eeStates = []catalog.State{catalog.StateMissingInfoEE, catalog.StateRefusedEE, catalog.StateApprovedEE}
)

// DetectCommittee guesses the committee a pattern belongs to from the
// committee-specific states it passes through.
func DetectCommittee(p Pattern) catalog.Committee {
	if hasAny(p, dentistStates) {
		return catalog.CommitteeDentist
	}
	if hasAny(p, eeStates) {
		return catalog.CommitteeEE
	}
	return catalog.CommitteeStandardCP
}

func hasAny(p Pattern, states []catalog.State) bool {
	for _, s := range states {
		if anyStep(p, func(st catalog.Step) bool { return st.State == s }) {
			return true
		}
	}
	return false
}

// FormatOccurrenceCount abbreviates counts of a thousand or more, e.g. "1.2K".
func FormatOccurrenceCount(n int) string {
	if n >= 1000 {
		return strconv.FormatFloat(float64(n)/1000, 'f', 1, 64) + "K"
	}
	return strconv.Itoa(n)
}

// #endregion presentation
