package gate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
)

// #region tier
// Tier selects one of the precomputed admission tables.
type Tier string

const (
	TierTop75  Tier = "top75"
	TierTop150 Tier = "top150"
	TierAll    Tier = "all"
)

// Tiers returns the tiers from strictest to loosest.
func Tiers() []Tier {
	return []Tier{TierTop75, TierTop150, TierAll}
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierTop75, TierTop150, TierAll:
		return true
	}
	return false
}

// ParseTier accepts the tier identifiers plus the upper-case forms
// ("TOP_75", "ALL") used in older exports.
func ParseTier(v string) (Tier, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(v), "_", ""))
	t := Tier(norm)
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier %q", v)
	}
	return t, nil
}

func mustTier(t Tier) {
	if !t.Valid() {
		panic(fmt.Sprintf("gate: unknown tier %q", string(t)))
	}
}

// #endregion tier

// #region transition
// Transition is one aggregated (from, to, count) record.
type Transition struct {
	From  catalog.Step `json:"from"`
	To    catalog.Step `json:"to"`
	Count int          `json:"count"`
}

// Target is a viable successor of a lookup key.
type Target struct {
	To    catalog.Step `json:"to"`
	Count int          `json:"count"`
}

// RankedTarget is a Target annotated with its share relative to the most
// frequent successor of the same key.
type RankedTarget struct {
	Target
	Percent float64 `json:"percent"`
}

// #endregion transition

// #region counts
// Counts accumulates occurrence counts as from -> to -> count.
type Counts map[catalog.Step]map[catalog.Step]int

// Add accumulates n occurrences of from -> to.
func (c Counts) Add(from, to catalog.Step, n int) {
	inner, ok := c[from]
	if !ok {
		inner = make(map[catalog.Step]int)
		c[from] = inner
	}
	inner[to] += n
}

// Get returns the accumulated count of from -> to, or 0.
func (c Counts) Get(from, to catalog.Step) int {
	return c[from][to]
}

// Transitions flattens the counts, ranked by count descending. Ties are
// broken by from then to so the order is stable across runs.
func (c Counts) Transitions() []Transition {
	out := make([]Transition, 0, len(c))
	for from, inner := range c {
		for to, n := range inner {
			out = append(out, Transition{From: from, To: to, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].From != out[j].From {
			return stepLess(out[i].From, out[j].From)
		}
		return stepLess(out[i].To, out[j].To)
	})
	return out
}

func stepLess(a, b catalog.Step) bool {
	if a.State != b.State {
		return a.State < b.State
	}
	return a.SubStatus < b.SubStatus
}

// #endregion counts

// #region build-config
// BuildConfig holds the rank cutoffs used when deriving the strict tiers.
// The threshold of a tier is the count of the transition at that rank in the
// global ranking, or 0 when fewer transitions exist.
type BuildConfig struct {
	Top75Rank  int
	Top150Rank int
}

// DefaultBuildConfig returns the cutoffs the production tables were built with.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		Top75Rank:  75,
		Top150Rank: 150,
	}
}

// #endregion build-config

// #region decision
const (
	ActionAdmit  = "admit"
	ActionReject = "reject"
)

// Decision is the output of an admission check.
type Decision struct {
	Action string // "admit" | "reject"
	Reason string
	Tier   Tier
	Count  int // occurrences in the unfiltered dataset
}

// Admitted reports whether the decision admits the transition.
func (d Decision) Admitted() bool { return d.Action == ActionAdmit }

// #endregion decision
