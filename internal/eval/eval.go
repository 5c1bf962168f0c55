// Package eval measures how well the rulebook and the production data agree.
package eval

import (
	"fmt"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/engine"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
)

// #region eval-harness
// EvalHarness compares a rulebook against observed transition counts.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run checks rules against counts. Rules from the initial state are left out
// since production data has no transitions out of it.
func (h *EvalHarness) Run(rules []engine.Rule, counts gate.Counts) EvalResult {
	var active []engine.Rule
	for _, r := range rules {
		if r.From != catalog.StateUnknown {
			active = append(active, r)
		}
	}

	transitions := counts.Transitions()
	observed := make([]bool, len(active))
	var (
		explained, traffic, total int
		unexplained               []gate.Transition
	)
	for _, tr := range transitions {
		total += tr.Count
		hit := false
		for i, r := range active {
			if proposes(r, tr) {
				observed[i] = true
				hit = true
			}
		}
		if hit {
			explained++
			traffic += tr.Count
		} else {
			unexplained = append(unexplained, tr)
		}
	}
	seen := 0
	for _, ok := range observed {
		if ok {
			seen++
		}
	}

	metrics := []EvalMetric{
		h.metric("production_coverage", ratio(explained, len(transitions)), h.config.MinProductionCoverage),
		h.metric("traffic_coverage", ratio(traffic, total), h.config.MinTrafficCoverage),
		h.metric("rule_observed", ratio(seen, len(active)), h.config.MinRuleObserved),
	}

	passed := true
	var failReasons []string
	for _, m := range metrics {
		if !m.Pass {
			passed = false
			failReasons = append(failReasons, fmt.Sprintf("%s %.4f below %.4f", m.Name, m.Value, m.Min))
		}
	}

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:      passed,
		Metrics:     metrics,
		Reason:      reason,
		Unexplained: unexplained,
	}
}

// #endregion eval-harness

// #region helpers
func (h *EvalHarness) metric(name string, v, lo float64) EvalMetric {
	return EvalMetric{Name: name, Value: v, Min: lo, Pass: v >= lo}
}

// proposes reports whether r can propose tr for some committee.
func proposes(r engine.Rule, tr gate.Transition) bool {
	if r.From != tr.From.State {
		return false
	}
	for _, to := range r.Targets(tr.From.SubStatus) {
		if to == tr.To {
			return true
		}
	}
	return false
}

// ratio returns n/d, or 1 for an empty denominator.
func ratio(n, d int) float64 {
	if d == 0 {
		return 1
	}
	return float64(n) / float64(d)
}

// #endregion helpers
