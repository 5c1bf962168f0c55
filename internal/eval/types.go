package eval

import "github.com/danielpatrickdp/activity-states/go-controller/internal/gate"

// #region eval-config
// EvalConfig holds the minimum agreement between the rulebook and production.
type EvalConfig struct {
	MinProductionCoverage float64 // share of distinct production transitions some rule explains
	MinTrafficCoverage    float64 // same, weighted by occurrence count
	MinRuleObserved       float64 // share of rules seen at least once in production
}

// DefaultEvalConfig returns the minima the shipped rulebook is held to.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MinProductionCoverage: 0.85,
		MinTrafficCoverage:    0.85,
		MinRuleObserved:       0.5,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Min   float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of a coverage run.
type EvalResult struct {
	Passed      bool
	Metrics     []EvalMetric
	Reason      string
	Unexplained []gate.Transition // production transitions no rule proposes, most frequent first
}

// #endregion eval-result
