package logging

import "time"

// #region decision-entry
// Decision values written to decision_log.
const (
	DecisionAccept = "accept"
	DecisionReject = "reject"
)

// DecisionEntry is a single row in the decision_log table.
type DecisionEntry struct {
	RunID      string
	BuildID    string
	StepIndex  int
	Committee  string
	FromStep   string // "2-3"
	Command    string
	Decision   string // "accept" | "reject"
	ToStep     string
	Kind       string // rejection kind, empty when accepted
	Tier       string
	Reason     string
	RecordJSON string
	CreatedAt  time.Time
}

// #endregion decision-entry

// #region decision-record
// DecisionRecord captures everything that fed one decision. Serialized as
// JSON into decision_log.record_json so a run can be re-examined later.
type DecisionRecord struct {
	Scenario string `json:"scenario"`
	Activity struct {
		State     int    `json:"state"`
		SubStatus int    `json:"sub_status"`
		Committee string `json:"committee"`
	} `json:"activity"`
	Command string `json:"command"`

	// Rulebook proposal before admission, empty when the rulebook refused.
	Proposed string `json:"proposed,omitempty"`

	// Admission context active at decision time
	Tier       string         `json:"tier"`
	Thresholds map[string]int `json:"thresholds"`
	Observed   int            `json:"observed"`

	Outcome  string `json:"outcome"`
	Expected string `json:"expected,omitempty"`
	Matched  bool   `json:"matched"`
}

// #endregion decision-record
