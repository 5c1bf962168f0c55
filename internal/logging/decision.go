package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS decision_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	build_id    TEXT,
	step_index  INTEGER NOT NULL,
	committee   TEXT NOT NULL,
	from_step   TEXT NOT NULL,
	command     TEXT NOT NULL,
	decision    TEXT NOT NULL,
	to_step     TEXT,
	kind        TEXT,
	tier        TEXT NOT NULL,
	reason      TEXT,
	record_json TEXT,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decision_run ON decision_log(run_id, step_index);
`

// EnsureSchema creates the decision_log table if needed.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("decision log schema: %w", err)
	}
	return nil
}

// #endregion schema

// #region log-decision
// LogDecision writes one entry to the decision_log table.
func LogDecision(db *sql.DB, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO decision_log (run_id, build_id, step_index, committee, from_step, command, decision,
		                           to_step, kind, tier, reason, record_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		nullIfEmpty(entry.BuildID),
		entry.StepIndex,
		entry.Committee,
		entry.FromStep,
		entry.Command,
		entry.Decision,
		nullIfEmpty(entry.ToStep),
		nullIfEmpty(entry.Kind),
		entry.Tier,
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.RecordJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region list-decisions
// ListDecisions returns the entries of a run in step order.
func ListDecisions(db *sql.DB, runID string) ([]DecisionEntry, error) {
	rows, err := db.Query(
		`SELECT run_id, build_id, step_index, committee, from_step, command, decision,
		        to_step, kind, tier, reason, record_json, created_at
		 FROM decision_log WHERE run_id = ? ORDER BY step_index, id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionEntry
	for rows.Next() {
		var (
			e                                     DecisionEntry
			buildID, toStep, kind, reason, record sql.NullString
			created                               string
		)
		if err := rows.Scan(&e.RunID, &buildID, &e.StepIndex, &e.Committee, &e.FromStep, &e.Command,
			&e.Decision, &toStep, &kind, &e.Tier, &reason, &record, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.BuildID, e.ToStep, e.Kind = buildID.String, toStep.String, kind.String
		e.Reason, e.RecordJSON = reason.String, record.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list-decisions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
