// Package graph stores aggregated transition counts per dataset build in
// SQLite and answers neighbour and path queries over them.
package graph

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS transition_edges (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    build_id        TEXT NOT NULL,
    from_state      INTEGER NOT NULL,
    from_sub_status INTEGER NOT NULL,
    to_state        INTEGER NOT NULL,
    to_sub_status   INTEGER NOT NULL,
    count           INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL,
    UNIQUE(build_id, from_state, from_sub_status, to_state, to_sub_status)
);
CREATE INDEX IF NOT EXISTS idx_edges_from ON transition_edges(build_id, from_state, from_sub_status);
`

// #endregion schema

// #region types
// Edge is one aggregated transition of a build.
type Edge struct {
	ID        int64
	BuildID   string
	From      catalog.Step
	To        catalog.Step
	Count     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WalkResult is a path from a greedy walk. Shares[i] is the fraction of
// Steps[i-1]'s outgoing traffic that went to Steps[i]; Probability is their
// product.
type WalkResult struct {
	Steps       []catalog.Step
	Counts      []int
	Shares      []float64
	Probability float64
}

// Store manages the transition_edges table.
type Store struct {
	db *sql.DB
}

// #endregion types

// #region constructor
// NewStore creates tables and returns a Store.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("graph schema: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region increment-edge
const upsertEdge = `
INSERT INTO transition_edges
    (build_id, from_state, from_sub_status, to_state, to_sub_status, count, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(build_id, from_state, from_sub_status, to_state, to_sub_status) DO UPDATE SET
    count = transition_edges.count + excluded.count,
    updated_at = excluded.updated_at`

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// incrementEdge adds n occurrences of from -> to to a build, creating the
// edge if needed.
func incrementEdge(x execer, buildID string, from, to catalog.Step, n int) error {
	if n < 1 {
		return fmt.Errorf("increment edge %s -> %s: count %d must be positive", from.Key(), to.Key(), n)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := x.Exec(upsertEdge,
		buildID, int(from.State), int(from.SubStatus), int(to.State), int(to.SubStatus), n, now, now,
	)
	return err
}

// ImportCounts adds every transition in counts to a build in one transaction.
func (g *Store) ImportCounts(ctx context.Context, buildID string, counts gate.Counts) (int, error) {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	n := 0
	for _, tr := range counts.Transitions() {
		if tr.Count < 1 {
			continue
		}
		if err := incrementEdge(tx, buildID, tr.From, tr.To, tr.Count); err != nil {
			return 0, fmt.Errorf("import edge %s -> %s: %w", tr.From.Key(), tr.To.Key(), err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// #endregion increment-edge

// #region neighbors
const edgeColumns = `id, build_id, from_state, from_sub_status, to_state, to_sub_status, count, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEdge(s scanner) (Edge, error) {
	var (
		e                  Edge
		fs, fss, ts, tss   int
		createdAt, updated string
	)
	if err := s.Scan(&e.ID, &e.BuildID, &fs, &fss, &ts, &tss, &e.Count, &createdAt, &updated); err != nil {
		return Edge{}, err
	}
	e.From = catalog.Step{State: catalog.State(fs), SubStatus: catalog.SubStatus(fss)}
	e.To = catalog.Step{State: catalog.State(ts), SubStatus: catalog.SubStatus(tss)}
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return e, nil
}

// Neighbors returns the edges leaving from with count >= minCount, most
// frequent first. Ties are ordered by target step.
func (g *Store) Neighbors(buildID string, from catalog.Step, minCount int) ([]Edge, error) {
	rows, err := g.db.Query(
		`SELECT `+edgeColumns+`
		 FROM transition_edges
		 WHERE build_id = ? AND from_state = ? AND from_sub_status = ? AND count >= ?
		 ORDER BY count DESC, to_state, to_sub_status`,
		buildID, int(from.State), int(from.SubStatus), minCount,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// Counts reads back every edge of a build.
func (g *Store) Counts(buildID string) (gate.Counts, error) {
	rows, err := g.db.Query(
		`SELECT `+edgeColumns+` FROM transition_edges WHERE build_id = ?`, buildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(gate.Counts)
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		counts.Add(e.From, e.To, e.Count)
	}
	return counts, rows.Err()
}

// outgoing returns the total count leaving from, at any minimum.
func (g *Store) outgoing(buildID string, from catalog.Step) (int, error) {
	var total sql.NullInt64
	err := g.db.QueryRow(
		`SELECT SUM(count) FROM transition_edges
		 WHERE build_id = ? AND from_state = ? AND from_sub_status = ?`,
		buildID, int(from.State), int(from.SubStatus),
	).Scan(&total)
	return int(total.Int64), err
}

// #endregion neighbors

// #region walk
// Walk follows the most frequent unvisited successor from start, up to
// maxSteps hops, ignoring edges below minCount. The walk stops early at a
// step with no eligible successor.
func (g *Store) Walk(buildID string, start catalog.Step, maxSteps, minCount int) (WalkResult, error) {
	if maxSteps <= 0 {
		maxSteps = 10
	}

	result := WalkResult{
		Steps:       []catalog.Step{start},
		Counts:      []int{0},
		Shares:      []float64{1.0},
		Probability: 1.0,
	}
	visited := map[catalog.Step]bool{start: true}

	current := start
	for hop := 0; hop < maxSteps; hop++ {
		neighbors, err := g.Neighbors(buildID, current, minCount)
		if err != nil {
			return result, fmt.Errorf("walk neighbors: %w", err)
		}
		var next *Edge
		for i := range neighbors {
			if !visited[neighbors[i].To] {
				next = &neighbors[i]
				break
			}
		}
		if next == nil {
			break
		}

		total, err := g.outgoing(buildID, current)
		if err != nil {
			return result, fmt.Errorf("walk outgoing: %w", err)
		}
		share := 0.0
		if total > 0 {
			share = float64(next.Count) / float64(total)
		}

		visited[next.To] = true
		result.Steps = append(result.Steps, next.To)
		result.Counts = append(result.Counts, next.Count)
		result.Shares = append(result.Shares, share)
		result.Probability *= share
		current = next.To
	}

	return result, nil
}

// #endregion walk

// #region delete
// DeleteBuild removes every edge of a build.
func (g *Store) DeleteBuild(buildID string) (int64, error) {
	res, err := g.db.Exec(`DELETE FROM transition_edges WHERE build_id = ?`, buildID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// #endregion delete
