// Package snapshot keeps versioned builds of the reference dataset in
// SQLite, with a single active build pointer.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/corpus"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
)

var (
	// ErrNoActiveBuild is returned when no build has been activated yet.
	ErrNoActiveBuild = errors.New("no active build")
	// ErrActiveBuild is returned when deleting the active build.
	ErrActiveBuild = errors.New("build is active")
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS dataset_builds (
	build_id         TEXT PRIMARY KEY,
	parent_id        TEXT,
	source           TEXT NOT NULL,
	created_at       TEXT NOT NULL,
	thresholds_json  TEXT NOT NULL,
	stats_json       TEXT NOT NULL,
	pattern_count    INTEGER NOT NULL DEFAULT 0,
	transition_count INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (parent_id) REFERENCES dataset_builds(build_id)
);

CREATE TABLE IF NOT EXISTS build_patterns (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	build_id         TEXT NOT NULL,
	rank             INTEGER NOT NULL,
	raw              TEXT NOT NULL,
	occurrence_count INTEGER NOT NULL,
	length           INTEGER NOT NULL,
	committee        TEXT NOT NULL,
	UNIQUE(build_id, rank),
	FOREIGN KEY (build_id) REFERENCES dataset_builds(build_id)
);

CREATE TABLE IF NOT EXISTS active_build (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	build_id TEXT NOT NULL,
	FOREIGN KEY (build_id) REFERENCES dataset_builds(build_id)
);
`

// #endregion schema

// #region store-struct
// Store manages dataset builds in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for the graph and logging stores.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region create-build
// CreateBuild records a new build. Its parent is the build active at the
// time of the call; the new build is not activated.
func (s *Store) CreateBuild(source string, thresholds map[gate.Tier]int, stats corpus.LoadStats) (Build, error) {
	parent, err := s.activeID()
	if err != nil && !errors.Is(err, ErrNoActiveBuild) {
		return Build{}, err
	}

	b := Build{
		BuildID:    uuid.New().String(),
		ParentID:   parent,
		Source:     source,
		CreatedAt:  time.Now().UTC(),
		Thresholds: thresholds,
		Stats:      stats,
	}
	thrJSON, err := json.Marshal(thresholds)
	if err != nil {
		return Build{}, fmt.Errorf("marshal thresholds: %w", err)
	}
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return Build{}, fmt.Errorf("marshal stats: %w", err)
	}

	var parentPtr interface{}
	if parent != "" {
		parentPtr = parent
	}
	_, err = s.db.Exec(
		`INSERT INTO dataset_builds (build_id, parent_id, source, created_at, thresholds_json, stats_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.BuildID, parentPtr, source, b.CreatedAt.Format(time.RFC3339Nano), string(thrJSON), string(statsJSON),
	)
	if err != nil {
		return Build{}, fmt.Errorf("insert build: %w", err)
	}
	return b, nil
}

// #endregion create-build

// #region save-patterns
// SavePatterns stores ps under a build in the given order and records the
// number of distinct transitions they contain.
func (s *Store) SavePatterns(ctx context.Context, buildID string, ps []corpus.Pattern) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO build_patterns (build_id, rank, raw, occurrence_count, length, committee)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, p := range ps {
		if _, err := stmt.ExecContext(ctx,
			buildID, i+1, p.Raw, p.OccurrenceCount, p.Length, string(corpus.DetectCommittee(p)),
		); err != nil {
			return fmt.Errorf("insert pattern %d: %w", i+1, err)
		}
	}

	transitions := len(corpus.Aggregate(ps).Transitions())
	res, err := tx.ExecContext(ctx,
		`UPDATE dataset_builds SET pattern_count = ?, transition_count = ? WHERE build_id = ?`,
		len(ps), transitions, buildID,
	)
	if err != nil {
		return fmt.Errorf("update build: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("build %s not found", buildID)
	}
	return tx.Commit()
}

// #endregion save-patterns

// #region get-build
func (s *Store) activeID() (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT build_id FROM active_build WHERE id = 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoActiveBuild
	}
	if err != nil {
		return "", fmt.Errorf("get active: %w", err)
	}
	return id, nil
}

// GetActive reads the active build.
func (s *Store) GetActive() (Build, error) {
	id, err := s.activeID()
	if err != nil {
		return Build{}, err
	}
	return s.GetBuild(id)
}

const buildColumns = `build_id, parent_id, source, created_at, thresholds_json, stats_json, pattern_count, transition_count`

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(sc scanner) (Build, error) {
	var (
		b                  Build
		parentID           sql.NullString
		createdStr         string
		thrJSON, statsJSON string
	)
	if err := sc.Scan(&b.BuildID, &parentID, &b.Source, &createdStr, &thrJSON, &statsJSON,
		&b.PatternCount, &b.TransitionCount); err != nil {
		return Build{}, err
	}
	if parentID.Valid {
		b.ParentID = parentID.String
	}
	b.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	if err := json.Unmarshal([]byte(thrJSON), &b.Thresholds); err != nil {
		return Build{}, fmt.Errorf("unmarshal thresholds: %w", err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &b.Stats); err != nil {
		return Build{}, fmt.Errorf("unmarshal stats: %w", err)
	}
	return b, nil
}

// GetBuild retrieves a build by ID.
func (s *Store) GetBuild(id string) (Build, error) {
	b, err := scanBuild(s.db.QueryRow(
		`SELECT `+buildColumns+` FROM dataset_builds WHERE build_id = ?`, id,
	))
	if err != nil {
		return Build{}, fmt.Errorf("get build %s: %w", id, err)
	}
	return b, nil
}

// #endregion get-build

// #region set-active
// SetActive points the active build at id. Activating an older build is a
// rollback.
func (s *Store) SetActive(id string) error {
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM dataset_builds WHERE build_id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check build: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("build %s not found", id)
	}

	_, err = s.db.Exec(
		`INSERT INTO active_build (id, build_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET build_id = excluded.build_id`,
		id,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

// #endregion set-active

// #region delete-build
// DeleteBuild removes a build and its patterns. The active build cannot be
// deleted. Builds whose parent was id inherit id's parent, so lineage
// skips over the removed build.
func (s *Store) DeleteBuild(ctx context.Context, id string) error {
	active, err := s.activeID()
	if err != nil && !errors.Is(err, ErrNoActiveBuild) {
		return err
	}
	if id == active {
		return fmt.Errorf("delete %s: %w", id, ErrActiveBuild)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parent sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT parent_id FROM dataset_builds WHERE build_id = ?`, id).Scan(&parent)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("build %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("get build: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE dataset_builds SET parent_id = ? WHERE parent_id = ?`, parent, id); err != nil {
		return fmt.Errorf("reparent children: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM build_patterns WHERE build_id = ?`, id); err != nil {
		return fmt.Errorf("delete patterns: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_builds WHERE build_id = ?`, id); err != nil {
		return fmt.Errorf("delete build: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// #endregion delete-build

// #region list-builds
// ListBuilds returns the most recent builds, newest first by insertion.
func (s *Store) ListBuilds(limit int) ([]BuildSummary, error) {
	active, err := s.activeID()
	if err != nil && !errors.Is(err, ErrNoActiveBuild) {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT `+buildColumns+` FROM dataset_builds ORDER BY rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	var out []BuildSummary
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, BuildSummary{Build: b, Active: b.BuildID == active})
	}
	return out, rows.Err()
}

// #endregion list-builds

// #region patterns
// Patterns reads back the patterns of a build in stored order.
func (s *Store) Patterns(buildID string) ([]corpus.Pattern, error) {
	rows, err := s.db.Query(
		`SELECT raw, occurrence_count FROM build_patterns WHERE build_id = ? ORDER BY rank`, buildID,
	)
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	defer rows.Close()

	var out []corpus.Pattern
	for rows.Next() {
		var (
			raw   string
			count int
		)
		if err := rows.Scan(&raw, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		p, err := corpus.ParsePattern(raw, count)
		if err != nil {
			return nil, fmt.Errorf("stored pattern %q: %w", raw, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CommitteeCounts returns the number of stored patterns per detected committee.
func (s *Store) CommitteeCounts(buildID string) (map[catalog.Committee]int, error) {
	rows, err := s.db.Query(
		`SELECT committee, COUNT(*) FROM build_patterns WHERE build_id = ? GROUP BY committee`, buildID,
	)
	if err != nil {
		return nil, fmt.Errorf("committee counts: %w", err)
	}
	defer rows.Close()

	out := make(map[catalog.Committee]int)
	for rows.Next() {
		var (
			c string
			n int
		)
		if err := rows.Scan(&c, &n); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out[catalog.Committee(c)] = n
	}
	return out, rows.Err()
}

// #endregion patterns
