package graph

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	gs, err := NewStore(db)
	require.NoError(t, err)
	return gs
}

func st(s, ss int) catalog.Step {
	return catalog.Step{State: catalog.State(s), SubStatus: catalog.SubStatus(ss)}
}

// #region test-increment-edge
func TestIncrementEdge(t *testing.T) {
	gs := setupTestStore(t)

	require.NoError(t, incrementEdge(gs.db, "b1", st(2, 2), st(2, 3), 100))
	require.NoError(t, incrementEdge(gs.db, "b1", st(2, 2), st(2, 3), 20))
	require.NoError(t, incrementEdge(gs.db, "b2", st(2, 2), st(2, 3), 7))

	edges, err := gs.Neighbors("b1", st(2, 2), 0)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, 120, edges[0].Count)
	assert.Equal(t, st(2, 3), edges[0].To)
	assert.False(t, edges[0].CreatedAt.IsZero())

	assert.Error(t, incrementEdge(gs.db, "b1", st(2, 2), st(2, 3), 0))
}

// #endregion test-increment-edge

// #region test-import
func TestImportCountsRoundTrip(t *testing.T) {
	gs := setupTestStore(t)

	counts := make(gate.Counts)
	counts.Add(st(2, 2), st(2, 3), 500)
	counts.Add(st(2, 3), st(10, 2), 300)
	counts.Add(st(2, 3), st(3, 5), 5)

	n, err := gs.ImportCounts(context.Background(), "b1", counts)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	back, err := gs.Counts("b1")
	require.NoError(t, err)
	assert.Equal(t, counts, back)

	empty, err := gs.Counts("other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNeighborsMinCountAndOrder(t *testing.T) {
	gs := setupTestStore(t)
	require.NoError(t, incrementEdge(gs.db, "b", st(2, 3), st(3, 5), 5))
	require.NoError(t, incrementEdge(gs.db, "b", st(2, 3), st(10, 2), 300))
	require.NoError(t, incrementEdge(gs.db, "b", st(2, 3), st(7, 4), 300))

	edges, err := gs.Neighbors("b", st(2, 3), 10)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, st(7, 4), edges[0].To, "ties ordered by target")
	assert.Equal(t, st(10, 2), edges[1].To)
}

// #endregion test-import

// #region test-walk
func TestWalk(t *testing.T) {
	gs := setupTestStore(t)
	// 2-2 -> 2-3 -> 10-2 -> 10-3 -> 17-5 with a loop back and a rare branch.
	require.NoError(t, incrementEdge(gs.db, "b", st(2, 2), st(2, 3), 100))
	require.NoError(t, incrementEdge(gs.db, "b", st(2, 3), st(10, 2), 75))
	require.NoError(t, incrementEdge(gs.db, "b", st(2, 3), st(3, 5), 25))
	require.NoError(t, incrementEdge(gs.db, "b", st(10, 2), st(10, 3), 80))
	require.NoError(t, incrementEdge(gs.db, "b", st(10, 3), st(2, 3), 90))
	require.NoError(t, incrementEdge(gs.db, "b", st(10, 3), st(17, 5), 10))

	res, err := gs.Walk("b", st(2, 2), 10, 1)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Step{st(2, 2), st(2, 3), st(10, 2), st(10, 3), st(17, 5)}, res.Steps)
	assert.Equal(t, []int{0, 100, 75, 80, 10}, res.Counts)
	assert.InDelta(t, 0.75*0.1, res.Probability, 1e-9)

	// minCount drops the rare 10-3 -> 17-5 edge, so the walk stops at 10-3.
	res, err = gs.Walk("b", st(2, 2), 10, 20)
	require.NoError(t, err)
	assert.Equal(t, st(10, 3), res.Steps[len(res.Steps)-1])

	res, err = gs.Walk("b", st(2, 2), 1, 1)
	require.NoError(t, err)
	assert.Len(t, res.Steps, 2)
}

// #endregion test-walk

// #region test-delete
func TestDeleteBuild(t *testing.T) {
	gs := setupTestStore(t)
	require.NoError(t, incrementEdge(gs.db, "old", st(2, 2), st(2, 3), 1))
	require.NoError(t, incrementEdge(gs.db, "old", st(2, 3), st(3, 5), 1))
	require.NoError(t, incrementEdge(gs.db, "new", st(2, 2), st(2, 3), 1))

	n, err := gs.DeleteBuild("old")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	edges, err := gs.Neighbors("new", st(2, 2), 0)
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

// #endregion test-delete
