package refdata

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/corpus"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/snapshot"
)

func st(s, ss int) catalog.Step {
	return catalog.Step{State: catalog.State(s), SubStatus: catalog.SubStatus(ss)}
}

func tempStore(t *testing.T) *snapshot.Store {
	t.Helper()
	s, err := snapshot.NewStore(filepath.Join(t.TempDir(), "ref.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func patterns(t *testing.T, lines ...string) []corpus.Pattern {
	t.Helper()
	var out []corpus.Pattern
	for _, l := range lines {
		p, err := corpus.ParseLine(l)
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestActiveFallsBackToEmbedded(t *testing.T) {
	src, err := Active(tempStore(t))
	require.NoError(t, err)
	assert.Equal(t, OriginEmbedded, src.Origin)
	assert.Empty(t, src.BuildID)
	assert.Equal(t, map[gate.Tier]int{gate.TierTop75: 21, gate.TierTop150: 0, gate.TierAll: 1}, Thresholds(src.Tables))
	assert.Equal(t, 124824, src.Counts.Get(st(2, 2), st(2, 3)))
}

func TestImportPatternsActivates(t *testing.T) {
	store := tempStore(t)
	ps := patterns(t,
		"2-2 -> 2-3 -> 10-2,40",
		"2-2 -> 2-3 -> 11-2,10",
	)
	b, err := ImportPatterns(context.Background(), store, "x.csv", ps, corpus.LoadStats{Rows: 2, Loaded: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, b.PatternCount)
	assert.Equal(t, 3, b.TransitionCount)
	// Fewer than 75 transitions: the strict tiers have no floor.
	assert.Equal(t, map[gate.Tier]int{gate.TierTop75: 0, gate.TierTop150: 0, gate.TierAll: 1}, b.Thresholds)

	src, err := Active(store)
	require.NoError(t, err)
	assert.Equal(t, b.BuildID, src.BuildID)
	assert.Equal(t, "x.csv", src.Origin)
	assert.Equal(t, 50, src.Counts.Get(st(2, 2), st(2, 3)))
	assert.Len(t, src.Tables.Lookup(gate.TierAll, st(2, 3)), 2)
}

func TestImportRollback(t *testing.T) {
	store := tempStore(t)
	counts := make(gate.Counts)
	counts.Add(st(2, 2), st(2, 3), 5)
	first, err := ImportCounts(context.Background(), store, "first", counts)
	require.NoError(t, err)

	_, err = ImportPatterns(context.Background(), store, "second", patterns(t, "4-4 -> 4-2,3"), corpus.LoadStats{})
	require.NoError(t, err)
	src, err := Active(store)
	require.NoError(t, err)
	assert.Equal(t, "second", src.Origin)
	assert.Zero(t, src.Counts.Get(st(2, 2), st(2, 3)), "builds do not share edges")

	require.NoError(t, store.SetActive(first.BuildID))
	src, err = Active(store)
	require.NoError(t, err)
	assert.Equal(t, 5, src.Counts.Get(st(2, 2), st(2, 3)))
}

func TestPruneRemovesInactiveBuild(t *testing.T) {
	store := tempStore(t)
	ctx := context.Background()
	counts := make(gate.Counts)
	counts.Add(st(2, 2), st(2, 3), 5)
	counts.Add(st(2, 3), st(10, 2), 4)
	old, err := ImportCounts(ctx, store, "old", counts)
	require.NoError(t, err)

	_, err = Prune(ctx, store, old.BuildID)
	assert.ErrorIs(t, err, snapshot.ErrActiveBuild, "the active build stays")

	cur, err := ImportPatterns(ctx, store, "new", patterns(t, "4-4 -> 4-2,3"), corpus.LoadStats{})
	require.NoError(t, err)
	n, err := Prune(ctx, store, old.BuildID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = Load(store, old.BuildID)
	assert.Error(t, err)
	src, err := Active(store)
	require.NoError(t, err)
	assert.Equal(t, cur.BuildID, src.BuildID)
	assert.Equal(t, 3, src.Counts.Get(st(4, 4), st(4, 2)))
}

func TestImportEmpty(t *testing.T) {
	store := tempStore(t)
	_, err := ImportPatterns(context.Background(), store, "x", nil, corpus.LoadStats{})
	assert.Error(t, err)
	_, err = ImportCounts(context.Background(), store, "x", gate.Counts{})
	assert.Error(t, err)
	_, err = Load(store, "missing")
	assert.Error(t, err)
}
