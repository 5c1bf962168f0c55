// Package refdata chooses the reference dataset a process runs against: the
// active SQLite build when one exists, otherwise the embedded counts.
package refdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/corpus"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/dataset"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/graph"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/snapshot"
)

// OriginEmbedded names the compiled-in dataset.
const OriginEmbedded = "embedded"

// Source is a loaded reference dataset.
type Source struct {
	BuildID string // empty for the embedded dataset
	Origin  string
	Counts  gate.Counts
	Tables  gate.Tables
}

// Embedded returns the compiled-in dataset.
func Embedded() Source {
	return Source{Origin: OriginEmbedded, Counts: dataset.Counts(), Tables: dataset.Tables()}
}

// Thresholds reports the minimum occurrence count of each tier.
func Thresholds(t gate.Tables) map[gate.Tier]int {
	out := make(map[gate.Tier]int, len(gate.Tiers()))
	for _, tier := range gate.Tiers() {
		out[tier] = t.Threshold(tier)
	}
	return out
}

// Active loads the active build's edges. With no active build it falls back
// to the embedded dataset.
func Active(store *snapshot.Store) (Source, error) {
	b, err := store.GetActive()
	if errors.Is(err, snapshot.ErrNoActiveBuild) {
		return Embedded(), nil
	}
	if err != nil {
		return Source{}, err
	}
	return Load(store, b.BuildID)
}

// Load reads a specific build, active or not.
func Load(store *snapshot.Store, buildID string) (Source, error) {
	b, err := store.GetBuild(buildID)
	if err != nil {
		return Source{}, err
	}
	gs, err := graph.NewStore(store.DB())
	if err != nil {
		return Source{}, err
	}
	counts, err := gs.Counts(b.BuildID)
	if err != nil {
		return Source{}, fmt.Errorf("load edges of %s: %w", b.BuildID, err)
	}
	return Source{
		BuildID: b.BuildID,
		Origin:  b.Source,
		Counts:  counts,
		Tables:  gate.BuildTables(counts, gate.DefaultBuildConfig()),
	}, nil
}

// ImportPatterns stores ps as a new build, adds their aggregated transitions
// to the edge graph and activates the build.
func ImportPatterns(ctx context.Context, store *snapshot.Store, source string, ps []corpus.Pattern, stats corpus.LoadStats) (snapshot.Build, error) {
	if len(ps) == 0 {
		return snapshot.Build{}, errors.New("no patterns to import")
	}
	return importBuild(ctx, store, source, corpus.Aggregate(ps), ps, stats)
}

// ImportCounts stores a build made of transition counts alone.
func ImportCounts(ctx context.Context, store *snapshot.Store, source string, counts gate.Counts) (snapshot.Build, error) {
	if len(counts.Transitions()) == 0 {
		return snapshot.Build{}, errors.New("no transitions to import")
	}
	return importBuild(ctx, store, source, counts, nil, corpus.LoadStats{})
}

func importBuild(ctx context.Context, store *snapshot.Store, source string, counts gate.Counts, ps []corpus.Pattern, stats corpus.LoadStats) (snapshot.Build, error) {
	tables := gate.BuildTables(counts, gate.DefaultBuildConfig())
	b, err := store.CreateBuild(source, Thresholds(tables), stats)
	if err != nil {
		return snapshot.Build{}, err
	}
	if len(ps) > 0 {
		if err := store.SavePatterns(ctx, b.BuildID, ps); err != nil {
			return snapshot.Build{}, err
		}
	}
	gs, err := graph.NewStore(store.DB())
	if err != nil {
		return snapshot.Build{}, err
	}
	if _, err := gs.ImportCounts(ctx, b.BuildID, counts); err != nil {
		return snapshot.Build{}, err
	}
	if err := store.SetActive(b.BuildID); err != nil {
		return snapshot.Build{}, err
	}
	return store.GetBuild(b.BuildID)
}

// Prune deletes an inactive build together with its edges and returns the
// number of edges removed.
func Prune(ctx context.Context, store *snapshot.Store, buildID string) (int64, error) {
	if err := store.DeleteBuild(ctx, buildID); err != nil {
		return 0, err
	}
	gs, err := graph.NewStore(store.DB())
	if err != nil {
		return 0, err
	}
	n, err := gs.DeleteBuild(buildID)
	if err != nil {
		return 0, fmt.Errorf("delete edges of %s: %w", buildID, err)
	}
	return n, nil
}
