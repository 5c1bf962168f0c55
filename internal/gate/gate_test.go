package gate

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
)

// #region helpers
func st(s catalog.State, ss catalog.SubStatus) catalog.Step {
	return catalog.Step{State: s, SubStatus: ss}
}

var (
	reqReady   = st(catalog.StateRequested, catalog.SubStatusReadyForAgenda)
	reqWaiting = st(catalog.StateRequested, catalog.SubStatusWaitingForDecision)
	cancelled  = st(catalog.StateCancelled, catalog.SubStatusDone)
	approved   = st(catalog.StateApproved, catalog.SubStatusDone)
	apprCP     = st(catalog.StateApprovedCP, catalog.SubStatusReadyForAgenda)
)

// sampleCounts has 4 transitions ranked 500, 100, 20, 1.
func sampleCounts() Counts {
	c := make(Counts)
	c.Add(reqReady, reqWaiting, 500)
	c.Add(reqWaiting, apprCP, 100)
	c.Add(apprCP, approved, 20)
	c.Add(reqReady, cancelled, 1)
	return c
}

func sampleGate(tier Tier) *Gate {
	return NewGate(BuildTables(sampleCounts(), BuildConfig{Top75Rank: 2, Top150Rank: 3}), tier)
}

// #endregion helpers

// #region build-tests
func TestBuildTablesThresholds(t *testing.T) {
	tb := BuildTables(sampleCounts(), BuildConfig{Top75Rank: 2, Top150Rank: 3})

	assert.Equal(t, 100, tb.Threshold(TierTop75))
	assert.Equal(t, 20, tb.Threshold(TierTop150))
	assert.Equal(t, 1, tb.Threshold(TierAll))

	assert.Equal(t, 2, tb.Size(TierTop75))
	assert.Equal(t, 3, tb.Size(TierTop150))
	assert.Equal(t, 4, tb.Size(TierAll))
}

func TestBuildTablesShortRankingAdmitsEverything(t *testing.T) {
	tb := BuildTables(sampleCounts(), DefaultBuildConfig())
	assert.Equal(t, 0, tb.Threshold(TierTop75))
	assert.Equal(t, 4, tb.Size(TierTop75))
}

func TestBuildTablesTargetsSortedByStep(t *testing.T) {
	tb := BuildTables(sampleCounts(), DefaultBuildConfig())
	targets := tb.Lookup(TierAll, reqReady)
	require.Len(t, targets, 2)
	assert.Equal(t, reqWaiting, targets[0].To)
	assert.Equal(t, cancelled, targets[1].To)
}

func TestBuildTablesDeterministic(t *testing.T) {
	a := BuildTables(sampleCounts(), DefaultBuildConfig())
	b := BuildTables(sampleCounts(), DefaultBuildConfig())
	for _, tier := range Tiers() {
		assert.Equal(t, a.Table(tier), b.Table(tier))
	}
	assert.Equal(t, a.Transitions(), b.Transitions())
}

func TestCountsTransitionsTieBreak(t *testing.T) {
	c := make(Counts)
	c.Add(apprCP, approved, 5)
	c.Add(reqReady, cancelled, 5)
	c.Add(reqReady, reqWaiting, 5)

	got := c.Transitions()
	require.Len(t, got, 3)
	assert.Equal(t, reqReady, got[0].From)
	assert.Equal(t, reqWaiting, got[0].To)
	assert.Equal(t, cancelled, got[1].To)
	assert.Equal(t, apprCP, got[2].From)
}

func TestLookupReturnsCopy(t *testing.T) {
	tb := BuildTables(sampleCounts(), DefaultBuildConfig())
	got := tb.Lookup(TierAll, reqReady)
	got[0].Count = -1
	assert.Equal(t, 500, tb.Lookup(TierAll, reqReady)[0].Count)
}

// #endregion build-tests

// #region gate-tests
func TestIsAllowedPerTier(t *testing.T) {
	g := sampleGate(TierTop75)
	assert.True(t, g.IsAllowed(reqReady, reqWaiting))
	assert.False(t, g.IsAllowed(reqReady, cancelled))
	assert.False(t, g.IsAllowed(approved, cancelled), "key without entry")

	g.SetTier(TierAll)
	assert.Equal(t, TierAll, g.Tier())
	assert.True(t, g.IsAllowed(reqReady, cancelled))
}

func TestOccurrenceCountIgnoresTier(t *testing.T) {
	g := sampleGate(TierTop75)
	assert.Equal(t, 1, g.OccurrenceCount(reqReady, cancelled))
	assert.Equal(t, 0, g.OccurrenceCount(approved, cancelled))
}

func TestValidTargets(t *testing.T) {
	g := sampleGate(TierTop75)
	assert.Len(t, g.ValidTargets(reqReady), 1)
	assert.Len(t, g.ValidTargetsAt(TierAll, reqReady), 2)
	assert.Empty(t, g.ValidTargets(approved))
}

func TestEvaluate(t *testing.T) {
	g := sampleGate(TierTop75)

	d := g.Evaluate(reqReady, reqWaiting)
	assert.True(t, d.Admitted())
	assert.Equal(t, 500, d.Count)
	assert.Equal(t, TierTop75, d.Tier)

	d = g.Evaluate(reqReady, cancelled)
	assert.Equal(t, ActionReject, d.Action)
	assert.Contains(t, d.Reason, "below top75 threshold 100")

	d = g.EvaluateAt(TierAll, approved, cancelled)
	assert.Equal(t, ActionReject, d.Action)
	assert.Contains(t, d.Reason, "not observed")
}

func TestTopTargets(t *testing.T) {
	c := sampleCounts()
	c.Add(reqReady, apprCP, 250)
	g := NewGate(BuildTables(c, DefaultBuildConfig()), TierAll)

	top := g.TopTargets(reqReady, 2)
	require.Len(t, top, 2)
	assert.Equal(t, reqWaiting, top[0].To)
	assert.InDelta(t, 100.0, top[0].Percent, 1e-9)
	assert.Equal(t, apprCP, top[1].To)
	assert.InDelta(t, 50.0, top[1].Percent, 1e-9)

	assert.Nil(t, g.TopTargets(approved, 5))
}

func TestThresholds(t *testing.T) {
	g := sampleGate(TierAll)
	assert.Equal(t, map[Tier]int{TierTop75: 100, TierTop150: 20, TierAll: 1}, g.Thresholds())
}

func TestUnknownTierPanics(t *testing.T) {
	assert.Panics(t, func() { sampleGate(Tier("loose")) })
	g := sampleGate(TierAll)
	assert.Panics(t, func() { g.SetTier("") })
}

func TestZeroGateDefaultsToAll(t *testing.T) {
	var g Gate
	assert.Equal(t, TierAll, g.Tier())
	assert.False(t, g.IsAllowed(reqReady, reqWaiting))
	assert.Nil(t, g.ValidTargets(reqReady))

	g.SetTier(TierTop75)
	assert.Equal(t, TierTop75, g.Tier())
}

func TestParseTier(t *testing.T) {
	for in, want := range map[string]Tier{"top75": TierTop75, "TOP_150": TierTop150, " ALL ": TierAll} {
		got, err := ParseTier(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseTier("top10")
	assert.Error(t, err)
}

func TestConcurrentReadersDuringSwitch(t *testing.T) {
	g := sampleGate(TierAll)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				// Either tier is acceptable; the admitted pair must hold in both.
				if !g.IsAllowed(reqReady, reqWaiting) {
					t.Error("top transition rejected")
					return
				}
			}
		}()
	}
	for j := 0; j < 100; j++ {
		if j%2 == 0 {
			g.SetTier(TierTop75)
		} else {
			g.SetTier(TierAll)
		}
	}
	wg.Wait()
}

// #endregion gate-tests

// #region csv-tests
func TestLoadCountsCSVSkipsMalformedRows(t *testing.T) {
	in := strings.Join([]string{
		"from_state,from_sub_status,to_state,to_sub_status,count",
		"2,2,2,3,10",
		"2,2,2,3,5",
		"2,x,2,3,5",
		"99,2,2,3,5",
		"2,2,3,5,0",
		"2,2,3",
		"10,3,17,5,7",
	}, "\n")

	counts, skipped, err := LoadCountsCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 4, skipped)
	assert.Equal(t, 15, counts.Get(reqReady, reqWaiting))
	assert.Equal(t, 7, counts.Get(st(catalog.StateApprovedCP, catalog.SubStatusWaitingForDecision), approved))
}

func TestWriteCountsCSVIsReadable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCountsCSV(&buf, sampleCounts()))
	assert.True(t, strings.HasPrefix(buf.String(), "from_state,"))

	back, skipped, err := LoadCountsCSV(&buf)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, sampleCounts(), back)
}

// #endregion csv-tests

// #region properties
// Strict tiers are subsets of looser tiers for any counts and cutoffs.
func TestPropertyTierMonotonicity(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	properties := gopter.NewProperties(params)

	steps := make([]catalog.Step, 0, 24*5)
	for _, s := range catalog.States() {
		for _, ss := range catalog.SubStatuses() {
			steps = append(steps, st(s, ss))
		}
	}

	properties.Property("top75 ⊆ top150 ⊆ all", prop.ForAll(
		func(raw []int, r75, r150 int) bool {
			c := make(Counts)
			for i := 0; i+2 < len(raw); i += 3 {
				c.Add(steps[raw[i]%len(steps)], steps[raw[i+1]%len(steps)], raw[i+2]%1000+1)
			}
			if r75 > r150 {
				r75, r150 = r150, r75
			}
			tb := BuildTables(c, BuildConfig{Top75Rank: r75, Top150Rank: r150})
			g := NewGate(tb, TierAll)
			for _, tr := range tb.Transitions() {
				if g.IsAllowedAt(TierTop75, tr.From, tr.To) && !g.IsAllowedAt(TierTop150, tr.From, tr.To) {
					return false
				}
				if g.IsAllowedAt(TierTop150, tr.From, tr.To) && !g.IsAllowedAt(TierAll, tr.From, tr.To) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 10000)),
		gen.IntRange(1, 40),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}

// #endregion properties
