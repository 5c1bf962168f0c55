package replay

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/corpus"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/dataset"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/engine"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
)

func st(s, ss int) catalog.Step {
	return catalog.Step{State: catalog.State(s), SubStatus: catalog.SubStatus(ss)}
}

func newEngine() *engine.Engine {
	return engine.New(dataset.NewGate(gate.TierAll))
}

func loadPlan(t *testing.T, name string) Plan {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", name))
	require.NoError(t, err)
	p, err := s.ToPlan()
	require.NoError(t, err)
	return p
}

// #region fixture-tests

// Each fixture is a regression baseline: if the rulebook or the embedded
// counts drift, a step stops matching.
func TestFixtures(t *testing.T) {
	for _, name := range []string{"standard_approval.yaml", "ee_missing_info.yaml", "entry_and_admission.yaml"} {
		t.Run(name, func(t *testing.T) {
			p := loadPlan(t, name)
			results := Replay(newEngine(), p)
			require.Len(t, results, len(p.Steps))
			for _, r := range results {
				assert.True(t, r.Matched, "step %d %s from %s: %s", r.Index, r.Command, r.From.Key(), r.Reason)
			}
		})
	}
}

func TestEntryAndAdmissionSummary(t *testing.T) {
	p := loadPlan(t, "entry_and_admission.yaml")
	assert.Equal(t, catalog.CommitteeStandardCP, p.Start.Committee)
	assert.Equal(t, gate.TierTop75, p.Tier)

	results := Replay(newEngine(), p)
	sum := Summarize(p.Start, results)
	assert.Equal(t, 8, sum.Total)
	assert.Equal(t, 6, sum.Accepted)
	assert.Equal(t, 2, sum.Rejected)
	assert.Equal(t, map[engine.Kind]int{engine.KindEntry: 1, engine.KindNotAdmitted: 1}, sum.ByKind)
	assert.Zero(t, sum.Mismatches)
	assert.Equal(t, st(10, 2), sum.Final.Step())

	cancel := results[5]
	assert.Equal(t, ActionReject, cancel.Action)
	require.NotNil(t, cancel.Proposed)
	assert.Equal(t, st(3, 5), *cancel.Proposed)
	assert.Equal(t, 1, cancel.Observed)
	assert.Equal(t, st(4, 2), cancel.Next, "rejection leaves the activity in place")

	assert.Nil(t, results[0].Proposed, "entry rejection has no proposal")
}

// #endregion fixture-tests

// #region replay-tests
func TestReplayUsesActiveTierWhenUnset(t *testing.T) {
	e := engine.New(dataset.NewGate(gate.TierTop75))
	p := Plan{
		Start: engine.Activity{State: 4, SubStatus: 2, Committee: catalog.CommitteeStandardCP},
		Steps: []PlanStep{{Command: catalog.CmdCancel}},
	}
	r := Replay(e, p)[0]
	assert.Equal(t, engine.KindNotAdmitted, engine.KindOf(r.Err))
	assert.True(t, r.Matched, "no expectation always matches")

	e.Gate().SetTier(gate.TierAll)
	r = Replay(e, p)[0]
	assert.NoError(t, r.Err)
	assert.Equal(t, st(3, 5), r.Next)
}

func TestReplayReportsMismatches(t *testing.T) {
	want := st(2, 3)
	p := Plan{
		Start: engine.Activity{State: 2, SubStatus: 3, Committee: catalog.CommitteeEE},
		Tier:  gate.TierAll,
		Steps: []PlanStep{
			{Command: catalog.CmdApprove, Expect: Expectation{Next: &want}},
			{Command: catalog.CmdDispute, Expect: Expectation{Reject: engine.KindNotAdmitted}},
			{Command: catalog.CmdCommitAgenda, Expect: Expectation{Reject: engine.KindInapplicable}},
		},
	}
	results := Replay(newEngine(), p)
	require.Len(t, results, 3)

	assert.False(t, results[0].Matched)
	assert.Equal(t, "expected 2-3, got 11-2", results[0].Reason)

	assert.False(t, results[1].Matched)
	assert.Contains(t, results[1].Reason, "got inapplicable")

	// 11-2 CommitAgenda is accepted.
	assert.False(t, results[2].Matched)
	assert.Equal(t, "expected inapplicable rejection, accepted 11-3", results[2].Reason)

	assert.Equal(t, 3, Summarize(p.Start, results).Mismatches)
}

// #endregion replay-tests

// #region scenario-tests
func TestScenarioValidation(t *testing.T) {
	cases := map[string]string{
		"committee": "name: x\ncommittee: NOPE\nstart: 2-2\n",
		"start":     "name: x\ncommittee: EE\nstart: 2-9\n",
		"tier":      "name: x\ncommittee: EE\ntier: top10\nstart: 2-2\n",
		"command":   "name: x\ncommittee: EE\nstart: 2-2\nsteps:\n  - command: Fly\n",
		"exclusive": "name: x\ncommittee: EE\nstart: 2-2\nsteps:\n  - command: Cancel\n    expect: 3-5\n    reject: entry\n",
		"reject":    "name: x\ncommittee: EE\nstart: 2-2\nsteps:\n  - command: Cancel\n    reject: sometimes\n",
		"expect":    "name: x\ncommittee: EE\nstart: 2-2\nsteps:\n  - command: Cancel\n    expect: 3\n",
	}
	for name, doc := range cases {
		s, err := DecodeScenario(strings.NewReader(doc))
		require.NoError(t, err, name)
		_, err = s.ToPlan()
		assert.Error(t, err, name)
	}

	_, err := DecodeScenario(strings.NewReader("name: x\ncomittee: EE\n"))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = LoadScenario(filepath.Join("testdata", "absent.yaml"))
	assert.Error(t, err)
}

// #endregion scenario-tests

// #region infer-tests
func TestInferCommands(t *testing.T) {
	p, err := corpus.ParsePattern("2-2 -> 2-3 -> 10-2 -> 10-3 -> 17-5 -> 3-5 -> 3-5", 1)
	require.NoError(t, err)

	infs := InferCommands(catalog.CommitteeStandardCP, p)
	require.Len(t, infs, 6)
	assert.Equal(t, []catalog.Command{catalog.CmdCommitAgenda}, infs[0].Commands)
	assert.Equal(t, []catalog.Command{catalog.CmdApprove}, infs[1].Commands)
	assert.Equal(t, []catalog.Command{catalog.CmdCancel}, infs[4].Commands)
	assert.Equal(t, []catalog.Command{catalog.CmdCancel, catalog.CmdRegisterNotTreated}, infs[5].Commands)

	// Approve from 2-3 branches by committee.
	ee := InferCommands(catalog.CommitteeEE, p)
	assert.Empty(t, ee[1].Commands)
}

func TestFromPatternRoundTrip(t *testing.T) {
	p, err := corpus.ParsePattern("2-2 -> 2-3 -> 22-2 -> 22-3 -> 17-5", 7780)
	require.NoError(t, err)

	s, err := FromPattern(p, "", gate.TierTop75)
	require.NoError(t, err)
	assert.Equal(t, string(catalog.CommitteeDentist), s.Committee)
	assert.Equal(t, "2-2", s.Start)
	require.Len(t, s.Steps, 4)
	assert.Equal(t, "ApproveCE", s.Steps[1].Command)

	var buf bytes.Buffer
	require.NoError(t, WriteScenario(&buf, s))
	back, err := DecodeScenario(&buf)
	require.NoError(t, err)
	assert.Equal(t, s, back)

	plan, err := back.ToPlan()
	require.NoError(t, err)
	sum := Summarize(plan.Start, Replay(newEngine(), plan))
	assert.Zero(t, sum.Mismatches)
	assert.Equal(t, st(17, 5), sum.Final.Step())
}

func TestFromPatternUnexplainedPair(t *testing.T) {
	p, err := corpus.ParsePattern("2-2 -> 17-5", 51602)
	require.NoError(t, err)
	_, err = FromPattern(p, catalog.CommitteeStandardCP, "")
	assert.EqualError(t, err, "no command reproduces 2-2 -> 17-5")

	_, err = FromPattern(p, "nobody", "")
	assert.Error(t, err)
}

// #endregion infer-tests
