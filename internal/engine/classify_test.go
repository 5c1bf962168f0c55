package engine

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
)

// #region classify-tests
func TestClassify(t *testing.T) {
	e := newEngine(gate.TierAll)
	cp := catalog.CommitteeStandardCP

	cases := []struct {
		name string
		a    Activity
		cmd  catalog.Command
		want Outcome
	}{
		{"agenda proceeds", act(catalog.StateRequested, ready, cp), catalog.CmdCommitAgenda, OutcomeProceed},
		{"final approval", act(catalog.StateApprovedCP, waiting, cp), catalog.CmdApprove, OutcomeTerminal},
		{"cancel", act(catalog.StateRequested, ready, cp), catalog.CmdCancel, OutcomeTerminal},
		{"new request never offered", act(catalog.StateUnknown, catalog.SubStatusUnknown, cp), catalog.CmdNewRequest, OutcomeInvalid},
		{"self loop", act(catalog.StateRequested, ready, cp), catalog.CmdRegisterNotTreated, OutcomeInvalid},
		{"inapplicable", act(catalog.StateRequested, ready, cp), catalog.CmdDispute, OutcomeInvalid},
		{"outside committee", act(catalog.StateRequested, waiting, catalog.CommitteeDentist), catalog.CmdApprove, OutcomeInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, e.Classify(tc.a, tc.cmd))
		})
	}
}

func TestClassifyStallDependsOnTier(t *testing.T) {
	// 11-3 -> 6-4 is common enough for top75, but 6-4 -> 6-2 is not.
	a := act(catalog.StateApprovedEE, waiting, catalog.CommitteeEE)
	e := newEngine(gate.TierAll)

	assert.Equal(t, OutcomeStall, e.ClassifyAt(a, catalog.CmdRegisterMissingInfoNeed, gate.TierTop75))
	assert.Equal(t, OutcomeProceed, e.ClassifyAt(a, catalog.CmdRegisterMissingInfoNeed, gate.TierAll))
}

func TestAvailableCommands(t *testing.T) {
	e := newEngine(gate.TierTop75)
	opts := e.AvailableCommands(act(catalog.StateRequested, waiting, catalog.CommitteeStandardCP))
	require.Len(t, opts, len(catalog.Commands()))

	usable := map[catalog.Command]Outcome{}
	for _, o := range Usable(opts) {
		usable[o.Command] = o.Outcome
		assert.NoError(t, o.Result.Err)
	}
	assert.Equal(t, OutcomeProceed, usable[catalog.CmdApprove])
	assert.Equal(t, OutcomeTerminal, usable[catalog.CmdCancel])
	assert.NotContains(t, usable, catalog.CmdNewRequest)
	assert.NotContains(t, usable, catalog.CmdDispute)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "stall", OutcomeStall.String())
	assert.Equal(t, "Outcome(9)", Outcome(9).String())
	assert.False(t, OutcomeInvalid.Usable())
}

// #endregion classify-tests

// #region properties
func genActivity() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(1, 24),
		gen.IntRange(1, 5),
		gen.IntRange(0, len(catalog.Committees())-1),
	).Map(func(v []interface{}) Activity {
		return act(catalog.State(v[0].(int)), catalog.SubStatus(v[1].(int)), catalog.Committees()[v[2].(int)])
	})
}

func genCommand() gopter.Gen {
	return gen.IntRange(0, len(catalog.Commands())-1).Map(func(i int) catalog.Command {
		return catalog.Commands()[i]
	})
}

func genTier() gopter.Gen {
	return gen.IntRange(0, len(gate.Tiers())-1).Map(func(i int) gate.Tier {
		return gate.Tiers()[i]
	})
}

func TestEngineProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 500
	properties := gopter.NewProperties(params)
	e := newEngine(gate.TierAll)

	properties.Property("deterministic", prop.ForAll(
		func(a Activity, cmd catalog.Command, tier gate.Tier) bool {
			first := e.ProcessCommandAt(a, cmd, tier)
			second := e.ProcessCommandAt(a, cmd, tier)
			return first.Next == second.Next && (first.Err == nil) == (second.Err == nil)
		},
		genActivity(), genCommand(), genTier(),
	))

	properties.Property("rejection leaves the activity unchanged", prop.ForAll(
		func(a Activity, cmd catalog.Command, tier gate.Tier) bool {
			res := e.ProcessCommandAt(a, cmd, tier)
			return res.Err == nil || res.Next == a.Step()
		},
		genActivity(), genCommand(), genTier(),
	))

	properties.Property("cancel proposes CANCELLED/DONE and defers to admission", prop.ForAll(
		func(a Activity, tier gate.Tier) bool {
			if a.State == catalog.StateUnknown {
				return true
			}
			cancelled := step(catalog.StateCancelled, done)
			if Propose(a, catalog.CmdCancel).Next != cancelled {
				return false
			}
			res := e.ProcessCommandAt(a, catalog.CmdCancel, tier)
			allowed := e.Gate().IsAllowedAt(tier, a.Step(), cancelled)
			return allowed == (res.Err == nil)
		},
		genActivity(), genTier(),
	))

	properties.Property("only NewRequest leaves the initial state", prop.ForAll(
		func(ss int, c int, cmd catalog.Command, tier gate.Tier) bool {
			a := act(catalog.StateUnknown, catalog.SubStatus(ss), catalog.Committees()[c])
			res := e.ProcessCommandAt(a, cmd, tier)
			if cmd == catalog.CmdNewRequest {
				return res.Err == nil
			}
			return KindOf(res.Err) == KindEntry
		},
		gen.IntRange(1, 5), gen.IntRange(0, 2), genCommand(), genTier(),
	))

	properties.TestingRun(t)
}

// #endregion properties
