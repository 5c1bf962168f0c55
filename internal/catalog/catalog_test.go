package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumerationSizes(t *testing.T) {
	assert.Len(t, States(), 24)
	assert.Len(t, SubStatuses(), 5)
	assert.Len(t, Commands(), 16)
	assert.Len(t, Committees(), 3)
}

func TestNumericIdentityPreserved(t *testing.T) {
	assert.Equal(t, 1, int(StateUnknown))
	assert.Equal(t, 2, int(StateRequested))
	assert.Equal(t, 16, int(StateReturnToOriginalCP))
	assert.Equal(t, 24, int(StateDecisionByGDPQ))
	assert.Equal(t, 2, int(SubStatusReadyForAgenda))
	assert.Equal(t, 5, int(SubStatusDone))
}

func TestCommitteeStates(t *testing.T) {
	dentist := CommitteeStates(CommitteeDentist)
	assert.Len(t, dentist, 9)
	assert.Contains(t, dentist, StateMissingInfoGDPQ)
	assert.NotContains(t, dentist, StateApprovedCP)

	cp := CommitteeStates(CommitteeStandardCP)
	ee := CommitteeStates(CommitteeEE)
	assert.Equal(t, cp, ee)
	assert.Len(t, cp, 17)
	assert.NotContains(t, cp, StateReturnToOriginalCP)

	// Mutating the copy must not leak into the catalogue.
	cp[0] = StateUnknown
	assert.Equal(t, StateApproved, CommitteeStates(CommitteeStandardCP)[0])
}

func TestCommitteeStatesPanicsOnUnknown(t *testing.T) {
	assert.Panics(t, func() { CommitteeStates(Committee("NOPE")) })
}

func TestInCommittee(t *testing.T) {
	assert.True(t, InCommittee(CommitteeDentist, StateApprovedCE))
	assert.False(t, InCommittee(CommitteeEE, StateApprovedCE))
}

func TestMustValid(t *testing.T) {
	assert.NotPanics(t, func() { MustValid(StateRequested, SubStatusDone, CommitteeEE) })
	assert.Panics(t, func() { MustValid(State(0), SubStatusDone, CommitteeEE) })
	assert.Panics(t, func() { MustValid(StateRequested, SubStatus(9), CommitteeEE) })
	assert.Panics(t, func() { MustValid(StateRequested, SubStatusDone, Committee("x")) })
}

func TestValid(t *testing.T) {
	assert.True(t, StateRequested.Valid())
	assert.False(t, State(0).Valid())
	assert.True(t, SubStatusDone.Valid())
	assert.False(t, SubStatus(9).Valid())
	assert.True(t, CommitteeDentist.Valid())
	assert.False(t, Committee("x").Valid())
	assert.True(t, CmdNewRequest.Valid())
	assert.False(t, Command("Shrug").Valid())
}

func TestParseState(t *testing.T) {
	s, err := ParseState("requested")
	require.NoError(t, err)
	assert.Equal(t, StateRequested, s)

	s, err = ParseState(" 15 ")
	require.NoError(t, err)
	assert.Equal(t, StateWrongCP, s)

	_, err = ParseState("25")
	assert.Error(t, err)
	_, err = ParseState("FOO")
	assert.Error(t, err)
}

func TestParseCommittee(t *testing.T) {
	for _, in := range []string{"STANDARD CP", "standard-cp", "Standard_CP"} {
		c, err := ParseCommittee(in)
		require.NoError(t, err, in)
		assert.Equal(t, CommitteeStandardCP, c)
	}
	_, err := ParseCommittee("board")
	assert.Error(t, err)
}

func TestParseCommand(t *testing.T) {
	c, err := ParseCommand("commitagenda")
	require.NoError(t, err)
	assert.Equal(t, CmdCommitAgenda, c)
	_, err = ParseCommand("Launch")
	assert.Error(t, err)
}

func TestParseStep(t *testing.T) {
	st, err := ParseStep("2-3")
	require.NoError(t, err)
	assert.Equal(t, Step{StateRequested, SubStatusWaitingForDecision}, st)
	assert.Equal(t, "2-3", st.Key())
	assert.Equal(t, "REQUESTED/WAITING_FOR_DECISION", st.String())

	st, err = ParseStep("APPROVED/DONE")
	require.NoError(t, err)
	assert.Equal(t, Step{StateApproved, SubStatusDone}, st)

	for _, bad := range []string{"", "2", "2-3-4", "x-2", "2-9"} {
		_, err := ParseStep(bad)
		assert.Error(t, err, bad)
	}
}

func TestStepJSONMapKey(t *testing.T) {
	in := map[Step]int{{StateRequested, SubStatusReadyForAgenda}: 7}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"2-2":7}`, string(b))

	var out map[Step]int
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestStringers(t *testing.T) {
	assert.Equal(t, "DECISIONBYGDPQ", StateDecisionByGDPQ.String())
	assert.Equal(t, "State(99)", State(99).String())
	assert.Equal(t, "WAITING_FOR_REQUESTOR", SubStatusWaitingForRequestor.String())
}
