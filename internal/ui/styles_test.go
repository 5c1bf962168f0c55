package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/engine"
)

func TestCount(t *testing.T) {
	assert.Equal(t, "124,824", Count(124824))
	assert.Equal(t, "7", Count(7))
	assert.Equal(t, "42.5%", Percent(42.49))
}

func TestResult(t *testing.T) {
	ok := engine.Result{Next: catalog.Step{State: catalog.StateRequested, SubStatus: catalog.SubStatusWaitingForDecision}}
	assert.Contains(t, Result(ok), "2-3 REQUESTED/WAITING_FOR_DECISION")

	a := engine.Activity{State: catalog.StateApproved, SubStatus: catalog.SubStatusDone, Committee: catalog.CommitteeEE}
	rej := engine.Propose(a, catalog.CmdDispute)
	assert.Contains(t, Result(rej), IconFail)
	assert.Contains(t, Result(rej), "Dispute")
}

func TestOutcome(t *testing.T) {
	for _, o := range []engine.Outcome{engine.OutcomeInvalid, engine.OutcomeTerminal, engine.OutcomeStall, engine.OutcomeProceed} {
		assert.Contains(t, Outcome(o), o.String())
	}
}
