package catalog

// #region state
// State identifies an activity state. The numeric values are part of the
// dataset format: lookup keys and pattern rows encode them positionally.
type State int

const (
	StateUnknown            State = 1
	StateRequested          State = 2
	StateCancelled          State = 3
	StateMissingInfoCP      State = 4
	StateMissingInfoEE      State = 5
	StateMissingInfoGDA     State = 6
	StateRefusedCP          State = 7
	StateRefusedCP2         State = 8
	StateRefusedEE          State = 9
	StateApprovedCP         State = 10
	StateApprovedEE         State = 11
	StateDisputedCP         State = 12
	StateDisputedCP2        State = 13
	StateDisputedEE         State = 14
	StateWrongCP            State = 15
	StateReturnToOriginalCP State = 16
	StateApproved           State = 17
	StateRefused            State = 18
	StateDecisionByGDA      State = 19
	StateMissingInfoCE      State = 20
	StateMissingInfoGDPQ    State = 21
	StateApprovedCE         State = 22
	StateRefusedCE          State = 23
	StateDecisionByGDPQ     State = 24
)

// #endregion state

// #region sub-status
// SubStatus is the work-queue position of an activity, orthogonal to its state.
type SubStatus int

const (
	SubStatusUnknown             SubStatus = 1
	SubStatusReadyForAgenda      SubStatus = 2
	SubStatusWaitingForDecision  SubStatus = 3
	SubStatusWaitingForRequestor SubStatus = 4
	SubStatusDone                SubStatus = 5
)

// #endregion sub-status

// #region committee
// Committee is the review category an activity is handled by.
type Committee string

const (
	CommitteeStandardCP Committee = "STANDARD CP"
	CommitteeEE         Committee = "EE"
	CommitteeDentist    Committee = "DENTIST"
)

// #endregion committee

// #region command
// Command is an action a caller may attempt against an activity.
type Command string

const (
	CmdNewRequest                      Command = "NewRequest"
	CmdCancel                          Command = "Cancel"
	CmdReceiveMissingInfoFromRequestor Command = "ReceiveMissingInfoFromRequestor"
	CmdDispute                         Command = "Dispute"
	CmdCommitAgenda                    Command = "CommitAgenda"
	CmdRefuse                          Command = "Refuse"
	CmdRefuseCE                        Command = "RefuseCE"
	CmdApprove                         Command = "Approve"
	CmdApproveCE                       Command = "ApproveCE"
	CmdRegisterWrongComiteParitaire    Command = "RegisterWrongComiteParitaire"
	CmdRegisterNotTreated              Command = "RegisterNotTreated"
	CmdReturnToOriginalCP              Command = "ReturnToOriginalCP"
	CmdRegisterMissingInfoNeed         Command = "RegisterMissingInfoNeed"
	CmdRegisterMissingInfoCENeed       Command = "RegisterMissingInfoCENeed"
	CmdRegisterDecsByGda               Command = "RegisterDecsByGda"
	CmdRegisterDecsByGdpq              Command = "RegisterDecsByGdpq"
)

// #endregion command

// #region step
// Step is a (state, sub-status) pair. It is the node type of every transition
// table and the element type of a historical pattern.
type Step struct {
	State     State
	SubStatus SubStatus
}

// #endregion step
