package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// #region names
var stateNames = map[State]string{
	StateUnknown:            "UNKNOWN",
	StateRequested:          "REQUESTED",
	StateCancelled:          "CANCELLED",
	StateMissingInfoCP:      "MISSINGINFO_CP",
	StateMissingInfoEE:      "MISSINGINFO_EE",
	StateMissingInfoGDA:     "MISSINGINFO_GDA",
	StateRefusedCP:          "REFUSED_CP",
	StateRefusedCP2:         "REFUSED_CP_2",
	StateRefusedEE:          "REFUSED_EE",
	StateApprovedCP:         "APPROVED_CP",
	StateApprovedEE:         "APPROVED_EE",
	StateDisputedCP:         "DISPUTED_CP",
	StateDisputedCP2:        "DISPUTED_CP_2",
	StateDisputedEE:         "DISPUTED_EE",
	StateWrongCP:            "WRONG_CP",
	StateReturnToOriginalCP: "RETURN_TO_ORIGINAL_CP",
	StateApproved:           "APPROVED",
	StateRefused:            "REFUSED",
	StateDecisionByGDA:      "DECISIONBYGDA",
	StateMissingInfoCE:      "MISSINGINFO_CE",
	StateMissingInfoGDPQ:    "MISSINGINFO_GDPQ",
	StateApprovedCE:         "APPROVED_CE",
	StateRefusedCE:          "REFUSED_CE",
	StateDecisionByGDPQ:     "DECISIONBYGDPQ",
}

var subStatusNames = map[SubStatus]string{
	SubStatusUnknown:             "UNKNOWN",
	SubStatusReadyForAgenda:      "READY_FOR_AGENDA",
	SubStatusWaitingForDecision:  "WAITING_FOR_DECISION",
	SubStatusWaitingForRequestor: "WAITING_FOR_REQUESTOR",
	SubStatusDone:                "DONE",
}

// commands is kept in presentation order.
var commands = []Command{
	CmdNewRequest,
	CmdCommitAgenda,
	CmdRegisterMissingInfoNeed,
	CmdRegisterMissingInfoCENeed,
	CmdReceiveMissingInfoFromRequestor,
	CmdApprove,
	CmdApproveCE,
	CmdRefuse,
	CmdRefuseCE,
	CmdDispute,
	CmdRegisterDecsByGda,
	CmdRegisterDecsByGdpq,
	CmdRegisterWrongComiteParitaire,
	CmdRegisterNotTreated,
	CmdReturnToOriginalCP,
	CmdCancel,
}

var committees = []Committee{CommitteeStandardCP, CommitteeEE, CommitteeDentist}

// #endregion names

// #region committee-states
var dentistStates = []State{
	StateApproved,
	StateRequested,
	StateCancelled,
	StateApprovedCE,
	StateMissingInfoGDPQ,
	StateDecisionByGDPQ,
	StateMissingInfoCE,
	StateRefusedCE,
	StateRefused,
}

// Standard CP and EE committees share one display set.
var paritairStates = []State{
	StateApproved,
	StateApprovedCP,
	StateRefused,
	StateDecisionByGDA,
	StateDisputedEE,
	StateRequested,
	StateMissingInfoGDA,
	StateRefusedCP,
	StateCancelled,
	StateDisputedCP,
	StateDisputedCP2,
	StateApprovedEE,
	StateRefusedCP2,
	StateWrongCP,
	StateRefusedEE,
	StateMissingInfoCP,
	StateMissingInfoEE,
}

// CommitteeStates returns the states displayable for a committee, in display order.
// The returned slice is a copy.
func CommitteeStates(c Committee) []State {
	var src []State
	switch c {
	case CommitteeDentist:
		src = dentistStates
	case CommitteeStandardCP, CommitteeEE:
		src = paritairStates
	default:
		panic(fmt.Sprintf("catalog: unknown committee %q", string(c)))
	}
	out := make([]State, len(src))
	copy(out, src)
	return out
}

// InCommittee reports whether s belongs to the committee's displayable set.
func InCommittee(c Committee, s State) bool {
	for _, m := range CommitteeStates(c) {
		if m == s {
			return true
		}
	}
	return false
}

// #endregion committee-states

// #region enumeration
// States returns every state, UNKNOWN included, in ascending id order.
func States() []State {
	out := make([]State, 0, len(stateNames))
	for s := StateUnknown; s <= StateDecisionByGDPQ; s++ {
		out = append(out, s)
	}
	return out
}

// SubStatuses returns every sub-status in ascending id order.
func SubStatuses() []SubStatus {
	out := make([]SubStatus, 0, len(subStatusNames))
	for s := SubStatusUnknown; s <= SubStatusDone; s++ {
		out = append(out, s)
	}
	return out
}

// Commands returns the sixteen commands in presentation order.
func Commands() []Command {
	out := make([]Command, len(commands))
	copy(out, commands)
	return out
}

// Committees returns the three committee types.
func Committees() []Committee {
	out := make([]Committee, len(committees))
	copy(out, committees)
	return out
}

// #endregion enumeration

// #region validity
// Valid reports whether s is a catalogued state.
func (s State) Valid() bool { _, ok := stateNames[s]; return ok }

// Valid reports whether s is a catalogued sub-status.
func (s SubStatus) Valid() bool { _, ok := subStatusNames[s]; return ok }

// Valid reports whether c is one of the committees.
func (c Committee) Valid() bool {
	for _, k := range committees {
		if k == c {
			return true
		}
	}
	return false
}

// Valid reports whether c is a catalogued command.
func (c Command) Valid() bool {
	for _, k := range commands {
		if k == c {
			return true
		}
	}
	return false
}

// MustValid panics when any identifier is outside the closed enumerations.
// Unknown identifiers are caller defects, not domain errors.
func MustValid(s State, ss SubStatus, c Committee) {
	if !s.Valid() {
		panic(fmt.Sprintf("catalog: unknown state %d", int(s)))
	}
	if !ss.Valid() {
		panic(fmt.Sprintf("catalog: unknown sub-status %d", int(ss)))
	}
	if !c.Valid() {
		panic(fmt.Sprintf("catalog: unknown committee %q", string(c)))
	}
}

// #endregion validity

// #region stringers
func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s SubStatus) String() string {
	if n, ok := subStatusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("SubStatus(%d)", int(s))
}

// Key renders the step in dataset form, e.g. "2-3".
func (s Step) Key() string {
	return strconv.Itoa(int(s.State)) + "-" + strconv.Itoa(int(s.SubStatus))
}

func (s Step) String() string {
	return s.State.String() + "/" + s.SubStatus.String()
}

// MarshalText encodes the step in dataset form so it can be used as a JSON
// map key and as a scalar in fixtures.
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.Key()), nil
}

// UnmarshalText accepts anything ParseStep accepts.
func (s *Step) UnmarshalText(b []byte) error {
	st, err := ParseStep(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// #endregion stringers

// #region parsing
// ParseState accepts a state name (case-insensitive) or its numeric id.
func ParseState(v string) (State, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		s := State(n)
		if !s.Valid() {
			return 0, fmt.Errorf("unknown state id %d", n)
		}
		return s, nil
	}
	up := strings.ToUpper(v)
	for s, name := range stateNames {
		if name == up {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown state %q", v)
}

// ParseSubStatus accepts a sub-status name (case-insensitive) or its numeric id.
func ParseSubStatus(v string) (SubStatus, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		s := SubStatus(n)
		if !s.Valid() {
			return 0, fmt.Errorf("unknown sub-status id %d", n)
		}
		return s, nil
	}
	up := strings.ToUpper(v)
	for s, name := range subStatusNames {
		if name == up {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown sub-status %q", v)
}

// ParseCommittee is lenient about case and separators: "standard-cp",
// "STANDARD_CP" and "Standard CP" all resolve to CommitteeStandardCP.
func ParseCommittee(v string) (Committee, error) {
	norm := strings.ToUpper(strings.TrimSpace(v))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	for _, c := range committees {
		if string(c) == norm {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown committee %q", v)
}

// ParseCommand matches command names case-insensitively.
func ParseCommand(v string) (Command, error) {
	v = strings.TrimSpace(v)
	for _, c := range commands {
		if strings.EqualFold(string(c), v) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown command %q", v)
}

// ParseStep parses "<state>-<sub-status>" where each side is a numeric id,
// or "<STATE>/<SUB_STATUS>" using names.
func ParseStep(v string) (Step, error) {
	v = strings.TrimSpace(v)
	sep := "-"
	if strings.Contains(v, "/") {
		sep = "/"
	}
	parts := strings.Split(v, sep)
	if len(parts) != 2 {
		return Step{}, fmt.Errorf("invalid step %q", v)
	}
	st, err := ParseState(parts[0])
	if err != nil {
		return Step{}, fmt.Errorf("invalid step %q: %w", v, err)
	}
	ss, err := ParseSubStatus(parts[1])
	if err != nil {
		return Step{}, fmt.Errorf("invalid step %q: %w", v, err)
	}
	return Step{State: st, SubStatus: ss}, nil
}

// #endregion parsing
