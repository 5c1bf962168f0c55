package engine

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
)

// #region kinds
// Kind classifies a rejected command.
type Kind int

const (
	// KindInapplicable: the rulebook has no entry for (state, command).
	KindInapplicable Kind = iota + 1
	// KindEntry: a command other than NewRequest from the initial state.
	KindEntry
	// KindNotAdmitted: the rulebook proposed a successor the admission
	// tables do not contain at the tier in use.
	KindNotAdmitted
)

var kindNames = map[Kind]string{
	KindInapplicable: "inapplicable",
	KindEntry:        "entry",
	KindNotAdmitted:  "not_admitted",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the names printed by Kind.String.
func ParseKind(v string) (Kind, error) {
	for k, n := range kindNames {
		if n == v {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown rejection kind %q", v)
}

// #endregion kinds

// #region errors
var (
	ErrInapplicable = errors.New("command not applicable")
	ErrEntryOnly    = errors.New("only a new request is possible")
	ErrNotAdmitted  = errors.New("transition not observed in production")
)

// RejectionError describes why a command left the activity unchanged.
type RejectionError struct {
	Kind     Kind
	Command  catalog.Command
	From     catalog.Step
	Proposed catalog.Step // zero unless Kind is KindNotAdmitted
	Tier     gate.Tier    // empty unless Kind is KindNotAdmitted
	Reason   string
}

func (e *RejectionError) Error() string {
	switch e.Kind {
	case KindEntry:
		return fmt.Sprintf("%s: %s", e.Command, ErrEntryOnly)
	case KindNotAdmitted:
		return fmt.Sprintf("transition %s -> %s is not allowed by production data (%s): %s",
			e.From, e.Proposed, e.Tier, e.Reason)
	default:
		return fmt.Sprintf("command %q is not valid for state %s", string(e.Command), e.From.State)
	}
}

// Is lets errors.Is match the sentinel of the rejection's kind.
func (e *RejectionError) Is(target error) bool {
	switch e.Kind {
	case KindInapplicable:
		return target == ErrInapplicable
	case KindEntry:
		return target == ErrEntryOnly
	case KindNotAdmitted:
		return target == ErrNotAdmitted
	}
	return false
}

// KindOf returns the rejection kind of err, or 0 if err is not a rejection.
func KindOf(err error) Kind {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Kind
	}
	return 0
}

// #endregion errors
