package replay

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/engine"
	"github.com/danielpatrickdp/activity-states/go-controller/internal/gate"
)

// #region scenario-types

// Scenario is the top-level YAML structure for a replay fixture.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Committee   string         `yaml:"committee"`
	Tier        string         `yaml:"tier,omitempty"` // empty uses the gate's active tier
	Start       string         `yaml:"start"`          // "2-2" or "REQUESTED/READY_FOR_AGENDA"
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one command with an optional expectation. At most one of
// Expect and Reject may be set.
type ScenarioStep struct {
	Command string `yaml:"command"`
	Expect  string `yaml:"expect,omitempty"` // expected next step
	Reject  string `yaml:"reject,omitempty"` // expected rejection kind
}

// #endregion scenario-types

// #region scenario-loader

// DecodeScenario parses a YAML scenario. Unknown fields are an error.
func DecodeScenario(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return &s, nil
}

// LoadScenario reads and parses a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	defer f.Close()
	s, err := DecodeScenario(f)
	if err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	return s, nil
}

// WriteScenario encodes s as YAML.
func WriteScenario(w io.Writer, s *Scenario) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}
	return enc.Close()
}

// #endregion scenario-loader

// #region plan

// Expectation is the parsed form of a step's expectation. A zero value
// expects nothing.
type Expectation struct {
	Next   *catalog.Step
	Reject engine.Kind
}

func (x Expectation) String() string {
	switch {
	case x.Next != nil:
		return "-> " + x.Next.Key()
	case x.Reject != 0:
		return "reject " + x.Reject.String()
	}
	return ""
}

// PlanStep is a validated scenario step.
type PlanStep struct {
	Command catalog.Command
	Expect  Expectation
}

// Plan is a scenario converted to domain types.
type Plan struct {
	Name  string
	Start engine.Activity
	Tier  gate.Tier // empty uses the gate's active tier
	Steps []PlanStep
}

// ToPlan validates every identifier in s. Scenario files are external input,
// so unknown names are returned as errors rather than panics.
func (s *Scenario) ToPlan() (Plan, error) {
	committee, err := catalog.ParseCommittee(s.Committee)
	if err != nil {
		return Plan{}, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	start, err := catalog.ParseStep(s.Start)
	if err != nil {
		return Plan{}, fmt.Errorf("scenario %s: start: %w", s.Name, err)
	}
	p := Plan{
		Name:  s.Name,
		Start: engine.Activity{State: start.State, SubStatus: start.SubStatus, Committee: committee},
	}
	if s.Tier != "" {
		if p.Tier, err = gate.ParseTier(s.Tier); err != nil {
			return Plan{}, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
	}

	for i, st := range s.Steps {
		cmd, err := catalog.ParseCommand(st.Command)
		if err != nil {
			return Plan{}, fmt.Errorf("scenario %s: step %d: %w", s.Name, i+1, err)
		}
		ps := PlanStep{Command: cmd}
		if st.Expect != "" && st.Reject != "" {
			return Plan{}, fmt.Errorf("scenario %s: step %d: expect and reject are exclusive", s.Name, i+1)
		}
		if st.Expect != "" {
			next, err := catalog.ParseStep(st.Expect)
			if err != nil {
				return Plan{}, fmt.Errorf("scenario %s: step %d: %w", s.Name, i+1, err)
			}
			ps.Expect.Next = &next
		}
		if st.Reject != "" {
			if ps.Expect.Reject, err = engine.ParseKind(st.Reject); err != nil {
				return Plan{}, fmt.Errorf("scenario %s: step %d: %w", s.Name, i+1, err)
			}
		}
		p.Steps = append(p.Steps, ps)
	}
	return p, nil
}

// #endregion plan
