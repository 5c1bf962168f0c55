// Package corpus parses historical flow patterns and answers exploratory
// queries over them.
package corpus

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
)

// #region pattern
// Pattern is one historical flow with the number of requests that followed it.
type Pattern struct {
	ID              string         `json:"id"`
	Steps           []catalog.Step `json:"steps"`
	OccurrenceCount int            `json:"occurrence_count"`
	Length          int            `json:"length"`
	Raw             string         `json:"raw"`
}

// Contains reports whether any step of p equals s.
func (p Pattern) Contains(s catalog.Step) bool {
	for _, st := range p.Steps {
		if st == s {
			return true
		}
	}
	return false
}

// Pairs returns the consecutive (from, to) steps of p.
func (p Pattern) Pairs() [][2]catalog.Step {
	if len(p.Steps) < 2 {
		return nil
	}
	out := make([][2]catalog.Step, 0, len(p.Steps)-1)
	for i := 0; i+1 < len(p.Steps); i++ {
		out = append(out, [2]catalog.Step{p.Steps[i], p.Steps[i+1]})
	}
	return out
}

// #endregion pattern

// #region parse
var (
	errNoComma  = errors.New("no occurrence count")
	errBadCount = errors.New("occurrence count is not a non-negative integer")
	errBadStep  = errors.New("malformed step")
)

const stepSeparator = "->"

// ParsePattern parses "2-2 -> 2-3 -> 10-2". Every step must name a known
// state and sub-status.
func ParsePattern(raw string, count int) (Pattern, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, stepSeparator)
	steps := make([]catalog.Step, 0, len(parts))
	for _, part := range parts {
		st, err := parseStep(part)
		if err != nil {
			return Pattern{}, err
		}
		steps = append(steps, st)
	}
	return Pattern{
		ID:              raw,
		Steps:           steps,
		OccurrenceCount: count,
		Length:          len(steps),
		Raw:             raw,
	}, nil
}

func parseStep(v string) (catalog.Step, error) {
	state, sub, ok := strings.Cut(strings.TrimSpace(v), "-")
	if !ok || strings.Contains(sub, "-") {
		return catalog.Step{}, fmt.Errorf("%w %q", errBadStep, v)
	}
	s, err1 := strconv.Atoi(state)
	ss, err2 := strconv.Atoi(sub)
	if err1 != nil || err2 != nil {
		return catalog.Step{}, fmt.Errorf("%w %q", errBadStep, v)
	}
	st := catalog.Step{State: catalog.State(s), SubStatus: catalog.SubStatus(ss)}
	if !st.State.Valid() || !st.SubStatus.Valid() {
		return catalog.Step{}, fmt.Errorf("%w %q: unknown identifier", errBadStep, v)
	}
	return st, nil
}

// ParseLine parses one dataset row, "<pattern>,<count>". The count follows
// the last comma.
func ParseLine(line string) (Pattern, error) {
	i := strings.LastIndexByte(line, ',')
	if i < 0 {
		return Pattern{}, errNoComma
	}
	count, err := strconv.Atoi(strings.TrimSpace(line[i+1:]))
	if err != nil || count < 0 {
		return Pattern{}, errBadCount
	}
	return ParsePattern(line[:i], count)
}

// #endregion parse

// #region order
// SortByOccurrence orders patterns by count descending, keeping the input
// order among equal counts.
func SortByOccurrence(ps []Pattern) {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].OccurrenceCount > ps[j].OccurrenceCount })
}

// sortCanonical orders by count descending then raw text, independent of
// input order.
func sortCanonical(ps []Pattern) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].OccurrenceCount != ps[j].OccurrenceCount {
			return ps[i].OccurrenceCount > ps[j].OccurrenceCount
		}
		return ps[i].Raw < ps[j].Raw
	})
}

// #endregion order
