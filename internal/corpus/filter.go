package corpus

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/catalog"
)

// #region filter
// Filter is a conjunction of optional constraints. Nil fields and an empty
// SearchText constrain nothing.
type Filter struct {
	SearchText     string
	MinOccurrences *int
	MaxOccurrences *int
	MinLength      *int
	MaxLength      *int
	State          *catalog.State
	SubStatus      *catalog.SubStatus
}

// Ptr returns a pointer to v, for filling Filter fields.
func Ptr[T any](v T) *T { return &v }

// matcher is a Filter prepared for repeated use. It is not safe for
// concurrent use because the case folder keeps state.
type matcher struct {
	f      Filter
	fold   cases.Caser
	needle string
}

func (f Filter) matcher() *matcher {
	m := &matcher{f: f, fold: cases.Fold()}
	if f.SearchText != "" {
		m.needle = m.fold.String(f.SearchText)
	}
	return m
}

func (m *matcher) match(p Pattern) bool {
	f := m.f
	if m.needle != "" && !strings.Contains(m.fold.String(p.Raw), m.needle) {
		return false
	}
	if f.MinOccurrences != nil && p.OccurrenceCount < *f.MinOccurrences {
		return false
	}
	if f.MaxOccurrences != nil && p.OccurrenceCount > *f.MaxOccurrences {
		return false
	}
	if f.MinLength != nil && p.Length < *f.MinLength {
		return false
	}
	if f.MaxLength != nil && p.Length > *f.MaxLength {
		return false
	}
	if f.State != nil && !anyStep(p, func(s catalog.Step) bool { return s.State == *f.State }) {
		return false
	}
	if f.SubStatus != nil && !anyStep(p, func(s catalog.Step) bool { return s.SubStatus == *f.SubStatus }) {
		return false
	}
	return true
}

func anyStep(p Pattern, pred func(catalog.Step) bool) bool {
	for _, s := range p.Steps {
		if pred(s) {
			return true
		}
	}
	return false
}

// Match reports whether p satisfies every constraint of f.
func (f Filter) Match(p Pattern) bool {
	return f.matcher().match(p)
}

// FilterPatterns returns the patterns satisfying f, in input order.
func FilterPatterns(ps []Pattern, f Filter) []Pattern {
	m := f.matcher()
	out := make([]Pattern, 0, len(ps))
	for _, p := range ps {
		if m.match(p) {
			out = append(out, p)
		}
	}
	return out
}

// #endregion filter
