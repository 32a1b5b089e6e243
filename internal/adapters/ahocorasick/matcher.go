// Package ahocorasick provides a ports.PatternMatcher backed by the
// petar-dambovaliev/aho-corasick library. The scorer runs on its own arena
// automaton; this matcher is the independent implementation its output is
// checked against (`rigor dict --verify` and the differential tests).
package ahocorasick

import (
	"fmt"

	aho "github.com/petar-dambovaliev/aho-corasick"

	"github.com/corey/rigor/internal/ports"
)

// Matcher implements ports.PatternMatcher. It is immutable after New and
// safe for concurrent use.
type Matcher struct {
	automaton aho.AhoCorasick
	patterns  []string
}

// New builds a matcher over a copy of patterns. Pattern ids are slice
// indexes; an empty phrase is an error.
func New(patterns []string) (*Matcher, error) {
	for i, p := range patterns {
		if p == "" {
			return nil, fmt.Errorf("pattern %d is empty", i)
		}
	}
	m := &Matcher{patterns: append([]string(nil), patterns...)}
	if len(m.patterns) > 0 {
		// Overlapping iteration is only defined for standard match semantics.
		builder := aho.NewAhoCorasickBuilder(aho.Opts{
			MatchKind: aho.StandardMatch,
			DFA:       true,
		})
		m.automaton = builder.Build(m.patterns)
	}
	return m, nil
}

// Occurrences returns every overlapping hit in text, in the library's order.
func (m *Matcher) Occurrences(text string) []ports.Occurrence {
	if len(m.patterns) == 0 || text == "" {
		return nil
	}
	var out []ports.Occurrence
	iter := m.automaton.IterOverlapping(text)
	for next := iter.Next(); next != nil; next = iter.Next() {
		out = append(out, ports.Occurrence{
			Pattern: next.Pattern(),
			Start:   next.Start(),
			End:     next.End(),
		})
	}
	return out
}

// PatternCount returns the number of patterns.
func (m *Matcher) PatternCount() int {
	return len(m.patterns)
}

// Pattern returns the pattern string at the given index.
func (m *Matcher) Pattern(idx int) string {
	if idx < 0 || idx >= len(m.patterns) {
		return ""
	}
	return m.patterns[idx]
}
