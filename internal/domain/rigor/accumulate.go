package rigor

import (
	"fmt"
	"iter"

	"github.com/corey/rigor/internal/domain/automaton"
)

// Accumulate folds matches into a score, applying ops[m.Pattern] strictly in
// the order the sequence yields them. The operators do not commute, so the
// scan order (end offset ascending, longest first within an end offset) is
// part of the result.
//
// The first operator error stops the fold; the score reached so far is
// returned with it.
func Accumulate(matches iter.Seq[automaton.Match], ops []Operator, initial float64, policy PowerPolicy) (float64, error) {
	score := initial
	for m := range matches {
		if m.Pattern < 0 || m.Pattern >= len(ops) {
			return score, fmt.Errorf("match for unknown pattern %d", m.Pattern)
		}
		next, err := ops[m.Pattern].Apply(score, policy)
		if err != nil {
			return score, fmt.Errorf("at offset %d: %w", m.End, err)
		}
		score = next
	}
	return score, nil
}

// Step is one operator application recorded by Engine.Explain.
type Step struct {
	Phrase string
	Op     Operator
	Start  int
	End    int
	Before float64
	After  float64
}

// Trace is the full evaluation of one text.
type Trace struct {
	Initial float64
	Final   float64
	Words   int
	Steps   []Step
}

// Counts returns how many times each phrase matched.
func (t *Trace) Counts() map[string]int {
	counts := make(map[string]int, len(t.Steps))
	for _, s := range t.Steps {
		counts[s.Phrase]++
	}
	return counts
}
