package app

import (
	"fmt"
	"sort"

	"github.com/corey/rigor/internal/adapters/ahocorasick"
	"github.com/corey/rigor/internal/domain/rigor"
	"github.com/corey/rigor/internal/ports"
)

// Divergence is one match reported by only one of the two matchers.
type Divergence struct {
	Phrase  string
	Start   int
	End     int
	Missing string // "engine" or "reference": the side that did not report it
}

// VerifyReport is the outcome of cross-checking the engine's automaton.
type VerifyReport struct {
	Bytes       int // normalised text length
	Matches     int // matches the engine reported
	Divergences []Divergence
}

// OK reports whether both matchers agreed on every match.
func (r *VerifyReport) OK() bool {
	return len(r.Divergences) == 0
}

type span struct {
	phrase     string
	start, end int
}

// Verify normalises raw and scans it with both the engine's automaton and an
// independent Aho-Corasick implementation, reporting any disagreement. Whole-word
// filtering is not applied to either side; duplicate phrases compare by text.
func (a *App) Verify(raw string) (*VerifyReport, error) {
	dict := a.engine.Dictionary()
	ref, err := ahocorasick.New(dict.Phrases())
	if err != nil {
		return nil, fmt.Errorf("build reference matcher: %w", err)
	}
	return verifyWith(a.engine, ref, rigor.Normalize(raw)), nil
}

func verifyWith(e *rigor.Engine, ref ports.PatternMatcher, text string) *VerifyReport {
	auto := e.Automaton()
	phrases := e.Dictionary().Phrases()

	got := make(map[span]bool)
	for _, m := range auto.FindAll(text) {
		got[span{auto.Pattern(m.Pattern), m.Start, m.End}] = true
	}
	want := make(map[span]bool)
	for _, o := range ref.Occurrences(text) {
		want[span{phrases[o.Pattern], o.Start, o.End}] = true
	}

	rep := &VerifyReport{Bytes: len(text), Matches: len(got)}
	for s := range got {
		if !want[s] {
			rep.Divergences = append(rep.Divergences, Divergence{s.phrase, s.start, s.end, "reference"})
		}
	}
	for s := range want {
		if !got[s] {
			rep.Divergences = append(rep.Divergences, Divergence{s.phrase, s.start, s.end, "engine"})
		}
	}
	sort.Slice(rep.Divergences, func(i, j int) bool {
		di, dj := rep.Divergences[i], rep.Divergences[j]
		if di.End != dj.End {
			return di.End < dj.End
		}
		return di.Start < dj.Start
	})
	return rep
}
