// Package rigor scores text for mathematical rigor.
//
// A Dictionary of marker phrases ("therefore", "by symmetry", "clearly", ...)
// is compiled once into an Aho-Corasick automaton. Scoring scans normalised
// text in a single pass and folds each match's Operator into a running
// score, in match order.
package rigor

import (
	"fmt"
	"iter"
	"sync"

	"github.com/corey/rigor/dictionary"
	"github.com/corey/rigor/internal/domain/automaton"
)

// DefaultInitialScore is the starting score when none is configured.
const DefaultInitialScore = 99.0

// Engine is a compiled dictionary. It is immutable after Build and safe for
// concurrent use.
type Engine struct {
	auto       *automaton.Automaton
	dict       Dictionary
	ops        []Operator
	policy     PowerPolicy
	wholeWords bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithPowerPolicy selects how fractional powers of negative scores resolve.
func WithPowerPolicy(p PowerPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithWholeWords drops matches that start or end inside a word, so "case"
// no longer fires inside "showcase". Off by default.
func WithWholeWords(on bool) Option {
	return func(e *Engine) { e.wholeWords = on }
}

// Build validates dict and compiles it. Validation errors are returned
// before any automaton exists.
func Build(dict *Dictionary, opts ...Option) (*Engine, error) {
	if err := dict.Validate(); err != nil {
		return nil, err
	}
	auto, err := automaton.Build(dict.Phrases())
	if err != nil {
		return nil, fmt.Errorf("build automaton: %w", err)
	}

	e := &Engine{
		auto: auto,
		dict: Dictionary{
			Version:      dict.Version,
			InitialScore: dict.InitialScore,
			Entries:      make([]Entry, len(dict.Entries)),
		},
		ops: make([]Operator, len(dict.Entries)),
	}
	copy(e.dict.Entries, dict.Entries)
	for i, en := range dict.Entries {
		e.ops[i] = en.Op
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Dictionary returns a copy of the compiled dictionary.
func (e *Engine) Dictionary() *Dictionary {
	d := e.dict
	d.Entries = make([]Entry, len(e.dict.Entries))
	copy(d.Entries, e.dict.Entries)
	return &d
}

// Automaton exposes the compiled matcher for inspection.
func (e *Engine) Automaton() *automaton.Automaton {
	return e.auto
}

// Policy returns the engine's power policy.
func (e *Engine) Policy() PowerPolicy {
	return e.policy
}

// WholeWords reports whether word-boundary filtering is on.
func (e *Engine) WholeWords() bool {
	return e.wholeWords
}

// InitialScore returns the dictionary's starting score.
func (e *Engine) InitialScore() float64 {
	return e.dict.InitialScore
}

// Matches scans normalised text and yields the matches that count toward
// the score.
func (e *Engine) Matches(text string) iter.Seq[automaton.Match] {
	if !e.wholeWords {
		return e.auto.Scan(text)
	}
	return func(yield func(automaton.Match) bool) {
		for m := range e.auto.Scan(text) {
			if !onWordBoundary(text, m) {
				continue
			}
			if !yield(m) {
				return
			}
		}
	}
}

// Score scores already-normalised text starting from initial.
func (e *Engine) Score(text string, initial float64) (float64, error) {
	return Accumulate(e.Matches(text), e.ops, initial, e.policy)
}

// ScoreRaw normalises raw text and scores it.
func (e *Engine) ScoreRaw(raw string, initial float64) (float64, error) {
	return e.Score(Normalize(raw), initial)
}

// Explain scores normalised text and records every operator application.
func (e *Engine) Explain(text string, initial float64) (*Trace, error) {
	tr := &Trace{Initial: initial, Final: initial, Words: Words(text)}
	for m := range e.Matches(text) {
		op := e.ops[m.Pattern]
		next, err := op.Apply(tr.Final, e.policy)
		if err != nil {
			return tr, fmt.Errorf("at offset %d: %w", m.End, err)
		}
		tr.Steps = append(tr.Steps, Step{
			Phrase: e.dict.Entries[m.Pattern].Phrase,
			Op:     op,
			Start:  m.Start,
			End:    m.End,
			Before: tr.Final,
			After:  next,
		})
		tr.Final = next
	}
	return tr, nil
}

func onWordBoundary(text string, m automaton.Match) bool {
	if m.Start > 0 && text[m.Start-1] != ' ' {
		return false
	}
	if m.End < len(text) && text[m.End] != ' ' {
		return false
	}
	return true
}

var defaultEngine = sync.OnceValues(func() (*Engine, error) {
	d, err := LoadDictionary(dictionary.FS, dictionary.DefaultPath)
	if err != nil {
		return nil, err
	}
	return Build(d, WithWholeWords(true))
})

// Default returns the engine for the embedded dictionary, with whole-word
// matching on. It is built on first use; concurrent first callers wait for
// the one build and all share its result.
func Default() (*Engine, error) {
	return defaultEngine()
}
