package rigor

import (
	"fmt"
	"io/fs"
	"math"
	"os"

	"github.com/corey/rigor/internal/domain/automaton"
	"gopkg.in/yaml.v3"
)

// ErrInvalidPattern is returned when a dictionary phrase is empty or could
// never match normalised text. It is the automaton's sentinel, so
// errors.Is works at either layer.
var ErrInvalidPattern = automaton.ErrInvalidPattern

// Entry binds one marker phrase to its operator.
type Entry struct {
	Phrase string
	Op     Operator
}

// Dictionary is the ordered, fixed set of marker phrases. The index of an
// entry is its pattern id.
type Dictionary struct {
	Version      int
	InitialScore float64
	Entries      []Entry
}

// dictionaryFile is the YAML schema of a dictionary file.
type dictionaryFile struct {
	Version      int      `yaml:"version"`
	InitialScore *float64 `yaml:"initial_score"`
	Patterns     []struct {
		Phrase string `yaml:"phrase"`
		Op     string `yaml:"op"`
	} `yaml:"patterns"`
}

// ParseDictionary decodes a YAML dictionary. A missing initial_score falls
// back to DefaultInitialScore. The result is validated.
func ParseDictionary(data []byte) (*Dictionary, error) {
	var df dictionaryFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("parse dictionary: %w", err)
	}

	d := &Dictionary{
		Version:      df.Version,
		InitialScore: DefaultInitialScore,
		Entries:      make([]Entry, 0, len(df.Patterns)),
	}
	if df.InitialScore != nil {
		d.InitialScore = *df.InitialScore
	}
	for i, p := range df.Patterns {
		op, err := ParseOperator(p.Op)
		if err != nil {
			return nil, fmt.Errorf("pattern %d (%q): %w", i, p.Phrase, err)
		}
		d.Entries = append(d.Entries, Entry{Phrase: p.Phrase, Op: op})
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadDictionary reads and parses a dictionary file from fsys.
func LoadDictionary(fsys fs.FS, path string) (*Dictionary, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary %s: %w", path, err)
	}
	d, err := ParseDictionary(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// LoadDictionaryFile reads and parses a dictionary from the local disk.
func LoadDictionaryFile(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	d, err := ParseDictionary(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Validate checks every phrase. An empty phrase, or one that Normalize would
// change, fails with ErrInvalidPattern.
func (d *Dictionary) Validate() error {
	if math.IsInf(d.InitialScore, 0) || math.IsNaN(d.InitialScore) {
		return fmt.Errorf("%w: initial score %g", ErrNonFinite, d.InitialScore)
	}
	for i, e := range d.Entries {
		if e.Phrase == "" {
			return fmt.Errorf("%w: pattern %d is empty", ErrInvalidPattern, i)
		}
		if n := Normalize(e.Phrase); n != e.Phrase {
			return fmt.Errorf("%w: pattern %d %q is not normalised (want %q)", ErrInvalidPattern, i, e.Phrase, n)
		}
		if e.Op.Kind < OpAdd || e.Op.Kind > OpPow {
			return fmt.Errorf("%w: pattern %d %q", ErrBadOperator, i, e.Phrase)
		}
	}
	return nil
}

// Phrases returns the phrases in declaration order.
func (d *Dictionary) Phrases() []string {
	out := make([]string, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = e.Phrase
	}
	return out
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	return len(d.Entries)
}
