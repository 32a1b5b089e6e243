package app

import (
	"strings"
	"testing"

	"github.com/corey/rigor/internal/adapters/ahocorasick"
	"github.com/corey/rigor/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dropFirst is a reference matcher that loses its first occurrence.
type dropFirst struct{ inner ports.PatternMatcher }

func (d dropFirst) Occurrences(text string) []ports.Occurrence {
	occ := d.inner.Occurrences(text)
	if len(occ) == 0 {
		return nil
	}
	return occ[1:]
}

func TestVerify_AgreesOnDefaultDictionary(t *testing.T) {
	a := newTestApp(t, nil)
	texts := []string{
		"",
		"Therefore, QED.",
		"By the inductive hypothesis and by induction hypothesis, in particular the claim.",
		"Without loss of generality assume wlog; thence the lemma is trivially trivial.",
		strings.Repeat("it follows that hence since then thus ", 20),
	}
	for _, text := range texts {
		rep, err := a.Verify(text)
		require.NoError(t, err)
		assert.True(t, rep.OK(), "%q: %+v", text, rep.Divergences)
	}

	rep, err := a.Verify("Therefore, QED.")
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Matches)
	assert.Equal(t, len("therefore qed"), rep.Bytes)
}

func TestVerify_ReportsDivergence(t *testing.T) {
	a := newTestApp(t, nil)
	good, err := a.Verify("qed")
	require.NoError(t, err)
	require.True(t, good.OK())

	ref, err := ahocorasick.New(a.Engine().Dictionary().Phrases())
	require.NoError(t, err)
	rep := verifyWith(a.Engine(), dropFirst{ref}, "hence qed")
	require.Len(t, rep.Divergences, 1)
	assert.Equal(t, Divergence{Phrase: "hence", Start: 0, End: 5, Missing: "reference"}, rep.Divergences[0])
	assert.False(t, rep.OK())
}
