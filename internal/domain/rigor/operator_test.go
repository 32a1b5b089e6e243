package rigor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperator(t *testing.T) {
	tests := []struct {
		in   string
		want Operator
	}{
		{"+1", Add(1)},
		{"+0.3", Add(0.3)},
		{"-11", Sub(11)},
		{"-0.5", Sub(0.5)},
		{"*1.5", Mul(1.5)},
		{"x1.1", Mul(1.1)},
		{"^1.05", Pow(1.05)},
		{"  +50 ", Add(50)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOperator(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOperator_Rejects(t *testing.T) {
	for _, in := range []string{"", "+", "1", "%3", "+abc", "+NaN", "^Inf"} {
		_, err := ParseOperator(in)
		assert.ErrorIs(t, err, ErrBadOperator, "input %q", in)
	}
}

func TestOperator_StringRoundTrip(t *testing.T) {
	for _, op := range []Operator{Add(0.3), Sub(33), Mul(1.5), Pow(1.05)} {
		back, err := ParseOperator(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, back)
	}
	assert.Equal(t, "^1.05", Pow(1.05).String())
	assert.Equal(t, "*1.5", Mul(1.5).String())
}

func TestOperator_Apply(t *testing.T) {
	got, err := Add(1).Apply(99, PowerReal)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got)

	got, err = Sub(22).Apply(10, PowerReal)
	require.NoError(t, err)
	assert.Equal(t, -12.0, got)

	got, err = Mul(1.5).Apply(-4, PowerReal)
	require.NoError(t, err)
	assert.Equal(t, -6.0, got)

	got, err = Pow(1.05).Apply(100, PowerReal)
	require.NoError(t, err)
	assert.InDelta(t, 125.8925, got, 1e-4)
}

func TestPower_NegativeBaseFractionalExponent(t *testing.T) {
	mag := math.Pow(100, 1.05)

	re, err := Pow(1.05).Apply(-100, PowerReal)
	require.NoError(t, err)
	assert.InDelta(t, mag*math.Cos(1.05*math.Pi), re, 1e-9)
	assert.InDelta(t, -124.34, re, 0.01)

	sign, err := Pow(1.05).Apply(-100, PowerSignMagnitude)
	require.NoError(t, err)
	assert.InDelta(t, -mag, sign, 1e-9)

	_, err = Pow(1.05).Apply(-100, PowerStrict)
	assert.ErrorIs(t, err, ErrComplexResult)
}

func TestPower_IntegerExponentIsExactUnderEveryPolicy(t *testing.T) {
	for _, p := range []PowerPolicy{PowerReal, PowerSignMagnitude, PowerStrict} {
		got, err := Pow(3).Apply(-2, p)
		require.NoError(t, err, p.String())
		assert.Equal(t, -8.0, got, p.String())
	}
}

func TestPower_ZeroBase(t *testing.T) {
	for _, p := range []PowerPolicy{PowerReal, PowerSignMagnitude, PowerStrict} {
		got, err := Pow(1.05).Apply(0, p)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got)
	}
}

func TestPowerPolicyFromName(t *testing.T) {
	for name, want := range map[string]PowerPolicy{
		"":               PowerReal,
		"real":           PowerReal,
		"Sign":           PowerSignMagnitude,
		"sign-magnitude": PowerSignMagnitude,
		"strict":         PowerStrict,
	} {
		got, err := PowerPolicyFromName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := PowerPolicyFromName("complex")
	assert.Error(t, err)
}

func TestApply_OverflowKeepsPreviousScore(t *testing.T) {
	huge := math.MaxFloat64 / 2

	got, err := Pow(1.05).Apply(huge, PowerReal)
	assert.ErrorIs(t, err, ErrNonFinite)
	assert.Equal(t, huge, got)

	got, err = Mul(4).Apply(huge, PowerReal)
	assert.ErrorIs(t, err, ErrNonFinite)
	assert.Equal(t, huge, got)

	got, err = Sub(math.MaxFloat64).Apply(-huge, PowerReal)
	assert.ErrorIs(t, err, ErrNonFinite)
	assert.Equal(t, -huge, got)

	got, err = Mul(2).Apply(huge/2, PowerReal)
	require.NoError(t, err)
	assert.False(t, math.IsInf(got, 0))
}
