package rigor

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrBadOperator is returned when an operator string cannot be parsed.
var ErrBadOperator = errors.New("bad operator")

// ErrComplexResult is returned under PowerStrict when a fractional power of
// a negative score would leave the real line.
var ErrComplexResult = errors.New("complex result")

// ErrNonFinite is returned when an operator would take the score to
// infinity or NaN. The score before that operator is kept.
var ErrNonFinite = errors.New("score is not finite")

// OpKind is the arithmetic applied by an Operator.
type OpKind int

const (
	OpAdd OpKind = iota
	OpSub
	OpMul
	OpPow
)

// Symbol returns the prefix character used in dictionary files.
func (k OpKind) Symbol() string {
	switch k {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpPow:
		return "^"
	default:
		return "?"
	}
}

// OpKindFromSymbol maps a dictionary prefix to its OpKind.
// Returns -1 for unknown symbols. "x" is accepted as multiplication.
func OpKindFromSymbol(s string) OpKind {
	switch s {
	case "+":
		return OpAdd
	case "-":
		return OpSub
	case "*", "x":
		return OpMul
	case "^":
		return OpPow
	default:
		return -1
	}
}

// Operator transforms a running score.
type Operator struct {
	Kind  OpKind
	Value float64
}

// Add returns an operator adding v.
func Add(v float64) Operator { return Operator{Kind: OpAdd, Value: v} }

// Sub returns an operator subtracting v.
func Sub(v float64) Operator { return Operator{Kind: OpSub, Value: v} }

// Mul returns an operator multiplying by v.
func Mul(v float64) Operator { return Operator{Kind: OpMul, Value: v} }

// Pow returns an operator raising the score to v.
func Pow(v float64) Operator { return Operator{Kind: OpPow, Value: v} }

// ParseOperator parses "+1", "-0.5", "*1.5", "x1.5" or "^1.05".
func ParseOperator(s string) (Operator, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return Operator{}, fmt.Errorf("%w: %q", ErrBadOperator, s)
	}
	kind := OpKindFromSymbol(s[:1])
	if kind < 0 {
		return Operator{}, fmt.Errorf("%w: unknown symbol in %q", ErrBadOperator, s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s[1:]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Operator{}, fmt.Errorf("%w: bad number in %q", ErrBadOperator, s)
	}
	return Operator{Kind: kind, Value: v}, nil
}

// String renders the operator in dictionary syntax.
func (o Operator) String() string {
	return o.Kind.Symbol() + strconv.FormatFloat(o.Value, 'g', -1, 64)
}

// Apply returns the score after applying o to cur. On error the returned
// score is cur, unchanged.
func (o Operator) Apply(cur float64, policy PowerPolicy) (float64, error) {
	var next float64
	switch o.Kind {
	case OpAdd:
		next = cur + o.Value
	case OpSub:
		next = cur - o.Value
	case OpMul:
		next = cur * o.Value
	case OpPow:
		v, err := power(cur, o.Value, policy)
		if err != nil {
			return cur, err
		}
		next = v
	default:
		return cur, fmt.Errorf("%w: kind %d", ErrBadOperator, o.Kind)
	}
	if math.IsInf(next, 0) || math.IsNaN(next) {
		return cur, fmt.Errorf("%w: %g %s", ErrNonFinite, cur, o)
	}
	return next, nil
}

// PowerPolicy decides what a fractional power of a negative score means.
type PowerPolicy int

const (
	// PowerReal keeps the real component of the principal complex power:
	// |x|^p * cos(p*pi).
	PowerReal PowerPolicy = iota
	// PowerSignMagnitude keeps the sign and powers the magnitude: -|x|^p.
	PowerSignMagnitude
	// PowerStrict refuses with ErrComplexResult.
	PowerStrict
)

// String returns the configuration name of the policy.
func (p PowerPolicy) String() string {
	switch p {
	case PowerReal:
		return "real"
	case PowerSignMagnitude:
		return "sign"
	case PowerStrict:
		return "strict"
	default:
		return "unknown"
	}
}

// PowerPolicyFromName maps a configuration name to its PowerPolicy.
// The empty name selects PowerReal.
func PowerPolicyFromName(name string) (PowerPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "real":
		return PowerReal, nil
	case "sign", "sign-magnitude":
		return PowerSignMagnitude, nil
	case "strict":
		return PowerStrict, nil
	default:
		return PowerReal, fmt.Errorf("unknown power policy %q", name)
	}
}

func power(base, exp float64, policy PowerPolicy) (float64, error) {
	if base >= 0 || exp == math.Trunc(exp) {
		return math.Pow(base, exp), nil
	}
	mag := math.Pow(-base, exp)
	switch policy {
	case PowerSignMagnitude:
		return -mag, nil
	case PowerStrict:
		return 0, fmt.Errorf("%w: (%g)^%g", ErrComplexResult, base, exp)
	default:
		return mag * math.Cos(math.Pi*exp), nil
	}
}
