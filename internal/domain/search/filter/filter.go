package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MaxConditions is the maximum number of attribute conditions in one search.
const MaxConditions = 32

// Operator is an attribute comparison operator.
type Operator string

// String operators compare the stored string value, numeric operators compare
// the value parsed as a number (RFC 3339 timestamps compare as unix seconds).
const (
	StrEq  Operator = "STREQ"
	StrNe  Operator = "STRNE"
	StrInc Operator = "STRINC"
	StrBw  Operator = "STRBW"
	StrEw  Operator = "STREW"
	NumEq  Operator = "NUMEQ"
	NumNe  Operator = "NUMNE"
	NumGt  Operator = "NUMGT"
	NumGe  Operator = "NUMGE"
	NumLt  Operator = "NUMLT"
	NumLe  Operator = "NUMLE"
	NumBt  Operator = "NUMBT"
)

var operators = map[Operator]bool{
	StrEq: true, StrNe: true, StrInc: true, StrBw: true, StrEw: true,
	NumEq: true, NumNe: true, NumGt: true, NumGe: true, NumLt: true, NumLe: true, NumBt: true,
}

// IsValid reports whether op is a known operator.
func (op Operator) IsValid() bool { return operators[op] }

// IsNumeric reports whether op compares numbers.
func (op Operator) IsNumeric() bool { return strings.HasPrefix(string(op), "NUM") }

// Condition is a single attribute expression "<attr> [!]<OP> <value>".
type Condition struct {
	attr   string
	op     Operator
	value  string
	negate bool
}

// New validates and creates a Condition.
func New(attr string, op Operator, value string) (Condition, error) {
	if attr == "" {
		return Condition{}, fmt.Errorf("attribute name is required")
	}
	if !op.IsValid() {
		return Condition{}, fmt.Errorf("unknown operator %q", op)
	}
	c := Condition{attr: attr, op: op, value: value}
	if op.IsNumeric() {
		if _, _, err := c.Bounds(); err != nil {
			return Condition{}, err
		}
	}
	return c, nil
}

// MustNew calls New and panics on error.
func MustNew(attr string, op Operator, value string) Condition {
	c, err := New(attr, op, value)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse reads an attribute expression such as "custom_attribute STRINC rails"
// or "@cdate !NUMLE 2024-01-01T00:00:00Z". The value is the rest of the line.
func Parse(expr string) (Condition, error) {
	fields := strings.Fields(expr)
	if len(fields) < 2 {
		return Condition{}, fmt.Errorf("attribute expression %q: want \"<attr> <OP> <value>\"", expr)
	}

	opText := strings.ToUpper(fields[1])
	negate := strings.HasPrefix(opText, "!")
	opText = strings.TrimPrefix(opText, "!")

	value := ""
	if len(fields) > 2 {
		// keep inner spacing of the value intact
		rest := strings.TrimSpace(expr)
		rest = strings.TrimSpace(rest[len(fields[0]):])
		value = strings.TrimSpace(rest[len(fields[1]):])
	}

	c, err := New(fields[0], Operator(opText), value)
	if err != nil {
		return Condition{}, fmt.Errorf("attribute expression %q: %w", expr, err)
	}
	c.negate = negate
	return c, nil
}

// Not returns a negated copy of c.
func (c Condition) Not() Condition {
	c.negate = !c.negate
	return c
}

// Attr returns the attribute name.
func (c Condition) Attr() string { return c.attr }

// Op returns the operator.
func (c Condition) Op() Operator { return c.op }

// Value returns the raw comparison value.
func (c Condition) Value() string { return c.value }

// Negated reports whether the condition is inverted.
func (c Condition) Negated() bool { return c.negate }

// Bounds returns the numeric interval of a numeric operator and whether the
// match is inverted (NUMNE). It ignores the "!" prefix; see Negated.
func (c Condition) Bounds() (Range, bool, error) {
	if !c.op.IsNumeric() {
		return Range{}, false, fmt.Errorf("operator %s is not numeric", c.op)
	}
	if c.op == NumBt {
		parts := strings.Fields(c.value)
		if len(parts) != 2 {
			return Range{}, false, fmt.Errorf("%s needs two values, got %q", NumBt, c.value)
		}
		lo, err := ParseNumber(parts[0])
		if err != nil {
			return Range{}, false, err
		}
		hi, err := ParseNumber(parts[1])
		if err != nil {
			return Range{}, false, err
		}
		return Range{Min: &lo, Max: &hi}, false, nil
	}

	n, err := ParseNumber(c.value)
	if err != nil {
		return Range{}, false, err
	}
	switch c.op {
	case NumEq:
		return Range{Min: &n, Max: &n}, false, nil
	case NumNe:
		return Range{Min: &n, Max: &n}, true, nil
	case NumGt:
		return Range{Min: &n, MinExclusive: true}, false, nil
	case NumGe:
		return Range{Min: &n}, false, nil
	case NumLt:
		return Range{Max: &n, MaxExclusive: true}, false, nil
	default:
		return Range{Max: &n}, false, nil
	}
}

func (c Condition) String() string {
	op := string(c.op)
	if c.negate {
		op = "!" + op
	}
	return strings.TrimSpace(c.attr + " " + op + " " + c.value)
}

// Range is a numeric interval; nil bounds are unbounded.
type Range struct {
	Min          *float64
	Max          *float64
	MinExclusive bool
	MaxExclusive bool
}

// ParseNumber reads a finite decimal number or an RFC 3339 timestamp (as unix
// seconds). Words such as "NaN" or "Infinity" are not numbers.
func ParseNumber(s string) (float64, error) {
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return float64(t.Unix()), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return float64(t.Unix()), nil
	}
	return 0, fmt.Errorf("value %q is neither a number nor a timestamp", s)
}

// Expression is the conjunction of attribute conditions of a search.
type Expression struct {
	conditions []Condition
}

// NewExpression validates and creates an Expression.
func NewExpression(conditions ...Condition) (Expression, error) {
	if len(conditions) > MaxConditions {
		return Expression{}, fmt.Errorf("too many attribute conditions (max %d)", MaxConditions)
	}
	return Expression{conditions: conditions}, nil
}

// ParseAll parses a list of attribute expressions.
func ParseAll(exprs []string) (Expression, error) {
	conds := make([]Condition, 0, len(exprs))
	for _, e := range exprs {
		c, err := Parse(e)
		if err != nil {
			return Expression{}, err
		}
		conds = append(conds, c)
	}
	return NewExpression(conds...)
}

// Conditions returns the conditions in order.
func (e Expression) Conditions() []Condition { return e.conditions }

// With returns a copy of e with c prepended.
func (e Expression) With(c Condition) Expression {
	out := make([]Condition, 0, len(e.conditions)+1)
	out = append(out, c)
	out = append(out, e.conditions...)
	return Expression{conditions: out}
}

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.conditions) == 0 }

// Strings renders every condition back to its textual form.
func (e Expression) Strings() []string {
	out := make([]string, len(e.conditions))
	for i, c := range e.conditions {
		out[i] = c.String()
	}
	return out
}
