package filter

import (
	"strings"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		expr   string
		attr   string
		op     Operator
		value  string
		negate bool
	}{
		{"type STREQ Article", "type", StrEq, "Article", false},
		{"custom_attribute STRINC rails", "custom_attribute", StrInc, "rails", false},
		{"@title strbw Hello world", "@title", StrBw, "Hello world", false},
		{"db_id NUMGT 0", "db_id", NumGt, "0", false},
		{"@cdate !NUMLE 2024-01-01T00:00:00Z", "@cdate", NumLe, "2024-01-01T00:00:00Z", true},
		{"db_id NUMBT 1 3", "db_id", NumBt, "1 3", false},
		{"type_base STREQ", "type_base", StrEq, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			c, err := Parse(tt.expr)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Attr() != tt.attr {
				t.Errorf("Attr() = %q, want %q", c.Attr(), tt.attr)
			}
			if c.Op() != tt.op {
				t.Errorf("Op() = %q, want %q", c.Op(), tt.op)
			}
			if c.Value() != tt.value {
				t.Errorf("Value() = %q, want %q", c.Value(), tt.value)
			}
			if c.Negated() != tt.negate {
				t.Errorf("Negated() = %v, want %v", c.Negated(), tt.negate)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"title", "want"},
		{"title LIKE x", "unknown operator"},
		{"db_id NUMGT abc", "neither a number"},
		{"db_id NUMBT 1", "two values"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := Parse(tt.expr)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestCondition_String(t *testing.T) {
	c := MustNew("type", StrEq, "Article")
	if got := c.String(); got != "type STREQ Article" {
		t.Errorf("String() = %q", got)
	}
	if got := c.Not().String(); got != "type !STREQ Article" {
		t.Errorf("Not().String() = %q", got)
	}
}

func TestCondition_Bounds(t *testing.T) {
	c := MustNew("db_id", NumGt, "0")
	r, inverted, err := c.Bounds()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inverted {
		t.Error("NUMGT must not be inverted")
	}
	if r.Min == nil || *r.Min != 0 || !r.MinExclusive || r.Max != nil {
		t.Errorf("unexpected range %+v", r)
	}

	_, inverted, err = MustNew("db_id", NumNe, "5").Bounds()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inverted {
		t.Error("NUMNE must be inverted")
	}

	if _, _, err := MustNew("type", StrEq, "x").Bounds(); err == nil {
		t.Error("expected error for string operator")
	}
}

func TestParseNumber_Timestamp(t *testing.T) {
	n, err := ParseNumber("1970-01-02T00:00:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 86400 {
		t.Errorf("ParseNumber = %v, want 86400", n)
	}
}

func TestParseNumber_NonFinite(t *testing.T) {
	for _, s := range []string{"NaN", "nan", "Nan", "Inf", "+Inf", "-inf", "Infinity", "infinity"} {
		if n, err := ParseNumber(s); err == nil {
			t.Errorf("ParseNumber(%q) = %v, want error", s, n)
		}
	}
	if n, err := ParseNumber("-2.5"); err != nil || n != -2.5 {
		t.Errorf("ParseNumber(-2.5) = %v, %v", n, err)
	}
}

func TestNewExpression_TooMany(t *testing.T) {
	conds := make([]Condition, MaxConditions+1)
	for i := range conds {
		conds[i] = MustNew("type", StrEq, "x")
	}
	if _, err := NewExpression(conds...); err == nil {
		t.Fatal("expected error")
	}
}

func TestExpression_With(t *testing.T) {
	expr, err := ParseAll([]string{"custom_attribute STRINC rails"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scoped := expr.With(MustNew("type", StrEq, "Article"))
	got := strings.Join(scoped.Strings(), ", ")
	want := "type STREQ Article, custom_attribute STRINC rails"
	if got != want {
		t.Errorf("Strings() = %q, want %q", got, want)
	}
	if len(expr.Conditions()) != 1 {
		t.Error("With must not modify the receiver")
	}
}
