package calc

import (
	"errors"
	"strings"
	"testing"
)

func TestEval(t *testing.T) {
	cases := map[string]float64{
		"1+2*3":        7,
		"(1+2)*3":      9,
		"10/4":         2.5,
		"-3+5":         2,
		"2*-3":         -6,
		"--4":          4,
		" 8 - 2 - 1 ":  5,
		"12/3/2":       2,
		"((2))":        2,
		"0.5+.25":      0.75,
		"100*(3-1)/-4": -50,
		"3.14159*2*2":  12.56636,
	}
	for in, want := range cases {
		got, err := Eval(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if diff := got - want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("%q: expected %v, got %v", in, want, got)
		}
	}
}

func TestEvalRejectsUnsafeAndMalformedInput(t *testing.T) {
	for _, in := range []string{
		"alert(1)",
		"1+",
		"(1+2",
		"1+2)",
		"1 2",
		"*3",
		"1..2",
		"2^3",
		"process.exit()",
	} {
		if _, err := Eval(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}

func TestEvalErrors(t *testing.T) {
	if _, err := Eval("   "); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected empty error, got %v", err)
	}
	if _, err := Eval("1/(2-2)"); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected division by zero, got %v", err)
	}
	var syntax *SyntaxError
	if _, err := Eval("1+x"); !errors.As(err, &syntax) || syntax.Pos != 2 {
		t.Fatalf("expected syntax error at 2, got %v", err)
	}
	deep := strings.Repeat("(", 200) + "1" + strings.Repeat(")", 200)
	if _, err := Eval(deep); err == nil {
		t.Fatalf("expected nesting limit error")
	}
}

func TestFormat(t *testing.T) {
	if Format(7) != "7" || Format(2.5) != "2.5" {
		t.Fatalf("unexpected formatting %s %s", Format(7), Format(2.5))
	}
}
