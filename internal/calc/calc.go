// Package calc evaluates the exam calculator's input. The grammar is limited to
// numbers, parentheses and the four arithmetic operators:
//
//	expr   = term { ("+" | "-") term }
//	term   = factor { ("*" | "/") factor }
//	factor = ("+" | "-") factor | number | "(" expr ")"
package calc

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrEmpty          = errors.New("empty expression")
	ErrDivisionByZero = errors.New("division by zero")
)

// maxDepth bounds nesting so hostile input cannot blow the stack.
const maxDepth = 64

// SyntaxError points at the offending byte offset.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d: %s", e.Pos, e.Msg)
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOp
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	pos  int
	num  float64
	op   byte
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(input); {
		c := input[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '+' || c == '-' || c == '*' || c == '/':
			tokens = append(tokens, token{kind: tokOp, pos: i, op: c})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, pos: i})
			i++
		case (c >= '0' && c <= '9') || c == '.':
			start := i
			for i < len(input) && ((input[i] >= '0' && input[i] <= '9') || input[i] == '.') {
				i++
			}
			n, err := strconv.ParseFloat(input[start:i], 64)
			if err != nil {
				return nil, &SyntaxError{Pos: start, Msg: fmt.Sprintf("bad number %q", input[start:i])}
			}
			tokens = append(tokens, token{kind: tokNumber, pos: start, num: n})
		default:
			return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected %q", c)}
		}
	}
	return append(tokens, token{kind: tokEOF, pos: len(input)}), nil
}

type parser struct {
	tokens []token
	pos    int
	depth  int
}

// Eval parses and evaluates input. Nothing in input is ever executed.
func Eval(input string) (float64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, ErrEmpty
	}
	tokens, err := tokenize(input)
	if err != nil {
		return 0, err
	}
	p := &parser{tokens: tokens}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return 0, &SyntaxError{Pos: t.pos, Msg: "unexpected trailing input"}
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errors.New("result out of range")
	}
	return v, nil
}

// Format renders a result the way the calculator display shows it.
func Format(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expr() (float64, error) {
	left, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.op != '+' && t.op != '-') {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return 0, err
		}
		if t.op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) term() (float64, error) {
	left, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.op != '*' && t.op != '/') {
			return left, nil
		}
		p.next()
		right, err := p.factor()
		if err != nil {
			return 0, err
		}
		if t.op == '*' {
			left *= right
			continue
		}
		if right == 0 {
			return 0, ErrDivisionByZero
		}
		left /= right
	}
}

func (p *parser) factor() (float64, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return 0, &SyntaxError{Pos: p.peek().pos, Msg: "expression nested too deeply"}
	}

	t := p.next()
	switch t.kind {
	case tokNumber:
		return t.num, nil
	case tokOp:
		if t.op != '+' && t.op != '-' {
			return 0, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected operator %q", t.op)}
		}
		v, err := p.factor()
		if err != nil {
			return 0, err
		}
		if t.op == '-' {
			return -v, nil
		}
		return v, nil
	case tokLParen:
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return 0, &SyntaxError{Pos: closing.pos, Msg: "missing )"}
		}
		return v, nil
	case tokEOF:
		return 0, &SyntaxError{Pos: t.pos, Msg: "unexpected end of input"}
	}
	return 0, &SyntaxError{Pos: t.pos, Msg: "unexpected )"}
}
