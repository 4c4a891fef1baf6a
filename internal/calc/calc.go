// Package calc evaluates arithmetic expressions without executing code.
//
// The grammar covers numbers, + - * / % ^ (also **), unary signs, parentheses,
// the constants pi and e, and a fixed set of functions. Identifiers may carry
// a "Math." prefix so expressions written for JavaScript still parse.
package calc

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrSyntax       = errors.New("syntax error")
	ErrUnknownName  = errors.New("unknown identifier")
	ErrArity        = errors.New("wrong number of arguments")
	ErrDivideByZero = errors.New("division by zero")
	ErrNotFinite    = errors.New("result is not a finite number")
)

const maxDepth = 64

type function struct {
	minArgs, maxArgs int // maxArgs < 0 means variadic
	fn               func(args []float64) float64
}

func unary(f func(float64) float64) function {
	return function{1, 1, func(a []float64) float64 { return f(a[0]) }}
}

var functions = map[string]function{
	"sqrt":  unary(math.Sqrt),
	"sin":   unary(math.Sin),
	"cos":   unary(math.Cos),
	"tan":   unary(math.Tan),
	"abs":   unary(math.Abs),
	"floor": unary(math.Floor),
	"ceil":  unary(math.Ceil),
	"round": unary(func(x float64) float64 { return math.Floor(x + 0.5) }),
	"log":   unary(math.Log),
	"exp":   unary(math.Exp),
	"pow":   {2, 2, func(a []float64) float64 { return math.Pow(a[0], a[1]) }},
	"max": {1, -1, func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Max(m, v)
		}
		return m
	}},
	"min": {1, -1, func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Min(m, v)
		}
		return m
	}},
}

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// Functions returns the supported function names.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	return names
}

// Eval parses and evaluates expr.
func Eval(expr string) (float64, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return 0, err
	}
	p := &parser{toks: toks}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	if p.peek().kind != tokEOF {
		return 0, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, p.peek().text, p.peek().pos)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotFinite
	}
	return v, nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokKind
	text string
	num  float64
	pos  int
}

func tokenize(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := rune(s[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case unicode.IsDigit(c) || c == '.':
			start := i
			for i < len(s) && (unicode.IsDigit(rune(s[i])) || s[i] == '.') {
				i++
			}
			if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
				j := i + 1
				if j < len(s) && (s[j] == '+' || s[j] == '-') {
					j++
				}
				if j < len(s) && unicode.IsDigit(rune(s[j])) {
					i = j
					for i < len(s) && unicode.IsDigit(rune(s[i])) {
						i++
					}
				}
			}
			n, err := strconv.ParseFloat(s[start:i], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrSyntax, s[start:i])
			}
			toks = append(toks, token{kind: tokNum, text: s[start:i], num: n, pos: start})
		case unicode.IsLetter(c) || c == '_':
			start := i
			for i < len(s) && (unicode.IsLetter(rune(s[i])) || unicode.IsDigit(rune(s[i])) || s[i] == '_' || s[i] == '.') {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: s[start:i], pos: start})
		case c == '*' && i+1 < len(s) && s[i+1] == '*':
			toks = append(toks, token{kind: tokOp, text: "^", pos: i})
			i += 2
		case strings.ContainsRune("+-*/%^", c):
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		default:
			return nil, fmt.Errorf("%w: unexpected character %q at offset %d", ErrSyntax, c, i)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(s)}), nil
}

type parser struct {
	toks  []token
	pos   int
	depth int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(ops ...string) bool {
	t := p.peek()
	if t.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}
	return false
}

func (p *parser) expr() (float64, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return 0, fmt.Errorf("%w: expression nested too deeply", ErrSyntax)
	}

	left, err := p.term()
	if err != nil {
		return 0, err
	}
	for p.isOp("+", "-") {
		op := p.next().text
		right, err := p.term()
		if err != nil {
			return 0, err
		}
		if op == "+" {
			left += right
		} else {
			left -= right
		}
	}
	return left, nil
}

func (p *parser) term() (float64, error) {
	left, err := p.unary()
	if err != nil {
		return 0, err
	}
	for p.isOp("*", "/", "%") {
		op := p.next().text
		right, err := p.unary()
		if err != nil {
			return 0, err
		}
		switch op {
		case "*":
			left *= right
		case "/":
			if right == 0 {
				return 0, ErrDivideByZero
			}
			left /= right
		case "%":
			if right == 0 {
				return 0, ErrDivideByZero
			}
			left = math.Mod(left, right)
		}
	}
	return left, nil
}

func (p *parser) unary() (float64, error) {
	if p.isOp("-", "+") {
		p.depth++
		defer func() { p.depth-- }()
		if p.depth > maxDepth {
			return 0, fmt.Errorf("%w: expression nested too deeply", ErrSyntax)
		}
		op := p.next().text
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		if op == "-" {
			return -v, nil
		}
		return v, nil
	}
	return p.power()
}

// power is right associative and binds tighter than unary minus on its left
// operand only: -2^2 == -4.
func (p *parser) power() (float64, error) {
	base, err := p.primary()
	if err != nil {
		return 0, err
	}
	if p.isOp("^") {
		p.depth++
		defer func() { p.depth-- }()
		if p.depth > maxDepth {
			return 0, fmt.Errorf("%w: expression nested too deeply", ErrSyntax)
		}
		p.next()
		exp, err := p.unary()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *parser) primary() (float64, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		return t.num, nil
	case tokLParen:
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if p.next().kind != tokRParen {
			return 0, fmt.Errorf("%w: missing ')'", ErrSyntax)
		}
		return v, nil
	case tokIdent:
		name := strings.ToLower(strings.TrimPrefix(t.text, "Math."))
		if p.peek().kind == tokLParen {
			return p.call(name, t)
		}
		if v, ok := constants[name]; ok {
			return v, nil
		}
		return 0, fmt.Errorf("%w: %s", ErrUnknownName, t.text)
	case tokEOF:
		return 0, fmt.Errorf("%w: unexpected end of expression", ErrSyntax)
	default:
		return 0, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, t.text, t.pos)
	}
}

func (p *parser) call(name string, t token) (float64, error) {
	f, ok := functions[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownName, t.text)
	}
	p.next() // (

	var args []float64
	if p.peek().kind != tokRParen {
		for {
			v, err := p.expr()
			if err != nil {
				return 0, err
			}
			args = append(args, v)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if p.next().kind != tokRParen {
		return 0, fmt.Errorf("%w: missing ')' after arguments to %s", ErrSyntax, name)
	}
	if len(args) < f.minArgs || (f.maxArgs >= 0 && len(args) > f.maxArgs) {
		return 0, fmt.Errorf("%w: %s takes %d, got %d", ErrArity, name, f.minArgs, len(args))
	}
	return f.fn(args), nil
}
