// Package regex is a small regular-expression engine used to filter the
// index vocabulary. Patterns are parsed into a Tree, compiled to a Thompson
// NFA, determinized by subset construction and run as an unanchored
// substring search.
//
// Supported syntax: literal characters, '.' (any character), concatenation,
// alternation '|', repetition '*' and '+', grouping '(' ')', and the escapes
// \\ \. \* \+ \| \( \).
package regex

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/errors"
)

type Kind int

const (
	KindLiteral Kind = iota
	KindAny
	KindConcat
	KindAlt
	KindStar
)

// Tree is a parsed pattern. Literal carries Rune; Concat and Alt use Left
// and Right; Star uses Left.
type Tree struct {
	Kind        Kind
	Rune        rune
	Left, Right *Tree
}

func (t *Tree) String() string {
	switch t.Kind {
	case KindLiteral:
		if strings.ContainsRune(metachars, t.Rune) {
			return `\` + string(t.Rune)
		}
		return string(t.Rune)
	case KindAny:
		return "."
	case KindConcat:
		return t.Left.String() + t.Right.String()
	case KindAlt:
		return "(" + t.Left.String() + "|" + t.Right.String() + ")"
	case KindStar:
		return "(" + t.Left.String() + ")*"
	}
	return "?"
}

const metachars = `\.*+|()`

// Parse builds the syntax tree of pattern.
func Parse(pattern string) (*Tree, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", apperrors.ErrInvalidPattern)
	}
	p := &parser{src: []rune(pattern)}
	t, err := p.alternation()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, p.errorf("unexpected %q", p.peek())
	}
	return t, nil
}

type parser struct {
	src   []rune
	pos   int
	depth int
}

func (p *parser) done() bool { return p.pos >= len(p.src) }

func (p *parser) peek() rune { return p.src[p.pos] }

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d", apperrors.ErrInvalidPattern, fmt.Sprintf(format, args...), p.pos)
}

func (p *parser) alternation() (*Tree, error) {
	left, err := p.concatenation()
	if err != nil {
		return nil, err
	}
	for !p.done() && p.peek() == '|' {
		p.pos++
		right, err := p.concatenation()
		if err != nil {
			return nil, err
		}
		left = &Tree{Kind: KindAlt, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) concatenation() (*Tree, error) {
	var t *Tree
	for !p.done() {
		c := p.peek()
		if c == '|' || (c == ')' && p.depth > 0) {
			break
		}
		r, err := p.repetition()
		if err != nil {
			return nil, err
		}
		if t == nil {
			t = r
		} else {
			t = &Tree{Kind: KindConcat, Left: t, Right: r}
		}
	}
	if t == nil {
		return nil, p.errorf("empty alternative or group")
	}
	return t, nil
}

func (p *parser) repetition() (*Tree, error) {
	t, err := p.atom()
	if err != nil {
		return nil, err
	}
	for !p.done() {
		switch p.peek() {
		case '*':
			t = &Tree{Kind: KindStar, Left: t}
		case '+':
			t = &Tree{Kind: KindConcat, Left: t, Right: &Tree{Kind: KindStar, Left: t}}
		default:
			return t, nil
		}
		p.pos++
	}
	return t, nil
}

func (p *parser) atom() (*Tree, error) {
	c := p.peek()
	switch c {
	case '*', '+':
		return nil, p.errorf("dangling %q", c)
	case ')':
		return nil, p.errorf("unbalanced ')'")
	case '.':
		p.pos++
		return &Tree{Kind: KindAny}, nil
	case '(':
		open := p.pos
		p.pos++
		p.depth++
		t, err := p.alternation()
		if err != nil {
			return nil, err
		}
		if p.done() || p.peek() != ')' {
			p.pos = open
			return nil, p.errorf("unbalanced '('")
		}
		p.pos++
		p.depth--
		return t, nil
	case '\\':
		p.pos++
		if p.done() {
			return nil, p.errorf("trailing backslash")
		}
		e := p.peek()
		if !strings.ContainsRune(metachars, e) {
			return nil, p.errorf("unsupported escape \\%c", e)
		}
		p.pos++
		return &Tree{Kind: KindLiteral, Rune: e}, nil
	}
	p.pos++
	return &Tree{Kind: KindLiteral, Rune: c}, nil
}
