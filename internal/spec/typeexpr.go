package spec

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// typeExpr is a parsed type expression from a graph document:
//
//	string | int32 | Pet | Pet[] | Ns.Pet | "text" | 42 | true | A | B | (A | B)[]
type typeExpr interface {
	String() string
}

type refExpr struct{ Name string } // possibly dotted

type arrayExpr struct{ Elem typeExpr }

type unionExpr struct{ Variants []typeExpr }

type literalExpr struct{ Lit *Literal }

func (r *refExpr) String() string   { return r.Name }
func (a *arrayExpr) String() string { return a.Elem.String() + "[]" }
func (u *unionExpr) String() string {
	parts := make([]string, len(u.Variants))
	for i, v := range u.Variants {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, " | ") + ")"
}
func (l *literalExpr) String() string {
	switch l.Lit.LiteralKind {
	case StringLiteral:
		return strconv.Quote(l.Lit.String)
	case BooleanLiteral:
		return strconv.FormatBool(l.Lit.Boolean)
	default:
		return strconv.FormatFloat(l.Lit.Number, 'f', -1, 64)
	}
}

// parseTypeExpr parses src. Union binds loosest, the [] suffix tightest.
func parseTypeExpr(src string) (typeExpr, error) {
	p := &exprParser{src: src}
	p.skipSpace()
	if p.eof() {
		return nil, fmt.Errorf("empty type expression")
	}
	e, err := p.union()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return e, nil
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) eof() bool { return p.pos >= len(p.src) }

func (p *exprParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) skipSpace() {
	for !p.eof() && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("type expression %q at offset %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *exprParser) union() (typeExpr, error) {
	first, err := p.postfix()
	if err != nil {
		return nil, err
	}
	variants := []typeExpr{first}
	for {
		p.skipSpace()
		if p.peek() != '|' {
			break
		}
		p.pos++
		next, err := p.postfix()
		if err != nil {
			return nil, err
		}
		variants = append(variants, next)
	}
	if len(variants) == 1 {
		return first, nil
	}
	return &unionExpr{Variants: variants}, nil
}

func (p *exprParser) postfix() (typeExpr, error) {
	e, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if !strings.HasPrefix(p.src[p.pos:], "[]") {
			return e, nil
		}
		p.pos += 2
		e = &arrayExpr{Elem: e}
	}
}

func (p *exprParser) primary() (typeExpr, error) {
	p.skipSpace()
	c := p.peek()
	switch {
	case c == '(':
		p.pos++
		e, err := p.union()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return nil, p.errorf("expected )")
		}
		p.pos++
		return e, nil
	case c == '"':
		return p.stringLiteral()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.numberLiteral()
	case c == '_' || c == '$' || unicode.IsLetter(rune(c)):
		return p.reference()
	case c == 0:
		return nil, p.errorf("unexpected end")
	default:
		return nil, p.errorf("unexpected %q", string(c))
	}
}

func (p *exprParser) stringLiteral() (typeExpr, error) {
	start := p.pos
	p.pos++
	for !p.eof() {
		switch p.src[p.pos] {
		case '\\':
			p.pos += 2
			continue
		case '"':
			p.pos++
			s, err := strconv.Unquote(p.src[start:p.pos])
			if err != nil {
				return nil, p.errorf("bad string literal: %v", err)
			}
			return &literalExpr{Lit: &Literal{LiteralKind: StringLiteral, String: s}}, nil
		}
		p.pos++
	}
	return nil, p.errorf("unterminated string literal")
}

func (p *exprParser) numberLiteral() (typeExpr, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for !p.eof() {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		break
	}
	n, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return nil, p.errorf("bad number %q", p.src[start:p.pos])
	}
	return &literalExpr{Lit: &Literal{LiteralKind: NumberLiteral, Number: n}}, nil
}

func (p *exprParser) reference() (typeExpr, error) {
	start := p.pos
	for !p.eof() {
		c := rune(p.src[p.pos])
		if c == '_' || c == '$' || c == '.' || unicode.IsLetter(c) || unicode.IsDigit(c) {
			p.pos++
			continue
		}
		break
	}
	name := p.src[start:p.pos]
	if strings.HasSuffix(name, ".") || strings.Contains(name, "..") {
		return nil, p.errorf("bad qualified name %q", name)
	}
	switch name {
	case "true", "false":
		return &literalExpr{Lit: &Literal{LiteralKind: BooleanLiteral, Boolean: name == "true"}}, nil
	}
	return &refExpr{Name: name}, nil
}
