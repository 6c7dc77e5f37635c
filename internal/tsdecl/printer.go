package tsdecl

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

const indentUnit = "    "

// Print writes decls as .d.ts statements in the given order.
func Print(w io.Writer, decls []Decl) error {
	_, err := io.WriteString(w, Sprint(decls))
	return err
}

// Sprint returns the printed form of decls.
func Sprint(decls []Decl) string {
	p := &printer{}
	for _, d := range decls {
		p.decl(d, 0)
	}
	return p.b.String()
}

// TypeString returns the printed form of t.
func TypeString(t TypeExpr) string {
	p := &printer{}
	p.typ(t, 0)
	return p.b.String()
}

type printer struct {
	b strings.Builder
}

func (p *printer) line(depth int, s string) {
	p.b.WriteString(strings.Repeat(indentUnit, depth))
	p.b.WriteString(s)
	p.b.WriteByte('\n')
}

func (p *printer) decl(d Decl, depth int) {
	switch d := d.(type) {
	case *Interface:
		head := "export interface " + d.Name
		if d.Extends != "" {
			head += " extends " + d.Extends
		}
		p.line(depth, head+" {")
		p.members(d.Members, depth+1)
		p.line(depth, "}")
	case *TypeAlias:
		p.b.WriteString(strings.Repeat(indentUnit, depth))
		p.b.WriteString("export type " + d.Name + " = ")
		p.typ(d.Type, depth)
		p.b.WriteString(";\n")
	case *Module:
		p.line(depth, "export namespace "+d.Name+" {")
		for _, inner := range d.Body {
			p.decl(inner, depth+1)
		}
		p.line(depth, "}")
	default:
		panic(fmt.Sprintf("tsdecl: unknown declaration %T", d))
	}
}

func (p *printer) members(ms []Member, depth int) {
	for _, m := range ms {
		p.b.WriteString(strings.Repeat(indentUnit, depth))
		switch m := m.(type) {
		case *PropertySignature:
			p.b.WriteString(propertyName(m.Name, m.Quoted))
			if m.Optional {
				p.b.WriteByte('?')
			}
			p.b.WriteString(": ")
			p.typ(m.Type, depth)
		case *MethodSignature:
			p.b.WriteString(m.Name)
			p.b.WriteByte('(')
			for i, param := range m.Params {
				if i > 0 {
					p.b.WriteString(", ")
				}
				p.b.WriteString(param.Name)
				if param.Optional {
					p.b.WriteByte('?')
				}
				p.b.WriteString(": ")
				p.typ(param.Type, depth)
			}
			p.b.WriteString("): ")
			p.typ(m.Return, depth)
		default:
			panic(fmt.Sprintf("tsdecl: unknown member %T", m))
		}
		p.b.WriteString(";\n")
	}
}

func (p *printer) typ(t TypeExpr, depth int) {
	switch t := t.(type) {
	case Keyword:
		p.b.WriteString(string(t))
	case *StringLiteral:
		p.b.WriteString(quote(t.Value))
	case *NumberLiteral:
		p.b.WriteString(t.Text)
	case *BooleanLiteral:
		p.b.WriteString(strconv.FormatBool(t.Value))
	case *TypeRef:
		p.b.WriteString(t.Name)
	case *UnionType:
		switch len(t.Types) {
		case 0:
			p.b.WriteString(string(Never))
		default:
			for i, v := range t.Types {
				if i > 0 {
					p.b.WriteString(" | ")
				}
				p.typ(v, depth)
			}
		}
	case *ArrayType:
		if needsParens(t.Elem) {
			p.b.WriteByte('(')
			p.typ(t.Elem, depth)
			p.b.WriteByte(')')
		} else {
			p.typ(t.Elem, depth)
		}
		p.b.WriteString("[]")
	case *IndexedAccess:
		p.typ(t.Object, depth)
		p.b.WriteByte('[')
		p.typ(t.Index, depth)
		p.b.WriteByte(']')
	case *TypeLiteral:
		if len(t.Members) == 0 {
			p.b.WriteString("{}")
			return
		}
		p.b.WriteString("{\n")
		p.members(t.Members, depth+1)
		p.b.WriteString(strings.Repeat(indentUnit, depth))
		p.b.WriteByte('}')
	default:
		panic(fmt.Sprintf("tsdecl: unknown type %T", t))
	}
}

func needsParens(t TypeExpr) bool {
	u, ok := t.(*UnionType)
	return ok && len(u.Types) > 1
}

func propertyName(name string, quoted bool) string {
	if quoted || !isIdentifier(name) {
		return quote(name)
	}
	return name
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '$' || r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
