// Package tsdecl models the subset of TypeScript declarations the emitter
// produces and prints them as a .d.ts source file.
package tsdecl

// Decl is a top-level or module-level declaration.
type Decl interface{ isDecl() }

// Interface is `export interface Name extends Extends { Members }`.
type Interface struct {
	Name    string
	Extends string
	Members []Member
}

// TypeAlias is `export type Name = Type;`.
type TypeAlias struct {
	Name string
	Type TypeExpr
}

// Module is `export namespace Name { Body }`.
type Module struct {
	Name string
	Body []Decl
}

func (*Interface) isDecl() {}
func (*TypeAlias) isDecl() {}
func (*Module) isDecl()    {}

// TypeExpr is a type expression.
type TypeExpr interface{ isTypeExpr() }

// Keyword is a primitive type keyword.
type Keyword string

const (
	String  Keyword = "string"
	Number  Keyword = "number"
	Boolean Keyword = "boolean"
	Never   Keyword = "never"
)

// StringLiteral is a single-value string type.
type StringLiteral struct{ Value string }

// NumberLiteral is a single-value number type. Text is the literal as written.
type NumberLiteral struct{ Text string }

// BooleanLiteral is `true` or `false`.
type BooleanLiteral struct{ Value bool }

// UnionType is `A | B | ...`. An empty union has no inhabitants.
type UnionType struct{ Types []TypeExpr }

// ArrayType is `Elem[]`.
type ArrayType struct{ Elem TypeExpr }

// TypeRef references a declaration by name.
type TypeRef struct{ Name string }

// IndexedAccess is `Object[Index]`.
type IndexedAccess struct {
	Object TypeExpr
	Index  TypeExpr
}

// TypeLiteral is an object type `{ Members }`.
type TypeLiteral struct{ Members []Member }

func (Keyword) isTypeExpr()         {}
func (*StringLiteral) isTypeExpr()  {}
func (*NumberLiteral) isTypeExpr()  {}
func (*BooleanLiteral) isTypeExpr() {}
func (*UnionType) isTypeExpr()      {}
func (*ArrayType) isTypeExpr()      {}
func (*TypeRef) isTypeExpr()        {}
func (*IndexedAccess) isTypeExpr()  {}
func (*TypeLiteral) isTypeExpr()    {}

// Member is a member of an interface or object type.
type Member interface{ isMember() }

// PropertySignature is `name?: Type;`. Quoted names print as string literals.
type PropertySignature struct {
	Name     string
	Quoted   bool
	Optional bool
	Type     TypeExpr
}

// Parameter is a method parameter.
type Parameter struct {
	Name     string
	Optional bool
	Type     TypeExpr
}

// MethodSignature is `name(params): Return;`.
type MethodSignature struct {
	Name   string
	Params []Parameter
	Return TypeExpr
}

func (*PropertySignature) isMember() {}
func (*MethodSignature) isMember()   {}

// Lookup returns the member named name, or nil.
func Lookup(members []Member, name string) Member {
	for _, m := range members {
		switch m := m.(type) {
		case *PropertySignature:
			if m.Name == name {
				return m
			}
		case *MethodSignature:
			if m.Name == name {
				return m
			}
		}
	}
	return nil
}
