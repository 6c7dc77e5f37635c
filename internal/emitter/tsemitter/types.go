package tsemitter

import (
	"strconv"

	genspec "github.com/mark3labs/schema2ts/internal/spec"
	"github.com/mark3labs/schema2ts/internal/tsdecl"
)

func (e *emitter) emitType(t genspec.Type) (tsdecl.TypeExpr, error) {
	switch t := t.(type) {
	case *genspec.Literal:
		return emitLiteralType(t), nil
	case *genspec.Scalar:
		return emitScalarType(t)
	case *genspec.Union:
		return e.emitUnionType(t)
	case *genspec.Model:
		if t.IsArray() {
			elem, err := e.emitType(t.ElementType)
			if err != nil {
				return nil, err
			}
			return &tsdecl.ArrayType{Elem: elem}, nil
		}
		return &tsdecl.TypeRef{Name: t.Name}, nil
	case nil:
		return nil, &UnsupportedTypeError{Kind: "nil"}
	default:
		return nil, &UnsupportedTypeError{Kind: t.Kind(), Name: typeName(t)}
	}
}

func emitLiteralType(t *genspec.Literal) tsdecl.TypeExpr {
	switch t.LiteralKind {
	case genspec.NumberLiteral:
		return &tsdecl.NumberLiteral{Text: strconv.FormatFloat(t.Number, 'f', -1, 64)}
	case genspec.BooleanLiteral:
		return &tsdecl.BooleanLiteral{Value: t.Boolean}
	default:
		return &tsdecl.StringLiteral{Value: t.String}
	}
}

func emitScalarType(t *genspec.Scalar) (tsdecl.TypeExpr, error) {
	for t.BaseScalar != nil {
		t = t.BaseScalar
	}
	if t.Namespace != genspec.BuiltinNamespace {
		return nil, &UnsupportedScalarError{Name: t.Name, Namespace: t.Namespace}
	}
	switch t.Name {
	case "string":
		return tsdecl.String, nil
	case "numeric":
		return tsdecl.Number, nil
	case "boolean":
		return tsdecl.Boolean, nil
	default:
		return nil, &UnsupportedScalarError{Name: t.Name, Namespace: t.Namespace}
	}
}

func (e *emitter) emitUnionType(t *genspec.Union) (tsdecl.TypeExpr, error) {
	out := &tsdecl.UnionType{Types: make([]tsdecl.TypeExpr, 0, len(t.Variants))}
	for _, v := range t.Variants {
		vt, err := e.emitType(v)
		if err != nil {
			return nil, err
		}
		out.Types = append(out.Types, vt)
	}
	return out, nil
}

func typeName(t genspec.Type) string {
	switch t := t.(type) {
	case *genspec.Enum:
		return t.Name
	case *genspec.Intrinsic:
		return t.Name
	}
	return ""
}
