package tsemitter

import (
	genspec "github.com/mark3labs/schema2ts/internal/spec"
	"github.com/mark3labs/schema2ts/internal/tsdecl"
)

// emitModelProperty renders prop under name (the wire name for parameters,
// the declared name otherwise).
func (e *emitter) emitModelProperty(prop *genspec.ModelProperty, name string) (*tsdecl.PropertySignature, error) {
	if name == "" {
		name = prop.Name
	}
	t, err := e.emitType(prop.Type)
	if err != nil {
		return nil, err
	}
	return &tsdecl.PropertySignature{Name: name, Quoted: true, Optional: prop.Optional, Type: t}, nil
}

// emitModel returns nil for models that are only response envelopes.
func (e *emitter) emitModel(m *genspec.Model, suppressed map[*genspec.Model]bool) (tsdecl.Decl, error) {
	if suppressed[m] {
		return nil, nil
	}

	for _, src := range m.SourceModels {
		if src.Usage != "is" || src.Model == nil {
			continue
		}
		var target tsdecl.TypeExpr
		if src.Model.IsArray() {
			elem, err := e.emitType(src.Model.ElementType)
			if err != nil {
				return nil, err
			}
			target = &tsdecl.ArrayType{Elem: elem}
		} else {
			target = &tsdecl.TypeRef{Name: src.Model.Name}
		}
		return &tsdecl.TypeAlias{Name: m.Name, Type: target}, nil
	}

	decl := &tsdecl.Interface{Name: m.Name, Members: make([]tsdecl.Member, 0, len(m.Properties))}
	if m.BaseModel != nil {
		decl.Extends = m.BaseModel.Name
	}
	for _, prop := range m.Properties {
		member, err := e.emitModelProperty(prop, "")
		if err != nil {
			return nil, err
		}
		decl.Members = append(decl.Members, member)
	}
	return decl, nil
}
