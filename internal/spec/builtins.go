package spec

// builtinScalarBases lists the standard scalars with their base scalar, in
// dependency order so a base is always declared before its extensions.
var builtinScalarBases = []struct{ name, base string }{
	{"string", ""},
	{"numeric", ""},
	{"boolean", ""},
	{"bytes", ""},
	{"plainDate", ""},
	{"plainTime", ""},
	{"utcDateTime", ""},
	{"offsetDateTime", ""},
	{"duration", ""},
	{"url", "string"},
	{"integer", "numeric"},
	{"float", "numeric"},
	{"decimal", "numeric"},
	{"decimal128", "decimal"},
	{"int64", "integer"},
	{"int32", "int64"},
	{"int16", "int32"},
	{"int8", "int16"},
	{"safeint", "int64"},
	{"uint64", "integer"},
	{"uint32", "uint64"},
	{"uint16", "uint32"},
	{"uint8", "uint16"},
	{"float64", "float"},
	{"float32", "float64"},
}

// BuiltinScalars returns a fresh set of the standard scalars keyed by name.
// Each call allocates new nodes so separate passes never share graph state.
func BuiltinScalars() map[string]*Scalar {
	out := make(map[string]*Scalar, len(builtinScalarBases))
	for _, b := range builtinScalarBases {
		s := &Scalar{Name: b.name, Namespace: BuiltinNamespace}
		if b.base != "" {
			s.BaseScalar = out[b.base]
		}
		out[b.name] = s
	}
	return out
}

// ArrayOf returns the builtin array model instantiated with elem.
func ArrayOf(elem Type) *Model {
	return &Model{Name: "Array", Namespace: BuiltinNamespace, ElementType: elem}
}
