package spec

// Schema graph definitions consumed by the emitters. A Program is built once
// per pass by a loader and treated as immutable afterwards.

import (
	"strconv"
	"strings"
)

// BuiltinNamespace is the namespace that owns the standard scalars.
const BuiltinNamespace = "TypeSpec"

// TypeKind names the variant carried by a Type.
type TypeKind string

const (
	KindLiteral   TypeKind = "Literal"
	KindScalar    TypeKind = "Scalar"
	KindUnion     TypeKind = "Union"
	KindModel     TypeKind = "Model"
	KindEnum      TypeKind = "Enum"
	KindIntrinsic TypeKind = "Intrinsic"
)

// Type is a node of the schema type graph. The set of implementations is
// closed; consumers switch on the concrete type.
type Type interface {
	Kind() TypeKind
	isType()
}

// LiteralKind tells which field of a Literal holds the value.
type LiteralKind string

const (
	StringLiteral  LiteralKind = "string"
	NumberLiteral  LiteralKind = "number"
	BooleanLiteral LiteralKind = "boolean"
)

// Literal is a single-value type.
type Literal struct {
	LiteralKind LiteralKind
	String      string
	Number      float64
	Boolean     bool
}

// Scalar is a named primitive. BaseScalar is nil only for root scalars.
type Scalar struct {
	Name       string
	Namespace  string
	BaseScalar *Scalar
}

// Union is an ordered set of variants.
type Union struct {
	Variants []Type
}

// SourceModel records a model that another model was composed from, with the
// composition keyword ("is" or "spread").
type SourceModel struct {
	Model *Model
	Usage string
}

// Model is a named data model. ElementType is set for array models (T[]).
type Model struct {
	Name         string
	Namespace    string
	Properties   []*ModelProperty
	BaseModel    *Model
	SourceModels []SourceModel
	ElementType  Type
}

// ModelProperty is a member of a Model. BodyRoot and Metadata mirror the
// upstream HTTP markers (@bodyRoot, @header, @query, @path, @statusCode).
type ModelProperty struct {
	Name     string
	Type     Type
	Optional bool
	BodyRoot bool
	Metadata bool
}

// Enum exists in the graph but has no declaration counterpart.
type Enum struct {
	Name    string
	Members []string
}

// Intrinsic covers void, null, unknown, never.
type Intrinsic struct {
	Name string
}

func (*Literal) Kind() TypeKind   { return KindLiteral }
func (*Scalar) Kind() TypeKind    { return KindScalar }
func (*Union) Kind() TypeKind     { return KindUnion }
func (*Model) Kind() TypeKind     { return KindModel }
func (*Enum) Kind() TypeKind      { return KindEnum }
func (*Intrinsic) Kind() TypeKind { return KindIntrinsic }

func (*Literal) isType()   {}
func (*Scalar) isType()    {}
func (*Union) isType()     {}
func (*Model) isType()     {}
func (*Enum) isType()      {}
func (*Intrinsic) isType() {}

// IsArray reports whether m is an array-of-T model.
func (m *Model) IsArray() bool { return m != nil && m.ElementType != nil }

// Namespace is a node of the namespace tree.
type Namespace struct {
	Name       string
	Parent     *Namespace
	Namespaces []*Namespace
	Models     []*Model
	Scalars    []*Scalar
	Operations []*Operation
}

// QualifiedName joins the names from the root (excluded when unnamed) to ns.
func (ns *Namespace) QualifiedName() string {
	var parts []string
	for n := ns; n != nil; n = n.Parent {
		if n.Name == "" {
			continue
		}
		parts = append([]string{n.Name}, parts...)
	}
	return strings.Join(parts, ".")
}

// HttpVerb is a lower-case HTTP method as used in route tables.
type HttpVerb string

const (
	GET    HttpVerb = "get"
	PUT    HttpVerb = "put"
	POST   HttpVerb = "post"
	PATCH  HttpVerb = "patch"
	DELETE HttpVerb = "delete"
	HEAD   HttpVerb = "head"
)

// Route is a path template ({name} placeholders) plus a verb.
type Route struct {
	Path string
	Verb HttpVerb
}

// Operation is an HTTP-bound operation of a namespace.
type Operation struct {
	Name       string
	Route      *Route
	Parameters *HttpParameters
	Responses  []HttpResponse
	// Diagnostics are resolution problems the upstream reported for this
	// operation. They surface through the Program lookups.
	Diagnostics []Diagnostic
}

// ParameterKind is where a parameter is bound in the request.
type ParameterKind string

const (
	HeaderParam ParameterKind = "header"
	PathParam   ParameterKind = "path"
	QueryParam  ParameterKind = "query"
	CookieParam ParameterKind = "cookie"
)

// HttpParameter binds a property to a request location under a wire name.
type HttpParameter struct {
	Kind     ParameterKind
	Name     string
	Property *ModelProperty
}

// HttpBody is the bound request body.
type HttpBody struct {
	Type Type
}

// HttpParameters groups an operation's bound parameters and body.
type HttpParameters struct {
	Parameters []HttpParameter
	Body       *HttpBody
}

// StatusCodes is one of: a single code, a half-open range [Start, End), or
// the wildcard.
type StatusCodes struct {
	Wildcard bool
	Code     int
	Start    int
	End      int
	IsRange  bool
}

// SingleStatus returns the StatusCodes for one code.
func SingleStatus(code int) StatusCodes { return StatusCodes{Code: code} }

// StatusRange returns the half-open range [start, end).
func StatusRange(start, end int) StatusCodes {
	return StatusCodes{IsRange: true, Start: start, End: end}
}

// AnyStatus returns the wildcard.
func AnyStatus() StatusCodes { return StatusCodes{Wildcard: true} }

func (s StatusCodes) String() string {
	switch {
	case s.Wildcard:
		return "*"
	case s.IsRange:
		return strconv.Itoa(s.Start) + "-" + strconv.Itoa(s.End)
	default:
		return strconv.Itoa(s.Code)
	}
}

// NamedProperty is a header binding in a response.
type NamedProperty struct {
	Name     string
	Property *ModelProperty
}

// HttpResponseBody is a response body with the media types it is served as.
type HttpResponseBody struct {
	ContentTypes []string
	Type         Type
}

// HttpResponseContent is one content variant of a response.
type HttpResponseContent struct {
	Headers []NamedProperty
	Body    *HttpResponseBody
}

// HttpResponse is a status-code selector plus its content variants.
type HttpResponse struct {
	StatusCodes StatusCodes
	Responses   []HttpResponseContent
}
