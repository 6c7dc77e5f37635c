package spec

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed graph.schema.json
var graphSchemaJSON []byte

var compileGraphSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(graphSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal graph schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("graph.schema.json", doc); err != nil {
		return nil, fmt.Errorf("add graph schema resource: %w", err)
	}
	return c.Compile("graph.schema.json")
})

// graphDocument is the on-disk form of a schema graph.
type graphDocument struct {
	Emit       []string       `yaml:"emit"`
	Namespaces []namespaceDoc `yaml:"namespaces"`
}

type namespaceDoc struct {
	Name       string         `yaml:"name"`
	Emit       bool           `yaml:"emit"`
	Scalars    []scalarDoc    `yaml:"scalars"`
	Models     []modelDoc     `yaml:"models"`
	Enums      []enumDoc      `yaml:"enums"`
	Unions     []unionDoc     `yaml:"unions"`
	Operations []operationDoc `yaml:"operations"`
	Namespaces []namespaceDoc `yaml:"namespaces"`
}

type scalarDoc struct {
	Name    string `yaml:"name"`
	Extends string `yaml:"extends"`
}

type modelDoc struct {
	Name       string        `yaml:"name"`
	Extends    string        `yaml:"extends"`
	Is         string        `yaml:"is"`
	Properties []propertyDoc `yaml:"properties"`
}

type propertyDoc struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional"`
	BodyRoot bool   `yaml:"bodyRoot"`
	Metadata bool   `yaml:"metadata"`
}

type enumDoc struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

type unionDoc struct {
	Name     string   `yaml:"name"`
	Variants []string `yaml:"variants"`
}

type operationDoc struct {
	Name        string          `yaml:"name"`
	Route       *routeDoc       `yaml:"route"`
	Parameters  []parameterDoc  `yaml:"parameters"`
	Body        string          `yaml:"body"`
	Responses   []responseDoc   `yaml:"responses"`
	Diagnostics []diagnosticDoc `yaml:"diagnostics"`
}

type routeDoc struct {
	Path string `yaml:"path"`
	Verb string `yaml:"verb"`
}

type parameterDoc struct {
	In       string `yaml:"in"`
	Name     string `yaml:"name"`
	Property string `yaml:"property"`
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional"`
}

type responseDoc struct {
	Status   statusDoc    `yaml:"status"`
	Contents []contentDoc `yaml:"contents"`
}

type contentDoc struct {
	Headers      []headerDoc `yaml:"headers"`
	ContentTypes []string    `yaml:"contentTypes"`
	Body         string      `yaml:"body"`
}

type headerDoc struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional"`
}

type diagnosticDoc struct {
	Code     string `yaml:"code"`
	Severity string `yaml:"severity"`
	Message  string `yaml:"message"`
}

// statusDoc accepts 200, "2XX", "default", "*" or {start: 200, end: 300}.
type statusDoc struct {
	StatusCodes
}

func (s *statusDoc) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "*" {
			s.StatusCodes = AnyStatus()
			return nil
		}
		sc, ok := ParseStatusCode(node.Value)
		if !ok {
			return fmt.Errorf("line %d: invalid status %q", node.Line, node.Value)
		}
		s.StatusCodes = sc
		return nil
	case yaml.MappingNode:
		var r struct {
			Start int `yaml:"start"`
			End   int `yaml:"end"`
		}
		if err := node.Decode(&r); err != nil {
			return err
		}
		s.StatusCodes = StatusRange(r.Start, r.End)
		return nil
	default:
		return fmt.Errorf("line %d: status must be a code, range string or {start, end}", node.Line)
	}
}

// LoadGraph reads a schema graph document (YAML or JSON) from a file path or
// http(s) URL, validates its structure and resolves it into a Program.
func LoadGraph(ctx context.Context, input string, opts ...Option) (*Program, error) {
	settings := resolveSettings(opts)
	src, err := readInput(ctx, input, settings)
	if err != nil {
		return nil, err
	}
	return parseGraph(src, settings)
}

// ParseGraph resolves an in-memory graph document. location is used in
// error messages only.
func ParseGraph(data []byte, location string) (*Program, error) {
	return parseGraph(&source{raw: data, location: location}, resolveSettings(nil))
}

func parseGraph(src *source, settings Settings) (*Program, error) {
	if err := validateGraph(src); err != nil {
		return nil, err
	}
	var doc graphDocument
	if err := yaml.Unmarshal(src.raw, &doc); err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("decode graph document: %v", err), Location: src.location, Cause: err}
	}
	prog, err := newGraphResolver(settings.Logger).resolve(&doc)
	if err != nil {
		var se *SpecError
		if errors.As(err, &se) {
			se.Location = src.location
			return nil, se
		}
		return nil, &SpecError{Code: ResolveError, Message: err.Error(), Location: src.location, Cause: err}
	}
	return prog, nil
}

// validateGraph checks the document against the embedded JSON Schema. YAML
// is converted to JSON first so both syntaxes validate identically.
func validateGraph(src *source) error {
	var generic any
	if err := yaml.Unmarshal(src.raw, &generic); err != nil {
		return &SpecError{Code: ParseError, Message: fmt.Sprintf("parse graph document: %v", err), Location: src.location, Cause: err}
	}
	asJSON, err := json.Marshal(generic)
	if err != nil {
		return &SpecError{Code: ParseError, Message: fmt.Sprintf("graph document is not JSON-compatible: %v", err), Location: src.location, Cause: err}
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(asJSON))
	if err != nil {
		return &SpecError{Code: ParseError, Message: err.Error(), Location: src.location, Cause: err}
	}
	sch, err := compileGraphSchema()
	if err != nil {
		return fmt.Errorf("graph schema: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		se := &SpecError{Code: ValidationError, Message: fmt.Sprintf("invalid graph document: %v", err), Location: src.location, Cause: err}
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			se.JSONPointer = instancePointer(ve)
		}
		return se
	}
	return nil
}

// instancePointer returns the location of the deepest first cause.
func instancePointer(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return "#/" + strings.Join(ve.InstanceLocation, "/")
}

// graphResolver turns a decoded document into a Program in two phases:
// declare every named type, then resolve type expressions against the
// declarations.
type graphResolver struct {
	logger   *slog.Logger
	builtins map[string]*Scalar
	root     *Namespace
	symbols  map[*Namespace]map[string]Type
}

func newGraphResolver(logger *slog.Logger) *graphResolver {
	return &graphResolver{
		logger:   logger,
		builtins: BuiltinScalars(),
		root:     &Namespace{},
		symbols:  make(map[*Namespace]map[string]Type),
	}
}

type declared struct {
	ns  *Namespace
	doc *namespaceDoc
}

func (r *graphResolver) resolve(doc *graphDocument) (*Program, error) {
	var order []declared
	var declare func(parent *Namespace, docs []namespaceDoc) error
	declare = func(parent *Namespace, docs []namespaceDoc) error {
		for i := range docs {
			d := &docs[i]
			ns := r.child(parent, d.Name)
			if err := r.declareTypes(ns, d); err != nil {
				return err
			}
			order = append(order, declared{ns: ns, doc: d})
			if err := declare(ns, d.Namespaces); err != nil {
				return err
			}
		}
		return nil
	}
	if err := declare(r.root, doc.Namespaces); err != nil {
		return nil, err
	}

	for _, d := range order {
		if err := r.resolveNamespace(d.ns, d.doc); err != nil {
			return nil, fmt.Errorf("namespace %s: %w", d.ns.QualifiedName(), err)
		}
	}

	prog := &Program{Root: r.root}
	seen := map[string]bool{}
	register := func(name string) {
		if !seen[name] {
			seen[name] = true
			prog.Registered = append(prog.Registered, name)
		}
	}
	for _, name := range doc.Emit {
		if _, ok := prog.FindNamespace(name); !ok {
			return nil, &SpecError{Code: ResolveError, Message: fmt.Sprintf("emit: unknown namespace %q", name)}
		}
		register(name)
	}
	for _, d := range order {
		if d.doc.Emit {
			register(d.ns.QualifiedName())
		}
	}
	r.logger.Debug("resolved graph document", slog.Int("namespaces", len(order)), slog.Any("registered", prog.Registered))
	return prog, nil
}

// child returns the child namespace of parent called name, creating it when
// absent so repeated blocks for one namespace merge.
func (r *graphResolver) child(parent *Namespace, name string) *Namespace {
	for _, c := range parent.Namespaces {
		if c.Name == name {
			return c
		}
	}
	ns := &Namespace{Name: name, Parent: parent}
	parent.Namespaces = append(parent.Namespaces, ns)
	r.symbols[ns] = make(map[string]Type)
	return ns
}

func (r *graphResolver) define(ns *Namespace, name string, t Type) error {
	if _, dup := r.symbols[ns][name]; dup {
		return &SpecError{Code: ResolveError, Message: fmt.Sprintf("namespace %s: duplicate declaration %q", ns.QualifiedName(), name)}
	}
	r.symbols[ns][name] = t
	return nil
}

func (r *graphResolver) declareTypes(ns *Namespace, d *namespaceDoc) error {
	for _, s := range d.Scalars {
		sc := &Scalar{Name: s.Name, Namespace: ns.QualifiedName()}
		if err := r.define(ns, s.Name, sc); err != nil {
			return err
		}
		ns.Scalars = append(ns.Scalars, sc)
	}
	for _, m := range d.Models {
		model := &Model{Name: m.Name, Namespace: ns.QualifiedName()}
		if err := r.define(ns, m.Name, model); err != nil {
			return err
		}
		ns.Models = append(ns.Models, model)
	}
	for _, e := range d.Enums {
		if err := r.define(ns, e.Name, &Enum{Name: e.Name, Members: append([]string(nil), e.Members...)}); err != nil {
			return err
		}
	}
	for _, u := range d.Unions {
		if err := r.define(ns, u.Name, &Union{}); err != nil {
			return err
		}
	}
	return nil
}

func (r *graphResolver) resolveNamespace(ns *Namespace, d *namespaceDoc) error {
	for _, s := range d.Scalars {
		if s.Extends == "" {
			continue
		}
		sc := r.symbols[ns][s.Name].(*Scalar)
		base, err := r.lookup(ns, s.Extends)
		if err != nil {
			return fmt.Errorf("scalar %s: %w", s.Name, err)
		}
		bs, ok := base.(*Scalar)
		if !ok {
			return fmt.Errorf("scalar %s: %s is not a scalar", s.Name, s.Extends)
		}
		for b := bs; b != nil; b = b.BaseScalar {
			if b == sc {
				return fmt.Errorf("scalar %s: circular extends", s.Name)
			}
		}
		sc.BaseScalar = bs
	}

	for _, u := range d.Unions {
		union := r.symbols[ns][u.Name].(*Union)
		for _, v := range u.Variants {
			t, err := r.typeOf(ns, v)
			if err != nil {
				return fmt.Errorf("union %s: %w", u.Name, err)
			}
			union.Variants = append(union.Variants, t)
		}
	}

	for _, m := range d.Models {
		if err := r.resolveModel(ns, m); err != nil {
			return fmt.Errorf("model %s: %w", m.Name, err)
		}
	}

	for _, o := range d.Operations {
		op, err := r.resolveOperation(ns, o)
		if err != nil {
			return fmt.Errorf("operation %s: %w", o.Name, err)
		}
		ns.Operations = append(ns.Operations, op)
	}
	return nil
}

func (r *graphResolver) resolveModel(ns *Namespace, d modelDoc) error {
	m := r.symbols[ns][d.Name].(*Model)
	if d.Extends != "" {
		base, err := r.lookup(ns, d.Extends)
		if err != nil {
			return err
		}
		bm, ok := base.(*Model)
		if !ok || bm.IsArray() {
			return fmt.Errorf("extends %s: not a model", d.Extends)
		}
		if bm == m {
			return fmt.Errorf("extends itself")
		}
		m.BaseModel = bm
	}
	if d.Is != "" {
		t, err := r.typeOf(ns, d.Is)
		if err != nil {
			return err
		}
		src, ok := t.(*Model)
		if !ok {
			return fmt.Errorf("is %s: not a model or array", d.Is)
		}
		m.SourceModels = append(m.SourceModels, SourceModel{Model: src, Usage: "is"})
	}
	seen := map[string]bool{}
	for _, p := range d.Properties {
		if seen[p.Name] {
			return fmt.Errorf("duplicate property %q", p.Name)
		}
		seen[p.Name] = true
		t, err := r.typeOf(ns, p.Type)
		if err != nil {
			return fmt.Errorf("property %s: %w", p.Name, err)
		}
		m.Properties = append(m.Properties, &ModelProperty{
			Name:     p.Name,
			Type:     t,
			Optional: p.Optional,
			BodyRoot: p.BodyRoot,
			Metadata: p.Metadata,
		})
	}
	return nil
}

func (r *graphResolver) resolveOperation(ns *Namespace, d operationDoc) (*Operation, error) {
	op := &Operation{Name: d.Name}
	if d.Route != nil {
		op.Route = &Route{Path: d.Route.Path, Verb: HttpVerb(d.Route.Verb)}
	}

	if len(d.Parameters) > 0 || d.Body != "" {
		op.Parameters = &HttpParameters{}
	}
	for _, p := range d.Parameters {
		t, err := r.typeOf(ns, p.Type)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		propName := p.Property
		if propName == "" {
			propName = p.Name
		}
		op.Parameters.Parameters = append(op.Parameters.Parameters, HttpParameter{
			Kind:     ParameterKind(p.In),
			Name:     p.Name,
			Property: &ModelProperty{Name: propName, Type: t, Optional: p.Optional, Metadata: true},
		})
	}
	if d.Body != "" {
		t, err := r.typeOf(ns, d.Body)
		if err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
		op.Parameters.Body = &HttpBody{Type: t}
	}

	for i, resp := range d.Responses {
		out := HttpResponse{StatusCodes: resp.Status.StatusCodes}
		for _, c := range resp.Contents {
			content, err := r.resolveContent(ns, c)
			if err != nil {
				return nil, fmt.Errorf("response %d: %w", i, err)
			}
			out.Responses = append(out.Responses, content)
		}
		op.Responses = append(op.Responses, out)
	}

	for _, diag := range d.Diagnostics {
		op.Diagnostics = append(op.Diagnostics, Diagnostic{
			Code:     diag.Code,
			Severity: Severity(diag.Severity),
			Message:  diag.Message,
			Target:   qualifiedMember(ns, d.Name),
		})
	}
	return op, nil
}

func (r *graphResolver) resolveContent(ns *Namespace, d contentDoc) (HttpResponseContent, error) {
	var out HttpResponseContent
	for _, h := range d.Headers {
		t, err := r.typeOf(ns, h.Type)
		if err != nil {
			return out, fmt.Errorf("header %s: %w", h.Name, err)
		}
		out.Headers = append(out.Headers, NamedProperty{
			Name:     h.Name,
			Property: &ModelProperty{Name: h.Name, Type: t, Optional: h.Optional, Metadata: true},
		})
	}
	if d.Body != "" {
		t, err := r.typeOf(ns, d.Body)
		if err != nil {
			return out, fmt.Errorf("body: %w", err)
		}
		types := d.ContentTypes
		if len(types) == 0 {
			types = []string{"application/json"}
		}
		out.Body = &HttpResponseBody{ContentTypes: append([]string(nil), types...), Type: t}
	}
	return out, nil
}

func qualifiedMember(ns *Namespace, name string) string {
	if q := ns.QualifiedName(); q != "" {
		return q + "." + name
	}
	return name
}

// typeOf parses and resolves a type expression in the scope of ns.
func (r *graphResolver) typeOf(ns *Namespace, src string) (Type, error) {
	e, err := parseTypeExpr(src)
	if err != nil {
		return nil, err
	}
	return r.build(ns, e)
}

func (r *graphResolver) build(ns *Namespace, e typeExpr) (Type, error) {
	switch e := e.(type) {
	case *literalExpr:
		lit := *e.Lit
		return &lit, nil
	case *arrayExpr:
		elem, err := r.build(ns, e.Elem)
		if err != nil {
			return nil, err
		}
		return ArrayOf(elem), nil
	case *unionExpr:
		u := &Union{Variants: make([]Type, 0, len(e.Variants))}
		for _, v := range e.Variants {
			t, err := r.build(ns, v)
			if err != nil {
				return nil, err
			}
			u.Variants = append(u.Variants, t)
		}
		return u, nil
	case *refExpr:
		return r.lookup(ns, e.Name)
	default:
		return nil, fmt.Errorf("unexpected expression %T", e)
	}
}

// lookup resolves a possibly qualified name. Unqualified names search ns and
// its ancestors, then the builtins; qualified names are taken from the root.
// A TypeSpec. prefix selects a builtin explicitly.
func (r *graphResolver) lookup(ns *Namespace, name string) (Type, error) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		prefix, local := name[:i], name[i+1:]
		if prefix == BuiltinNamespace {
			if s, ok := r.builtins[local]; ok {
				return s, nil
			}
			return nil, fmt.Errorf("unknown builtin %q", local)
		}
		target, ok := (&Program{Root: r.root}).FindNamespace(prefix)
		if !ok || target == r.root {
			return nil, fmt.Errorf("unknown namespace %q", prefix)
		}
		if t, ok := r.symbols[target][local]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("unknown type %q", name)
	}
	for n := ns; n != nil; n = n.Parent {
		if t, ok := r.symbols[n][name]; ok {
			return t, nil
		}
	}
	if s, ok := r.builtins[name]; ok {
		return s, nil
	}
	if name == "null" || name == "void" || name == "unknown" || name == "never" {
		return &Intrinsic{Name: name}, nil
	}
	return nil, fmt.Errorf("unknown type %q", name)
}
