package spec

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/getkin/kin-openapi/openapi3"
)

const schemaRefPrefix = "#/components/schemas/"

// BuildOption configures how a Program is built from an OpenAPI doc.
type BuildOption func(*buildConfig)

type buildConfig struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[HttpVerb]struct{}
	pathRes     []*regexp.Regexp
	namespace   string
	logger      *slog.Logger
	order       *documentOrder
}

// WithIncludeTags keeps only operations that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
	return func(c *buildConfig) { c.includeTags = addTags(c.includeTags, tags) }
}

// WithExcludeTags removes operations that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
	return func(c *buildConfig) { c.excludeTags = addTags(c.excludeTags, tags) }
}

func addTags(set map[string]struct{}, tags []string) map[string]struct{} {
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if set == nil {
			set = make(map[string]struct{}, len(tags))
		}
		set[t] = struct{}{}
	}
	return set
}

// WithMethods keeps only operations using one of the provided verbs.
func WithMethods(verbs []HttpVerb) BuildOption {
	return func(c *buildConfig) {
		for _, v := range verbs {
			if c.methods == nil {
				c.methods = make(map[HttpVerb]struct{}, len(verbs))
			}
			c.methods[HttpVerb(strings.ToLower(string(v)))] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only operations whose path matches at least one of
// the provided regular expressions. An invalid pattern matches nothing.
func WithPathPatterns(patterns []string) BuildOption {
	return func(c *buildConfig) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				re = regexp.MustCompile("a^$")
			}
			c.pathRes = append(c.pathRes, re)
		}
	}
}

// WithNamespace names the namespace the document is imported into. The
// default is derived from info.title.
func WithNamespace(name string) BuildOption {
	return func(c *buildConfig) { c.namespace = strings.TrimSpace(name) }
}

// WithSourceOrder makes the import follow the key order of raw, the document
// bytes doc was loaded from, for paths, component schemas and properties.
// Without it those are imported in sorted order.
func WithSourceOrder(raw []byte) BuildOption {
	return func(c *buildConfig) { c.order = readDocumentOrder(raw) }
}

// WithBuildLogger sets the logger used while importing.
func WithBuildLogger(l *slog.Logger) BuildOption {
	return func(c *buildConfig) { c.logger = l }
}

// importer converts one OpenAPI v3 document into a single-namespace Program.
type importer struct {
	doc      *openapi3.T
	cfg      *buildConfig
	ns       *Namespace
	builtins map[string]*Scalar
	logger   *slog.Logger

	named   map[string]Type // component schema name -> declared type
	taken   map[string]bool // declared model and scalar names
	opNames map[string]bool
}

// BuildProgram converts an OpenAPI v3 document into a Program with one
// registered namespace. components.schemas become models, scalars and unions;
// each path operation becomes an Operation with its HTTP bindings. Inline
// object schemas are hoisted into synthesized models. Problems confined to a
// single operation (cookie parameters, unparseable status codes) are recorded
// as operation diagnostics; unresolvable schema references fail the build.
func BuildProgram(ctx context.Context, doc *openapi3.T, opts ...BuildOption) (*Program, error) {
	_ = ctx
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}

	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	name := cfg.namespace
	if name == "" {
		name = namespaceFromTitle(docTitle(doc))
	}
	root := &Namespace{}
	ns := &Namespace{Name: name, Parent: root}
	root.Namespaces = []*Namespace{ns}

	im := &importer{
		doc:      doc,
		cfg:      cfg,
		ns:       ns,
		builtins: BuiltinScalars(),
		logger:   logger.With("component", "openapi-import"),
		named:    make(map[string]Type),
		taken:    make(map[string]bool),
		opNames:  make(map[string]bool),
	}
	if err := im.importSchemas(); err != nil {
		return nil, err
	}
	if err := im.importPaths(); err != nil {
		return nil, err
	}
	im.logger.Debug("imported document",
		slog.String("namespace", name),
		slog.Int("models", len(ns.Models)),
		slog.Int("operations", len(ns.Operations)))

	return &Program{Root: root, Registered: []string{name}}, nil
}

func docTitle(doc *openapi3.T) string {
	if doc.Info == nil {
		return ""
	}
	return doc.Info.Title
}

func namespaceFromTitle(title string) string {
	if n := pascalCase(title); n != "" {
		return n
	}
	return "Api"
}

func (im *importer) componentSchemas() openapi3.Schemas {
	if im.doc.Components == nil {
		return nil
	}
	return im.doc.Components.Schemas
}

// importSchemas runs in two phases: every component is declared first so
// references resolve regardless of order (including cycles), then bodies
// are filled in.
func (im *importer) importSchemas() error {
	schemas := im.componentSchemas()
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	names = inOrder(names, im.cfg.order.schemaOrder())

	for _, name := range names {
		ref := schemas[name]
		if ref == nil || ref.Ref != "" || ref.Value == nil {
			continue
		}
		im.declare(name, ref.Value)
	}
	for _, name := range names {
		ref := schemas[name]
		if ref == nil || ref.Ref != "" || ref.Value == nil {
			continue
		}
		if err := im.fill(name, ref.Value); err != nil {
			return &SpecError{Code: ConversionError, Message: fmt.Sprintf("schema %s: %v", name, err), JSONPointer: schemaRefPrefix + name, Cause: err}
		}
	}
	return nil
}

func (im *importer) declare(name string, s *openapi3.Schema) {
	switch {
	case len(s.OneOf) > 0 || len(s.AnyOf) > 0 || len(s.Enum) > 0:
		im.named[name] = &Union{}
	case isPrimitive(s.Type):
		sc := &Scalar{Name: im.uniqueName(name), Namespace: im.ns.Name, BaseScalar: im.primitive(s)}
		im.ns.Scalars = append(im.ns.Scalars, sc)
		im.named[name] = sc
	default:
		m := &Model{Name: im.uniqueName(name), Namespace: im.ns.Name}
		im.ns.Models = append(im.ns.Models, m)
		im.named[name] = m
	}
}

func (im *importer) fill(name string, s *openapi3.Schema) error {
	switch t := im.named[name].(type) {
	case *Union:
		variants, err := im.unionVariants(s, t, pascalCase(name))
		if err != nil {
			return err
		}
		t.Variants = variants
	case *Model:
		if s.Type == "array" {
			elem, err := im.schemaType(s.Items, t.Name+"Item")
			if err != nil {
				return err
			}
			t.SourceModels = []SourceModel{{Model: ArrayOf(elem), Usage: "is"}}
			return nil
		}
		return im.fillModel(t, s, im.cfg.order.propertyOrder(name))
	}
	return nil
}

func (im *importer) unionVariants(s *openapi3.Schema, self *Union, hint string) ([]Type, error) {
	if len(s.Enum) > 0 {
		return enumLiterals(s.Enum)
	}
	refs := s.OneOf
	if len(refs) == 0 {
		refs = s.AnyOf
	}
	out := make([]Type, 0, len(refs))
	for i, r := range refs {
		t, err := im.schemaType(r, hint+"Option"+strconv.Itoa(i+1))
		if err != nil {
			return nil, err
		}
		if t == Type(self) {
			return nil, fmt.Errorf("union refers to itself")
		}
		out = append(out, t)
	}
	return out, nil
}

func enumLiterals(values []any) ([]Type, error) {
	out := make([]Type, 0, len(values))
	for _, v := range values {
		switch v := v.(type) {
		case nil:
			continue
		case string:
			out = append(out, &Literal{LiteralKind: StringLiteral, String: v})
		case bool:
			out = append(out, &Literal{LiteralKind: BooleanLiteral, Boolean: v})
		case float64:
			out = append(out, &Literal{LiteralKind: NumberLiteral, Number: v})
		case int:
			out = append(out, &Literal{LiteralKind: NumberLiteral, Number: float64(v)})
		default:
			return nil, fmt.Errorf("unsupported enum value %v (%T)", v, v)
		}
	}
	return out, nil
}

// fillModel resolves properties and allOf composition. The first referenced
// allOf member becomes the base model; later members contribute their
// properties.
func (im *importer) fillModel(m *Model, s *openapi3.Schema, order []string) error {
	props := map[string]*openapi3.SchemaRef{}
	required := map[string]bool{}
	collect := func(s *openapi3.Schema) {
		for name, p := range s.Properties {
			props[name] = p
		}
		for _, r := range s.Required {
			required[r] = true
		}
	}
	collect(s)

	for _, part := range s.AllOf {
		if part == nil {
			continue
		}
		if part.Ref == "" {
			if part.Value != nil {
				collect(part.Value)
			}
			continue
		}
		t, err := im.lookup(part.Ref)
		if err != nil {
			return err
		}
		base, ok := t.(*Model)
		if !ok {
			return fmt.Errorf("allOf member %s is not an object schema", part.Ref)
		}
		if m.BaseModel == nil {
			m.BaseModel = base
			continue
		}
		m.SourceModels = append(m.SourceModels, SourceModel{Model: base, Usage: "spread"})
		if part.Value != nil {
			collect(part.Value)
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	for _, name := range inOrder(names, order) {
		t, err := im.schemaType(props[name], m.Name+pascalCase(name))
		if err != nil {
			return fmt.Errorf("property %s: %w", name, err)
		}
		m.Properties = append(m.Properties, &ModelProperty{Name: name, Type: t, Optional: !required[name]})
	}
	return nil
}

// lookup resolves a components.schemas reference, following alias entries.
func (im *importer) lookup(ref string) (Type, error) {
	for i := 0; i < 8; i++ {
		name, ok := strings.CutPrefix(ref, schemaRefPrefix)
		if !ok {
			return nil, fmt.Errorf("unsupported reference %q", ref)
		}
		if t, ok := im.named[name]; ok {
			return t, nil
		}
		target := im.componentSchemas()[name]
		if target == nil || target.Ref == "" {
			return nil, fmt.Errorf("unresolved reference %q", ref)
		}
		ref = target.Ref
	}
	return nil, fmt.Errorf("reference chain too deep at %q", ref)
}

// schemaType maps a schema to a graph type. hint names a hoisted model when
// the schema is an inline object.
func (im *importer) schemaType(ref *openapi3.SchemaRef, hint string) (Type, error) {
	if ref == nil {
		return nil, fmt.Errorf("missing schema")
	}
	if ref.Ref != "" {
		return im.lookup(ref.Ref)
	}
	s := ref.Value
	if s == nil {
		return nil, fmt.Errorf("empty schema")
	}

	if len(s.OneOf) > 0 || len(s.AnyOf) > 0 || len(s.Enum) > 0 {
		u := &Union{}
		variants, err := im.unionVariants(s, u, hint)
		if err != nil {
			return nil, err
		}
		u.Variants = variants
		return u, nil
	}

	switch {
	case s.Type == "array":
		elem, err := im.schemaType(s.Items, hint+"Item")
		if err != nil {
			return nil, err
		}
		return ArrayOf(elem), nil
	case isPrimitive(s.Type):
		return im.primitive(s), nil
	case s.Type == "object" || len(s.Properties) > 0 || len(s.AllOf) > 0:
		return im.hoist(s, hint)
	default:
		return &Intrinsic{Name: "unknown"}, nil
	}
}

func (im *importer) hoist(s *openapi3.Schema, hint string) (*Model, error) {
	m := &Model{Name: im.uniqueName(hint), Namespace: im.ns.Name}
	im.ns.Models = append(im.ns.Models, m)
	im.logger.Debug("hoisted inline schema", slog.String("model", m.Name))
	if err := im.fillModel(m, s, nil); err != nil {
		return nil, err
	}
	return m, nil
}

func isPrimitive(t string) bool {
	switch t {
	case "string", "integer", "number", "boolean":
		return true
	}
	return false
}

// primitive picks the builtin scalar for a primitive schema. String formats
// other than uri travel as plain strings.
func (im *importer) primitive(s *openapi3.Schema) *Scalar {
	switch s.Type {
	case "integer":
		switch s.Format {
		case "int32", "int64":
			return im.builtins[s.Format]
		}
		return im.builtins["integer"]
	case "number":
		switch s.Format {
		case "float":
			return im.builtins["float32"]
		case "double":
			return im.builtins["float64"]
		}
		return im.builtins["numeric"]
	case "boolean":
		return im.builtins["boolean"]
	default:
		switch s.Format {
		case "uri", "url":
			return im.builtins["url"]
		}
		return im.builtins["string"]
	}
}

func (im *importer) uniqueName(hint string) string {
	base := pascalCase(hint)
	if base == "" {
		base = "Anonymous"
	}
	name := base
	for i := 2; im.taken[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	im.taken[name] = true
	return name
}

var verbOrder = []HttpVerb{GET, POST, PUT, DELETE, PATCH, HEAD}

func pathOperation(item *openapi3.PathItem, v HttpVerb) *openapi3.Operation {
	switch v {
	case GET:
		return item.Get
	case POST:
		return item.Post
	case PUT:
		return item.Put
	case DELETE:
		return item.Delete
	case PATCH:
		return item.Patch
	case HEAD:
		return item.Head
	}
	return nil
}

func (im *importer) importPaths() error {
	if im.doc.Paths == nil {
		return nil
	}
	paths := make([]string, 0, len(im.doc.Paths))
	for p := range im.doc.Paths {
		paths = append(paths, p)
	}
	paths = inOrder(paths, im.cfg.order.pathOrder())

	for _, p := range paths {
		item := im.doc.Paths[p]
		if item == nil {
			continue
		}
		if item.Options != nil || item.Trace != nil {
			im.logger.Debug("skipping unsupported verbs", slog.String("path", p))
		}
		for _, verb := range verbOrder {
			op := pathOperation(item, verb)
			if op == nil || !im.allow(p, verb, op) {
				continue
			}
			operation, err := im.importOperation(p, verb, item.Parameters, op)
			if err != nil {
				return &SpecError{Code: ConversionError, Message: fmt.Sprintf("%s %s: %v", strings.ToUpper(string(verb)), p, err), JSONPointer: "#/paths/" + escapePointer(p) + "/" + string(verb), Cause: err}
			}
			im.ns.Operations = append(im.ns.Operations, operation)
		}
	}
	return nil
}

func (im *importer) allow(path string, verb HttpVerb, op *openapi3.Operation) bool {
	if len(im.cfg.methods) > 0 {
		if _, ok := im.cfg.methods[verb]; !ok {
			return false
		}
	}
	if len(im.cfg.pathRes) > 0 {
		matched := false
		for _, re := range im.cfg.pathRes {
			if re.MatchString(path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	tags := make([]string, 0, len(op.Tags))
	for _, t := range op.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return allowByTags(tags, im.cfg)
}

func allowByTags(tags []string, cfg *buildConfig) bool {
	if len(cfg.includeTags) > 0 {
		ok := false
		for _, t := range tags {
			if _, yes := cfg.includeTags[t]; yes {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, t := range tags {
		if _, blocked := cfg.excludeTags[t]; blocked {
			return false
		}
	}
	return true
}

func (im *importer) importOperation(path string, verb HttpVerb, shared openapi3.Parameters, op *openapi3.Operation) (*Operation, error) {
	name := im.operationName(op.OperationID, verb, path)
	out := &Operation{
		Name:       name,
		Route:      &Route{Path: path, Verb: verb},
		Parameters: &HttpParameters{},
	}

	// Path-level parameters first, overridden by operation-level ones.
	merged := map[string]*openapi3.Parameter{}
	for _, list := range []openapi3.Parameters{shared, op.Parameters} {
		for _, pref := range list {
			if pref == nil || pref.Value == nil {
				continue
			}
			merged[pref.Value.In+":"+pref.Value.Name] = pref.Value
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p := merged[k]
		kind := ParameterKind(strings.ToLower(p.In))
		if kind == CookieParam {
			out.Diagnostics = append(out.Diagnostics, Diagnostic{
				Code:     "parameter-unsupported-location",
				Severity: SeverityError,
				Message:  fmt.Sprintf("cookie parameter %q cannot be expressed in the request shape", p.Name),
			})
			continue
		}
		typ, err := im.parameterType(p, name+pascalCase(p.Name))
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		out.Parameters.Parameters = append(out.Parameters.Parameters, HttpParameter{
			Kind:     kind,
			Name:     p.Name,
			Property: &ModelProperty{Name: p.Name, Type: typ, Optional: !p.Required && kind != PathParam, Metadata: true},
		})
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if media := preferredMedia(op.RequestBody.Value.Content); media != nil && media.Schema != nil {
			typ, err := im.schemaType(media.Schema, name+"Request")
			if err != nil {
				return nil, fmt.Errorf("request body: %w", err)
			}
			out.Parameters.Body = &HttpBody{Type: typ}
		}
	}

	responses, diags, err := im.importResponses(name, op.Responses)
	if err != nil {
		return nil, err
	}
	out.Responses = responses
	out.Diagnostics = append(out.Diagnostics, diags...)
	return out, nil
}

func (im *importer) parameterType(p *openapi3.Parameter, hint string) (Type, error) {
	if p.Schema != nil {
		return im.schemaType(p.Schema, hint)
	}
	if media := preferredMedia(p.Content); media != nil && media.Schema != nil {
		return im.schemaType(media.Schema, hint)
	}
	return im.builtins["string"], nil
}

// preferredMedia picks application/json when present, else the first media
// type in lexical order.
func preferredMedia(content openapi3.Content) *openapi3.MediaType {
	if len(content) == 0 {
		return nil
	}
	if mt, ok := content["application/json"]; ok {
		return mt
	}
	keys := sortedMediaTypes(content)
	return content[keys[0]]
}

func sortedMediaTypes(content openapi3.Content) []string {
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (im *importer) importResponses(opName string, responses openapi3.Responses) ([]HttpResponse, []Diagnostic, error) {
	codes := make([]string, 0, len(responses))
	for code := range responses {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var out []HttpResponse
	var diags []Diagnostic
	for _, code := range codes {
		rref := responses[code]
		if rref == nil || rref.Value == nil {
			continue
		}
		sc, ok := ParseStatusCode(code)
		if !ok {
			diags = append(diags, Diagnostic{
				Code:     "response-invalid-status",
				Severity: SeverityError,
				Message:  fmt.Sprintf("status code %q is not a code, an NXX range or default", code),
			})
			continue
		}
		resp, err := im.importResponse(opName+"Response"+strings.ToUpper(code), rref.Value)
		if err != nil {
			return nil, nil, fmt.Errorf("response %s: %w", code, err)
		}
		resp.StatusCodes = sc
		out = append(out, resp)
	}
	return out, diags, nil
}

func (im *importer) importResponse(hint string, r *openapi3.Response) (HttpResponse, error) {
	var headers []NamedProperty
	names := make([]string, 0, len(r.Headers))
	for name := range r.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h := r.Headers[name]
		if h == nil || h.Value == nil {
			continue
		}
		typ, err := im.parameterType(&h.Value.Parameter, hint+pascalCase(name)+"Header")
		if err != nil {
			return HttpResponse{}, fmt.Errorf("header %s: %w", name, err)
		}
		headers = append(headers, NamedProperty{
			Name:     name,
			Property: &ModelProperty{Name: name, Type: typ, Optional: !h.Value.Required, Metadata: true},
		})
	}

	// Media types sharing one schema collapse into a single content variant.
	var contents []HttpResponseContent
	index := map[*openapi3.SchemaRef]int{}
	byRef := map[string]int{}
	for _, mime := range sortedMediaTypes(r.Content) {
		mt := r.Content[mime]
		if mt == nil || mt.Schema == nil {
			continue
		}
		i, seen := index[mt.Schema]
		if mt.Schema.Ref != "" {
			i, seen = byRef[mt.Schema.Ref]
		}
		if seen {
			contents[i].Body.ContentTypes = append(contents[i].Body.ContentTypes, mime)
			continue
		}
		typ, err := im.schemaType(mt.Schema, hint)
		if err != nil {
			return HttpResponse{}, err
		}
		contents = append(contents, HttpResponseContent{
			Headers: headers,
			Body:    &HttpResponseBody{ContentTypes: []string{mime}, Type: typ},
		})
		index[mt.Schema] = len(contents) - 1
		if mt.Schema.Ref != "" {
			byRef[mt.Schema.Ref] = len(contents) - 1
		}
	}
	if len(contents) == 0 {
		contents = []HttpResponseContent{{Headers: headers}}
	}
	return HttpResponse{Responses: contents}, nil
}

// ParseStatusCode parses an OpenAPI response key: a three-digit code, an
// NXX range covering [N00, (N+1)00), or "default".
func ParseStatusCode(key string) (StatusCodes, bool) {
	key = strings.TrimSpace(key)
	if strings.EqualFold(key, "default") {
		return AnyStatus(), true
	}
	if len(key) != 3 {
		return StatusCodes{}, false
	}
	if n, err := strconv.Atoi(key); err == nil {
		if n < 100 || n > 599 {
			return StatusCodes{}, false
		}
		return SingleStatus(n), true
	}
	if strings.EqualFold(key[1:], "XX") && key[0] >= '1' && key[0] <= '5' {
		n := int(key[0]-'0') * 100
		return StatusRange(n, n+100), true
	}
	return StatusCodes{}, false
}

func (im *importer) operationName(operationID string, verb HttpVerb, path string) string {
	base := identifier(operationID)
	if base == "" {
		base = camelCase(string(verb) + " " + strings.NewReplacer("{", "", "}", "").Replace(path))
	}
	name := base
	for i := 2; im.opNames[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	im.opNames[name] = true
	return name
}

// identifier keeps the letters, digits, '_' and '$' of s, prefixing '_' when
// the result would start with a digit.
func identifier(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out != "" && unicode.IsDigit(rune(out[0])) {
		out = "_" + out
	}
	return out
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func pascalCase(s string) string {
	var b strings.Builder
	for _, w := range words(s) {
		r, size := utf8.DecodeRuneInString(w)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(w[size:])
	}
	return identifier(b.String())
}

func camelCase(s string) string {
	p := pascalCase(s)
	if p == "" || p[0] == '_' {
		return p
	}
	return strings.ToLower(p[:1]) + p[1:]
}

func escapePointer(s string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}
