package tsemitter

import (
	"strconv"

	genspec "github.com/mark3labs/schema2ts/internal/spec"
	"github.com/mark3labs/schema2ts/internal/tsdecl"
)

// Member names of the request/response shapes. Routing adapters extract
// shapes by these names.
const (
	headerGroup     = "$header"
	pathGroup       = "$path"
	queryGroup      = "$query"
	bodyMember      = "$body"
	statusMember    = "$statusCode"
	contentMember   = "$content"
	headersMember   = "$headers"
	contentTypeName = "$contentType"

	operationsName = "$operations"
	pathsName      = "$paths"
)

// canonicalStatusCodes is the ordered list status-code ranges expand over.
var canonicalStatusCodes = [...]int{
	100, 101, 102, 103,
	200, 201, 202, 203, 204, 205, 206, 207,
	300, 301, 302, 303, 304, 305, 307, 308,
	400, 401, 402, 403, 404, 405, 406, 407, 408, 409, 410, 411, 412, 413, 414, 415, 416, 417, 418, 419, 420,
	421, 422, 423, 424, 426, 428, 429, 431, 451,
	500, 501, 502, 503, 504, 505, 507, 511,
}

func statusIndex(code int) int {
	for i, c := range canonicalStatusCodes {
		if c == code {
			return i
		}
	}
	return -1
}

// enumerateStatusCodes expands [start, end) over the canonical list. Bounds
// outside the list yield no codes.
func enumerateStatusCodes(start, end int) []int {
	from, to := statusIndex(start), statusIndex(end)
	if from < 0 || to < 0 {
		return nil
	}
	var out []int
	for i := from; i < to; i++ {
		out = append(out, canonicalStatusCodes[i])
	}
	return out
}

func emitStatusCodeType(sc genspec.StatusCodes) tsdecl.TypeExpr {
	switch {
	case sc.Wildcard:
		return tsdecl.Number
	case sc.IsRange:
		codes := enumerateStatusCodes(sc.Start, sc.End)
		u := &tsdecl.UnionType{Types: make([]tsdecl.TypeExpr, 0, len(codes))}
		for _, c := range codes {
			u.Types = append(u.Types, numberLiteral(c))
		}
		return u
	default:
		return numberLiteral(sc.Code)
	}
}

func numberLiteral(n int) *tsdecl.NumberLiteral {
	return &tsdecl.NumberLiteral{Text: strconv.Itoa(n)}
}

func (e *emitter) emitResponseContentType(content genspec.HttpResponseContent) (tsdecl.TypeExpr, error) {
	out := &tsdecl.TypeLiteral{}
	if len(content.Headers) > 0 {
		headers := &tsdecl.TypeLiteral{}
		for _, h := range content.Headers {
			member, err := e.emitModelProperty(h.Property, h.Name)
			if err != nil {
				return nil, err
			}
			headers.Members = append(headers.Members, member)
		}
		out.Members = append(out.Members, &tsdecl.PropertySignature{Name: headersMember, Type: headers})
	}
	if content.Body != nil {
		ct := &tsdecl.UnionType{}
		for _, mime := range content.Body.ContentTypes {
			ct.Types = append(ct.Types, &tsdecl.StringLiteral{Value: mime})
		}
		body, err := e.emitType(content.Body.Type)
		if err != nil {
			return nil, err
		}
		out.Members = append(out.Members,
			&tsdecl.PropertySignature{Name: contentTypeName, Type: ct},
			&tsdecl.PropertySignature{Name: bodyMember, Type: body},
		)
	}
	return out, nil
}

// emitResponse renders one response as { $statusCode; $content }.
func (e *emitter) emitResponse(resp genspec.HttpResponse) (tsdecl.TypeExpr, error) {
	content := &tsdecl.UnionType{Types: make([]tsdecl.TypeExpr, 0, len(resp.Responses))}
	for _, c := range resp.Responses {
		t, err := e.emitResponseContentType(c)
		if err != nil {
			return nil, err
		}
		content.Types = append(content.Types, t)
	}
	return &tsdecl.TypeLiteral{Members: []tsdecl.Member{
		&tsdecl.PropertySignature{Name: statusMember, Type: emitStatusCodeType(resp.StatusCodes)},
		&tsdecl.PropertySignature{Name: contentMember, Type: content},
	}}, nil
}

// isResponseModel reports whether m is an envelope: any property carries the
// body-root or metadata marker.
func (e *emitter) isResponseModel(m *genspec.Model) bool {
	for _, prop := range m.Properties {
		if e.prog.IsMetadata(prop) || e.prog.IsBodyRoot(prop) {
			return true
		}
	}
	return false
}

// emitRequest renders the bound parameters as { $header?, $path?, $query?, $body? },
// each group present only when non-empty.
func (e *emitter) emitRequest(req *genspec.HttpParameters) (*tsdecl.TypeLiteral, error) {
	out := &tsdecl.TypeLiteral{}
	groups := []struct {
		kind genspec.ParameterKind
		name string
	}{
		{genspec.HeaderParam, headerGroup},
		{genspec.PathParam, pathGroup},
		{genspec.QueryParam, queryGroup},
	}
	for _, g := range groups {
		group := &tsdecl.TypeLiteral{}
		for _, p := range req.Parameters {
			if p.Kind != g.kind {
				continue
			}
			member, err := e.emitModelProperty(p.Property, p.Name)
			if err != nil {
				return nil, err
			}
			group.Members = append(group.Members, member)
		}
		if len(group.Members) > 0 {
			out.Members = append(out.Members, &tsdecl.PropertySignature{Name: g.name, Type: group})
		}
	}
	if req.Body != nil {
		body, err := e.emitType(req.Body.Type)
		if err != nil {
			return nil, err
		}
		out.Members = append(out.Members, &tsdecl.PropertySignature{Name: bodyMember, Type: body})
	}
	return out, nil
}

// emitPaths builds the route table. Each verb entry is an indexed access into
// $operations so request/response shapes are declared once.
func (e *emitter) emitPaths(ops []*genspec.Operation) *tsdecl.Interface {
	var order []string
	paths := map[string]*tsdecl.TypeLiteral{}
	for _, op := range ops {
		path, ok := e.prog.RoutePath(op)
		if !ok {
			continue
		}
		verb, ok := e.prog.OperationVerb(op)
		if !ok {
			continue
		}
		methods, seen := paths[path]
		if !seen {
			methods = &tsdecl.TypeLiteral{}
			paths[path] = methods
			order = append(order, path)
		}
		methods.Members = append(methods.Members, &tsdecl.PropertySignature{
			Name: string(verb),
			Type: &tsdecl.IndexedAccess{
				Object: &tsdecl.TypeRef{Name: operationsName},
				Index:  &tsdecl.StringLiteral{Value: op.Name},
			},
		})
	}

	decl := &tsdecl.Interface{Name: pathsName, Members: make([]tsdecl.Member, 0, len(order))}
	for _, path := range order {
		decl.Members = append(decl.Members, &tsdecl.PropertySignature{Name: path, Quoted: true, Type: paths[path]})
	}
	return decl
}
