package tsemitter

import (
	"log/slog"

	genspec "github.com/mark3labs/schema2ts/internal/spec"
	"github.com/mark3labs/schema2ts/internal/tsdecl"
)

// operationResult is the outcome of emitting one operation: a signature, or
// the diagnostics that prevented it.
type operationResult struct {
	method      *tsdecl.MethodSignature
	diagnostics []genspec.Diagnostic
}

// emitOperation resolves op's bindings and renders its method signature. A
// non-nil error is fatal for the pass; diagnostics are not.
func (e *emitter) emitOperation(op *genspec.Operation) (operationResult, error) {
	var diags []genspec.Diagnostic

	params, pd := e.prog.OperationParameters(op)
	diags = append(diags, pd...)
	responses, rd := e.prog.ResponsesForOperation(op)
	diags = append(diags, rd...)
	if len(diags) > 0 {
		return operationResult{diagnostics: diags}, nil
	}

	method := &tsdecl.MethodSignature{Name: op.Name}
	if hasBoundParameters(params) {
		req, err := e.emitRequest(params)
		if err != nil {
			return operationResult{}, err
		}
		method.Params = []tsdecl.Parameter{{
			Name:     "params",
			Optional: allParametersOptional(params),
			Type:     req,
		}}
	}

	ret := &tsdecl.UnionType{Types: make([]tsdecl.TypeExpr, 0, len(responses))}
	for _, resp := range responses {
		t, err := e.emitResponse(resp)
		if err != nil {
			return operationResult{}, err
		}
		ret.Types = append(ret.Types, t)
	}
	method.Return = ret

	return operationResult{method: method}, nil
}

func hasBoundParameters(params *genspec.HttpParameters) bool {
	if params == nil {
		return false
	}
	if params.Body != nil {
		return true
	}
	for _, p := range params.Parameters {
		switch p.Kind {
		case genspec.HeaderParam, genspec.PathParam, genspec.QueryParam:
			return true
		}
	}
	return false
}

// allParametersOptional reports whether the request can be omitted entirely:
// no body and only optional header/path/query parameters.
func allParametersOptional(params *genspec.HttpParameters) bool {
	if params.Body != nil {
		return false
	}
	for _, p := range params.Parameters {
		if p.Kind == genspec.CookieParam {
			continue
		}
		if p.Property == nil || !p.Property.Optional {
			return false
		}
	}
	return true
}

// emitOperations folds over ops, attempting every operation before reporting.
// Operations with diagnostics contribute no member.
func (e *emitter) emitOperations(ops []*genspec.Operation) (*tsdecl.Interface, []genspec.Diagnostic, error) {
	decl := &tsdecl.Interface{Name: operationsName, Members: make([]tsdecl.Member, 0, len(ops))}
	var diags []genspec.Diagnostic
	for _, op := range ops {
		res, err := e.emitOperation(op)
		if err != nil {
			return nil, nil, err
		}
		if len(res.diagnostics) > 0 {
			e.logger.Debug("operation has diagnostics", slog.String("operation", op.Name), slog.Int("count", len(res.diagnostics)))
			for _, d := range res.diagnostics {
				if d.Target == "" {
					d.Target = op.Name
				}
				diags = append(diags, d)
			}
			continue
		}
		decl.Members = append(decl.Members, res.method)
	}
	return decl, diags, nil
}
