package tsemitter

import (
	"fmt"
	"io"
	"log/slog"

	genspec "github.com/mark3labs/schema2ts/internal/spec"
	"github.com/mark3labs/schema2ts/internal/tsdecl"
)

// Resolver is the set of lookups the emitter needs from the upstream schema
// compiler. *spec.Program implements it.
type Resolver interface {
	RoutePath(op *genspec.Operation) (string, bool)
	OperationVerb(op *genspec.Operation) (genspec.HttpVerb, bool)
	OperationParameters(op *genspec.Operation) (*genspec.HttpParameters, []genspec.Diagnostic)
	ResponsesForOperation(op *genspec.Operation) ([]genspec.HttpResponse, []genspec.Diagnostic)
	IsBodyRoot(prop *genspec.ModelProperty) bool
	IsMetadata(prop *genspec.ModelProperty) bool
}

// PassOptions tunes a single emission pass.
type PassOptions struct {
	// WrapNamespaces nests each registered namespace's declarations in a
	// module named after it instead of emitting them at the top level.
	WrapNamespaces bool
	Logger         *slog.Logger
}

// emitter holds the state of one pass. It is not reused across passes.
type emitter struct {
	prog        Resolver
	logger      *slog.Logger
	diagnostics []genspec.Diagnostic
}

func newEmitter(prog Resolver, logger *slog.Logger) *emitter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &emitter{prog: prog, logger: logger.With("component", "tsemitter")}
}

// EmitProgram emits every registered namespace of prog, in registration
// order, as one flat declaration sequence. registered holds qualified
// namespace names; a name seen twice is emitted once. If any operation
// reported diagnostics the whole pass fails with a *DiagnosticsError after all
// operations have been attempted.
func EmitProgram(prog *genspec.Program, registered []string, opts PassOptions) ([]tsdecl.Decl, error) {
	if prog == nil || prog.Root == nil {
		return nil, fmt.Errorf("tsemitter: nil program")
	}
	namespaces := make([]*genspec.Namespace, 0, len(registered))
	seen := make(map[*genspec.Namespace]bool, len(registered))
	for _, name := range registered {
		ns, ok := prog.FindNamespace(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, name)
		}
		if !seen[ns] {
			seen[ns] = true
			namespaces = append(namespaces, ns)
		}
	}

	e := newEmitter(prog, opts.Logger)
	var out []tsdecl.Decl
	for _, ns := range namespaces {
		e.logger.Debug("emitting namespace", slog.String("namespace", ns.QualifiedName()))
		decls, err := e.emitAll(ns)
		if err != nil {
			return nil, err
		}
		if opts.WrapNamespaces {
			out = append(out, &tsdecl.Module{Name: moduleName(ns), Body: decls})
		} else {
			out = append(out, decls...)
		}
	}

	if len(e.diagnostics) > 0 {
		return nil, &DiagnosticsError{Diagnostics: e.diagnostics}
	}
	return out, nil
}

func moduleName(ns *genspec.Namespace) string {
	if ns.Name != "" {
		return ns.Name
	}
	return "Global"
}

func (e *emitter) emitNamespace(ns *genspec.Namespace) (*tsdecl.Module, error) {
	body, err := e.emitAll(ns)
	if err != nil {
		return nil, err
	}
	return &tsdecl.Module{Name: ns.Name, Body: body}, nil
}

// emitAll returns, in order: one module per child namespace, the standalone
// models, the operation table, and the route table.
func (e *emitter) emitAll(ns *genspec.Namespace) ([]tsdecl.Decl, error) {
	out := make([]tsdecl.Decl, 0, len(ns.Namespaces)+len(ns.Models)+2)
	for _, child := range ns.Namespaces {
		mod, err := e.emitNamespace(child)
		if err != nil {
			return nil, err
		}
		out = append(out, mod)
	}

	suppressed := e.responseModels(ns.Models)
	for _, m := range ns.Models {
		decl, err := e.emitModel(m, suppressed)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", qualify(ns, m.Name), err)
		}
		if decl != nil {
			out = append(out, decl)
		}
	}

	ops, diags, err := e.emitOperations(ns.Operations)
	if err != nil {
		return nil, fmt.Errorf("namespace %s: %w", qualifiedOrGlobal(ns), err)
	}
	e.diagnostics = append(e.diagnostics, diags...)
	out = append(out, ops, e.emitPaths(ns.Operations))
	return out, nil
}

// responseModels computes the set of models suppressed from standalone
// emission.
func (e *emitter) responseModels(models []*genspec.Model) map[*genspec.Model]bool {
	set := make(map[*genspec.Model]bool)
	for _, m := range models {
		if e.isResponseModel(m) {
			e.logger.Debug("suppressing response envelope", slog.String("model", m.Name))
			set[m] = true
		}
	}
	return set
}

func qualify(ns *genspec.Namespace, name string) string {
	q := ns.QualifiedName()
	if q == "" {
		return name
	}
	return q + "." + name
}

func qualifiedOrGlobal(ns *genspec.Namespace) string {
	if q := ns.QualifiedName(); q != "" {
		return q
	}
	return "global"
}
