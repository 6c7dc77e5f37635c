package spec

import (
	"fmt"
	"strings"
)

// Severity of a Diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a problem reported while resolving HTTP bindings.
type Diagnostic struct {
	Code     string
	Severity Severity
	Message  string
	// Target is the qualified name of the operation or type involved.
	Target string
}

func (d Diagnostic) String() string {
	sev := d.Severity
	if sev == "" {
		sev = SeverityError
	}
	if d.Target == "" {
		return fmt.Sprintf("%s %s: %s", sev, d.Code, d.Message)
	}
	return fmt.Sprintf("%s %s: %s: %s", sev, d.Code, d.Target, d.Message)
}

// Program is one immutable snapshot of the schema graph together with the
// namespaces the input selected for emission.
type Program struct {
	Root *Namespace
	// Registered lists qualified namespace names opted into emission by the
	// input document. Callers may pass a different set to the emitter.
	Registered []string
}

// FindNamespace resolves a dotted qualified name against the tree.
func (p *Program) FindNamespace(qualified string) (*Namespace, bool) {
	if p == nil || p.Root == nil {
		return nil, false
	}
	qualified = strings.TrimSpace(qualified)
	if qualified == "" || qualified == p.Root.QualifiedName() {
		return p.Root, true
	}
	ns := p.Root
	for _, part := range strings.Split(qualified, ".") {
		var next *Namespace
		for _, child := range ns.Namespaces {
			if child.Name == part {
				next = child
				break
			}
		}
		if next == nil {
			return nil, false
		}
		ns = next
	}
	return ns, true
}

// RoutePath returns the route path of op, if it has one.
func (p *Program) RoutePath(op *Operation) (string, bool) {
	if op == nil || op.Route == nil || op.Route.Path == "" {
		return "", false
	}
	return op.Route.Path, true
}

// OperationVerb returns the verb of op, if it has one.
func (p *Program) OperationVerb(op *Operation) (HttpVerb, bool) {
	if op == nil || op.Route == nil || op.Route.Verb == "" {
		return "", false
	}
	return op.Route.Verb, true
}

// OperationParameters returns the bound parameters of op. Diagnostics with
// code prefix "parameter" recorded on op are returned alongside.
func (p *Program) OperationParameters(op *Operation) (*HttpParameters, []Diagnostic) {
	diags := op.diagnosticsFor("parameter")
	if op.Parameters == nil {
		return &HttpParameters{}, diags
	}
	return op.Parameters, diags
}

// ResponsesForOperation returns the responses of op along with every other
// diagnostic recorded on op.
func (p *Program) ResponsesForOperation(op *Operation) ([]HttpResponse, []Diagnostic) {
	var diags []Diagnostic
	for _, d := range op.Diagnostics {
		if !strings.HasPrefix(d.Code, "parameter") {
			diags = append(diags, d)
		}
	}
	return op.Responses, diags
}

// IsBodyRoot reports whether prop is marked as the body root.
func (p *Program) IsBodyRoot(prop *ModelProperty) bool { return prop != nil && prop.BodyRoot }

// IsMetadata reports whether prop is transport metadata (header, query, path, status code).
func (p *Program) IsMetadata(prop *ModelProperty) bool { return prop != nil && prop.Metadata }

func (op *Operation) diagnosticsFor(prefix string) []Diagnostic {
	var out []Diagnostic
	for _, d := range op.Diagnostics {
		if strings.HasPrefix(d.Code, prefix) {
			out = append(out, d)
		}
	}
	return out
}
