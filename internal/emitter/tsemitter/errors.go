package tsemitter

import (
	"fmt"
	"strings"

	genspec "github.com/mark3labs/schema2ts/internal/spec"
)

// UnsupportedTypeError reports a schema type with no TypeScript counterpart.
type UnsupportedTypeError struct {
	Kind genspec.TypeKind
	Name string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("tsemitter: unsupported type: %s %s", e.Kind, e.Name)
	}
	return fmt.Sprintf("tsemitter: unsupported type: %s", e.Kind)
}

// UnsupportedScalarError reports a scalar that does not resolve to a
// supported builtin.
type UnsupportedScalarError struct {
	Name      string
	Namespace string
}

func (e *UnsupportedScalarError) Error() string {
	if e.Namespace != "" && e.Namespace != genspec.BuiltinNamespace {
		return fmt.Sprintf("tsemitter: unsupported scalar type: %s.%s", e.Namespace, e.Name)
	}
	return fmt.Sprintf("tsemitter: unsupported scalar type: %s", e.Name)
}

// DiagnosticsError carries every diagnostic collected during a pass.
type DiagnosticsError struct {
	Diagnostics []genspec.Diagnostic
}

func (e *DiagnosticsError) Error() string {
	lines := make([]string, 0, len(e.Diagnostics)+1)
	lines = append(lines, fmt.Sprintf("tsemitter: %d diagnostic(s) reported", len(e.Diagnostics)))
	for _, d := range e.Diagnostics {
		lines = append(lines, "  "+d.String())
	}
	return strings.Join(lines, "\n")
}
