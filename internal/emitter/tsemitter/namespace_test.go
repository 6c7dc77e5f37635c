package tsemitter

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	genspec "github.com/mark3labs/schema2ts/internal/spec"
	"github.com/mark3labs/schema2ts/internal/tsdecl"
)

const petStoreOutput = `export interface Pet {
    "id": string;
    "name": string;
}
export interface $operations {
    listPets(params?: {
        $query: {
            "limit"?: number;
        };
    }): {
        $statusCode: 200;
        $content: {
            $contentType: "application/json";
            $body: Pet[];
        };
    };
}
export interface $paths {
    "/pets": {
        get: $operations["listPets"];
    };
}
`

func TestEmitProgram_ListPets(t *testing.T) {
	prog := petStore()
	decls, err := EmitProgram(prog, prog.Registered, PassOptions{})
	require.NoError(t, err)
	assert.Equal(t, petStoreOutput, tsdecl.Sprint(decls))
}

func TestEmitProgram_WrapNamespaces(t *testing.T) {
	prog := petStore()
	decls, err := EmitProgram(prog, prog.Registered, PassOptions{WrapNamespaces: true})
	require.NoError(t, err)
	require.Len(t, decls, 1)
	mod, ok := decls[0].(*tsdecl.Module)
	require.True(t, ok)
	assert.Equal(t, "PetStore", mod.Name)
	assert.Len(t, mod.Body, 3)
}

func TestEmitProgram_NoParametersNoRoute(t *testing.T) {
	ping := &genspec.Operation{Name: "ping", Responses: []genspec.HttpResponse{okResponse()}}
	prog := singleNamespace(&genspec.Namespace{Name: "Health", Operations: []*genspec.Operation{ping}})

	decls, err := EmitProgram(prog, prog.Registered, PassOptions{})
	require.NoError(t, err)
	assert.Equal(t, `export interface $operations {
    ping(): {
        $statusCode: 204;
        $content: {};
    };
}
export interface $paths {
}
`, tsdecl.Sprint(decls))
}

func TestEmitProgram_RequiredParamsMakeParamsRequired(t *testing.T) {
	getPet := &genspec.Operation{
		Name:  "getPet",
		Route: &genspec.Route{Path: "/pets/{petId}", Verb: genspec.GET},
		Parameters: &genspec.HttpParameters{Parameters: []genspec.HttpParameter{
			{Kind: genspec.PathParam, Name: "petId", Property: property("petId", builtins["string"], false)},
		}},
		Responses: []genspec.HttpResponse{okResponse()},
	}
	prog := singleNamespace(&genspec.Namespace{Name: "Store", Operations: []*genspec.Operation{getPet}})

	decls, err := EmitProgram(prog, prog.Registered, PassOptions{})
	require.NoError(t, err)
	ops := decls[0].(*tsdecl.Interface)
	method := ops.Members[0].(*tsdecl.MethodSignature)
	require.Len(t, method.Params, 1)
	assert.False(t, method.Params[0].Optional)
}

func TestEmitProgram_OrderChildModulesModelsTables(t *testing.T) {
	inner := &genspec.Namespace{Name: "V1", Models: []*genspec.Model{{Name: "Thing"}}}
	outer := &genspec.Namespace{
		Name:       "Api",
		Namespaces: []*genspec.Namespace{inner},
		Models: []*genspec.Model{
			{Name: "B"},
			{Name: "Envelope", Properties: []*genspec.ModelProperty{{Name: "body", Type: builtins["string"], BodyRoot: true}}},
			{Name: "A"},
		},
	}
	inner.Parent = outer
	prog := singleNamespace(outer)

	decls, err := EmitProgram(prog, prog.Registered, PassOptions{})
	require.NoError(t, err)

	var names []string
	for _, d := range decls {
		switch d := d.(type) {
		case *tsdecl.Module:
			names = append(names, "module "+d.Name)
			require.Len(t, d.Body, 3)
		case *tsdecl.Interface:
			names = append(names, d.Name)
		case *tsdecl.TypeAlias:
			names = append(names, d.Name)
		}
	}
	assert.Equal(t, []string{"module V1", "B", "A", "$operations", "$paths"}, names)
}

func TestEmitProgram_DiagnosticsCollectedAcrossOperations(t *testing.T) {
	bad1 := &genspec.Operation{Name: "bad1", Diagnostics: []genspec.Diagnostic{
		{Code: "parameter-unsupported-location", Message: "cookie parameter session"},
	}}
	good := &genspec.Operation{Name: "good", Responses: []genspec.HttpResponse{okResponse()}}
	bad2 := &genspec.Operation{Name: "bad2", Diagnostics: []genspec.Diagnostic{
		{Code: "response-invalid-status", Message: "status 2XY"},
	}}
	prog := singleNamespace(&genspec.Namespace{Name: "Svc", Operations: []*genspec.Operation{bad1, good, bad2}})

	decls, err := EmitProgram(prog, prog.Registered, PassOptions{})
	assert.Nil(t, decls)
	var de *DiagnosticsError
	require.ErrorAs(t, err, &de)
	require.Len(t, de.Diagnostics, 2)
	assert.Equal(t, "bad1", de.Diagnostics[0].Target)
	assert.Equal(t, "bad2", de.Diagnostics[1].Target)
	assert.Contains(t, err.Error(), "2 diagnostic(s)")
}

func TestEmitProgram_UnsupportedTypeIsFatal(t *testing.T) {
	op := &genspec.Operation{
		Name: "upload",
		Parameters: &genspec.HttpParameters{
			Body: &genspec.HttpBody{Type: builtins["bytes"]},
		},
	}
	prog := singleNamespace(&genspec.Namespace{Name: "Files", Operations: []*genspec.Operation{op}})

	_, err := EmitProgram(prog, prog.Registered, PassOptions{})
	var se *UnsupportedScalarError
	require.ErrorAs(t, err, &se)
	var de *DiagnosticsError
	assert.False(t, errors.As(err, &de))
}

func TestEmitProgram_UnknownRegisteredNamespace(t *testing.T) {
	prog := petStore()
	_, err := EmitProgram(prog, []string{"Nope"}, PassOptions{})
	require.ErrorIs(t, err, ErrUnknownNamespace)
	assert.Contains(t, err.Error(), `"Nope"`)
}

func TestEmitProgram_NestedRegistration(t *testing.T) {
	inner := &genspec.Namespace{Name: "V1", Models: []*genspec.Model{{Name: "Thing"}}}
	outer := &genspec.Namespace{Name: "Api", Namespaces: []*genspec.Namespace{inner}}
	inner.Parent = outer
	prog := singleNamespace(outer)

	decls, err := EmitProgram(prog, []string{"Api.V1"}, PassOptions{})
	require.NoError(t, err)
	require.Len(t, decls, 3)
	assert.Equal(t, "Thing", decls[0].(*tsdecl.Interface).Name)
}

func TestEmitProgram_FollowsRegistrationOrder(t *testing.T) {
	a := &genspec.Namespace{Name: "A", Models: []*genspec.Model{{Name: "FromA"}}}
	b := &genspec.Namespace{Name: "B", Models: []*genspec.Model{{Name: "FromB"}}}
	root := &genspec.Namespace{Namespaces: []*genspec.Namespace{a, b}}
	a.Parent, b.Parent = root, root
	prog := &genspec.Program{Root: root}

	decls, err := EmitProgram(prog, []string{"B", "A", "B"}, PassOptions{WrapNamespaces: true})
	require.NoError(t, err)
	require.Len(t, decls, 2)
	assert.Equal(t, "B", decls[0].(*tsdecl.Module).Name)
	assert.Equal(t, "A", decls[1].(*tsdecl.Module).Name)

	flat, err := EmitProgram(prog, []string{"B", "A"}, PassOptions{})
	require.NoError(t, err)
	assert.Equal(t, "FromB", flat[0].(*tsdecl.Interface).Name)
}

func TestEmitProgram_Idempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("repeated passes over one snapshot print identically", prop.ForAll(
		func(names []string) bool {
			ns := &genspec.Namespace{Name: "Gen"}
			seen := map[string]bool{}
			for _, n := range names {
				if seen[n] {
					continue
				}
				seen[n] = true
				m := &genspec.Model{Name: "M" + n, Properties: []*genspec.ModelProperty{property(n, builtins["string"], len(n)%2 == 0)}}
				ns.Models = append(ns.Models, m)
				ns.Operations = append(ns.Operations, &genspec.Operation{
					Name:      "get" + n,
					Route:     &genspec.Route{Path: "/" + n, Verb: genspec.GET},
					Responses: []genspec.HttpResponse{{StatusCodes: genspec.SingleStatus(200), Responses: []genspec.HttpResponseContent{{Body: &genspec.HttpResponseBody{ContentTypes: []string{"application/json"}, Type: m}}}}},
				})
			}
			prog := singleNamespace(ns)
			first, err := EmitProgram(prog, prog.Registered, PassOptions{})
			if err != nil {
				return false
			}
			second, err := EmitProgram(prog, prog.Registered, PassOptions{})
			if err != nil {
				return false
			}
			return tsdecl.Sprint(first) == tsdecl.Sprint(second)
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}
