package spec

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGraph_PetStore(t *testing.T) {
	prog, err := LoadGraph(context.Background(), filepath.Join("testdata", "petstore.graph.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"PetStore"}, prog.Registered)

	ns, ok := prog.FindNamespace("PetStore")
	require.True(t, ok)
	require.Len(t, ns.Models, 4)

	pet, dog, pets, notFound := ns.Models[0], ns.Models[1], ns.Models[2], ns.Models[3]
	assert.Equal(t, "Pet", pet.Name)
	assert.True(t, pet.Properties[2].Optional)
	assert.Same(t, pet, dog.BaseModel)
	breed := dog.Properties[0].Type.(*Union)
	assert.Len(t, breed.Variants, 2)

	require.Len(t, pets.SourceModels, 1)
	assert.Equal(t, "is", pets.SourceModels[0].Usage)
	assert.True(t, pets.SourceModels[0].Model.IsArray())
	assert.Same(t, pet, pets.SourceModels[0].Model.ElementType)

	assert.True(t, notFound.Properties[0].Metadata)
	code := notFound.Properties[0].Type.(*Literal)
	assert.Equal(t, NumberLiteral, code.LiteralKind)
	assert.Equal(t, 404.0, code.Number)

	require.Len(t, ns.Scalars, 1)
	petID := ns.Scalars[0]
	assert.Equal(t, "PetStore", petID.Namespace)
	assert.Equal(t, "integer", petID.BaseScalar.Name)
	assert.Equal(t, "numeric", petID.BaseScalar.BaseScalar.Name)

	require.Len(t, ns.Operations, 4)
	get := ns.Operations[1]
	assert.Equal(t, "getPet", get.Name)
	assert.Equal(t, &Route{Path: "/pets/{petId}", Verb: GET}, get.Route)
	require.Len(t, get.Parameters.Parameters, 2)
	assert.Same(t, petID, get.Parameters.Parameters[0].Property.Type)
	assert.Equal(t, "x-request-id", get.Parameters.Parameters[1].Name)
	assert.Equal(t, "requestId", get.Parameters.Parameters[1].Property.Name)
	assert.Equal(t, StatusRange(200, 300), get.Responses[0].StatusCodes)
	assert.Equal(t, []string{"application/json"}, get.Responses[0].Responses[0].Body.ContentTypes)

	create := ns.Operations[2]
	assert.Same(t, pet, create.Parameters.Body.Type)
	assert.Equal(t, StatusRange(200, 203), create.Responses[0].StatusCodes)
	assert.Nil(t, create.Responses[0].Responses[0].Body)

	ping := ns.Operations[3]
	assert.Nil(t, ping.Route)
	assert.Nil(t, ping.Parameters)
	assert.Equal(t, AnyStatus(), ping.Responses[0].StatusCodes)
}

func TestParseGraph_JSONInput(t *testing.T) {
	prog, err := ParseGraph([]byte(`{
  "namespaces": [{"name": "A", "emit": true, "models": [{"name": "M", "properties": [{"name": "x", "type": "boolean"}]}]}]
}`), "inline.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, prog.Registered)
}

func TestParseGraph_NestedAndQualifiedReferences(t *testing.T) {
	prog, err := ParseGraph([]byte(`
emit: [Api.V2]
namespaces:
  - name: Api
    models:
      - name: Shared
    namespaces:
      - name: V1
        emit: true
        models:
          - name: Item
            properties:
              - { name: shared, type: Shared }
      - name: V2
        models:
          - name: Item
            properties:
              - { name: old, type: "Api.V1.Item | null" }
              - { name: when, type: TypeSpec.string }
`), "nested.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"Api.V2", "Api.V1"}, prog.Registered)

	v1, _ := prog.FindNamespace("Api.V1")
	v2, _ := prog.FindNamespace("Api.V2")
	api, _ := prog.FindNamespace("Api")
	assert.Same(t, api.Models[0], v1.Models[0].Properties[0].Type, "unqualified names search enclosing namespaces")
	old := v2.Models[0].Properties[0].Type.(*Union)
	assert.Same(t, v1.Models[0], old.Variants[0])
	assert.IsType(t, &Intrinsic{}, old.Variants[1])
	assert.Equal(t, "Api.V1", v1.Models[0].Namespace)
}

func TestParseGraph_NamedUnionAndEnum(t *testing.T) {
	prog, err := ParseGraph([]byte(`
namespaces:
  - name: N
    emit: true
    unions:
      - name: Status
        variants: ['"on"', '"off"']
    enums:
      - name: Color
        members: [red, green]
    models:
      - name: Light
        properties:
          - { name: status, type: Status }
          - { name: color, type: Color }
`), "union.yaml")
	require.NoError(t, err)
	ns, _ := prog.FindNamespace("N")
	status := ns.Models[0].Properties[0].Type.(*Union)
	assert.Len(t, status.Variants, 2)
	assert.IsType(t, &Enum{}, ns.Models[0].Properties[1].Type)
}

func TestParseGraph_OperationDiagnostics(t *testing.T) {
	prog, err := ParseGraph([]byte(`
namespaces:
  - name: N
    emit: true
    operations:
      - name: login
        route: { path: /login, verb: post }
        diagnostics:
          - { code: parameter-unsupported-location, message: cookie parameter session }
          - { code: response-invalid-status, severity: warning, message: bad status }
`), "diags.yaml")
	require.NoError(t, err)
	ns, _ := prog.FindNamespace("N")
	op := ns.Operations[0]

	_, pd := prog.OperationParameters(op)
	require.Len(t, pd, 1)
	assert.Equal(t, "N.login", pd[0].Target)
	_, rd := prog.ResponsesForOperation(op)
	require.Len(t, rd, 1)
	assert.Equal(t, SeverityWarning, rd[0].Severity)
}

func TestParseGraph_StructuralValidation(t *testing.T) {
	cases := map[string]string{
		"missing namespaces": `emit: [A]`,
		"bad verb": `
namespaces:
  - name: N
    operations:
      - { name: op, route: { path: /x, verb: fetch } }`,
		"bad parameter location": `
namespaces:
  - name: N
    operations:
      - name: op
        parameters:
          - { in: body, name: b, type: string }`,
		"unknown field": `
namespaces:
  - name: N
    types: []`,
		"bad status": `
namespaces:
  - name: N
    operations:
      - name: op
        responses:
          - status: 2XY`,
		"bad identifier": `
namespaces:
  - name: "my-ns"`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGraph([]byte(doc), name)
			se := requireSpecError(t, err, ValidationError)
			assert.Equal(t, name, se.Location)
			assert.NotEmpty(t, se.JSONPointer)
		})
	}
}

func TestParseGraph_ResolveErrors(t *testing.T) {
	cases := map[string]string{
		"unknown type": `
namespaces:
  - name: N
    models:
      - name: M
        properties:
          - { name: x, type: Missing }`,
		"unknown qualified namespace": `
namespaces:
  - name: N
    models:
      - name: M
        properties:
          - { name: x, type: Other.M }`,
		"duplicate declaration": `
namespaces:
  - name: N
    models:
      - name: M
      - name: M`,
		"duplicate property": `
namespaces:
  - name: N
    models:
      - name: M
        properties:
          - { name: x, type: string }
          - { name: x, type: string }`,
		"extends non-model": `
namespaces:
  - name: N
    models:
      - name: M
        extends: string`,
		"circular scalar": `
namespaces:
  - name: N
    scalars:
      - { name: a, extends: b }
      - { name: b, extends: a }`,
		"unknown emit": `
emit: [Nope]
namespaces:
  - name: N`,
		"bad expression": `
namespaces:
  - name: N
    models:
      - name: M
        properties:
          - { name: x, type: "A |" }`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGraph([]byte(doc), "doc.yaml")
			se := requireSpecError(t, err, ResolveError)
			assert.Equal(t, "doc.yaml", se.Location)
		})
	}
}

func TestParseGraph_RepeatedNamespaceBlocksMerge(t *testing.T) {
	prog, err := ParseGraph([]byte(`
namespaces:
  - name: N
    emit: true
    models:
      - name: A
  - name: N
    models:
      - name: B
        properties:
          - { name: a, type: A }
`), "merge.yaml")
	require.NoError(t, err)
	require.Len(t, prog.Root.Namespaces, 1)
	ns := prog.Root.Namespaces[0]
	require.Len(t, ns.Models, 2)
	assert.Same(t, ns.Models[0], ns.Models[1].Properties[0].Type)
	assert.Equal(t, []string{"N"}, prog.Registered)
}
