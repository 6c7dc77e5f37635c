package tsemitter

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	genspec "github.com/mark3labs/schema2ts/internal/spec"
	"github.com/mark3labs/schema2ts/internal/tsdecl"
)

func TestStatusCodeType(t *testing.T) {
	cases := []struct {
		name string
		in   genspec.StatusCodes
		want string
	}{
		{"single", genspec.SingleStatus(404), "404"},
		{"wildcard", genspec.AnyStatus(), "number"},
		{"range excludes end", genspec.StatusRange(200, 203), "200 | 201 | 202"},
		{"2XX", genspec.StatusRange(200, 300), "200 | 201 | 202 | 203 | 204 | 205 | 206 | 207"},
		{"end not canonical", genspec.StatusRange(500, 600), "never"},
		{"start not canonical", genspec.StatusRange(250, 300), "never"},
		{"empty range", genspec.StatusRange(200, 200), "never"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tsdecl.TypeString(emitStatusCodeType(tc.in)))
		})
	}
}

func TestEnumerateStatusCodesProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	n := len(canonicalStatusCodes)

	properties.Property("canonical bounds expand to the half-open slice", prop.ForAll(
		func(i, j int) bool {
			if i > j {
				i, j = j, i
			}
			got := enumerateStatusCodes(canonicalStatusCodes[i], canonicalStatusCodes[j])
			want := canonicalStatusCodes[i:j]
			if len(got) != len(want) {
				return false
			}
			for k := range got {
				if got[k] != want[k] {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, n-1),
		gen.IntRange(0, n-1),
	))

	properties.Property("non-canonical bound yields nothing", prop.ForAll(
		func(code int) bool {
			if statusIndex(code) >= 0 {
				return true
			}
			return len(enumerateStatusCodes(code, 500)) == 0 && len(enumerateStatusCodes(200, code)) == 0
		},
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

func TestEmitRequest_GroupOrderAndPresence(t *testing.T) {
	e := newEmitter(&genspec.Program{}, nil)
	params := &genspec.HttpParameters{
		Parameters: []genspec.HttpParameter{
			{Kind: genspec.QueryParam, Name: "limit", Property: property("limit", builtins["int32"], true)},
			{Kind: genspec.PathParam, Name: "petId", Property: property("petId", builtins["string"], false)},
			{Kind: genspec.QueryParam, Name: "offset", Property: property("offset", builtins["int32"], true)},
			{Kind: genspec.HeaderParam, Name: "x-request-id", Property: property("requestId", builtins["string"], false)},
			{Kind: genspec.CookieParam, Name: "session", Property: property("session", builtins["string"], false)},
		},
		Body: &genspec.HttpBody{Type: &genspec.Model{Name: "Pet"}},
	}

	req, err := e.emitRequest(params)
	require.NoError(t, err)
	assert.Equal(t, `{
    $header: {
        "x-request-id": string;
    };
    $path: {
        "petId": string;
    };
    $query: {
        "limit"?: number;
        "offset"?: number;
    };
    $body: Pet;
}`, tsdecl.TypeString(req))
}

func TestEmitRequest_OmitsEmptyGroups(t *testing.T) {
	e := newEmitter(&genspec.Program{}, nil)
	req, err := e.emitRequest(&genspec.HttpParameters{Body: &genspec.HttpBody{Type: builtins["string"]}})
	require.NoError(t, err)
	require.Len(t, req.Members, 1)
	assert.Equal(t, bodyMember, req.Members[0].(*tsdecl.PropertySignature).Name)
}

func TestEmitResponse_ContentVariants(t *testing.T) {
	e := newEmitter(&genspec.Program{}, nil)
	resp := genspec.HttpResponse{
		StatusCodes: genspec.StatusRange(200, 202),
		Responses: []genspec.HttpResponseContent{
			{
				Headers: []genspec.NamedProperty{{Name: "etag", Property: property("etag", builtins["string"], false)}},
				Body:    &genspec.HttpResponseBody{ContentTypes: []string{"application/json", "text/json"}, Type: &genspec.Model{Name: "Pet"}},
			},
			{Headers: []genspec.NamedProperty{{Name: "location", Property: property("location", builtins["url"], true)}}},
			{},
		},
	}

	out, err := e.emitResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, `{
    $statusCode: 200 | 201;
    $content: {
        $headers: {
            "etag": string;
        };
        $contentType: "application/json" | "text/json";
        $body: Pet;
    } | {
        $headers: {
            "location"?: string;
        };
    } | {};
}`, tsdecl.TypeString(out))
}

func TestEmitPaths_GroupsByPathAndReferencesOperations(t *testing.T) {
	ops := []*genspec.Operation{
		{Name: "listPets", Route: &genspec.Route{Path: "/pets", Verb: genspec.GET}},
		{Name: "getPet", Route: &genspec.Route{Path: "/pets/{petId}", Verb: genspec.GET}},
		{Name: "createPet", Route: &genspec.Route{Path: "/pets", Verb: genspec.POST}},
		{Name: "internalOnly"},
		{Name: "noVerb", Route: &genspec.Route{Path: "/x"}},
	}
	e := newEmitter(&genspec.Program{}, nil)

	got := tsdecl.Sprint([]tsdecl.Decl{e.emitPaths(ops)})
	assert.Equal(t, `export interface $paths {
    "/pets": {
        get: $operations["listPets"];
        post: $operations["createPet"];
    };
    "/pets/{petId}": {
        get: $operations["getPet"];
    };
}
`, got)

	decl := e.emitPaths(ops)
	for _, m := range decl.Members {
		for _, verb := range m.(*tsdecl.PropertySignature).Type.(*tsdecl.TypeLiteral).Members {
			_, isRef := verb.(*tsdecl.PropertySignature).Type.(*tsdecl.IndexedAccess)
			assert.True(t, isRef, "route entries must reference $operations")
		}
	}
}
