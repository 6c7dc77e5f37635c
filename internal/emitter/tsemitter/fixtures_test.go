package tsemitter

import (
	genspec "github.com/mark3labs/schema2ts/internal/spec"
)

var builtins = genspec.BuiltinScalars()

func property(name string, t genspec.Type, optional bool) *genspec.ModelProperty {
	return &genspec.ModelProperty{Name: name, Type: t, Optional: optional}
}

func arrayOf(t genspec.Type) *genspec.Model {
	return &genspec.Model{Name: "Array", Namespace: genspec.BuiltinNamespace, ElementType: t}
}

// petStore builds the listPets scenario: a Pet model, one GET /pets operation
// with an optional query parameter and a 200 response carrying Pet[].
func petStore() *genspec.Program {
	pet := &genspec.Model{Name: "Pet", Properties: []*genspec.ModelProperty{
		property("id", builtins["string"], false),
		property("name", builtins["string"], false),
	}}
	listPets := &genspec.Operation{
		Name:  "listPets",
		Route: &genspec.Route{Path: "/pets", Verb: genspec.GET},
		Parameters: &genspec.HttpParameters{Parameters: []genspec.HttpParameter{
			{Kind: genspec.QueryParam, Name: "limit", Property: property("limit", builtins["int32"], true)},
		}},
		Responses: []genspec.HttpResponse{{
			StatusCodes: genspec.SingleStatus(200),
			Responses: []genspec.HttpResponseContent{{
				Body: &genspec.HttpResponseBody{ContentTypes: []string{"application/json"}, Type: arrayOf(pet)},
			}},
		}},
	}
	ns := &genspec.Namespace{Name: "PetStore", Models: []*genspec.Model{pet}, Operations: []*genspec.Operation{listPets}}
	root := &genspec.Namespace{Namespaces: []*genspec.Namespace{ns}}
	ns.Parent = root
	return &genspec.Program{Root: root, Registered: []string{"PetStore"}}
}

func singleNamespace(ns *genspec.Namespace) *genspec.Program {
	root := &genspec.Namespace{Namespaces: []*genspec.Namespace{ns}}
	ns.Parent = root
	return &genspec.Program{Root: root, Registered: []string{ns.Name}}
}

func okResponse() genspec.HttpResponse {
	return genspec.HttpResponse{
		StatusCodes: genspec.SingleStatus(204),
		Responses:   []genspec.HttpResponseContent{{}},
	}
}
