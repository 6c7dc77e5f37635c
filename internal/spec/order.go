package spec

import (
	"sort"

	"gopkg.in/yaml.v3"
)

// documentOrder is the key order of the sections of an OpenAPI or Swagger
// document that kin-openapi decodes into maps.
type documentOrder struct {
	paths   []string
	schemas []string
	// schema name -> property keys, its own first, then each allOf member's
	props map[string][]string
}

// readDocumentOrder scans raw (YAML or JSON) for the order of paths,
// component schemas and their properties. It returns nil when raw does not
// parse; callers then fall back to sorted order.
func readDocumentOrder(raw []byte) *documentOrder {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil || len(root.Content) == 0 {
		return nil
	}
	doc := root.Content[0]
	o := &documentOrder{props: map[string][]string{}}
	o.paths = mappingKeys(mappingValue(doc, "paths"))

	schemas := mappingValue(mappingValue(doc, "components"), "schemas")
	if schemas == nil {
		schemas = mappingValue(doc, "definitions")
	}
	if schemas != nil && schemas.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(schemas.Content); i += 2 {
			name := schemas.Content[i].Value
			o.schemas = append(o.schemas, name)
			o.props[name] = schemaPropertyOrder(schemas.Content[i+1])
		}
	}
	return o
}

func (o *documentOrder) pathOrder() []string {
	if o == nil {
		return nil
	}
	return o.paths
}

func (o *documentOrder) schemaOrder() []string {
	if o == nil {
		return nil
	}
	return o.schemas
}

func (o *documentOrder) propertyOrder(schema string) []string {
	if o == nil {
		return nil
	}
	return o.props[schema]
}

func schemaPropertyOrder(n *yaml.Node) []string {
	keys := mappingKeys(mappingValue(n, "properties"))
	if all := mappingValue(n, "allOf"); all != nil && all.Kind == yaml.SequenceNode {
		for _, part := range all.Content {
			keys = append(keys, mappingKeys(mappingValue(part, "properties"))...)
		}
	}
	return keys
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func mappingKeys(n *yaml.Node) []string {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	return keys
}

// inOrder arranges keys as they appear in order. Keys that order does not
// mention follow, sorted.
func inOrder(keys, order []string) []string {
	pending := make(map[string]bool, len(keys))
	for _, k := range keys {
		pending[k] = true
	}
	out := make([]string, 0, len(keys))
	for _, k := range order {
		if pending[k] {
			out = append(out, k)
			delete(pending, k)
		}
	}
	rest := make([]string, 0, len(pending))
	for k := range pending {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(out, rest...)
}
