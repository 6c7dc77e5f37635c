package spec

import (
	"strings"

	"gopkg.in/yaml.v3"
)

var v2Methods = map[string]bool{
	"get": true, "post": true, "put": true, "delete": true, "patch": true, "options": true, "head": true,
}

// rewriteV2Parameters reshapes Swagger 2.0 operations that openapi2conv
// rejects:
//
//   - several body parameters are merged into one object-typed body whose
//     properties are the original parameters;
//   - body parameters mixed with formData become formData parameters and the
//     operation consumes multipart/form-data.
//
// On any error the input is returned unchanged with changed=false.
func rewriteV2Parameters(data []byte) (out []byte, changed bool, err error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return data, false, err
	}
	paths, ok := doc["paths"].(map[string]any)
	if !ok || len(paths) == 0 {
		return data, false, nil
	}

	for _, item := range paths {
		ops, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for method, raw := range ops {
			if !v2Methods[strings.ToLower(method)] {
				continue
			}
			op, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if rewriteV2Operation(op) {
				changed = true
			}
		}
	}

	if !changed {
		return data, false, nil
	}
	out, err = yaml.Marshal(doc)
	if err != nil {
		return data, false, err
	}
	return out, true, nil
}

func rewriteV2Operation(op map[string]any) bool {
	params, ok := op["parameters"].([]any)
	if !ok || len(params) == 0 {
		return false
	}
	bodies, hasFormData := 0, false
	for _, p := range params {
		pm, _ := p.(map[string]any)
		switch strings.ToLower(asString(pm["in"])) {
		case "body":
			bodies++
		case "formdata":
			hasFormData = true
		}
	}
	switch {
	case bodies > 0 && hasFormData:
		op["parameters"] = bodyToFormData(params)
		consumes, _ := op["consumes"].([]any)
		if !containsString(consumes, "multipart/form-data") {
			op["consumes"] = append(consumes, "multipart/form-data")
		}
		return true
	case bodies > 1:
		op["parameters"] = mergeBodyParams(params)
		return true
	}
	return false
}

func mergeBodyParams(params []any) []any {
	props := map[string]any{}
	var required []any
	rest := make([]any, 0, len(params))
	for _, p := range params {
		pm, _ := p.(map[string]any)
		if pm == nil {
			continue
		}
		if !strings.EqualFold(asString(pm["in"]), "body") {
			rest = append(rest, p)
			continue
		}
		name := paramName(pm)
		schema := schemaFromParam(pm)
		if schema == nil {
			schema = map[string]any{"type": "string"}
		}
		props[name] = schema
		if req, _ := pm["required"].(bool); req {
			required = append(required, name)
		}
	}
	body := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		body["required"] = required
	}
	merged := map[string]any{"in": "body", "name": "body", "schema": body}
	return append([]any{merged}, rest...)
}

func bodyToFormData(params []any) []any {
	out := make([]any, 0, len(params))
	for _, p := range params {
		pm, _ := p.(map[string]any)
		if pm == nil {
			continue
		}
		if strings.EqualFold(asString(pm["in"]), "body") {
			out = append(out, formDataParam(pm))
			continue
		}
		out = append(out, pm)
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func paramName(pm map[string]any) string {
	if name := asString(pm["name"]); name != "" {
		return name
	}
	return "field"
}

func containsString(list []any, want string) bool {
	for _, v := range list {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}

// schemaFromParam returns the parameter's schema, synthesizing one from
// type/items/format for non-body parameters.
func schemaFromParam(pm map[string]any) map[string]any {
	if sch, ok := pm["schema"].(map[string]any); ok {
		return sch
	}
	t := asString(pm["type"])
	if t == "" {
		return nil
	}
	m := map[string]any{"type": t}
	if it, ok := pm["items"].(map[string]any); ok {
		m["items"] = it
	}
	if f := asString(pm["format"]); f != "" {
		m["format"] = f
	}
	return m
}

// formDataParam converts a body parameter. Referenced object schemas cannot
// be expressed as form fields and degrade to string.
func formDataParam(pm map[string]any) map[string]any {
	out := map[string]any{"in": "formData", "name": paramName(pm)}
	if desc := asString(pm["description"]); desc != "" {
		out["description"] = desc
	}
	if req, ok := pm["required"].(bool); ok {
		out["required"] = req
	}
	src := schemaFromParam(pm)
	typ := asString(src["type"])
	if typ == "" {
		typ = "string"
	}
	out["type"] = typ
	if it, ok := src["items"].(map[string]any); ok {
		out["items"] = it
	}
	if f := asString(src["format"]); f != "" {
		out["format"] = f
	}
	return out
}
