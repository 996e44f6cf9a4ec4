package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// sanitizeJSONText strips a surrounding markdown code fence, which some
// OpenAI-compatible servers add even in JSON mode.
func sanitizeJSONText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	firstNL := strings.IndexByte(s, '\n')
	if firstNL == -1 {
		return strings.TrimSpace(strings.Trim(s, "`"))
	}
	s = s[firstNL+1:]
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// ConformTopLevel checks content against the top level of schema: it must be
// one JSON object, carry every required property, respect
// additionalProperties=false, and match the declared primitive types.
// Nested schemas are not walked.
func ConformTopLevel(content string, schema map[string]any) (json.RawMessage, error) {
	clean := sanitizeJSONText(content)
	dec := json.NewDecoder(bytes.NewReader([]byte(clean)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("not a json object: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("not a json object: null")
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after json object")
	}

	props, _ := schema["properties"].(map[string]any)
	for _, name := range requiredNames(schema["required"]) {
		if _, ok := obj[name]; !ok {
			return nil, fmt.Errorf("missing required field %q", name)
		}
	}
	if ap, ok := schema["additionalProperties"].(bool); ok && !ap {
		extra := []string{}
		for k := range obj {
			if _, declared := props[k]; !declared {
				extra = append(extra, k)
			}
		}
		if len(extra) > 0 {
			sort.Strings(extra)
			return nil, fmt.Errorf("unexpected fields %v", extra)
		}
	}
	for name, raw := range props {
		val, present := obj[name]
		if !present {
			continue
		}
		spec, _ := raw.(map[string]any)
		want, _ := spec["type"].(string)
		if want == "" {
			continue
		}
		if !matchesType(val, want) {
			return nil, fmt.Errorf("field %q: want %s got %T", name, want, val)
		}
	}
	return json.RawMessage(clean), nil
}

func requiredNames(v any) []string {
	switch r := v.(type) {
	case []string:
		return r
	case []any:
		out := make([]string, 0, len(r))
		for _, x := range r {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func matchesType(v any, want string) bool {
	switch want {
	case "string":
		_, ok := v.(string)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "number":
		_, ok := v.(json.Number)
		return ok
	case "integer":
		n, ok := v.(json.Number)
		if !ok {
			return false
		}
		if _, err := n.Int64(); err == nil {
			return true
		}
		f, err := n.Float64()
		return err == nil && f == float64(int64(f))
	case "object":
		_, ok := v.(map[string]any)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	}
	return true
}
