package parser

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseTree decodes a hierarchical data document (YAML-shaped) into a Bundle
// whose keys are the dot-joined flattened paths. Non-scalar leaves fail.
func ParseTree(data []byte) (*Bundle, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{Line: 0, Reason: err.Error()}
	}
	flat, err := Flatten(root)
	if err != nil {
		return nil, err
	}
	bundle := NewBundle()
	for _, k := range flat.Keys() {
		bundle.Set(k, flat.entries[k])
	}
	return bundle, nil
}

// Flatten joins nested keys with "." and requires every leaf be a scalar
// (string, bool, or number); a null leaf is accepted as an empty string.
// Maps of maps recurse; slices are rejected as non-scalar leaves, matching the
// original spec's "scalar leaves only" rule.
func Flatten(root map[string]any) (*Bundle, error) {
	bundle := NewBundle()
	if err := flattenInto(bundle, "", root); err != nil {
		return nil, err
	}
	return bundle, nil
}

func flattenInto(bundle *Bundle, prefix string, node map[string]any) error {
	for k, v := range node {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			if err := flattenInto(bundle, path, val); err != nil {
				return err
			}
		case map[any]any:
			converted := make(map[string]any, len(val))
			for ck, cv := range val {
				converted[fmt.Sprintf("%v", ck)] = cv
			}
			if err := flattenInto(bundle, path, converted); err != nil {
				return err
			}
		case string, bool, int, int64, float64, nil:
			bundle.Set(path, Entry{Value: scalarToString(val), Enabled: true, Origin: FormatTree})
		default:
			return &NonScalarLeafError{Path: path}
		}
	}
	return nil
}

func scalarToString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimRight(s, "\n")
	}
	return fmt.Sprintf("%v", v)
}
