package tokens

import (
	"fmt"
	"sort"
	"strings"
)

// Keys recognized inside a token definition map. A map containing a
// "value" key is a token; any other string-keyed entries are subgroups.
const (
	keyValue       = "value"
	keyType        = "type"
	keyDescription = "description"
)

// Flatten walks a nested token group tree and produces flat tokens with
// dot-separated names. Group names contribute path segments; a node with
// a "value" key is a token leaf. Sibling keys are visited in sorted order
// so extraction is deterministic.
func Flatten(source string, tree map[string]any) ([]Token, error) {
	var out []Token
	if err := flattenGroup(source, nil, tree, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenGroup(source string, path []string, group map[string]any, out *[]Token) error {
	keys := make([]string, 0, len(group))
	for k := range group {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		child := group[key]
		childPath := append(append([]string{}, path...), key)

		m, ok := child.(map[string]any)
		if !ok {
			// Shorthand leaf: "primary": "#ff0000".
			s, ok := child.(string)
			if !ok {
				return fmt.Errorf("token %s: unsupported value %T", strings.Join(childPath, "."), child)
			}
			*out = append(*out, Token{
				Name:     strings.Join(childPath, "."),
				Value:    s,
				RawValue: s,
				Source:   source,
			})
			continue
		}

		if raw, isToken := m[keyValue]; isToken {
			s, ok := raw.(string)
			if !ok {
				s = fmt.Sprintf("%v", raw)
			}
			tok := Token{
				Name:     strings.Join(childPath, "."),
				Value:    s,
				RawValue: s,
				Source:   source,
			}
			if typ, ok := m[keyType].(string); ok {
				tok.Type = typ
			}
			if desc, ok := m[keyDescription].(string); ok {
				tok.Description = desc
			}
			*out = append(*out, tok)
			continue
		}

		if err := flattenGroup(source, childPath, m, out); err != nil {
			return err
		}
	}
	return nil
}
