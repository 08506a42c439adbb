package testkit

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	placeholder       = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)
	quotedPlaceholder = regexp.MustCompile(`"\{\{\s*(\w+)\s*\}\}"`)
)

// Vars are the values captured by earlier steps. Captured JSON values keep
// their type: numbers stay numbers when substituted into a JSON body.
type Vars map[string]any

// Expand replaces every {{name}} in s.
func (v Vars) Expand(s string) (string, error) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		val, ok := v[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return text(val)
	})
	return out, missingErr(missing)
}

// ExpandJSON substitutes a placeholder that is a whole JSON string ("{{id}}")
// with the JSON encoding of the value, and any other placeholder as text.
func (v Vars) ExpandJSON(raw []byte) ([]byte, error) {
	var missing []string
	out := quotedPlaceholder.ReplaceAllFunc(raw, func(m []byte) []byte {
		name := string(quotedPlaceholder.FindSubmatch(m)[1])
		val, ok := v[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		enc, err := json.Marshal(val)
		if err != nil {
			missing = append(missing, name)
			return m
		}
		return enc
	})
	if err := missingErr(missing); err != nil {
		return nil, err
	}
	s, err := v.Expand(string(out))
	return []byte(s), err
}

func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func missingErr(names []string) error {
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return fmt.Errorf("testkit: unknown variable(s) %s", strings.Join(names, ", "))
}

// Lookup walks a dotted path ("items.0.id") through decoded JSON. Object
// keys match exactly first, then case-insensitively like encoding/json.
func Lookup(data any, path string) (any, bool) {
	if path == "" || path == "." {
		return data, true
	}
	cur := data
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := field(node, part)
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func field(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}
