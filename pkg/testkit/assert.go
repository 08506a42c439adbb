package testkit

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode checks the response code.
func AssertStatusCode(t *testing.T, s *Scenario, got int, body []byte) {
	t.Helper()
	assert.Equal(t, s.ExpectedCode, got, "[%s] HTTP status code mismatch\nbody: %s", s.Name, body)
}

// AssertJSONBody compares two JSON documents after decoding both, so key
// order and whitespace never matter.
func AssertJSONBody(t *testing.T, s *Scenario, expected, actual []byte) {
	t.Helper()
	var exp, act any
	require.NoError(t, json.Unmarshal(expected, &exp), "[%s] expected body is not valid JSON", s.Name)
	if !assert.NoError(t, json.Unmarshal(actual, &act), "[%s] response is not JSON\nbody: %s", s.Name, actual) {
		return
	}
	assert.Equal(t, exp, act, "[%s] response body mismatch", s.Name)
}

// AssertSubset fails when actual lacks anything expected holds. Objects may
// carry extra keys; arrays must match in length.
func AssertSubset(t *testing.T, s *Scenario, expected, actual any) {
	t.Helper()
	if diffs := DiffJSON("", expected, actual); len(diffs) > 0 {
		got, _ := json.Marshal(actual)
		assert.Fail(t, fmt.Sprintf("[%s] response data mismatch", s.Name),
			"%s\ndata: %s", strings.Join(diffs, "\n"), got)
	}
}

// AssertEnvelope checks the message and the error keys of an envelope.
func AssertEnvelope(t *testing.T, s *Scenario, message string, env map[string]any) {
	t.Helper()
	if message != "" {
		assert.Equal(t, message, env["message"], "[%s] message mismatch", s.Name)
	}
	if len(s.ExpectedErrors) > 0 {
		errs, _ := env["errors"].(map[string]any)
		for _, key := range s.ExpectedErrors {
			assert.Contains(t, errs, key, "[%s] missing field error", s.Name)
		}
	}
}

// DiffJSON lists where actual departs from expected, one line per field.
func DiffJSON(path string, expected, actual any) []string {
	var diffs []string
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return append(diffs, fmt.Sprintf("  %s: expected object, got %T", keyPath(path), actual))
		}
		for k, ev := range exp {
			p := strings.TrimPrefix(path+"."+k, ".")
			av, exists := field(act, k)
			if !exists {
				diffs = append(diffs, fmt.Sprintf("  %s: missing", p))
				continue
			}
			diffs = append(diffs, DiffJSON(p, ev, av)...)
		}
	case []any:
		act, ok := actual.([]any)
		if !ok {
			return append(diffs, fmt.Sprintf("  %s: expected array, got %T", keyPath(path), actual))
		}
		if len(exp) != len(act) {
			diffs = append(diffs, fmt.Sprintf("  %s: length expected=%d actual=%d", keyPath(path), len(exp), len(act)))
		}
		for i := 0; i < len(exp) && i < len(act); i++ {
			diffs = append(diffs, DiffJSON(fmt.Sprintf("%s[%d]", path, i), exp[i], act[i])...)
		}
	default:
		if fmt.Sprint(expected) != fmt.Sprint(actual) {
			diffs = append(diffs, fmt.Sprintf("  %s:\n    - %v\n    + %v", keyPath(path), expected, actual))
		}
	}
	return diffs
}

func keyPath(path string) string {
	if path == "" {
		return "root"
	}
	return path
}
