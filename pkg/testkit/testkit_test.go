package testkit_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shashiranjanraj/billbook/pkg/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// api is a tiny handler speaking the status/message/data/errors envelope.
var api http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	reply := func(code int, body map[string]any) {
		body["status"] = code
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}

	switch r.URL.Path {
	case "/health":
		reply(http.StatusOK, map[string]any{"message": "up", "data": map[string]any{"uptime": 1}})
	case "/login":
		var in struct{ User string }
		_ = json.NewDecoder(r.Body).Decode(&in)
		reply(http.StatusOK, map[string]any{"data": map[string]any{"token": "tok-" + in.User}})
	case "/echo":
		var in any
		_ = json.NewDecoder(r.Body).Decode(&in)
		reply(http.StatusOK, map[string]any{"data": in})
	case "/whoami":
		user, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer tok-")
		if !ok {
			reply(http.StatusUnauthorized, map[string]any{"message": "Unauthenticated", "errors": map[string]any{"token": "missing"}})
			return
		}
		w.Header().Set("X-User", user)
		reply(http.StatusOK, map[string]any{"data": map[string]any{"user": user}})
	default:
		reply(http.StatusNotFound, map[string]any{"message": "Route not found"})
	}
})

func TestRunDir(t *testing.T) {
	testkit.RunDir(t, "testdata", func(t *testing.T) *testkit.Runner {
		r := testkit.NewRunner(api)
		r.Vars["n"] = 7
		return r
	})
}

func TestRunCapturesIntoVars(t *testing.T) {
	r := testkit.NewRunner(api)
	r.Vars["n"] = 7
	r.Run(t, "testdata/session.json")

	assert.Equal(t, "tok-asha", r.Vars["token"])
	assert.Equal(t, "asha", r.Vars["user"])
}

func TestFlowFilesSkipsFragmentsAndBodies(t *testing.T) {
	files, err := testkit.FlowFiles("testdata")
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.ElementsMatch(t, []string{"health.json", "session.json"}, names)

	_, err = testkit.FlowFiles(t.TempDir())
	assert.Error(t, err)
}

func TestLoadFlowValidates(t *testing.T) {
	cases := map[string]string{
		"no steps":          `{"steps": []}`,
		"no name":           `{"steps": [{"url": "/x", "expectedCode": 200}]}`,
		"no url":            `{"steps": [{"name": "a", "expectedCode": 200}]}`,
		"no code":           `{"steps": [{"name": "a", "url": "/x"}]}`,
		"include and url":   `{"steps": [{"name": "a", "include": "_x.json", "url": "/x"}]}`,
		"body and file":     `{"steps": [{"name": "a", "url": "/x", "expectedCode": 200, "body": {}, "requestFile": "b.json"}]}`,
		"otp without phone": `{"steps": [{"name": "a", "url": "/x", "expectedCode": 200, "otp": {"capture": "c"}}]}`,
		"not json":          `{`,
	}
	dir := t.TempDir()
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".json")
			require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
			_, err := testkit.LoadFlow(p)
			assert.Error(t, err)
		})
	}
}

func TestLoadFlowDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "orders.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"steps": [{"name": "list", "url": "/orders", "expectedCode": 200}]}`), 0o644))

	f, err := testkit.LoadFlow(p)
	require.NoError(t, err)
	assert.Equal(t, "orders", f.Name)
	assert.Equal(t, "GET", f.Steps[0].Method)
}

func TestVarsExpand(t *testing.T) {
	v := testkit.Vars{"id": float64(12), "name": "Asha", "price": 9.5}

	got, err := v.Expand("/customers/{{id}}?q={{ name }}")
	require.NoError(t, err)
	assert.Equal(t, "/customers/12?q=Asha", got)

	_, err = v.Expand("/{{missing}}")
	assert.ErrorContains(t, err, "missing")

	raw, err := v.ExpandJSON([]byte(`{"id": "{{id}}", "price": "{{price}}", "note": "for {{name}}"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 12, "price": 9.5, "note": "for Asha"}`, string(raw))
}

func TestLookup(t *testing.T) {
	var data any
	require.NoError(t, json.Unmarshal([]byte(`{"ID": 3, "items": [{"name": "A"}, {"name": "B"}]}`), &data))

	cases := []struct {
		path  string
		want  any
		found bool
	}{
		{"id", float64(3), true},
		{"items.1.name", "B", true},
		{"items.2.name", nil, false},
		{"items.x", nil, false},
		{"nope", nil, false},
	}
	for _, tc := range cases {
		got, found := testkit.Lookup(data, tc.path)
		assert.Equal(t, tc.found, found, tc.path)
		assert.Equal(t, tc.want, got, tc.path)
	}
}

func TestDiffJSON(t *testing.T) {
	decode := func(s string) any {
		var v any
		require.NoError(t, json.Unmarshal([]byte(s), &v))
		return v
	}
	actual := decode(`{"total": 150, "status": "PAID", "items": [{"quantity": 3}], "extra": true}`)

	assert.Empty(t, testkit.DiffJSON("", decode(`{"total": 150, "items": [{"quantity": 3}]}`), actual))

	diffs := testkit.DiffJSON("", decode(`{"total": 100, "missing": 1, "items": []}`), actual)
	require.Len(t, diffs, 3)
	joined := strings.Join(diffs, "\n")
	assert.Contains(t, joined, "total")
	assert.Contains(t, joined, "missing: missing")
	assert.Contains(t, joined, "items: length expected=0 actual=1")

	assert.Equal(t, []string{"  root: expected object, got []interface {}"}, testkit.DiffJSON("", decode(`{}`), decode(`[]`)))
}

func TestOTPMock(t *testing.T) {
	m := testkit.NewOTPMock()
	ctx := context.Background()

	require.NoError(t, m.Send(ctx, "9876543210", "111111"))
	require.NoError(t, m.Send(ctx, "9876543210", "222222"))
	code, ok := m.LastCode("9876543210")
	assert.True(t, ok)
	assert.Equal(t, "222222", code)

	m.FailNext("9876543210", errors.New("gateway down"))
	assert.EqualError(t, m.Send(ctx, "9876543210", "333333"), "gateway down")
	assert.NoError(t, m.Send(ctx, "9876543210", "444444"), "failure applies once")

	assert.Equal(t, 3, m.Delivered("9876543210"))
	m.AssertNumberOfCalls(t, "Send", 4)
	m.AssertCalled(t, "Send", "9876543210", mock.AnythingOfType("string"))

	_, ok = m.LastCode("9000000000")
	assert.False(t, ok)
}
