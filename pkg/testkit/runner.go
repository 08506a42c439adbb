package testkit

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runner fires flow steps at one handler and carries variables between
// them. A fresh Runner per flow keeps flows independent.
type Runner struct {
	Handler http.Handler
	OTP     *OTPMock
	Vars    Vars
}

func NewRunner(h http.Handler) *Runner {
	return &Runner{Handler: h, Vars: Vars{}}
}

// WithOTP attaches the OTP mock that "otp" steps drive.
func (r *Runner) WithOTP(m *OTPMock) *Runner {
	r.OTP = m
	return r
}

// Run loads one flow file and runs it as a subtest.
func (r *Runner) Run(t *testing.T, path string) {
	t.Helper()
	f, err := LoadFlow(path)
	require.NoError(t, err)

	t.Run(f.Name, func(t *testing.T) {
		r.runSteps(t, f.Steps)
	})
}

// Run runs a single flow file against handler and returns the runner so
// the caller can inspect captured variables.
func Run(t *testing.T, handler http.Handler, path string) *Runner {
	t.Helper()
	r := NewRunner(handler)
	r.Run(t, path)
	return r
}

// RunDir runs every flow file in dir, each against the runner newRunner
// builds for it.
func RunDir(t *testing.T, dir string, newRunner func(t *testing.T) *Runner) {
	t.Helper()
	files, err := FlowFiles(dir)
	require.NoError(t, err)

	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), ".json")
		t.Run(name, func(t *testing.T) {
			newRunner(t).Run(t, path)
		})
	}
}

func (r *Runner) runSteps(t *testing.T, steps []*Scenario) {
	t.Helper()
	for _, s := range steps {
		ok := t.Run(s.Name, func(t *testing.T) {
			if s.Include != "" {
				r.include(t, s)
				return
			}
			r.runStep(t, s)
		})
		// Later steps depend on earlier ones.
		if !ok {
			t.FailNow()
		}
	}
}

func (r *Runner) include(t *testing.T, s *Scenario) {
	t.Helper()
	for k, v := range s.With {
		val, err := r.Vars.Expand(v)
		require.NoError(t, err, "[%s] with.%s", s.Name, k)
		r.Vars[k] = val
	}
	f, err := LoadFlow(s.path(s.Include))
	require.NoError(t, err)
	r.runSteps(t, f.Steps)
}

func (r *Runner) runStep(t *testing.T, s *Scenario) {
	t.Helper()

	if s.OTP != nil && s.OTP.Fail != "" {
		require.NotNil(t, r.OTP, "[%s] otp step without an OTP mock", s.Name)
		r.OTP.FailNext(r.expand(t, s, s.OTP.Phone), errors.New(s.OTP.Fail))
	}

	req := httptest.NewRequest(strings.ToUpper(s.Method), r.expand(t, s, s.URL), r.body(t, s))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range s.Headers {
		req.Header.Set(k, r.expand(t, s, v))
	}
	if s.As != "" {
		token, ok := r.Vars[s.As]
		require.True(t, ok, "[%s] no token captured as %q", s.Name, s.As)
		req.Header.Set("Authorization", "Bearer "+text(token))
	}

	rec := httptest.NewRecorder()
	r.Handler.ServeHTTP(rec, req)
	raw := rec.Body.Bytes()

	AssertStatusCode(t, s, rec.Code, raw)
	for k, v := range s.ExpectedHeaders {
		assert.Equal(t, r.expand(t, s, v), rec.Header().Get(k), "[%s] header %s", s.Name, k)
	}
	if s.BodyPrefix != "" {
		assert.True(t, bytes.HasPrefix(raw, []byte(s.BodyPrefix)), "[%s] body does not start with %q\nbody: %s", s.Name, s.BodyPrefix, raw)
	}
	if p := s.path(s.ResponseFile); p != "" {
		expected, err := os.ReadFile(p)
		require.NoError(t, err)
		AssertJSONBody(t, s, expected, raw)
	}

	if isJSON(rec.Header().Get("Content-Type")) && len(raw) > 0 {
		var env map[string]any
		if assert.NoError(t, json.Unmarshal(raw, &env), "[%s] response is not a JSON object\nbody: %s", s.Name, raw) {
			r.checkEnvelope(t, s, env)
		}
	}

	if s.OTP != nil && s.OTP.Capture != "" {
		require.NotNil(t, r.OTP, "[%s] otp step without an OTP mock", s.Name)
		code, ok := r.OTP.LastCode(r.expand(t, s, s.OTP.Phone))
		require.True(t, ok, "[%s] no code was delivered to %s", s.Name, s.OTP.Phone)
		r.Vars[s.OTP.Capture] = code
	}
}

func (r *Runner) checkEnvelope(t *testing.T, s *Scenario, env map[string]any) {
	t.Helper()
	AssertEnvelope(t, s, r.expand(t, s, s.ExpectedMessage), env)

	data, ok := env["data"]
	if !ok {
		data = any(env)
	}
	if len(s.ExpectedData) > 0 {
		raw, err := r.Vars.ExpandJSON(s.ExpectedData)
		require.NoError(t, err, "[%s] expectedData", s.Name)
		var expected any
		require.NoError(t, json.Unmarshal(raw, &expected), "[%s] expectedData", s.Name)
		AssertSubset(t, s, expected, data)
	}
	for name, path := range s.Capture {
		v, found := Lookup(data, path)
		require.True(t, found, "[%s] capture %s: nothing at %q", s.Name, name, path)
		r.Vars[r.expand(t, s, name)] = v
	}
}

func (r *Runner) body(t *testing.T, s *Scenario) io.Reader {
	t.Helper()
	raw := []byte(s.Body)
	if s.RequestFile != "" {
		var err error
		raw, err = os.ReadFile(s.path(s.RequestFile))
		require.NoError(t, err, "[%s] request file", s.Name)
	}
	if len(raw) == 0 {
		return nil
	}
	out, err := r.Vars.ExpandJSON(raw)
	require.NoError(t, err, "[%s] body", s.Name)
	return bytes.NewReader(out)
}

func (r *Runner) expand(t *testing.T, s *Scenario, v string) string {
	t.Helper()
	out, err := r.Vars.Expand(v)
	require.NoError(t, err, "[%s]", s.Name)
	return out
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}
