// Package testkit drives HTTP API tests from JSON flow files.
//
// A flow is an ordered list of steps fired at one http.Handler. Steps share
// variables: a step can capture a field of its response ("capture") and later
// steps refer to it as {{name}} in their URL, body, headers and expectations.
//
//	testdata/
//	  invoice_create.json   flow
//	  _signin.json          fragment, only run through "include"
//	  graphql_res.json      expected response body
//
// Example _test.go:
//
//	func TestAPI(t *testing.T) {
//	    testkit.RunDir(t, "testdata", func(t *testing.T) *testkit.Runner {
//	        return testkit.NewRunner(buildApp(t))
//	    })
//	}
package testkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Flow is one flow file.
type Flow struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Steps       []*Scenario `json:"steps"`

	dir string
}

// Scenario is one step of a flow: a request and what its response must look
// like, or an include of another flow file.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	// Include runs the steps of another flow file in place of a request,
	// after setting the variables in With.
	Include string            `json:"include"`
	With    map[string]string `json:"with"`

	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Body        json.RawMessage   `json:"body"`
	RequestFile string            `json:"requestFile"`
	Headers     map[string]string `json:"headers"`
	// As names the variable holding the bearer token to send.
	As string `json:"as"`

	ExpectedCode    int               `json:"expectedCode"`
	ExpectedMessage string            `json:"expectedMessage"`
	ExpectedErrors  []string          `json:"expectedErrors"` // keys of the envelope's errors
	ExpectedData    json.RawMessage   `json:"expectedData"`   // subset of the envelope's data
	ResponseFile    string            `json:"responseFile"`   // whole body, compared exactly
	ExpectedHeaders map[string]string `json:"expectedHeaders"`
	BodyPrefix      string            `json:"bodyPrefix"` // for non-JSON bodies

	// Capture maps a variable name to a dotted path into the response data.
	Capture map[string]string `json:"capture"`
	OTP     *OTPStep          `json:"otp"`

	dir string
}

// OTPStep controls the one-time code sender around a step.
type OTPStep struct {
	Phone string `json:"phone"`
	// Fail makes the next delivery to Phone fail with this message.
	Fail string `json:"fail"`
	// Capture stores the last code delivered to Phone once the step ran.
	Capture string `json:"capture"`
}

// LoadFlow reads and validates a flow file.
func LoadFlow(path string) (*Flow, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve %q: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var f Flow
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(abs), ".json")
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("testkit: %q has no steps", abs)
	}

	f.dir = filepath.Dir(abs)
	for i, s := range f.Steps {
		s.dir = f.dir
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("testkit: %q step %d: %w", abs, i, err)
		}
	}
	return &f, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Include != "" {
		if s.URL != "" {
			return errors.New("a step either includes a flow or sends a request")
		}
		return nil
	}
	if s.URL == "" {
		return errors.New("url is required")
	}
	if s.ExpectedCode == 0 {
		return errors.New("expectedCode is required")
	}
	if s.Method == "" {
		s.Method = "GET"
	}
	if len(s.Body) > 0 && s.RequestFile != "" {
		return errors.New("body and requestFile are exclusive")
	}
	if s.OTP != nil && s.OTP.Phone == "" {
		return errors.New("otp.phone is required")
	}
	return nil
}

// path resolves name against the directory of the flow file.
func (s *Scenario) path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// FlowFiles lists the runnable flows in dir. Files starting with "_" are
// fragments and only run through include.
func FlowFiles(dir string) ([]string, error) {
	all, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range all {
		base := filepath.Base(p)
		if strings.HasPrefix(base, "_") || strings.HasSuffix(base, "_res.json") || strings.HasSuffix(base, "_req.json") {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("testkit: no flow files in %q", dir)
	}
	return out, nil
}
