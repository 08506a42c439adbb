// Package validate checks request structs against `validate` struct tags.
//
// Rules are comma separated and run in order; the first failing rule wins
// for a field:
//
//	required     not zero or blank
//	nullable     skip the remaining rules when the field is empty
//	email        looks like an email address
//	url          absolute http(s) URL
//	date         YYYY-MM-DD or RFC 3339
//	digits=N     exactly N decimal digits
//	min=N        numbers: value ≥ N, strings: at least N characters
//	max=N        numbers: value ≤ N, strings: at most N characters
//	gt=N         number > N
//	gte=N        number ≥ N
//	in=a|b|c     one of the listed values
//
// Example:
//
//	type RegisterInput struct {
//	    Email    string `json:"email"    validate:"required,email"`
//	    Password string `json:"password" validate:"required,min=8"`
//	    Phone    string `json:"phone"    validate:"nullable,digits=10"`
//	}
package validate

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type rule func(field string, v reflect.Value, param string) string

var rules = map[string]rule{
	"required": required,
	"email":    email,
	"url":      validURL,
	"date":     date,
	"digits":   digits,
	"min":      minRule,
	"max":      maxRule,
	"gt":       gt,
	"gte":      gte,
	"in":       in,
}

// Struct validates the exported fields of v that carry a `validate` tag and
// returns json field name → message. An empty map means v is valid.
func Struct(v interface{}) map[string]string {
	errs := make(map[string]string)

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return errs
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errs
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tag := sf.Tag.Get("validate")
		if tag == "" || !sf.IsExported() {
			continue
		}

		fv := rv.Field(i)
		name := fieldName(sf)
		specs := strings.Split(tag, ",")

		if contains(specs, "nullable") && isEmpty(fv) {
			continue
		}

		for _, spec := range specs {
			key, param, _ := strings.Cut(strings.TrimSpace(spec), "=")
			fn, ok := rules[key]
			if !ok {
				continue
			}
			if msg := fn(name, deref(fv), param); msg != "" {
				errs[name] = msg
				break
			}
		}
	}

	return errs
}

// HasErrors returns true when the errs map is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

// ─── Rules ────────────────────────────────────────────────────────────────────

var (
	emailRE  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	digitsRE = regexp.MustCompile(`^[0-9]+$`)
)

func required(field string, v reflect.Value, _ string) string {
	if isEmpty(v) {
		return fmt.Sprintf("The %s field is required.", field)
	}
	return ""
}

func email(field string, v reflect.Value, _ string) string {
	if !emailRE.MatchString(text(v)) {
		return fmt.Sprintf("The %s must be a valid email address.", field)
	}
	return ""
}

func validURL(field string, v reflect.Value, _ string) string {
	u, err := url.ParseRequestURI(text(v))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Sprintf("The %s must be a valid URL.", field)
	}
	return ""
}

func date(field string, v reflect.Value, _ string) string {
	s := text(v)
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return ""
	}
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return ""
	}
	return fmt.Sprintf("The %s is not a valid date.", field)
}

func digits(field string, v reflect.Value, param string) string {
	s := text(v)
	n, _ := strconv.Atoi(param)
	if !digitsRE.MatchString(s) || len(s) != n {
		return fmt.Sprintf("The %s must be %s digits.", field, param)
	}
	return ""
}

func minRule(field string, v reflect.Value, param string) string {
	n := number(param)
	if f, ok := numeric(v); ok {
		if f < n {
			return fmt.Sprintf("The %s must be at least %s.", field, param)
		}
		return ""
	}
	if float64(utf8.RuneCountInString(text(v))) < n {
		return fmt.Sprintf("The %s must be at least %s characters.", field, param)
	}
	return ""
}

func maxRule(field string, v reflect.Value, param string) string {
	n := number(param)
	if f, ok := numeric(v); ok {
		if f > n {
			return fmt.Sprintf("The %s must not be greater than %s.", field, param)
		}
		return ""
	}
	if float64(utf8.RuneCountInString(text(v))) > n {
		return fmt.Sprintf("The %s must not exceed %s characters.", field, param)
	}
	return ""
}

func gt(field string, v reflect.Value, param string) string {
	if f, ok := numeric(v); !ok || f <= number(param) {
		return fmt.Sprintf("The %s must be greater than %s.", field, param)
	}
	return ""
}

func gte(field string, v reflect.Value, param string) string {
	if f, ok := numeric(v); !ok || f < number(param) {
		return fmt.Sprintf("The %s must be greater than or equal to %s.", field, param)
	}
	return ""
}

func in(field string, v reflect.Value, param string) string {
	s := text(v)
	for _, allowed := range strings.Split(param, "|") {
		if s == strings.TrimSpace(allowed) {
			return ""
		}
	}
	return fmt.Sprintf("The selected %s is invalid.", field)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func deref(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	}
	return v.IsZero()
}

func numeric(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}

func text(v reflect.Value) string {
	if v.Kind() == reflect.String {
		return strings.TrimSpace(v.String())
	}
	if !v.IsValid() {
		return ""
	}
	return fmt.Sprint(v.Interface())
}

func number(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func fieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	return name
}

func contains(specs []string, target string) bool {
	for _, s := range specs {
		if strings.TrimSpace(s) == target {
			return true
		}
	}
	return false
}
