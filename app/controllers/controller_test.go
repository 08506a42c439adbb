package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/pkg/ctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failWith(t *testing.T, err error) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	ctx.Wrap(func(c *ctx.Context) { fail(c, err) })(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestFailMapsServiceErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"validation", &services.ValidationError{Field: "items", Message: "Invoice items are required"}, 422, "Invoice items are required"},
		{"not found", &services.NotFoundError{Message: "Product not found: Widget"}, 404, "Product not found: Widget"},
		{"stock", &services.InsufficientStockError{Product: "Widget", Available: 2}, 409, "Insufficient stock for Widget. Available: 2"},
		{"unauthorized", &services.UnauthorizedError{Message: "Invalid credentials"}, 401, "Invalid credentials"},
		{"persistence", &services.PersistenceError{Op: "create invoice", Err: errors.New("disk I/O error")}, 500, "Failed to create invoice"},
		{"unknown", errors.New("boom"), 500, "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := failWith(t, tc.err)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.message, body["message"])
		})
	}
}

func TestValidationErrorCarriesField(t *testing.T) {
	_, body := failWith(t, &services.ValidationError{Field: "quantity", Message: "Invalid quantity for Widget"})
	assert.Equal(t, map[string]any{"quantity": "Invalid quantity for Widget"}, body["errors"])

	_, body = failWith(t, &services.ValidationError{Message: "no field"})
	assert.NotContains(t, body, "errors")
}
