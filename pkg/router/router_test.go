package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shashiranjanraj/billbook/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tag(value string) router.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Chain", value)
			next.ServeHTTP(w, r)
		})
	}
}

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }

func TestGroupsJoinPrefixesAndMiddleware(t *testing.T) {
	r := router.New()
	api := r.Group("/api", tag("api"))
	products := api.Group("products", tag("products"))
	products.Delete("/{id}", "products.destroy", ok)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/products/9", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"api", "products"}, rec.Header().Values("X-Chain"))
}

func TestDuplicateRouteNamePanics(t *testing.T) {
	r := router.New()
	api := r.Group("/api")
	api.Get("/invoices/{id}", "invoices.show", ok)

	assert.PanicsWithValue(t,
		`router: route name "invoices.show" already used by GET /api/invoices/{id}`,
		func() { api.Put("/invoices/{id}", "invoices.show", ok) })
}

func TestUnknownMethodAndPath(t *testing.T) {
	r := router.New()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusConflict) })
	r.Get("/health", "health", ok)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRoutesAreListedInOrder(t *testing.T) {
	r := router.New()
	g := r.Group("/api")
	g.Post("/products", "products.store", ok)
	g.Get("/products", "products.index", ok)
	g.Handle(http.MethodGet, "/graphql", "", http.HandlerFunc(ok))

	routes := r.Routes()
	require.Len(t, routes, 3)
	assert.Equal(t, router.Route{Method: "GET", Path: "/api/graphql"}, routes[0])
	assert.Equal(t, "products.index", routes[1].Name)
	assert.Equal(t, "POST", routes[2].Method)
}
