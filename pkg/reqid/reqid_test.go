package reqid_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shashiranjanraj/billbook/pkg/reqid"
	"github.com/stretchr/testify/assert"
)

func serve(header string) (seen string, echoed string) {
	h := reqid.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = reqid.FromCtx(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(reqid.Header, header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return seen, rec.Header().Get(reqid.Header)
}

func TestCallerIDIsKept(t *testing.T) {
	seen, echoed := serve("abc-123")
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", echoed)
}

func TestMissingOrOversizedIDIsReplaced(t *testing.T) {
	for _, in := range []string{"", strings.Repeat("x", 200)} {
		seen, echoed := serve(in)
		assert.Equal(t, seen, echoed)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
	}
}
