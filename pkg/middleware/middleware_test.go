package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shashiranjanraj/billbook/config"
	"github.com/shashiranjanraj/billbook/pkg/auth"
	"github.com/shashiranjanraj/billbook/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORSAllowsListedAndSubdomainOrigins(t *testing.T) {
	h := middleware.CORS(middleware.CORSOptions{
		AllowedOrigins: []string{"https://app.billbook.test", "*.shop.test"},
		AllowedMethods: []string{"GET"},
		MaxAge:         60,
	})(ok)

	for origin, want := range map[string]string{
		"https://app.billbook.test": "https://app.billbook.test",
		"https://east.shop.test":    "https://east.shop.test",
		"https://evil.test":         "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, want, rec.Header().Get("Access-Control-Allow-Origin"), origin)
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	}
}

func TestCORSAnswersPreflight(t *testing.T) {
	called := false
	h := middleware.CORS(middleware.CORSOptions{AllowedOrigins: []string{"*"}})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/invoices", nil)
	req.Header.Set("Origin", "https://x.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, called)
}

func TestRecoveryReturnsEnvelope(t *testing.T) {
	h := middleware.Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":500,"message":"Internal server error"}`, rec.Body.String())
}

func TestLimiterWindow(t *testing.T) {
	l := middleware.NewLimiter(2, time.Minute)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func sendFrom(h http.Handler, peer, forwarded string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/otp/send", nil)
	req.RemoteAddr = peer + ":4000"
	if forwarded != "" {
		req.Header.Set("X-Forwarded-For", forwarded)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitIgnoresForwardedForWithoutTrustedProxies(t *testing.T) {
	config.Set("TRUSTED_PROXIES", "")
	h := middleware.RateLimit(1, time.Minute)(ok)

	assert.Equal(t, http.StatusOK, sendFrom(h, "203.0.113.7", "1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(h, "203.0.113.7", "2.2.2.2"))
}

func TestRateLimitUsesForwardedClientBehindTrustedProxy(t *testing.T) {
	config.Set("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1")
	t.Cleanup(func() { config.Set("TRUSTED_PROXIES", "") })
	h := middleware.RateLimit(1, time.Minute)(ok)

	assert.Equal(t, http.StatusOK, sendFrom(h, "192.0.2.1", "1.1.1.1, 10.0.0.5"))
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(h, "192.0.2.1", "1.1.1.1"))
	// A spoofed left-most hop does not change the client the proxy saw.
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(h, "192.0.2.1", "9.9.9.9, 1.1.1.1"))
	assert.Equal(t, http.StatusOK, sendFrom(h, "192.0.2.1", "2.2.2.2"))
}

func TestProxiesClientIP(t *testing.T) {
	proxies := middleware.ParseProxies([]string{"10.0.0.0/8", "bogus", "192.0.2.1"})
	require.Len(t, proxies, 2)

	cases := []struct {
		peer, forwarded, want string
	}{
		{"203.0.113.7", "1.1.1.1", "203.0.113.7"},
		{"192.0.2.1", "", "192.0.2.1"},
		{"192.0.2.1", "1.1.1.1, 10.0.0.5, 10.0.0.6", "1.1.1.1"},
		{"192.0.2.1", "10.0.0.5", "10.0.0.5"},
		{"192.0.2.1", "not-an-ip, 1.1.1.1", "1.1.1.1"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.peer + ":4000"
		if tc.forwarded != "" {
			req.Header.Set("X-Forwarded-For", tc.forwarded)
		}
		assert.Equal(t, tc.want, proxies.ClientIP(req), "%s via %s", tc.forwarded, tc.peer)
	}
}

func TestAuthPutsOwnerInContext(t *testing.T) {
	token, err := auth.GenerateToken(42, "user")
	require.NoError(t, err)

	var owner uint
	h := middleware.Auth(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		owner = auth.UserID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.EqualValues(t, 42, owner)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthAcceptsQueryTokenOnlyForWebsocket(t *testing.T) {
	token, err := auth.GenerateToken(7, "user")
	require.NoError(t, err)
	h := middleware.Auth(ok)

	plain := httptest.NewRecorder()
	h.ServeHTTP(plain, httptest.NewRequest(http.MethodGet, "/api/ws/stock?token="+token, nil))
	assert.Equal(t, http.StatusUnauthorized, plain.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/ws/stock?token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	upgraded := httptest.NewRecorder()
	h.ServeHTTP(upgraded, req)
	assert.Equal(t, http.StatusOK, upgraded.Code)
}
