package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/shashiranjanraj/billbook/config"
)

// CORSOptions configures the CORS middleware. An origin entry of "*" allows
// any origin; "*.example.com" allows every subdomain of example.com.
type CORSOptions struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int // seconds
}

// DefaultCORSOptions reads CORS_ORIGINS (comma separated, default "*").
func DefaultCORSOptions() CORSOptions {
	var origins []string
	for _, o := range strings.Split(config.Get("CORS_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return CORSOptions{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}
}

func (o CORSOptions) allow(origin string) string {
	if slices.Contains(o.AllowedOrigins, "*") {
		return "*"
	}
	if origin == "" {
		return ""
	}
	for _, a := range o.AllowedOrigins {
		if a == origin {
			return origin
		}
		if suffix, ok := strings.CutPrefix(a, "*."); ok {
			_, host, found := strings.Cut(origin, "://")
			if !found {
				host = origin
			}
			if strings.HasSuffix(host, "."+suffix) {
				return origin
			}
		}
	}
	return ""
}

// CORS sets the Access-Control headers for allowed origins and answers
// preflight requests with 204.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	methods := strings.Join(opts.AllowedMethods, ", ")
	headers := strings.Join(opts.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(opts.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			if allowed := opts.allow(r.Header.Get("Origin")); allowed != "" {
				h.Set("Access-Control-Allow-Origin", allowed)
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				h.Set("Access-Control-Expose-Headers", "X-Request-ID")
				if opts.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", maxAge)
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
