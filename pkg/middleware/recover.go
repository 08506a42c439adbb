package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/shashiranjanraj/billbook/pkg/logger"
	"github.com/shashiranjanraj/billbook/pkg/metrics"
	"github.com/shashiranjanraj/billbook/pkg/response"
)

// Recovery answers a panicking handler with a 500 envelope. The stack goes
// to the request logger and the panic is counted in
// billbook_http_panics_total.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			metrics.PanicsRecovered.Inc()
			logger.WithCtx(r.Context()).Error("handler panicked",
				"panic", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			response.Error(w, http.StatusInternalServerError, "Internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}
