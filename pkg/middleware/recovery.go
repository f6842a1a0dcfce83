package middleware

import (
	"fmt"
	"net/http"
	"rentio/pkg/logger"
	"runtime/debug"
)

// Recovery turns a handler panic into a 500. It sits outside RequestLogging,
// so the request id is read back from the response header set there.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tracked := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}

				log.Error("Panic recovered",
					"request_id", w.Header().Get(RequestIDHeader),
					"panic", fmt.Sprint(p),
					"method", r.Method,
					"path", r.URL.Path,
					"headers_sent", tracked.written,
					"stack", string(debug.Stack()),
				)

				if !tracked.written {
					writeJSONError(w, http.StatusInternalServerError, `{"error":"Internal server error"}`)
				}
			}()

			next.ServeHTTP(tracked, r)
		})
	}
}
