package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
)

// Recoverer turns a handler panic into a logged 500. When the handler
// already started its response the status cannot change, so only the log
// line is written.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}

			LoggerFromContext(r.Context()).Error("handler panicked",
				"panic", fmt.Sprint(v),
				"response_started", rec.started(),
				"stack", string(debug.Stack()),
			)
			if !rec.started() {
				writeJSONError(rec, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(rec, r)
	})
}
