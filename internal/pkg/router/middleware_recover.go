package router

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/shandysiswandi/gorelay/internal/pkg/stacktrace"
)

func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if err, ok := rvr.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rvr)
			}

			stack := debug.Stack()
			attrs := []any{"because", fmt.Sprint(rvr), "route", matchedRoutePath(r)}
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				attrs = append(attrs, "stack", paths)
			} else {
				attrs = append(attrs, "stack", string(stack))
			}
			slog.ErrorContext(r.Context(), "panic recovered in http handler", attrs...)

			if setter, ok := w.(interface{ SetError(error) }); ok {
				setter.SetError(fmt.Errorf("panic: %v", rvr))
			}
			writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
