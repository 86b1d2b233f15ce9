package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
	"github.com/shandysiswandi/docmailer/internal/pkg/stacktrace"
)

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			// net/http uses this sentinel to abort a response on purpose.
			if err, ok := rvr.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rvr)
			}

			stacktrace.LogPanic(r.Context(), "http handler panicked", rvr,
				"method", r.Method,
				"route", routeOf(r),
			)
			writeError(w, goerror.NewServer(fmt.Errorf("panic: %v", rvr)))
		}()

		next.ServeHTTP(w, r)
	})
}
