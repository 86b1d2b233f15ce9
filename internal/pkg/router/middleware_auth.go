package router

import (
	"net/http"
	"strings"

	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
	"github.com/shandysiswandi/docmailer/internal/pkg/jwt"
)

var (
	errAuthRequired = goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	errAuthInvalid  = goerror.NewBusiness("Invalid or expired token", goerror.CodeUnauthorized)
)

// bearerToken extracts the credential of an "Authorization: Bearer" header.
func bearerToken(h string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// authenticate puts verified claims in the context. Routes in public pass
// through untouched.
func authenticate(verifier jwt.JWT, public routeSet) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public.has(r.Method, routeOf(r)) {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="docmailer"`)
				writeError(w, errAuthRequired)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				writeError(w, errAuthInvalid)
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}
