package router

import (
	"net/http"
	"slices"
	"strings"
)

type Middleware func(next http.Handler) http.Handler

// Chain applies mws so the first one sees the request first.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for _, mw := range slices.Backward(mws) {
		h = mw(h)
	}
	return h
}

// routeSet matches requests against "METHOD /route" entries. An entry
// without a method matches every method and "*" matches everything.
type routeSet map[string]struct{}

func newRouteSet(entries ...string) routeSet {
	rs := make(routeSet, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if method, path, ok := strings.Cut(e, " "); ok {
			e = strings.ToUpper(method) + " " + strings.TrimSpace(path)
		}
		rs[e] = struct{}{}
	}
	return rs
}

func (rs routeSet) has(method, route string) bool {
	if len(rs) == 0 {
		return false
	}
	if _, ok := rs["*"]; ok {
		return true
	}
	if _, ok := rs[route]; ok {
		return true
	}
	_, ok := rs[method+" "+route]
	return ok
}
