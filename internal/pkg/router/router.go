// Package router is the HTTP surface: httprouter for matching, a fixed
// middleware chain, and handlers that return a payload or an error which the
// router renders into the JSON envelope.
package router

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/docmailer/internal/pkg/config"
	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"github.com/shandysiswandi/docmailer/internal/pkg/jwt"
	"github.com/shandysiswandi/docmailer/internal/pkg/uid"
)

const (
	healthRoute         = "/health"
	defaultMaxBodyBytes = 32 << 20
)

// Handler returns the payload to wrap in the success envelope, or an error.
type Handler func(r *Request) (any, error)

type Config struct {
	Config     config.Config
	UUID       uid.StringID
	JWT        jwt.JWT
	Instrument instrument.Instrumentation
}

type Router struct {
	hr      *httprouter.Router
	chain   []Middleware
	maxBody int64
}

// New reads its settings from the router.* and app.maintenance.* keys.
func New(cfg Config) *Router {
	c := cfg.Config

	maxBody := c.GetInt64("router.max_body_bytes")
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	public := newRouteSet(append([]string{"GET /", "GET " + healthRoute}, c.GetArray("router.public_endpoints")...)...)

	hr := &httprouter.Router{
		RedirectTrailingSlash:  true,
		RedirectFixedPath:      true,
		HandleMethodNotAllowed: true,
		HandleOPTIONS:          true,
		SaveMatchedRoutePath:   true,
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, goerror.NewBusiness("Endpoint not found", goerror.CodeNotFound))
		}),
		MethodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
				Message: "Method not allowed",
				Code:    goerror.CodeInvalidFormat.String(),
			})
		}),
	}

	ro := &Router{
		hr:      hr,
		maxBody: maxBody,
		chain: []Middleware{
			correlationID(cfg.UUID),
			clientIP(parseProxies(c.GetArray("router.trusted_proxies"))),
			observe(cfg.Instrument, c.GetBool("router.log_bodies")),
			recoverer,
			maintenance(newRouteSet(c.GetArray("app.maintenance.endpoints")...), c.GetSecond("app.maintenance.retry_after_seconds")),
			authenticate(cfg.JWT, public),
		},
	}

	ro.GET("/", func(*Request) (any, error) {
		return welcome{}, nil
	})

	return ro
}

type welcome struct{}

func (welcome) Message() string { return "Docmailer API" }

func (r *Router) GET(path string, h Handler, mws ...Middleware) {
	r.Handle(http.MethodGet, path, h, mws...)
}

func (r *Router) POST(path string, h Handler, mws ...Middleware) {
	r.Handle(http.MethodPost, path, h, mws...)
}

func (r *Router) PUT(path string, h Handler, mws ...Middleware) {
	r.Handle(http.MethodPut, path, h, mws...)
}

func (r *Router) DELETE(path string, h Handler, mws ...Middleware) {
	r.Handle(http.MethodDelete, path, h, mws...)
}

// Handle registers h behind the router chain followed by mws.
func (r *Router) Handle(method, path string, h Handler, mws ...Middleware) {
	final := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Body != nil && req.Body != http.NoBody {
			req.Body = http.MaxBytesReader(w, req.Body, r.maxBody)
		}

		resp, err := h(&Request{Request: req})
		if err != nil {
			recordError(req.Context(), err)
			writeError(w, err)
			return
		}
		writeSuccess(w, resp)
	})

	r.hr.Handler(method, path, Chain(final, append(r.chain[:len(r.chain):len(r.chain)], mws...)...))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}

// routeOf is the matched route pattern, falling back to the raw path.
func routeOf(r *http.Request) string {
	if route := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); route != "" {
		return route
	}
	return r.URL.Path
}
