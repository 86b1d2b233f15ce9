package router

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shandysiswandi/docmailer/internal/pkg/config"
	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"github.com/shandysiswandi/docmailer/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedID string

func (f fixedID) Generate() string { return string(f) }

type stubJWT struct{}

func (stubJWT) Generate(clientID, role string) (string, error) { return clientID + ":" + role, nil }

func (stubJWT) Verify(token string) (jwt.Claims, error) {
	if token != "good" {
		return jwt.Claims{}, jwt.ErrInvalidToken
	}
	return jwt.Claims{ClientID: "acme", Role: "client"}, nil
}

func newTestRouter(t *testing.T, yaml string) *Router {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)

	return New(Config{
		Config:     cfg,
		UUID:       fixedID("generated-cid"),
		JWT:        stubJWT{},
		Instrument: instrument.NewNoop(),
	})
}

func serve(ro *Router, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ro.ServeHTTP(rec, req)
	return rec
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer good")
	return req
}

type created struct {
	ID int64 `json:"id"`
}

func (created) StatusCode() int { return http.StatusCreated }
func (created) Message() string { return "mailing submitted" }

func TestRouter_Envelope(t *testing.T) {
	ro := newTestRouter(t, `router: {public_endpoints: []}`)
	ro.GET("/ok", func(*Request) (any, error) { return map[string]int{"n": 1}, nil })
	ro.POST("/created", func(*Request) (any, error) { return created{ID: 7}, nil })
	ro.DELETE("/gone", func(*Request) (any, error) { return nil, nil })
	ro.GET("/invalid", func(*Request) (any, error) {
		return nil, goerror.NewInvalidInput(nil, "name", "is required")
	})
	ro.GET("/boom", func(*Request) (any, error) { return nil, errors.New("db down") })

	tests := []struct {
		name   string
		method string
		path   string
		status int
		body   string
	}{
		{"default ok", http.MethodGet, "/ok", http.StatusOK, `{"message":"OK","data":{"n":1}}`},
		{"status and message", http.MethodPost, "/created", http.StatusCreated, `{"message":"mailing submitted","data":{"id":7}}`},
		{"no content", http.MethodDelete, "/gone", http.StatusNoContent, ``},
		{"validation fields", http.MethodGet, "/invalid", http.StatusUnprocessableEntity,
			`{"message":"Validation error","code":"ERROR_CODE_INVALID_INPUT","error":{"name":"is required"}}`},
		{"unclassified error", http.MethodGet, "/boom", http.StatusInternalServerError,
			`{"message":"Internal server error","code":"ERROR_CODE_INTERNAL"}`},
		{"unknown route", http.MethodGet, "/nope", http.StatusNotFound,
			`{"message":"Endpoint not found","code":"ERROR_CODE_NOT_FOUND"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			rec := serve(ro, authed(httptest.NewRequest(tt.method, tt.path, nil)))

			// Assert
			assert.Equal(t, tt.status, rec.Code)
			if tt.body == "" {
				assert.Empty(t, rec.Body.String())
				return
			}
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestRouter_Authentication(t *testing.T) {
	ro := newTestRouter(t, `
router:
  public_endpoints:
    - "POST /callbacks"
`)
	ro.GET("/me", func(r *Request) (any, error) {
		return map[string]string{"client": jwt.GetAuth(r.Context()).ClientID}, nil
	})
	ro.POST("/callbacks", func(r *Request) (any, error) {
		return map[string]bool{"anonymous": jwt.GetAuth(r.Context()) == nil}, nil
	})

	t.Run("missing token", func(t *testing.T) {
		rec := serve(ro, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
		assert.JSONEq(t, `{"message":"Authentication required","code":"ERROR_CODE_UNAUTHORIZED"}`, rec.Body.String())
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Basic good")

		rec := serve(ro, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejected token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer forged")

		rec := serve(ro, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"message":"Invalid or expired token","code":"ERROR_CODE_UNAUTHORIZED"}`, rec.Body.String())
	})

	t.Run("claims reach the handler", func(t *testing.T) {
		rec := serve(ro, authed(httptest.NewRequest(http.MethodGet, "/me", nil)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"OK","data":{"client":"acme"}}`, rec.Body.String())
	})

	t.Run("public route", func(t *testing.T) {
		rec := serve(ro, httptest.NewRequest(http.MethodPost, "/callbacks", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"OK","data":{"anonymous":true}}`, rec.Body.String())
	})

	t.Run("welcome is public", func(t *testing.T) {
		rec := serve(ro, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Docmailer API","data":{}}`, rec.Body.String())
	})
}

func TestRouter_Maintenance(t *testing.T) {
	ro := newTestRouter(t, `
app:
  maintenance:
    endpoints: ["*"]
    retry_after_seconds: 120
`)
	ro.GET("/health", func(*Request) (any, error) { return map[string]string{"status": "ok"}, nil })
	ro.GET("/api/v1/balance", func(*Request) (any, error) { return map[string]int{"balance": 1}, nil })

	rec := serve(ro, authed(httptest.NewRequest(http.MethodGet, "/api/v1/balance", nil)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "120", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"message":"Service is under maintenance","code":"ERROR_CODE_UNAVAILABLE"}`, rec.Body.String())

	rec = serve(ro, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CorrelationID(t *testing.T) {
	ro := newTestRouter(t, `router: {}`)
	ro.GET("/cid", func(r *Request) (any, error) {
		return map[string]string{"cid": instrument.GetCorrelationID(r.Context())}, nil
	})

	tests := []struct {
		name   string
		header string
		value  string
		want   string
	}{
		{"kept", HeaderCorrelationID, "abc-123", "abc-123"},
		{"request id fallback", HeaderRequestID, "from-proxy", "from-proxy"},
		{"spaces replaced", HeaderCorrelationID, "has space", "generated-cid"},
		{"absent", "", "", "generated-cid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authed(httptest.NewRequest(http.MethodGet, "/cid", nil))
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}

			rec := serve(ro, req)

			assert.Equal(t, tt.want, rec.Header().Get(HeaderCorrelationID))
			assert.JSONEq(t, `{"message":"OK","data":{"cid":"`+tt.want+`"}}`, rec.Body.String())
		})
	}
}

func TestRouter_RecoversPanics(t *testing.T) {
	ro := newTestRouter(t, `router: {}`)
	ro.GET("/panic", func(*Request) (any, error) { panic("nil map") })

	rec := serve(ro, authed(httptest.NewRequest(http.MethodGet, "/panic", nil)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Internal server error","code":"ERROR_CODE_INTERNAL"}`, rec.Body.String())
}

func TestRouter_BodyLimit(t *testing.T) {
	ro := newTestRouter(t, `router: {max_body_bytes: 16}`)
	ro.POST("/echo", func(r *Request) (any, error) {
		var in map[string]string
		if err := r.Decode(&in); err != nil {
			return nil, err
		}
		return in, nil
	})

	req := authed(httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString(`{"name":"a very long value"}`)))
	req.Header.Set("Content-Type", "application/json")

	rec := serve(ro, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds 16 bytes")
}

func TestRouteSet(t *testing.T) {
	rs := newRouteSet("get /a", "/b", "  ", "POST  /c")

	assert.True(t, rs.has(http.MethodGet, "/a"))
	assert.False(t, rs.has(http.MethodPost, "/a"))
	assert.True(t, rs.has(http.MethodDelete, "/b"))
	assert.True(t, rs.has(http.MethodPost, "/c"))
	assert.False(t, newRouteSet().has(http.MethodGet, "/a"))
	assert.True(t, newRouteSet("*").has(http.MethodPut, "/anything"))
}
