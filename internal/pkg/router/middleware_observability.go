package router

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

const maxLoggedBody = 4 << 10

type exchangeKey struct{}

// exchange collects what the access log line reports about one request.
type exchange struct {
	status int
	bytes  int64
	body   *bytes.Buffer
	err    error
}

func (x *exchange) capture(p []byte) {
	if x.body == nil {
		return
	}
	if room := maxLoggedBody - x.body.Len(); room > 0 {
		x.body.Write(p[:min(room, len(p))])
	}
}

// recordError attaches a handler error to the access log and the request span.
func recordError(ctx context.Context, err error) {
	if x, ok := ctx.Value(exchangeKey{}).(*exchange); ok {
		x.err = err
	}
	trace.SpanFromContext(ctx).RecordError(err)
}

// peekJSON copies up to maxLoggedBody bytes of a JSON request body and
// leaves r.Body readable from the start.
func peekJSON(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt != "application/json" {
		return nil
	}

	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	return head
}

// flatHeaders turns h into a map the log redactor can mask by key.
func flatHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

// observe traces and meters each request through otelhttp and writes one
// access log line after the handler returns. Bodies are logged only when
// logBodies is set; masking is left to the slog redaction handler.
func observe(ins instrument.Instrumentation, logBodies bool) Middleware {
	return func(next http.Handler) http.Handler {
		logged := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			x := &exchange{}

			var reqBody []byte
			if logBodies {
				reqBody = peekJSON(r)
				x.body = &bytes.Buffer{}
			}

			ww := httpsnoop.Wrap(w, httpsnoop.Hooks{
				WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
					return func(code int) {
						if x.status == 0 {
							x.status = code
						}
						next(code)
					}
				},
				Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
					return func(p []byte) (int, error) {
						if x.status == 0 {
							x.status = http.StatusOK
						}
						x.capture(p)
						n, err := next(p)
						x.bytes += int64(n)
						return n, err
					}
				},
			})

			ctx := context.WithValue(r.Context(), exchangeKey{}, x)
			next.ServeHTTP(ww, r.WithContext(ctx))

			logExchange(ctx, r, x, reqBody, time.Since(start))
		})

		return otelhttp.NewHandler(logged, "http.server",
			otelhttp.WithTracerProvider(ins.TracerProvider()),
			otelhttp.WithMeterProvider(ins.MeterProvider()),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + routeOf(r)
			}),
		)
	}
}

func logExchange(ctx context.Context, r *http.Request, x *exchange, reqBody []byte, took time.Duration) {
	status := x.status
	if status == 0 {
		status = http.StatusOK
	}

	attrs := []any{
		"method", r.Method,
		"route", routeOf(r),
		"uri", r.URL.RequestURI(),
		"status", status,
		"bytes", x.bytes,
		"latency_ms", took.Milliseconds(),
		"client_ip", ClientIP(ctx),
		"headers", flatHeaders(r.Header),
	}
	if len(reqBody) > 0 {
		attrs = append(attrs, "request_body", string(reqBody))
	}
	if x.body != nil && x.body.Len() > 0 {
		attrs = append(attrs, "response_body", x.body.String())
	}
	if x.err != nil {
		attrs = append(attrs, "error", x.err)
	}

	level := slog.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "http request served", attrs...)
}
