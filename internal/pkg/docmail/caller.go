package docmail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "docmail"

// ProgressFunc is called after every remote call, whatever its outcome.
type ProgressFunc func(ctx context.Context, proc string)

// Caller runs one remote procedure and returns its validated result payload.
type Caller struct {
	transport Transport
	progress  ProgressFunc

	tracer   trace.Tracer
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// Option configures a Caller, and through it a Client.
type Option func(*Caller)

// WithProgress installs a hook run after every remote call.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Caller) { c.progress = fn }
}

// WithTracer replaces the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Caller) { c.tracer = t }
}

// WithMeter records call metrics on m instead of the global meter.
func WithMeter(m metric.Meter) Option {
	return func(c *Caller) { c.calls, c.duration = newCallMetrics(m) }
}

func NewCaller(t Transport, opts ...Option) *Caller {
	c := &Caller{
		transport: t,
		tracer:    otel.Tracer(instrumentationName),
	}
	c.calls, c.duration = newCallMetrics(otel.Meter(instrumentationName))

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func newCallMetrics(m metric.Meter) (metric.Int64Counter, metric.Float64Histogram) {
	calls, err := m.Int64Counter("docmail.calls",
		metric.WithDescription("Docmail remote calls by procedure and outcome"))
	if err != nil {
		otel.Handle(err)
	}
	duration, err := m.Float64Histogram("docmail.call.duration",
		metric.WithDescription("Docmail remote call latency"),
		metric.WithUnit("s"))
	if err != nil {
		otel.Handle(err)
	}
	return calls, duration
}

// Call invokes proc and returns the content of its "<proc>Result" field after
// CheckError accepted it.
func (c *Caller) Call(ctx context.Context, proc string, params Params) (result string, err error) {
	ctx, span := c.tracer.Start(ctx, "docmail."+proc)
	start := time.Now()

	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.WarnContext(ctx, "docmail call failed", "proc", proc, "error", err)
		}
		attrs := metric.WithAttributes(attribute.String("proc", proc), attribute.String("outcome", outcome))
		if c.calls != nil {
			c.calls.Add(ctx, 1, attrs)
		}
		if c.duration != nil {
			c.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		}
		span.End()

		if c.progress != nil {
			c.progress(ctx, proc)
		}
	}()

	resp, err := c.transport.Call(ctx, proc, params)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrTransport, proc, err)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: %s: no response envelope", ErrTransport, proc)
	}

	result, ok := resp[proc+"Result"]
	if !ok {
		return "", fmt.Errorf("%w: field %sResult not found in response", ErrProtocol, proc)
	}

	if err := CheckError(result); err != nil {
		return "", err
	}

	return result, nil
}
