// Package instrument sets up OpenTelemetry traces, metrics and logs, and the
// process-wide slog logger.
package instrument

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

type Instrumentation interface {
	Tracer(name string) trace.Tracer
	Meter(name string) metric.Meter
	// TracerProvider and MeterProvider feed instrumentation libraries such as otelhttp.
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider
	Shutdown(ctx context.Context) error
}

type Config struct {
	// Enabled turns on OTLP export. Logging is configured regardless.
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string

	OTLPEndpoint string
	OTLPSecure   bool
	// TraceSampleRatio is clamped to [0, 1].
	TraceSampleRatio float64
	MetricsInterval  time.Duration

	Log LogConfig
}

// New installs the default logger and, when enabled, OTLP providers.
func New(ctx context.Context, cfg Config) (Instrumentation, error) {
	if !cfg.Enabled {
		slog.SetDefault(newLogger(os.Stdout, cfg.ServiceName, cfg.Log, nil))
		return NewNoop(), nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		attribute.String("env", cfg.Environment),
	))
	if err != nil {
		return nil, err
	}

	o := &otel{}
	if err := o.start(ctx, cfg, res); err != nil {
		return nil, errors.Join(err, o.Shutdown(ctx))
	}

	otelapi.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	slog.SetDefault(newLogger(os.Stdout, cfg.ServiceName, cfg.Log, o.lp))
	return o, nil
}

type otel struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
	lp *sdklog.LoggerProvider
}

func (o *otel) start(ctx context.Context, cfg Config, res *resource.Resource) error {
	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if !cfg.OTLPSecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		logOpts = append(logOpts, otlploggrpc.WithInsecure())
	}

	te, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return err
	}
	o.tp = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(min(max(cfg.TraceSampleRatio, 0), 1)))),
		sdktrace.WithBatcher(te),
	)

	me, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return err
	}
	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.MetricsInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricsInterval))
	}
	o.mp = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(me, readerOpts...)),
	)

	le, err := otlploggrpc.New(ctx, logOpts...)
	if err != nil {
		return err
	}
	o.lp = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(le)),
	)

	return nil
}

func (o *otel) Tracer(name string) trace.Tracer      { return o.tp.Tracer(name) }
func (o *otel) Meter(name string) metric.Meter       { return o.mp.Meter(name) }
func (o *otel) TracerProvider() trace.TracerProvider { return o.tp }
func (o *otel) MeterProvider() metric.MeterProvider  { return o.mp }

// Shutdown flushes whatever providers were started.
func (o *otel) Shutdown(ctx context.Context) error {
	var err error
	if o.tp != nil {
		err = errors.Join(err, o.tp.Shutdown(ctx))
	}
	if o.mp != nil {
		err = errors.Join(err, o.mp.Shutdown(ctx))
	}
	if o.lp != nil {
		err = errors.Join(err, o.lp.Shutdown(ctx))
	}
	return err
}

// NewNoop discards traces and metrics.
func NewNoop() Instrumentation { return noop{} }

type noop struct{}

func (noop) Tracer(name string) trace.Tracer      { return tracenoop.NewTracerProvider().Tracer(name) }
func (noop) Meter(name string) metric.Meter       { return metricnoop.NewMeterProvider().Meter(name) }
func (noop) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (noop) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }
func (noop) Shutdown(context.Context) error       { return nil }
