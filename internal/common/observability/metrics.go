package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type Observability struct {
	meterProvider    *metric.MeterProvider
	tracerProvider   *sdktrace.TracerProvider
	meter            otelmetric.Meter
	tracer           trace.Tracer
	dispatchCounter  otelmetric.Int64Counter
	dispatchDuration otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	tracer := tp.Tracer(serviceName)

	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{tracerProvider: tp, tracer: tracer}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	dispatchCounter, _ := meter.Int64Counter(
		"notifications.dispatched",
		otelmetric.WithDescription("Number of notifications dispatched"),
	)

	dispatchDuration, _ := meter.Float64Histogram(
		"notifications.dispatch.duration",
		otelmetric.WithDescription("Notification dispatch duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:    provider,
		tracerProvider:   tp,
		meter:            meter,
		tracer:           tracer,
		dispatchCounter:  dispatchCounter,
		dispatchDuration: dispatchDuration,
	}
}

// NewNoop returns an Observability whose recorders do nothing. Used in tests.
func NewNoop() *Observability {
	return &Observability{}
}

// StartSpan opens a span named name. The returned end func must be called.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func()) {
	if o == nil || o.tracer == nil {
		return ctx, func() {}
	}
	ctx, span := o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func() { span.End() }
}

func (o *Observability) RecordDispatch(ctx context.Context, kind, status string) {
	if o != nil && o.dispatchCounter != nil {
		o.dispatchCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordDispatchDuration(ctx context.Context, duration time.Duration, kind string) {
	if o != nil && o.dispatchDuration != nil {
		o.dispatchDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("kind", kind),
		))
	}
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
