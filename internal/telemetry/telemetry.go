package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Telemetry holds the run metrics. A zero value (telemetry disabled) is
// valid: every record method is nil-safe, so callers never branch on it.
type Telemetry struct {
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter

	fetchesTotal  metric.Int64Counter
	bytesFetched  metric.Int64Counter
	fetchDuration metric.Float64Histogram
}

// Config holds telemetry configuration.
type Config struct {
	Enabled        bool
	Endpoint       string
	ServiceName    string
	ServiceVersion string
}

// New creates a new telemetry instance. Metrics are pushed over OTLP/gRPC;
// a batch run relies on Shutdown to flush whatever the periodic reader has
// not exported yet.
func New(ctx context.Context, cfg Config) (*Telemetry, error) {
	if !cfg.Enabled {
		return &Telemetry{}, nil
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(meterProvider)

	t := &Telemetry{
		meterProvider: meterProvider,
		meter:         meterProvider.Meter(cfg.ServiceName),
	}

	if err := t.initializeMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return t, nil
}

func (t *Telemetry) initializeMetrics() error {
	var err error

	t.fetchesTotal, err = t.meter.Int64Counter("fetches_total",
		metric.WithDescription("Dataset files resolved, by terminal status"),
	)
	if err != nil {
		return err
	}

	t.bytesFetched, err = t.meter.Int64Counter("bytes_fetched_total",
		metric.WithDescription("Bytes written to local storage"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	t.fetchDuration, err = t.meter.Float64Histogram("fetch_duration_seconds",
		metric.WithDescription("Time to resolve one dataset file"),
		metric.WithUnit("s"),
	)

	return err
}

// RecordFetch records the outcome of one target.
func (t *Telemetry) RecordFetch(ctx context.Context, status string, bytes int64, duration time.Duration) {
	if t == nil {
		return
	}

	if t.fetchesTotal != nil {
		t.fetchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}

	if t.bytesFetched != nil && bytes > 0 {
		t.bytesFetched.Add(ctx, bytes)
	}

	if t.fetchDuration != nil {
		t.fetchDuration.Record(ctx, duration.Seconds(),
			metric.WithAttributes(attribute.String("status", status)))
	}
}

// Shutdown flushes pending metrics. Call after the summary is written.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.meterProvider == nil {
		return nil
	}

	return t.meterProvider.Shutdown(ctx)
}
