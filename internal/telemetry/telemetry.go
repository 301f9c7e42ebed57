// Package telemetry configures the OpenTelemetry metrics SDK. Instruments
// created through otel.Meter after Setup are collected by the installed
// provider and, when an endpoint is configured, pushed over OTLP/gRPC.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const defaultExportInterval = 15 * time.Second

type Settings struct {
	ServiceName string
	Environment string
	// Endpoint is an OTLP/gRPC host:port. Empty disables export.
	Endpoint string
	Interval time.Duration
}

type ShutdownFunc func(context.Context) error

// NewMeterProvider builds a provider tagged with the service resource.
// Extra readers are attached as given, which is how tests observe it.
func NewMeterProvider(ctx context.Context, settings Settings, readers ...sdkmetric.Reader) (*sdkmetric.MeterProvider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", settings.ServiceName),
		attribute.String("deployment.environment", settings.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}

	if settings.Endpoint != "" {
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(settings.Endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("telemetry: create otlp exporter: %w", err)
		}

		interval := settings.Interval
		if interval <= 0 {
			interval = defaultExportInterval
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)),
		))
	}

	return sdkmetric.NewMeterProvider(opts...), nil
}

// Setup installs the provider globally and returns its shutdown, which
// flushes pending exports.
func Setup(ctx context.Context, settings Settings) (ShutdownFunc, error) {
	provider, err := NewMeterProvider(ctx, settings)
	if err != nil {
		return nil, err
	}

	otel.SetMeterProvider(provider)

	return provider.Shutdown, nil
}
