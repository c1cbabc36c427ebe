package booking

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// InitTelemetry initializes the OpenTelemetry meter provider and returns a
// shutdown function. Without a collector URL the global no-op provider stays
// in place and counters cost nothing.
func (app *Application) InitTelemetry() (func(context.Context), error) {
	if app.config.OtelCollectorURL == "" {
		app.logger.Info("OpenTelemetry collector URL not set, skipping initialization")

		return func(context.Context) {}, nil
	}

	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("booking-api"),
			semconv.ServiceVersion(version),
			semconv.DeploymentEnvironment(app.config.Env),
		),
	)
	if err != nil {
		return nil, errors.New("failed to create otel resource")
	}

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithEndpoint(app.config.OtelCollectorURL),
	)
	if err != nil {
		return nil, errors.New("failed to create otel metric exporter")
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(15*time.Second))),
	)

	otel.SetMeterProvider(meterProvider)

	// Counters were created against the no-op global during construction;
	// rebind them now that a real provider is in place.
	app.metrics = newReservationMetrics()

	shutdown := func(ctx context.Context) {
		err := meterProvider.Shutdown(ctx)
		if err != nil {
			app.logger.Error("failed to shutdown meter provider", "error", err)
		}
	}

	return shutdown, nil
}

// reservationMetrics counts reservation outcomes. The protocol's interesting
// failure modes (conflicts, unknown claim outcomes, invariant violations) each
// get their own series so dashboards can tell them apart.
type reservationMetrics struct {
	confirmed           otelmetric.Int64Counter
	conflicts           otelmetric.Int64Counter
	failures            otelmetric.Int64Counter
	claimTimeouts       otelmetric.Int64Counter
	invariantViolations otelmetric.Int64Counter
}

func newReservationMetrics() *reservationMetrics {
	meter := otel.Meter("cinebook/booking")

	return &reservationMetrics{
		confirmed:           newCounter(meter, "bookings.confirmed", "Bookings settled to CONFIRMED"),
		conflicts:           newCounter(meter, "bookings.conflicts", "Reservations rejected because seats were taken"),
		failures:            newCounter(meter, "bookings.failed", "Bookings settled to FAILED"),
		claimTimeouts:       newCounter(meter, "claims.unknown_outcome", "Claim calls whose outcome needed reconciliation"),
		invariantViolations: newCounter(meter, "bookings.invariant_violations", "Bookings whose ledger claims did not match their seats"),
	}
}

func newCounter(meter otelmetric.Meter, name, description string) otelmetric.Int64Counter {
	counter, err := meter.Int64Counter(name, otelmetric.WithDescription(description))
	if err != nil {
		fallback, _ := noop.Meter{}.Int64Counter(name)
		return fallback
	}

	return counter
}
