package runtime

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/BDNK1/credflow/runtime"

// instruments are the flow counters. They report to the global
// MeterProvider, which is a no-op until the host installs one.
type instruments struct {
	validationFailures metric.Int64Counter
	submissions        metric.Int64Counter
	transitions        metric.Int64Counter
	staleResults       metric.Int64Counter
}

func newInstruments(meter metric.Meter) *instruments {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			c, _ = fallback.Int64Counter(name)
		}
		return c
	}

	return &instruments{
		validationFailures: counter("credflow.validation.failures", "Submits rejected by local validation"),
		submissions:        counter("credflow.submissions", "Gateway calls by step and result"),
		transitions:        counter("credflow.transitions", "Step transitions applied"),
		staleResults:       counter("credflow.stale_results", "Outcomes discarded because their step was no longer active"),
	}
}

func stepAttr(step StepID) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("step", string(step)))
}

func (i *instruments) submission(ctx context.Context, step StepID, result string) {
	i.submissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", string(step)),
		attribute.String("result", result),
	))
}
