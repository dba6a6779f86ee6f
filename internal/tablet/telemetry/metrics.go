// Package telemetry provides metrics measured in the tablet write path.
package telemetry

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/quartzdb/quartz/pkg/types"
)

// Metrics is a set of measurements taken in the write path of a tablet.
//
// Histograms are synchronous OpenTelemetry instruments. Inflight counters are
// built-in atomics incremented by the write path and collected by an
// asynchronous measurement cycle.
type Metrics struct {
	attrs metric.MeasurementOption

	// PrepareDuration measures the time spent in the prepare step of an
	// operation in microseconds.
	PrepareDuration metric.Int64Histogram

	// ApplyDuration measures the time spent in the apply step of an operation
	// in microseconds, including the write-log append.
	ApplyDuration metric.Int64Histogram

	// RoundDrivers measures the number of drivers coalesced into one
	// replication round.
	RoundDrivers metric.Int64Histogram

	// PreparerInflight and ApplierInflight are the numbers of operations
	// queued or running in the prepare pool and the apply pool.
	PreparerInflight atomic.Int64
	ApplierInflight  atomic.Int64

	// TrackedDrivers is the number of live operation drivers, used by outer
	// layers for back-pressure.
	TrackedDrivers atomic.Int64

	registration metric.Registration
}

// RegisterMetrics creates instruments for the tablet on the given meter.
func RegisterMetrics(meter metric.Meter, tid types.TabletID) (m *Metrics, err error) {
	m = &Metrics{
		attrs: metric.WithAttributeSet(attribute.NewSet(
			attribute.Int("tablet.id", int(tid)),
		)),
	}

	m.PrepareDuration, err = meter.Int64Histogram(
		"tablet.prepare.duration",
		metric.WithUnit("us"),
		metric.WithDescription("Time spent preparing and starting an operation"),
	)
	if err != nil {
		return nil, err
	}

	m.ApplyDuration, err = meter.Int64Histogram(
		"tablet.apply.duration",
		metric.WithUnit("us"),
		metric.WithDescription("Time spent applying an operation and appending its commit record"),
	)
	if err != nil {
		return nil, err
	}

	m.RoundDrivers, err = meter.Int64Histogram(
		"tablet.round.drivers",
		metric.WithUnit("{driver}"),
		metric.WithDescription("Number of drivers coalesced into a replication round"),
	)
	if err != nil {
		return nil, err
	}

	preparerInflight, err := meter.Int64ObservableGauge(
		"tablet.preparer.inflight",
		metric.WithDescription("Number of operations queued or running in the prepare pool"),
	)
	if err != nil {
		return nil, err
	}
	applierInflight, err := meter.Int64ObservableGauge(
		"tablet.applier.inflight",
		metric.WithDescription("Number of operations queued or running in the apply pool"),
	)
	if err != nil {
		return nil, err
	}
	trackedDrivers, err := meter.Int64ObservableGauge(
		"tablet.drivers.tracked",
		metric.WithDescription("Number of live operation drivers"),
	)
	if err != nil {
		return nil, err
	}

	m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(preparerInflight, m.PreparerInflight.Load(), m.attrs)
		o.ObserveInt64(applierInflight, m.ApplierInflight.Load(), m.attrs)
		o.ObserveInt64(trackedDrivers, m.TrackedDrivers.Load(), m.attrs)
		return nil
	}, preparerInflight, applierInflight, trackedDrivers)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewNopMetrics returns metrics whose instruments do nothing. It is useful
// when no meter is configured.
func NewNopMetrics() *Metrics {
	m, err := RegisterMetrics(noop.NewMeterProvider().Meter("nop"), 0)
	if err != nil {
		panic(err)
	}
	return m
}

// RecordPrepare records the duration of the prepare step.
func (m *Metrics) RecordPrepare(ctx context.Context, micros int64) {
	m.PrepareDuration.Record(ctx, micros, m.attrs)
}

// RecordApply records the duration of the apply step.
func (m *Metrics) RecordApply(ctx context.Context, micros int64) {
	m.ApplyDuration.Record(ctx, micros, m.attrs)
}

// RecordRound records the number of drivers in a replication round.
func (m *Metrics) RecordRound(ctx context.Context, drivers int) {
	m.RoundDrivers.Record(ctx, int64(drivers), m.attrs)
}

// Close unregisters the asynchronous measurement callback.
func (m *Metrics) Close() error {
	if m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}
