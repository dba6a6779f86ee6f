package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/quartzdb/quartz/pkg/types"
)

func TestRegisterMetrics(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	defer func() {
		assert.NoError(t, mp.Shutdown(context.Background()))
	}()

	m, err := RegisterMetrics(mp.Meter("test"), types.TabletID(1))
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, m.Close())
	}()

	m.RecordPrepare(context.Background(), 10)
	m.RecordApply(context.Background(), 20)
	m.RecordRound(context.Background(), 3)
	m.PreparerInflight.Store(5)
	m.ApplierInflight.Store(7)
	m.TrackedDrivers.Store(11)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	collected := make(map[string]metricdata.Metrics, len(rm.ScopeMetrics[0].Metrics))
	for _, md := range rm.ScopeMetrics[0].Metrics {
		collected[md.Name] = md
	}
	require.Contains(t, collected, "tablet.prepare.duration")
	require.Contains(t, collected, "tablet.apply.duration")
	require.Contains(t, collected, "tablet.round.drivers")

	gauges := map[string]int64{
		"tablet.preparer.inflight": 5,
		"tablet.applier.inflight":  7,
		"tablet.drivers.tracked":   11,
	}
	for name, want := range gauges {
		md, ok := collected[name]
		require.True(t, ok, name)
		gauge, ok := md.Data.(metricdata.Gauge[int64])
		require.True(t, ok, name)
		require.Len(t, gauge.DataPoints, 1, name)
		require.Equal(t, want, gauge.DataPoints[0].Value, name)
	}
}

func TestNopMetrics(t *testing.T) {
	m := NewNopMetrics()
	m.RecordPrepare(context.Background(), 1)
	m.RecordApply(context.Background(), 1)
	m.RecordRound(context.Background(), 1)
	require.NoError(t, m.Close())
}
