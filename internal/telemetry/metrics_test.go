package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestChatMetricsRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewChatMetrics(mp.Meter("test"))
	require.NoError(t, err)
	ctx := context.Background()

	m.MessageSent(ctx, "direct", "text")
	m.MessageSent(ctx, "group", "image")
	m.MessagesRead(ctx, "direct", 3)
	m.MessagesRead(ctx, "direct", 0)
	m.ImageStored(ctx, 1024)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, mt := range sm.Metrics {
			sum, ok := mt.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				totals[mt.Name] += dp.Value
			}
		}
	}
	require.Equal(t, int64(2), totals["chat.messages.sent"])
	require.Equal(t, int64(3), totals["chat.messages.read"])
	require.Equal(t, int64(1024), totals["chat.images.bytes"])
}

func TestNoopMetrics(t *testing.T) {
	m := Noop()
	m.MessageSent(context.Background(), "direct", "text")
	m.BroadcastFailed(context.Background(), "user")
}
