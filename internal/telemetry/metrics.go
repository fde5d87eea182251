package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	ConversationTypeKey = attribute.Key("chat.conversation_type")
	MessageTypeKey      = attribute.Key("chat.message_type")
	RoomKindKey         = attribute.Key("chat.room_kind")
)

type ChatMetrics struct {
	sent            metric.Int64Counter
	read            metric.Int64Counter
	broadcastFailed metric.Int64Counter
	imageBytes      metric.Int64Counter
}

func NewChatMetrics(meter metric.Meter) (*ChatMetrics, error) {
	m := &ChatMetrics{}
	var err error
	if m.sent, err = meter.Int64Counter("chat.messages.sent",
		metric.WithDescription("Messages persisted")); err != nil {
		return nil, err
	}
	if m.read, err = meter.Int64Counter("chat.messages.read",
		metric.WithDescription("Rows flipped to read")); err != nil {
		return nil, err
	}
	if m.broadcastFailed, err = meter.Int64Counter("chat.broadcast.failed",
		metric.WithDescription("Realtime emits that failed")); err != nil {
		return nil, err
	}
	if m.imageBytes, err = meter.Int64Counter("chat.images.bytes",
		metric.WithDescription("Re-encoded image bytes stored"),
		metric.WithUnit("By")); err != nil {
		return nil, err
	}
	return m, nil
}

// Noop returns metrics backed by the no-op meter.
func Noop() *ChatMetrics {
	m, _ := NewChatMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}

func (m *ChatMetrics) MessageSent(ctx context.Context, conv, typ string) {
	m.sent.Add(ctx, 1, metric.WithAttributes(ConversationTypeKey.String(conv), MessageTypeKey.String(typ)))
}

func (m *ChatMetrics) MessagesRead(ctx context.Context, conv string, n int64) {
	if n <= 0 {
		return
	}
	m.read.Add(ctx, n, metric.WithAttributes(ConversationTypeKey.String(conv)))
}

func (m *ChatMetrics) BroadcastFailed(ctx context.Context, kind string) {
	m.broadcastFailed.Add(ctx, 1, metric.WithAttributes(RoomKindKey.String(kind)))
}

func (m *ChatMetrics) ImageStored(ctx context.Context, size int) {
	m.imageBytes.Add(ctx, int64(size))
}
