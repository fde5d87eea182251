package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	kafka "github.com/segmentio/kafka-go"
)

// Bus carries envelopes between instances. Every instance subscribes and
// delivers what it receives to its local hub, including its own publishes.
type Bus interface {
	Publish(ctx context.Context, env Envelope) error
	// Subscribe runs handle for each envelope until ctx is done.
	Subscribe(ctx context.Context, handle func(Envelope)) error
	Close() error
}

type BusConfig struct {
	Driver       string   `json:",default=local,options=local|redis|kafka"`
	RedisURL     string   `json:",optional"`
	Channel      string   `json:",default=chat:realtime"`
	KafkaBrokers []string `json:",optional"`
	KafkaTopic   string   `json:",default=chat.realtime"`
}

func NewBus(c BusConfig, log *slog.Logger) (Bus, error) {
	if log == nil {
		log = slog.Default()
	}
	switch strings.ToLower(c.Driver) {
	case "redis":
		opt, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("realtime redis url: %w", err)
		}
		return NewRedisBus(redis.NewClient(opt), c.Channel, log), nil
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("realtime kafka: brokers required")
		}
		return NewKafkaBus(c.KafkaBrokers, c.KafkaTopic, log), nil
	default:
		return NewLocalBus(), nil
	}
}

// LocalBus hands envelopes straight to the subscriber of this process.
type LocalBus struct {
	ch chan Envelope
}

func NewLocalBus() *LocalBus { return &LocalBus{ch: make(chan Envelope, 256)} }

func (b *LocalBus) Publish(ctx context.Context, env Envelope) error {
	select {
	case b.ch <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *LocalBus) Subscribe(ctx context.Context, handle func(Envelope)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-b.ch:
			handle(env)
		}
	}
}

func (b *LocalBus) Close() error { return nil }

type RedisBus struct {
	cli     *redis.Client
	channel string
	log     *slog.Logger
}

func NewRedisBus(cli *redis.Client, channel string, log *slog.Logger) *RedisBus {
	return &RedisBus{cli: cli, channel: channel, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.cli.Publish(ctx, b.channel, data).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, handle func(Envelope)) error {
	sub := b.cli.Subscribe(ctx, b.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("[realtime] bad envelope", "bus", "redis", "err", err)
				continue
			}
			handle(env)
		}
	}
}

func (b *RedisBus) Close() error { return b.cli.Close() }

// KafkaBus gives each instance its own consumer group so every instance
// sees every envelope.
type KafkaBus struct {
	w       *kafka.Writer
	brokers []string
	topic   string
	group   string
	log     *slog.Logger
}

func NewKafkaBus(brokers []string, topic string, log *slog.Logger) *KafkaBus {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireOne,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaBus{w: w, brokers: brokers, topic: topic, group: "chat-realtime-" + uuid.NewString(), log: log}
}

func (b *KafkaBus) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.w.WriteMessages(ctx, kafka.Message{Value: data})
}

func (b *KafkaBus) Subscribe(ctx context.Context, handle func(Envelope)) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		Topic:       b.topic,
		GroupID:     b.group,
		StartOffset: kafka.LastOffset,
	})
	defer r.Close()
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka read: %w", err)
		}
		var env Envelope
		if err := json.Unmarshal(m.Value, &env); err != nil {
			b.log.Warn("[realtime] bad envelope", "bus", "kafka", "err", err)
			continue
		}
		handle(env)
	}
}

func (b *KafkaBus) Close() error { return b.w.Close() }
