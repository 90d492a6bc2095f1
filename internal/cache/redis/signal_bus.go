package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

// SignalBus carries dashboard events over Redis pub/sub and keeps a bounded
// history in Redis streams.
type SignalBus struct {
	client       *Client
	streamMaxLen int64
}

var _ domain.SignalBus = (*SignalBus)(nil)

func NewSignalBus(client *Client, streamMaxLen int64) *SignalBus {
	if streamMaxLen <= 0 {
		streamMaxLen = 10000
	}
	return &SignalBus{client: client, streamMaxLen: streamMaxLen}
}

func (b *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns a channel of raw payloads. Channels containing * or ?
// are treated as patterns. The channel closes when ctx is cancelled.
func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	var sub *redis.PubSub
	if strings.ContainsAny(channel, "*?") {
		sub = b.client.rdb.PSubscribe(ctx, channel)
	} else {
		sub = b.client.rdb.Subscribe(ctx, channel)
	}
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *SignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	err := b.client.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: b.streamMaxLen,
		Approx: true,
		Values: map[string]any{"payload": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}

func (b *SignalBus) StreamRead(ctx context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	if lastID == "" {
		lastID = "-"
	}
	if count <= 0 {
		count = 100
	}
	entries, err := b.client.rdb.XRangeN(ctx, stream, lastID, "+", int64(count)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: stream read %s: %w", stream, err)
	}

	out := make([]domain.StreamMessage, 0, len(entries))
	for _, e := range entries {
		msg := domain.StreamMessage{ID: e.ID}
		if v, ok := e.Values["payload"].(string); ok {
			msg.Payload = []byte(v)
		}
		out = append(out, msg)
	}
	return out, nil
}
