package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultStream = "watchdog:decisions"
	DefaultMaxLen = 10000

	eventField = "event"
)

// RedisStream appends events to a capped Redis stream.
type RedisStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

var _ Transport = (*RedisStream)(nil)

func NewRedisStream(ctx context.Context, url, stream string, maxLen int64) (*RedisStream, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return newRedisStream(client, stream, maxLen), nil
}

func newRedisStream(client *redis.Client, stream string, maxLen int64) *RedisStream {
	if stream == "" {
		stream = DefaultStream
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &RedisStream{client: client, stream: stream, maxLen: maxLen}
}

func (s *RedisStream) Backend() string { return "redis" }

func (s *RedisStream) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{eventField: string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

func (s *RedisStream) Recent(ctx context.Context, n int) ([]Event, error) {
	if n <= 0 {
		n = 100
	}
	msgs, err := s.client.XRevRangeN(ctx, s.stream, "+", "-", int64(n)).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange %s: %w", s.stream, err)
	}
	events := make([]Event, 0, len(msgs))
	for _, msg := range msgs {
		ev, err := decodeMessage(msg)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *RedisStream) Close() error {
	return s.client.Close()
}

func decodeMessage(msg redis.XMessage) (Event, error) {
	raw, ok := msg.Values[eventField].(string)
	if !ok {
		return Event{}, fmt.Errorf("stream entry %s: missing %q field", msg.ID, eventField)
	}
	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return Event{}, fmt.Errorf("stream entry %s: %w", msg.ID, err)
	}
	return ev, nil
}
