package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher 将事件 PUBLISH 到频道，并追加到有长度上限的 Stream
type RedisPublisher struct {
	rdb     redis.UniversalClient
	channel string
	stream  string
	maxLen  int64
}

// NewRedisPublisher channel 或 stream 为空时跳过对应写入
func NewRedisPublisher(rdb redis.UniversalClient, channel, stream string, maxLen int64) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel, stream: stream, maxLen: maxLen}
}

// Name 实现 Publisher
func (p *RedisPublisher) Name() string { return "redis" }

// Publish 实现 Publisher
func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pipe := p.rdb.Pipeline()
	if p.channel != "" {
		pipe.Publish(ctx, p.channel, data)
	}
	if p.stream != "" {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: p.maxLen,
			Approx: true,
			Values: map[string]any{"id": e.ID, "op": e.Op, "ok": e.OK, "event": data},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish event: %w", err)
	}
	return nil
}
