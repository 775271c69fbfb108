package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// VerdictStream is the Redis stream that receives one entry per rumor check.
const VerdictStream = "rumorcheck.verdicts"

// Publisher forwards completed rumor checks to external consumers.
type Publisher interface {
	Publish(ctx context.Context, check RumorCheckDTO) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, RumorCheckDTO) error { return nil }

// RedisPublisher appends rumor checks to a Redis stream.
type RedisPublisher struct {
	rdb    *redis.Client
	stream string
}

// NewRedisPublisher connects to the Redis instance at url.
func NewRedisPublisher(url string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisPublisherFromClient(redis.NewClient(opt)), nil
}

// NewRedisPublisherFromClient wraps an existing client.
func NewRedisPublisherFromClient(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, stream: VerdictStream}
}

// Ping checks that Redis is reachable.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Publish adds the check to the stream.
func (p *RedisPublisher) Publish(ctx context.Context, check RumorCheckDTO) error {
	reasons, err := json.Marshal(check.Reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}
	_, err = p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"id":             check.ID,
			"classification": check.Classification,
			"confidence":     check.Confidence,
			"raw_label":      check.RawLabel,
			"engine":         check.Engine,
			"reasons":        string(reasons),
			"evaluated_at":   check.EvaluatedAt.UTC().Format(time.RFC3339),
		},
	}).Result()
	return err
}

// Close releases the Redis connection pool.
func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}
