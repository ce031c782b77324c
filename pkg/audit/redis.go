package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink appends decision records to a Redis stream. Intended for
// deployments where a log shipper consumes the stream; the stream entry
// carries the full record as one JSON field plus a few scalar fields for
// cheap consumer-side filtering.
type RedisSink struct {
	client *redis.Client
	stream string
}

// OpenRedisSink connects and verifies the server is reachable.
func OpenRedisSink(ctx context.Context, addr, stream string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("audit: redis ping: %w", err)
	}
	return &RedisSink{client: client, stream: stream}, nil
}

func (s *RedisSink) Append(ctx context.Context, rec Record) error {
	if rec.Timestamp == "" {
		rec.Timestamp = Now()
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("audit: marshal record: %w", err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"record_id": rec.RecordID,
			"action":    rec.Action,
			"score":     rec.Score,
			"payload":   string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("audit: xadd: %w", err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
