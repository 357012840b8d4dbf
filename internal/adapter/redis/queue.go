// Package redis submits CoT events to a Redis list used as the outbound
// transmission queue. A transport process pops from the head of the list.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/sfpd-cad-cot/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Queue appends events to a Redis list. It implements pipeline.Sink and is
// safe for concurrent use.
type Queue struct {
	client goredis.UniversalClient
	key    string
	maxLen int64
	logger *slog.Logger
}

// NewQueue connects to addr and verifies the connection with PING.
// maxLen > 0 caps the list, discarding the oldest entries first.
func NewQueue(ctx context.Context, addr string, db int, key string, maxLen int64, logger *slog.Logger) (*Queue, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	logger.Info("redis queue connected", "addr", addr, "key", key)
	return newQueue(client, key, maxLen, logger), nil
}

func newQueue(client goredis.UniversalClient, key string, maxLen int64, logger *slog.Logger) *Queue {
	return &Queue{client: client, key: key, maxLen: maxLen, logger: logger}
}

// Submit pushes one serialized event onto the tail of the queue.
func (q *Queue) Submit(ctx context.Context, event domain.OutputEvent) error {
	_, err := q.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(ctx, q.key, event.Payload)
		if q.maxLen > 0 {
			pipe.LTrim(ctx, q.key, -q.maxLen, -1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", event.UID, err)
	}
	q.logger.Debug("event enqueued", "uid", event.UID, "key", q.key, "bytes", len(event.Payload))
	return nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}
