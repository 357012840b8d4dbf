//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/xml"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/sfpd-cad-cot/internal/adapter/feed"
	redisadapter "github.com/couchcryptid/sfpd-cad-cot/internal/adapter/redis"
	"github.com/couchcryptid/sfpd-cad-cot/internal/cot"
	"github.com/couchcryptid/sfpd-cad-cot/internal/domain"
	"github.com/couchcryptid/sfpd-cad-cot/internal/observability"
	"github.com/couchcryptid/sfpd-cad-cot/internal/pipeline"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testQueueKey = "test:cot:tx"

func newRedisPipeline(ctx context.Context, t *testing.T, addr string, maxLen int64, logger *slog.Logger) *pipeline.Pipeline {
	t.Helper()
	queue, err := redisadapter.NewQueue(ctx, addr, 0, testQueueKey, maxLen, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = queue.Close() })

	return pipeline.New(
		feed.NewClient(startFeed(t).URL, 10*time.Second, discardLogger()),
		pipeline.NewTransformer(domain.CoTOptions{Stale: 120 * time.Second, HostID: "integration"}),
		queue,
		discardLogger(),
		observability.NewMetricsForTesting(),
		time.Minute,
	)
}

func queuedUIDs(ctx context.Context, t *testing.T, client *goredis.Client) []string {
	t.Helper()
	payloads, err := client.LRange(ctx, testQueueKey, 0, -1).Result()
	require.NoError(t, err)

	uids := make([]string, len(payloads))
	for i, payload := range payloads {
		var event cot.Event
		require.NoError(t, xml.Unmarshal([]byte(payload), &event))
		uids[i] = event.UID
	}
	return uids
}

// TestPipelineToRedis verifies events land on the queue in submission order.
func TestPipelineToRedis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	addr := startRedis(ctx, t)
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	var queueLogs bytes.Buffer
	p := newRedisPipeline(ctx, t, addr, 0, debugLogger(&queueLogs))

	result, err := p.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(wantUIDs), result.Submitted)
	assert.Equal(t, wantUIDs, queuedUIDs(ctx, t, client))
	assert.Equal(t, len(wantUIDs), strings.Count(queueLogs.String(), `msg="event enqueued"`))
	assert.Contains(t, queueLogs.String(), testQueueKey)

	// A second poll re-emits the same open calls.
	_, err = p.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, append(append([]string{}, wantUIDs...), wantUIDs...), queuedUIDs(ctx, t, client))
}

// TestPipelineToRedisMaxLen verifies the queue is trimmed to the newest entries.
func TestPipelineToRedisMaxLen(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	addr := startRedis(ctx, t)
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	p := newRedisPipeline(ctx, t, addr, 2, discardLogger())

	_, err := p.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantUIDs[1:], queuedUIDs(ctx, t, client))
}
