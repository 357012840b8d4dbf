package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/sfpd-cad-cot/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableAddr has nothing listening on it.
const unreachableAddr = "127.0.0.1:1"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewQueue_PingFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewQueue(ctx, unreachableAddr, 0, "cot:tx", 0, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}

func TestQueue_SubmitFailureNamesEvent(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        unreachableAddr,
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	q := newQueue(client, "cot:tx", 10, discardLogger())
	t.Cleanup(func() { _ = q.Close() })

	err := q.Submit(context.Background(), domain.OutputEvent{UID: "SFPDCAD.221650608", Payload: []byte("<event/>")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enqueue SFPDCAD.221650608")
}
