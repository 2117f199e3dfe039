//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestRedisClient(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, RedisConfig{Addr: startRedis(t), PoolSize: 2, Prefix: "test:"})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, client.Set(ctx, AnswerKey("fp1", "q"), []byte("cached"), time.Minute))
	require.NoError(t, client.Set(ctx, AnswerKey("fp2", "q"), []byte("other"), time.Minute))

	got, err := client.Get(ctx, AnswerKey("fp1", "q"))
	require.NoError(t, err)
	assert.Equal(t, []byte("cached"), got)

	require.NoError(t, client.DeleteByPrefix(ctx, AnswerKey("fp1")))
	_, err = client.Get(ctx, AnswerKey("fp1", "q"))
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = client.Get(ctx, AnswerKey("fp2", "q"))
	assert.NoError(t, err)

	require.NoError(t, client.Delete(ctx, AnswerKey("fp2", "q")))
	_, err = client.Get(ctx, AnswerKey("fp2", "q"))
	assert.ErrorIs(t, err, ErrCacheMiss)
}
