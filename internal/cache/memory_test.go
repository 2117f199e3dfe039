package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)
	defer c.Close()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryClient_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)
	defer c.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	now = now.Add(2 * time.Second)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_EvictsEarliestExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(2)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "long", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "new", []byte("3"), time.Hour))

	assert.Equal(t, 2, c.Len())
	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "long", []byte("4"), time.Hour))
	assert.Equal(t, 2, c.Len(), "overwriting does not evict")
}

func TestMemoryClient_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)
	defer c.Close()

	require.NoError(t, c.Set(ctx, AnswerKey("abc", "q1"), []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, AnswerKey("abc", "q2"), []byte("2"), time.Minute))
	require.NoError(t, c.Set(ctx, AnswerKey("def", "q1"), []byte("3"), time.Minute))

	require.NoError(t, c.DeleteByPrefix(ctx, AnswerKey("abc")))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete(ctx, AnswerKey("def", "q1")))
	assert.Zero(t, c.Len())
}

func TestMemoryClient_CopiesValues(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)
	defer c.Close()

	value := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", value, time.Minute))
	value[0] = 'x'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestMemoryClient_CloseIdempotent(t *testing.T) {
	c := NewMemoryClient(1)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "a:b:c", Key("a", "b", "c"))
	assert.Equal(t, "answer:fp:0.30:hello", AnswerKey("fp", "0.30", "hello"))
}

func TestNopClient(t *testing.T) {
	var c Client = NopClient{}
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))
	_, err := c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
