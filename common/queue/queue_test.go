package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaayushanti/bagspec/common/logger"
)

func TestMemoryQueue_DeliversInOrder(t *testing.T) {
	q := NewMemoryQueue(8, logger.Discard())
	ctx := context.Background()

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	require.NoError(t, q.Subscribe(ctx, "notices", func(ctx context.Context, key string, value []byte) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, key+"="+string(value))
		if len(got) == 2 {
			close(done)
		}
		return nil
	}))

	require.NoError(t, q.Publish(ctx, "notices", "a", []byte("1")))
	require.NoError(t, q.Publish(ctx, "notices", "b", []byte("2")))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("messages not delivered")
	}

	require.NoError(t, q.Close())
	assert.Equal(t, []string{"a=1", "b=2"}, got)
}

func TestMemoryQueue_FullBufferRejects(t *testing.T) {
	q := NewMemoryQueue(1, logger.Discard())
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, "t", "k1", nil))
	assert.ErrorIs(t, q.Publish(ctx, "t", "k2", nil), ErrQueueFull)
	require.NoError(t, q.Close())
}

func TestMemoryQueue_PublishAfterClose(t *testing.T) {
	q := NewMemoryQueue(1, logger.Discard())
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Publish(context.Background(), "t", "k", nil), ErrQueueClosed)
	assert.ErrorIs(t, q.Subscribe(context.Background(), "t", nil), ErrQueueClosed)
}

func TestMemoryQueue_CloseDrainsBufferedMessages(t *testing.T) {
	q := NewMemoryQueue(4, logger.Discard())
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, "t", "k1", nil))
	require.NoError(t, q.Publish(ctx, "t", "k2", nil))

	var mu sync.Mutex
	count := 0
	require.NoError(t, q.Subscribe(ctx, "t", func(ctx context.Context, key string, value []byte) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}))

	require.NoError(t, q.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, count)
}
