package buffer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoff_FIFO(t *testing.T) {
	h := NewHandoff[int](3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, h.Send(ctx, i))
	}
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 3, h.Cap())

	for i := 0; i < 3; i++ {
		v, err := h.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, h.Len())
}

func TestHandoff_MinimumCapacity(t *testing.T) {
	h := NewHandoff[string](0)
	assert.Equal(t, 1, h.Cap())
}

func TestHandoff_FullSendBlocksUntilReceive(t *testing.T) {
	h := NewHandoff[int](1)
	ctx := context.Background()
	require.NoError(t, h.Send(ctx, 1))

	sent := make(chan error, 1)
	go func() {
		sent <- h.Send(ctx, 2)
	}()

	select {
	case err := <-sent:
		t.Fatalf("Send on a full queue returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	v, err := h.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	select {
	case err := <-sent:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("blocked Send was never released")
	}

	v, err = h.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v, "delayed item must not be dropped")

	stats := h.Stats()
	assert.Equal(t, int64(1), stats.BlockedSends)
	assert.Equal(t, int64(2), stats.TotalSent)
	assert.Equal(t, int64(2), stats.TotalReceived)
}

func TestHandoff_CloseReleasesBlockedSender(t *testing.T) {
	h := NewHandoff[int](1)
	ctx := context.Background()
	require.NoError(t, h.Send(ctx, 1))

	sent := make(chan error, 1)
	go func() {
		sent <- h.Send(ctx, 2)
	}()

	time.Sleep(20 * time.Millisecond)
	h.Close()

	select {
	case err := <-sent:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Close did not release blocked sender")
	}

	assert.True(t, h.Closed())
	assert.ErrorIs(t, h.Send(ctx, 3), ErrClosed)
}

func TestHandoff_ReceiveDrainsAfterClose(t *testing.T) {
	h := NewHandoff[int](2)
	ctx := context.Background()
	require.NoError(t, h.Send(ctx, 1))
	require.NoError(t, h.Send(ctx, 2))
	h.Close()
	h.Close() // idempotent

	v, err := h.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = h.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = h.Receive(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHandoff_BlockingReceive(t *testing.T) {
	h := NewHandoff[int](1)
	ctx := context.Background()

	received := make(chan int, 1)
	go func() {
		v, err := h.Receive(ctx)
		if err == nil {
			received <- v
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, h.Send(ctx, 42))

	select {
	case v := <-received:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("receiver did not get item")
	}
}

func TestHandoff_ContextCancellation(t *testing.T) {
	t.Run("send", func(t *testing.T) {
		h := NewHandoff[int](1)
		require.NoError(t, h.Send(context.Background(), 1))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- h.Send(ctx, 2)
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("cancel did not release sender")
		}
		assert.Equal(t, 1, h.Len())
	})

	t.Run("receive", func(t *testing.T) {
		h := NewHandoff[int](1)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := h.Receive(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestHandoff_ConcurrentProducersLoseNothing(t *testing.T) {
	const producers, perProducer = 4, 250

	h := NewHandoff[int](3)
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := h.Send(ctx, base+i); err != nil {
					t.Errorf("Send: %v", err)
					return
				}
			}
		}(p * perProducer)
	}

	seen := make(map[int]bool, producers*perProducer)
	for len(seen) < producers*perProducer {
		v, err := h.Receive(ctx)
		require.NoError(t, err)
		require.False(t, seen[v], "duplicate %d", v)
		seen[v] = true
	}
	wg.Wait()

	assert.Equal(t, 0, h.Len())
}
