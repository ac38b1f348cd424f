package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubSubBasic(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "test-channel")
	require.NoError(t, err)
	defer cancel()

	err = ps.Publish(ctx, "test-channel", "hello")
	require.NoError(t, err)

	select {
	case msg := <-ch:
		assert.Equal(t, "test-channel", msg.Channel)
		assert.Equal(t, "hello", msg.Payload)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
}

func TestPubSubUnsubscribe(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "ch")
	require.NoError(t, err)

	cancel()
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after cancel")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("channel not closed after cancel")
	}

	err = ps.Publish(ctx, "ch", "msg")
	assert.NoError(t, err)
}

func TestPubSubMultipleSubscribers(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch1, cancel1, _ := ps.Subscribe(ctx, "broadcast")
	ch2, cancel2, _ := ps.Subscribe(ctx, "broadcast")
	defer cancel1()
	defer cancel2()

	require.NoError(t, ps.Publish(ctx, "broadcast", "world"))

	for _, ch := range []<-chan *LocalMessage{ch1, ch2} {
		select {
		case msg := <-ch:
			assert.Equal(t, "world", msg.Payload)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("subscriber did not receive message")
		}
	}
}

func TestPubSubMultipleChannels(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "turns", "alerts")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "alerts", "a"))
	require.NoError(t, ps.Publish(ctx, "turns", "t"))
	require.NoError(t, ps.Publish(ctx, "other", "x"))

	got := []string{(<-ch).Channel, (<-ch).Channel}
	assert.Equal(t, []string{"alerts", "turns"}, got)
	assert.Len(t, ch, 0)
}

func TestPubSubClose(t *testing.T) {
	ps := NewPubSub(4)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "turns")
	require.NoError(t, err)

	ps.Close()
	_, ok := <-ch
	assert.False(t, ok)
	cancel()

	assert.NoError(t, ps.Publish(ctx, "turns", "late"))
	_, _, err = ps.Subscribe(ctx, "turns")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPubSubDropsWhenFull(t *testing.T) {
	ps := NewPubSub(1)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "turns")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "turns", "1"))
	require.NoError(t, ps.Publish(ctx, "turns", "2"))
	assert.Equal(t, "1", (<-ch).Payload)
	assert.Len(t, ch, 0)
}
