package feed

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisFeed(t *testing.T) (*RedisFeed, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	f, err := NewRedisFeed("redis://"+s.Addr(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f, s
}

func TestRedisFeedRoundTrip(t *testing.T) {
	f, _ := setupRedisFeed(t)
	ctx := context.Background()

	sub, err := f.Subscribe(ctx, "abc123")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, f.Publish(ctx, messageChange(t, "ABC123", 7)))

	msg, err := receive(t, sub).Message()
	require.NoError(t, err)
	assert.Equal(t, int64(7), msg.ID)
}

func TestRedisFeedIgnoresOtherRooms(t *testing.T) {
	f, s := setupRedisFeed(t)
	ctx := context.Background()

	sub, err := f.Subscribe(ctx, "ABC123")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, f.Publish(ctx, messageChange(t, "XYZ789", 1)))

	// a foreign payload on our channel is filtered by its room code
	foreign, err := messageChange(t, "XYZ789", 2).Encode()
	require.NoError(t, err)
	s.Publish(Channel("ABC123"), string(foreign))
	s.Publish(Channel("ABC123"), "not json")

	require.NoError(t, f.Publish(ctx, messageChange(t, "ABC123", 3)))

	msg, err := receive(t, sub).Message()
	require.NoError(t, err)
	assert.Equal(t, int64(3), msg.ID)
}

func TestRedisSubscriptionClose(t *testing.T) {
	f, _ := setupRedisFeed(t)

	sub, err := f.Subscribe(context.Background(), "ABC123")
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, ok := <-sub.Changes()
	assert.False(t, ok)
}

func TestNewRedisFeedBadURL(t *testing.T) {
	_, err := NewRedisFeed("not-a-url", nil)
	assert.Error(t, err)
}

func TestChannelName(t *testing.T) {
	assert.Equal(t, "room:ABC123", Channel(" abc123 "))
}
