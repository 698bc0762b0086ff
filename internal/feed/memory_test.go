package feed

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageChange(t *testing.T, code string, id int64) domain.Change {
	t.Helper()
	msg := domain.Message{ID: id, RoomCode: code, UserID: uuid.New(), Message: "hi", CreatedAt: time.Now().UTC()}
	ch, err := domain.NewChange(domain.TableMessages, domain.ChangeInsert, code, msg, nil)
	require.NoError(t, err)
	return ch
}

func receive(t *testing.T, sub Subscription) domain.Change {
	t.Helper()
	select {
	case ch, ok := <-sub.Changes():
		require.True(t, ok, "subscription closed")
		return ch
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
		return domain.Change{}
	}
}

func assertNothing(t *testing.T, sub Subscription) {
	t.Helper()
	select {
	case ch := <-sub.Changes():
		t.Fatalf("unexpected change %+v", ch)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerDeliversOnlyToRoom(t *testing.T) {
	b := NewBroker(nil)
	ctx := context.Background()

	mine, err := b.Subscribe(ctx, "abc123")
	require.NoError(t, err)
	defer mine.Close()
	other, err := b.Subscribe(ctx, "XYZ789")
	require.NoError(t, err)
	defer other.Close()

	require.NoError(t, b.Publish(ctx, messageChange(t, "ABC123", 1)))

	got := receive(t, mine)
	msg, err := got.Message()
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.ID)
	assertNothing(t, other)
}

func TestBrokerPreservesPublisherOrder(t *testing.T) {
	b := NewBroker(nil)
	ctx := context.Background()
	sub, err := b.Subscribe(ctx, "ABC123")
	require.NoError(t, err)
	defer sub.Close()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, b.Publish(ctx, messageChange(t, "ABC123", i)))
	}
	for i := int64(1); i <= 5; i++ {
		msg, err := receive(t, sub).Message()
		require.NoError(t, err)
		assert.Equal(t, i, msg.ID)
	}
}

func TestBrokerDropsWhenSubscriberIsFull(t *testing.T) {
	b := NewBroker(nil)
	ctx := context.Background()
	sub, err := b.Subscribe(ctx, "ABC123")
	require.NoError(t, err)
	defer sub.Close()

	for i := 0; i < subscriberBuffer+10; i++ {
		require.NoError(t, b.Publish(ctx, messageChange(t, "ABC123", int64(i))))
	}
	assert.Len(t, sub.Changes(), subscriberBuffer)
}

func TestSubscriptionCloseReleasesRoom(t *testing.T) {
	b := NewBroker(nil)
	ctx := context.Background()
	sub, err := b.Subscribe(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Subscribers("ABC123"))

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	assert.Equal(t, 0, b.Subscribers("ABC123"))

	_, ok := <-sub.Changes()
	assert.False(t, ok)

	require.NoError(t, b.Publish(ctx, messageChange(t, "ABC123", 1)))
}

func TestBrokerClose(t *testing.T) {
	b := NewBroker(nil)
	ctx := context.Background()
	sub, err := b.Subscribe(ctx, "ABC123")
	require.NoError(t, err)

	require.NoError(t, b.Close())
	_, ok := <-sub.Changes()
	assert.False(t, ok)
	require.NoError(t, sub.Close())

	assert.ErrorIs(t, b.Publish(ctx, messageChange(t, "ABC123", 1)), ErrClosed)
	_, err = b.Subscribe(ctx, "ABC123")
	assert.ErrorIs(t, err, ErrClosed)
}
