package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "chat.session.s1", SessionChannel("s1"))
	assert.Equal(t, "chat.inbox.u1", InboxChannel("u1"))
}

func TestMemoryFeedRoundTrip(t *testing.T) {
	feed := NewMemoryFeed()
	ctx := context.Background()

	sub, err := feed.Subscribe(ctx, "chat.session.s1")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, feed.Publish(ctx, "chat.session.s1", []byte("hello")))

	select {
	case payload := <-sub.Events():
		assert.Equal(t, []byte("hello"), payload)
	case <-time.After(time.Second):
		t.Fatal("no payload delivered")
	}
}

func TestMemoryFeedIsolatesChannels(t *testing.T) {
	feed := NewMemoryFeed()
	ctx := context.Background()

	sub, err := feed.Subscribe(ctx, "chat.session.s1")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, feed.Publish(ctx, "chat.session.other", []byte("noise")))

	select {
	case payload := <-sub.Events():
		t.Fatalf("unexpected payload %q", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryFeedFansOutToAllSubscribers(t *testing.T) {
	feed := NewMemoryFeed()
	ctx := context.Background()

	first, err := feed.Subscribe(ctx, "chat.session.s1")
	require.NoError(t, err)
	defer first.Close()
	second, err := feed.Subscribe(ctx, "chat.session.s1")
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, feed.Publish(ctx, "chat.session.s1", []byte("both")))

	for _, sub := range []FeedSubscription{first, second} {
		select {
		case payload := <-sub.Events():
			assert.Equal(t, []byte("both"), payload)
		case <-time.After(time.Second):
			t.Fatal("subscriber missed payload")
		}
	}
}

func TestMemoryFeedCloseDetachesSubscriber(t *testing.T) {
	feed := NewMemoryFeed()
	ctx := context.Background()

	sub, err := feed.Subscribe(ctx, "chat.session.s1")
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, open := <-sub.Events()
	assert.False(t, open)

	// Publishing after close must not panic or resurrect the channel.
	require.NoError(t, feed.Publish(ctx, "chat.session.s1", []byte("late")))
}

func TestMemoryFeedPublishRacesClose(t *testing.T) {
	feed := NewMemoryFeed()
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		sub, err := feed.Subscribe(ctx, "chat.session.s1")
		require.NoError(t, err)

		var wg sync.WaitGroup
		for p := 0; p < 4; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, feed.Publish(ctx, "chat.session.s1", []byte("tick")))
			}()
		}
		require.NoError(t, sub.Close())
		wg.Wait()

		// Drain whatever landed before the close won the lock.
		for range sub.Events() {
		}
	}
}
