// Package realtime fans change events out to session viewers and user
// inboxes. Delivery is at-least-once and best-effort: nothing is queued for
// disconnected listeners, so clients reconcile by re-fetching on reconnect.
package realtime

import (
	"context"
	"sync"
)

// SessionChannel names the change feed for one session: message creates and
// session updates.
func SessionChannel(sessionID string) string {
	return "chat.session." + sessionID
}

// InboxChannel names the change feed carrying session creates for sessions
// naming the user as participant.
func InboxChannel(userID string) string {
	return "chat.inbox." + userID
}

// Feed is the store-side filtered change feed: one channel per session or
// per user inbox, so fan-out cost does not grow with total session count.
type Feed interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (FeedSubscription, error)
}

// FeedSubscription is one listener's handle on a channel. Events is closed
// after Close returns.
type FeedSubscription interface {
	Events() <-chan []byte
	Close() error
}

// memoryFeed is the in-process fallback used when no Redis is configured,
// and in tests. Dispatch is keyed by channel name.
type memoryFeed struct {
	mu       sync.RWMutex
	channels map[string]map[*memorySubscription]struct{}
}

// NewMemoryFeed creates a process-local feed.
func NewMemoryFeed() Feed {
	return &memoryFeed{channels: make(map[string]map[*memorySubscription]struct{})}
}

// Publish sends while holding the read lock. Close takes the write lock
// before closing a subscriber channel, so a send can never race the close.
func (f *memoryFeed) Publish(_ context.Context, channel string, payload []byte) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for sub := range f.channels[channel] {
		select {
		case sub.events <- payload:
		default:
			// Slow listener; drop rather than block the publisher.
		}
	}
	return nil
}

func (f *memoryFeed) Subscribe(_ context.Context, channel string) (FeedSubscription, error) {
	sub := &memorySubscription{
		feed:    f,
		channel: channel,
		events:  make(chan []byte, 64),
	}
	f.mu.Lock()
	if f.channels[channel] == nil {
		f.channels[channel] = make(map[*memorySubscription]struct{})
	}
	f.channels[channel][sub] = struct{}{}
	f.mu.Unlock()
	return sub, nil
}

type memorySubscription struct {
	feed      *memoryFeed
	channel   string
	events    chan []byte
	closeOnce sync.Once
}

func (s *memorySubscription) Events() <-chan []byte {
	return s.events
}

func (s *memorySubscription) Close() error {
	s.closeOnce.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.channels[s.channel], s)
		if len(s.feed.channels[s.channel]) == 0 {
			delete(s.feed.channels, s.channel)
		}
		close(s.events)
		s.feed.mu.Unlock()
	})
	return nil
}
