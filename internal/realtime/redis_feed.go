package realtime

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// redisFeed implements Feed over Redis Pub/Sub, one Redis channel per
// session or inbox. Subscribers on other processes see the same stream.
type redisFeed struct {
	client *redis.Client
}

// NewRedisFeed creates a feed backed by the given client.
func NewRedisFeed(client *redis.Client) Feed {
	return &redisFeed{client: client}
}

func (f *redisFeed) Publish(ctx context.Context, channel string, payload []byte) error {
	return f.client.Publish(ctx, channel, payload).Err()
}

func (f *redisFeed) Subscribe(ctx context.Context, channel string) (FeedSubscription, error) {
	pubsub := f.client.Subscribe(ctx, channel)
	// Confirm the subscription before handing it out so setup failures
	// surface immediately instead of as a silent dead feed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan []byte, 64),
	}
	go sub.pump()
	return sub, nil
}

type redisSubscription struct {
	pubsub    *redis.PubSub
	events    chan []byte
	closeOnce sync.Once
}

func (s *redisSubscription) pump() {
	for msg := range s.pubsub.Channel() {
		s.events <- []byte(msg.Payload)
	}
	close(s.events)
}

func (s *redisSubscription) Events() <-chan []byte {
	return s.events
}

func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.pubsub.Close()
	})
	return err
}
