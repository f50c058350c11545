package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/chat-service/internal/events"
	apperrors "github.com/spec-kit/chat-service/pkg/util"
)

// SessionListener receives the two event streams of a session-scoped
// subscription. Either callback may be nil.
type SessionListener struct {
	OnMessage       func(events.Event)
	OnSessionUpdate func(events.Event)
}

// Subscription is a handle on one active feed subscription.
type Subscription struct {
	sub       FeedSubscription
	closeOnce sync.Once
}

// Hub manages local listeners over the change feed.
type Hub struct {
	feed   Feed
	logger *zap.Logger
}

// NewHub creates the hub.
func NewHub(feed Feed, logger *zap.Logger) *Hub {
	return &Hub{feed: feed, logger: logger}
}

// SubscribeSession delivers every subsequent message-create and
// session-update event for the session until Unsubscribe.
func (h *Hub) SubscribeSession(ctx context.Context, sessionID string, listener SessionListener) (*Subscription, error) {
	return h.subscribe(ctx, SessionChannel(sessionID), func(event events.Event) {
		switch event.Type {
		case events.EventMessageSent:
			if listener.OnMessage != nil {
				listener.OnMessage(event)
			}
		default:
			if listener.OnSessionUpdate != nil {
				listener.OnSessionUpdate(event)
			}
		}
	})
}

// SubscribeInbox delivers session-create events naming the user as a
// participant, so new inbound requests arrive without polling.
func (h *Hub) SubscribeInbox(ctx context.Context, userID string, onNewSession func(events.Event)) (*Subscription, error) {
	return h.subscribe(ctx, InboxChannel(userID), func(event events.Event) {
		if event.Type == events.EventSessionCreated && onNewSession != nil {
			onNewSession(event)
		}
	})
}

// Unsubscribe detaches the listener. Safe on nil or already-unsubscribed
// handles, and never affects other listeners on the same channel.
func (h *Hub) Unsubscribe(subscription *Subscription) {
	if subscription == nil || subscription.sub == nil {
		return
	}
	subscription.closeOnce.Do(func() {
		if err := subscription.sub.Close(); err != nil {
			h.logger.Warn("close feed subscription", zap.Error(err))
		}
	})
}

func (h *Hub) subscribe(ctx context.Context, channel string, deliver func(events.Event)) (*Subscription, error) {
	feedSub, err := h.feed.Subscribe(ctx, channel)
	if err != nil {
		return nil, apperrors.NewUnavailable(err)
	}

	go func() {
		for payload := range feedSub.Events() {
			var event events.Event
			if err := json.Unmarshal(payload, &event); err != nil {
				h.logger.Warn("decode feed event", zap.String("channel", channel), zap.Error(err))
				continue
			}
			deliver(event)
		}
	}()

	return &Subscription{sub: feedSub}, nil
}
