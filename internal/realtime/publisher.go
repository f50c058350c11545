package realtime

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/chat-service/internal/events"
)

// Publisher bridges domain events onto the change feed: every event lands on
// its session channel, and session creates additionally land on each named
// participant's inbox channel.
type Publisher struct {
	feed   Feed
	logger *zap.Logger
}

// NewPublisher creates the bridge.
func NewPublisher(feed Feed, logger *zap.Logger) *Publisher {
	return &Publisher{feed: feed, logger: logger}
}

// Register subscribes the publisher to every chat event type.
func (p *Publisher) Register(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventSessionCreated,
		events.EventSessionStatusChanged,
		events.EventAgentAssigned,
		events.EventMessageSent,
		events.EventMessagesRead,
	} {
		dispatcher.Subscribe(eventType, p.handle)
	}
}

func (p *Publisher) handle(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshal event", zap.String("event_id", event.ID), zap.Error(err))
		return err
	}

	if err := p.feed.Publish(ctx, SessionChannel(event.SessionID), payload); err != nil {
		p.logger.Warn("publish session event",
			zap.String("session_id", event.SessionID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}

	if event.Type != events.EventSessionCreated {
		return nil
	}
	created, ok := event.Payload.(events.SessionCreatedPayload)
	if !ok {
		return nil
	}
	for _, participant := range created.Participants {
		if err := p.feed.Publish(ctx, InboxChannel(participant), payload); err != nil {
			p.logger.Warn("publish inbox event",
				zap.String("user_id", participant),
				zap.String("session_id", event.SessionID),
				zap.Error(err))
		}
	}
	return nil
}
