package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var received []Event
	dispatcher.Subscribe(EventMessageSent, func(_ context.Context, event Event) error {
		received = append(received, event)
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{ID: "e1", Type: EventMessageSent, SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "s1", received[0].SessionID)
}

func TestDispatcherIgnoresOtherEventTypes(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	calls := 0
	dispatcher.Subscribe(EventSessionCreated, func(context.Context, Event) error {
		calls++
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventMessagesRead}))
	assert.Zero(t, calls)
}

func TestDispatcherFailingHandlerDoesNotBlockOthers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	dispatcher.Subscribe(EventMessageSent, func(context.Context, Event) error {
		return errors.New("handler down")
	})
	delivered := false
	dispatcher.Subscribe(EventMessageSent, func(context.Context, Event) error {
		delivered = true
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventMessageSent}))
	assert.True(t, delivered)
}
