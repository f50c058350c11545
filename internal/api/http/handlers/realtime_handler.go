package handlers

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/chat-service/internal/access"
	"github.com/spec-kit/chat-service/internal/auth"
	"github.com/spec-kit/chat-service/internal/events"
	"github.com/spec-kit/chat-service/internal/realtime"
	"github.com/spec-kit/chat-service/internal/repository"
)

// frame buffering per connection; a slow reader drops frames rather than
// blocking the feed pump.
const streamBuffer = 64

// RealtimeHandler exposes the change feed over websocket connections.
type RealtimeHandler struct {
	hub      *realtime.Hub
	sessions repository.SessionRepository
	logger   *zap.Logger
}

// NewRealtimeHandler constructs handler.
func NewRealtimeHandler(hub *realtime.Hub, sessions repository.SessionRepository, logger *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, sessions: sessions, logger: logger}
}

// Upgrade gates websocket routes. Auth middleware runs before this, so the
// principal is already in locals when the upgrade proceeds.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// SessionStream streams message-create and session-update events for one
// session. GET /ws/sessions/:id.
func (h *RealtimeHandler) SessionStream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		principal, ok := auth.PrincipalFromLocal(conn.Locals(auth.PrincipalLocalKey))
		if !ok {
			h.closeWith(conn, websocket.ClosePolicyViolation, "unauthenticated")
			return
		}

		sessionID := conn.Params("id")
		session, err := h.sessions.GetByID(context.Background(), sessionID)
		if err != nil {
			h.closeWith(conn, websocket.CloseInvalidFramePayloadData, "session not found")
			return
		}
		if !access.CanAccess(session, principal.ID(), principal.Role) {
			h.closeWith(conn, websocket.ClosePolicyViolation, "forbidden")
			return
		}

		frames := make(chan events.Event, streamBuffer)
		sub, err := h.hub.SubscribeSession(context.Background(), sessionID, realtime.SessionListener{
			OnMessage:       func(event events.Event) { pushFrame(frames, event) },
			OnSessionUpdate: func(event events.Event) { pushFrame(frames, event) },
		})
		if err != nil {
			h.closeWith(conn, websocket.CloseTryAgainLater, "feed unavailable")
			return
		}
		defer h.hub.Unsubscribe(sub)

		h.pump(conn, frames)
	})
}

// InboxStream streams session-create events naming the caller as a
// participant. GET /ws/inbox.
func (h *RealtimeHandler) InboxStream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		principal, ok := auth.PrincipalFromLocal(conn.Locals(auth.PrincipalLocalKey))
		if !ok {
			h.closeWith(conn, websocket.ClosePolicyViolation, "unauthenticated")
			return
		}

		frames := make(chan events.Event, streamBuffer)
		sub, err := h.hub.SubscribeInbox(context.Background(), principal.ID(), func(event events.Event) {
			pushFrame(frames, event)
		})
		if err != nil {
			h.closeWith(conn, websocket.CloseTryAgainLater, "feed unavailable")
			return
		}
		defer h.hub.Unsubscribe(sub)

		h.pump(conn, frames)
	})
}

// pump writes frames until the client disconnects. A reader goroutine
// drains inbound control traffic so close frames are noticed.
func (h *RealtimeHandler) pump(conn *websocket.Conn, frames <-chan events.Event) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case event := <-frames:
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("websocket write", zap.Error(err))
				return
			}
		}
	}
}

func (h *RealtimeHandler) closeWith(conn *websocket.Conn, code int, reason string) {
	message := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteMessage(websocket.CloseMessage, message); err != nil {
		h.logger.Debug("websocket close", zap.Error(err))
	}
	_ = conn.Close()
}

func pushFrame(frames chan events.Event, event events.Event) {
	select {
	case frames <- event:
	default:
	}
}
