package server

import (
	"context"
	"encoding/json"

	"silverlink/internal/models"
	"silverlink/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketUpgrade rejects non-upgrade requests and unknown sessions before
// the handshake.
func (s *Server) WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return models.RespondWithError(c, fiber.StatusUpgradeRequired,
				models.NewValidationError("WebSocket upgrade required"))
		}
		if _, err := s.registry.Get(c.Params("id")); err != nil {
			return respondError(c, err)
		}
		c.Locals("sessionID", c.Params("id"))
		return c.Next()
	}
}

// WebSocketSessionHandler streams a session's events to the client. The
// first frame is a snapshot of the session.
func (s *Server) WebSocketSessionHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sessionID, _ := conn.Locals("sessionID").(string)
		ctx, span := observability.GetTraceLayer().TraceWebSocket(context.Background(), s.hub.Name(), "connect")
		defer span.End()

		sess, err := s.registry.Get(sessionID)
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"session not found"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(sessionID, conn)
		if err != nil {
			observability.RecordErrorInContext(ctx, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		snapshot, err := json.Marshal(map[string]interface{}{
			"type":      "snapshot",
			"sessionId": sessionID,
			"data":      sess.Snapshot(),
		})
		if err == nil {
			client.TrySend(snapshot)
		}

		go client.WritePump()
		client.ReadPump()
	})
}
