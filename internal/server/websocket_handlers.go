package server

import (
	"context"
	"log/slog"
	"sync"

	"threadpulse/internal/middleware"
	"threadpulse/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketEventsHandler streams the caller's sync and insights events.
// Inbound frames are only read to notice the client going away.
func (s *Server) WebSocketEventsHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		observability.WebSocketConnectionsTotal.Inc()
		defer observability.WebSocketConnectionsTotal.Dec()

		userID, ok := conn.Locals("userID").(string)
		if !ok || userID == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		parent := s.shutdownCtx
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithCancel(parent)
		defer cancel()

		// gofiber/websocket connections are not safe for concurrent writers.
		var writeMu sync.Mutex
		done, err := s.notifier.SubscribeUser(ctx, userID, func(payload string) {
			writeMu.Lock()
			defer writeMu.Unlock()
			if werr := conn.WriteMessage(websocket.TextMessage, []byte(payload)); werr != nil {
				cancel()
			}
		})
		if err != nil {
			middleware.Logger.Warn("event stream subscribe failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			_ = conn.Close()
			return
		}

		middleware.Logger.Debug("event stream opened", slog.String("user_id", userID))

		go func() {
			defer cancel()
			for {
				if _, _, rerr := conn.ReadMessage(); rerr != nil {
					return
				}
			}
		}()

		// The stream ends with the client, the server or the subscription.
		select {
		case <-ctx.Done():
		case <-done:
		}
		cancel()
		<-done

		writeMu.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		_ = conn.Close()
		middleware.Logger.Debug("event stream closed", slog.String("user_id", userID))
	})
}
