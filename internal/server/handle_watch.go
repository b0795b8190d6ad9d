package server

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// handleWatch serves the cross-session observer feed over a websocket. The
// first message is the current session list; afterwards the list is re-sent
// whenever any session changes.
func handleWatch(broker *Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		observerID := uuid.NewString()
		sub, err := broker.Subscribe(r.Context(), WildcardScope, observerID)
		if err != nil {
			logger.Error("watch subscribe failed", "error", err)
			conn.Close(websocket.StatusInternalError, "subscribe failed")
			return
		}
		defer broker.Unsubscribe(observerID)

		// The feed is write-only; CloseRead surfaces client disconnects.
		ctx := conn.CloseRead(r.Context())

		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.Done:
				conn.Close(websocket.StatusNormalClosure, "subscription expired")
				return
			case data := <-sub.C:
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					logger.Debug("watch write failed", "error", err)
					return
				}
			}
		}
	}
}
