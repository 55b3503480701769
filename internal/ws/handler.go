// Package ws bridges websocket connections onto the broadcast hub. The
// observer stream is one-way: clients receive snapshots and deltas and
// issue mutations over the HTTP API.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pokedraft/pokedraft-backend/internal/broadcast"
	"github.com/pokedraft/pokedraft-backend/pkg/types"
)

const writeTimeout = 3 * time.Second

func Handler(hub *broadcast.Hub, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		contestID := r.URL.Query().Get("contest")
		if contestID == "" {
			http.Error(w, "missing contest", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		out := make(chan types.ServerMessage, 16)

		hub.Inbox() <- broadcast.Subscribe{ContestID: contestID, ClientID: clientID, Outbox: out}
		defer func() {
			hub.Inbox() <- broadcast.Unsubscribe{ContestID: contestID, ClientID: clientID}
		}()

		// Writer goroutine: drains the outbox until the hub closes it
		// (teardown or slow-client drop).
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, err := json.Marshal(msg)
				if err != nil {
					log.Error("marshal server message", zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop exists only to observe disconnects; inbound frames
		// are discarded.
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}
		}
	}
}
