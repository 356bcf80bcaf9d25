package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const eventBuffer = 16

// handleEvents streams bus events to a WebSocket client as JSON text
// frames. Clients only read; the read side is used to observe disconnect.
func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		g.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusInternalError, "unexpected close")
	}()

	events, cancel := g.config.Bus.Subscribe(eventBuffer)
	defer cancel()

	// CloseRead discards inbound frames and cancels the context when the
	// peer goes away.
	ctx := conn.CloseRead(r.Context())

	g.logger.Debug("event stream opened", "remote", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				g.logger.Error("event marshal failed", "type", ev.Type, "error", err)
				continue
			}

			writeCtx, cancelWrite := context.WithTimeout(ctx, 5*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancelWrite()
			if err != nil {
				g.logger.Debug("event stream closed", "remote", r.RemoteAddr, "error", err)
				return
			}
		}
	}
}
