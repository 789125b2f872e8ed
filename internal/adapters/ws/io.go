package ws

import (
	"context"
	"encoding/json"
	"time"

	"soundcast/internal/core"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// writePump owns the socket teardown: when it returns, for any reason
// including eviction through the context, it closes the connection so the
// blocked read in readPump unwinds too.
func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	defer c.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump drains the connection until it drops, then unregisters it.
// Deregistration is by session identity: if a reconnect under the same
// client id has already replaced this connection, the replacement's
// registration survives this teardown. Inbound traffic is keepalive only:
// triggers arrive over HTTP, never through the socket.
func (ctl *Controller) readPump(ctx context.Context, sid core.SessionID, sess core.ClientSession, c *wsConn) {
	defer func() {
		log.Info().Str("module", "ws").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Coord.Registry.Remove(sid, sess)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			ctl.handleMessage(c, data)
		}
	}
}

func (ctl *Controller) handleMessage(c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("bad json")
		return
	}

	switch env.Type {
	case "ping":
		b, _ := json.Marshal(map[string]string{"type": "pong"})
		_ = c.TrySend(b)
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown message")
	}
}
