// Package ws is the realtime channel adapter: one websocket per client,
// carrying the JSON events the coordinator publishes.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"soundcast/internal/app"
	"soundcast/internal/auth"
	"soundcast/internal/core"
	"soundcast/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrBackpressure = errors.New("backpressure")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	Coord        *app.Coordinator
	Gate         *auth.Gate
	SendBuffer   int
	WriteTimeout time.Duration
}

func NewController(coord *app.Coordinator, gate *auth.Gate, sendBuffer int, writeTimeout time.Duration) *Controller {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Controller{Coord: coord, Gate: gate, SendBuffer: sendBuffer, WriteTimeout: writeTimeout}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// Handle upgrades the request and registers the connection. The role is
// decided here, once, from the network origin; it never changes for the
// lifetime of this connection even if a later HTTP request from the same
// browser would classify differently.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_id"))
	if sid == "" {
		sid = core.SessionID(uuid.NewString())
	}

	cls := ctl.Gate.Classify(c.Request)
	role := domain.RoleRemote
	if cls == auth.Host {
		role = domain.RoleHost
	}
	log.Info().Str("module", "ws").
		Str("sid", string(sid)).
		Str("class", cls.String()).
		Msg("new WS connection")

	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("ws upgrade")
		return
	}

	conn := &wsConn{
		conn: sock,
		send: make(chan core.Frame, ctl.SendBuffer),
	}

	meta := domain.NewClient(domain.ClientID(sid), role, cls != auth.RemoteUnauthenticated)
	sess := core.NewClientSession(meta, conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Coord.Registry.Add(sid, sess, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, sess, conn)
}
