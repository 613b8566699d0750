// Package signal is the websocket adapter for the voice control plane.
// It owns connection lifecycle and wire parsing; every state transition
// is handed to the orchestrator.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/fluxsocial/voicerelay/internal/app/orch"
	"github.com/fluxsocial/voicerelay/internal/config"
	"github.com/fluxsocial/voicerelay/internal/core"
	"github.com/fluxsocial/voicerelay/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

const sendBuffer = 32

type Controller struct {
	Orch        *orch.Orchestrator
	Cfg         *config.Config
	joinLimiter *RateLimiter
}

func NewController(o *orch.Orchestrator, cfg *config.Config) *Controller {
	return &Controller{
		Orch:        o,
		Cfg:         cfg,
		joinLimiter: NewRateLimiter(cfg.JoinLimit, cfg.JoinLimitWindow),
	}
}

// wsConn is one live signaling endpoint. It implements
// core.SignalConnection; TrySend never blocks the relay path.
type wsConn struct {
	id   domain.ConnID
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) ID() domain.ConnID { return c.id }

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

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until either
// side closes. The authenticated user id is a connection-establishment
// parameter; it is not re-validated per message.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	user := domain.UserID(c.GetString("user_id"))
	log.Info().Str("module", "signal").Str("user", string(user)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.Cfg.ReadLimit)

	conn := &wsConn{
		id:   domain.ConnID(uuid.NewString()),
		conn: ws,
		send: make(chan core.Frame, sendBuffer),
	}

	ctl.Orch.Connect(user, conn)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		ctl.writePump(ctx, conn)
	}()
	go func() {
		defer cancel()
		ctl.readPump(ctx, user, conn)
	}()
}

func (ctl *Controller) pongDeadline() time.Time {
	return time.Now().Add(ctl.Cfg.PingPeriod + ctl.Cfg.WriteTimeout)
}
