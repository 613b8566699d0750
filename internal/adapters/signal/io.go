package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/fluxsocial/voicerelay/internal/core"
	"github.com/fluxsocial/voicerelay/internal/domain"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.Cfg.WriteTimeout)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump drives the connection. Its deferred cleanup is the disconnect
// signal: it must leave no membership or presence state behind, exactly
// as an explicit leave would.
func (ctl *Controller) readPump(ctx context.Context, user domain.UserID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("user", string(user)).Msg("readPump closing")
		ctl.Orch.Disconnect(user, c.ID())
		c.Close()
	}()

	_ = c.conn.SetReadDeadline(ctl.pongDeadline())
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(ctl.pongDeadline())
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("user", string(user)).Msg("readPump read error")
				return
			}
			ctl.dispatch(ctx, user, c, data)
		}
	}
}

func (ctl *Controller) dispatch(ctx context.Context, user domain.UserID, c *wsConn, data []byte) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	switch head.Type {
	case core.MsgJoinRoom:
		ctl.handleJoin(ctx, user, c, data)
	case core.MsgLeaveRoom:
		ctl.handleLeave(user, c, data)
	case core.MsgVoiceState:
		ctl.handleVoiceState(user, c, data)
	case core.MsgSignalOffer:
		ctl.handleSignalEnvelope(user, c, core.KindOffer, data)
	case core.MsgSignalAnswer:
		ctl.handleSignalEnvelope(user, c, core.KindAnswer, data)
	case core.MsgSignalCandidate:
		ctl.handleSignalEnvelope(user, c, core.KindCandidate, data)
	case core.MsgPing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", head.Type).Msg("unknown message")
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendError(c *wsConn, code string) {
	ctl.sendJSON(c, core.ErrorReply{Type: core.MsgError, Error: code})
}
