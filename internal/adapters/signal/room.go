package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/fluxsocial/voicerelay/internal/domain"
)

func (ctl *Controller) handleJoin(ctx context.Context, user domain.UserID, c *wsConn, data []byte) {
	var p struct {
		Type string `json:"type"`
		Room string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if !ctl.joinLimiter.Allow(user) {
		log.Warn().Str("module", "signal").Str("user", string(user)).Msg("join rate limited")
		ctl.sendError(c, "rate_limited")
		return
	}

	err := ctl.Orch.Join(ctx, user, domain.RoomID(p.Room))
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrRoomNotFound):
		ctl.sendError(c, "room_not_found")
	case errors.Is(err, domain.ErrRoomFull):
		ctl.sendError(c, "room_full")
	case errors.Is(err, domain.ErrAlreadyJoined):
		// Soft: the client may re-sync from the error.
		log.Info().Str("module", "signal").Str("user", string(user)).Str("room", p.Room).Msg("duplicate join")
		ctl.sendError(c, "already_joined")
	default:
		ctl.sendError(c, "join_failed")
	}
}

func (ctl *Controller) handleLeave(user domain.UserID, _ *wsConn, data []byte) {
	var p struct {
		Type string `json:"type"`
		Room string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad leave payload")
		return
	}
	// The orchestrator resolves the actual membership; the roomId in the
	// request is advisory and may be stale after a race.
	ctl.Orch.Leave(user)
}
