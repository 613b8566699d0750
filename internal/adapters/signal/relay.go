package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/fluxsocial/voicerelay/internal/core"
	"github.com/fluxsocial/voicerelay/internal/domain"
)

// handleSignalEnvelope accepts offer/answer/candidate messages. The
// payload is never parsed here; its structure belongs to the peers.
func (ctl *Controller) handleSignalEnvelope(user domain.UserID, c *wsConn, kind core.SignalKind, data []byte) {
	var p struct {
		Type    string          `json:"type"`
		Target  string          `json:"targetUserId"`
		Room    string          `json:"roomId"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Target == "" {
		log.Error().Err(err).Str("module", "signal").Str("kind", string(kind)).Msg("bad signal payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	ctl.Orch.Signal(core.Envelope{
		From:    user,
		To:      domain.UserID(p.Target),
		Room:    domain.RoomID(p.Room),
		Kind:    kind,
		Payload: p.Payload,
	})
}
