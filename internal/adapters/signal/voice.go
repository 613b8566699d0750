package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/fluxsocial/voicerelay/internal/domain"
)

func (ctl *Controller) handleVoiceState(user domain.UserID, c *wsConn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		Room     string `json:"roomId"`
		Muted    bool   `json:"muted"`
		Deafened bool   `json:"deafened"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad voice state payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	if _, err := ctl.Orch.SetVoiceState(user, p.Muted, p.Deafened); err != nil {
		if errors.Is(err, domain.ErrNotJoined) {
			ctl.sendError(c, "not_joined")
			return
		}
		ctl.sendError(c, "voice_state_failed")
	}
}
