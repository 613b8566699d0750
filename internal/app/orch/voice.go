package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/fluxsocial/voicerelay/internal/core"
	"github.com/fluxsocial/voicerelay/internal/domain"
)

// SetVoiceState persists the user's mute/deafen flags and broadcasts the
// stored (normalized) state to the rest of the room. Deafened forces
// muted; the caller gets the normalized state back to mirror locally.
func (o *Orchestrator) SetVoiceState(user domain.UserID, muted, deafened bool) (domain.VoiceState, error) {
	room, ok := o.Sessions.RoomOf(user)
	if !ok {
		log.Info().Str("module", "orch").Str("user", string(user)).Msg("voice state update without membership, ignored")
		return domain.VoiceState{}, domain.ErrNotJoined
	}

	var (
		state domain.VoiceState
		err   error
	)
	o.Sched.DoWait(room, func() {
		state, err = o.Sessions.SetVoiceState(user, muted, deafened)
		if err != nil {
			return
		}
		o.broadcast(room, user, core.VoiceStateChanged{
			Type:     core.MsgVoiceStateChanged,
			User:     user,
			Muted:    state.Muted,
			Deafened: state.Deafened,
		})
	})
	return state, err
}

func (o *Orchestrator) countRejection(reason string) {
	if o.Metrics != nil {
		o.Metrics.Rejections.WithLabelValues(reason).Inc()
	}
}
