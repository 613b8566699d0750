package app

import (
	"github.com/rs/zerolog/log"

	"github.com/fluxsocial/voicerelay/internal/domain"
)

// SetVoiceState updates the user's mute/deafen flags. Deafened always
// forces Muted in the stored state. The normalized state is returned so
// the caller broadcasts exactly what was recorded.
func (t *Sessions) SetVoiceState(user domain.UserID, muted, deafened bool) (domain.VoiceState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.byUser[user]
	if !ok || s.room == "" {
		return domain.VoiceState{}, domain.ErrNotJoined
	}
	s.state = domain.VoiceState{Muted: muted, Deafened: deafened}.Normalize()
	log.Info().Str("module", "app.sessions").Str("user", string(user)).Bool("muted", s.state.Muted).Bool("deafened", s.state.Deafened).Msg("voice state updated")
	return s.state, nil
}

// VoiceStateOf reads the user's current flags; ok is false when the user
// is not joined anywhere.
func (t *Sessions) VoiceStateOf(user domain.UserID) (domain.VoiceState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.byUser[user]
	if !ok || s.room == "" {
		return domain.VoiceState{}, false
	}
	return s.state, true
}
