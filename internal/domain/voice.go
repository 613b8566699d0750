package domain

import "time"

// VoiceState holds the per-user voice flags other room members render.
type VoiceState struct {
	Muted    bool `json:"muted"`
	Deafened bool `json:"deafened"`
}

// Normalize enforces the deafen/mute coupling: a deafened user cannot hear
// others, and their microphone is suppressed too so the rest of the room
// never gets one-way audio.
func (s VoiceState) Normalize() VoiceState {
	if s.Deafened {
		s.Muted = true
	}
	return s
}

// Membership binds one user to one room plus the voice flags. A user holds
// at most one Membership at any instant.
type Membership struct {
	User     UserID     `json:"userId"`
	Room     RoomID     `json:"roomId"`
	State    VoiceState `json:"state"`
	JoinedAt time.Time  `json:"joinedAt"`
}
