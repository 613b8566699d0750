package core

import (
	"encoding/json"

	"github.com/fluxsocial/voicerelay/internal/domain"
)

// Control-plane message types, client to server.
const (
	MsgJoinRoom        = "join-room"
	MsgLeaveRoom       = "leave-room"
	MsgVoiceState      = "voice-state-update"
	MsgSignalOffer     = "signal-offer"
	MsgSignalAnswer    = "signal-answer"
	MsgSignalCandidate = "signal-candidate"
	MsgPing            = "ping"
)

// Control-plane message types, server to client.
const (
	MsgCurrentMembers    = "current-members"
	MsgPeerJoined        = "peer-joined"
	MsgPeerLeft          = "peer-left"
	MsgVoiceStateChanged = "voice-state-changed"
	MsgPeerUnreachable   = "peer-unreachable"
	MsgError             = "error"
	MsgPong              = "pong"
)

// MemberInfo is the read-only roster entry sent to clients.
type MemberInfo struct {
	UserID   domain.UserID `json:"userId"`
	Muted    bool          `json:"muted"`
	Deafened bool          `json:"deafened"`
}

type CurrentMembers struct {
	Type    string        `json:"type"`
	Room    domain.RoomID `json:"roomId"`
	Members []MemberInfo  `json:"members"`
}

type PeerJoined struct {
	Type string        `json:"type"`
	User domain.UserID `json:"userId"`
	Room domain.RoomID `json:"roomId"`
}

type PeerLeft struct {
	Type string        `json:"type"`
	User domain.UserID `json:"userId"`
	Room domain.RoomID `json:"roomId"`
}

type VoiceStateChanged struct {
	Type     string        `json:"type"`
	User     domain.UserID `json:"userId"`
	Muted    bool          `json:"muted"`
	Deafened bool          `json:"deafened"`
}

// SignalRelayed is an Envelope as delivered to its target, tagged with the
// sender so the recipient knows which peer to address in its reply.
type SignalRelayed struct {
	Type    string          `json:"type"`
	From    domain.UserID   `json:"fromUserId"`
	Room    domain.RoomID   `json:"roomId"`
	Payload json.RawMessage `json:"payload"`
}

// PeerUnreachable tells a sender its relay target had no live connection,
// so the client state machine can fail that edge instead of hanging.
type PeerUnreachable struct {
	Type   string        `json:"type"`
	Target domain.UserID `json:"targetUserId"`
	Room   domain.RoomID `json:"roomId"`
}

type ErrorReply struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// RelayedType maps a SignalKind to the wire type of its relayed form.
func RelayedType(k SignalKind) string {
	switch k {
	case KindOffer:
		return MsgSignalOffer
	case KindAnswer:
		return MsgSignalAnswer
	default:
		return MsgSignalCandidate
	}
}
