package core

import (
	"encoding/json"

	"github.com/fluxsocial/voicerelay/internal/domain"
)

// SignalKind discriminates the three negotiation message classes relayed
// between peers. The payload stays opaque to the server.
type SignalKind string

const (
	KindOffer     SignalKind = "offer"
	KindAnswer    SignalKind = "answer"
	KindCandidate SignalKind = "candidate"
)

func (k SignalKind) Valid() bool {
	switch k {
	case KindOffer, KindAnswer, KindCandidate:
		return true
	}
	return false
}

// Envelope is a short-lived signaling message between exactly two peers.
// It exists only for the duration of the relay, never persisted.
type Envelope struct {
	From    domain.UserID
	To      domain.UserID
	Room    domain.RoomID
	Kind    SignalKind
	Payload json.RawMessage
}
