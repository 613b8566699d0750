package main

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/fluxsocial/voicerelay/internal/core"
	"github.com/fluxsocial/voicerelay/internal/domain"
)

// wsSignaler sends mesh negotiation payloads through the relay over the
// signaling websocket. One writer at a time.
type wsSignaler struct {
	mu   sync.Mutex
	conn *websocket.Conn
	room domain.RoomID
}

type signalOut struct {
	Type    string          `json:"type"`
	Target  domain.UserID   `json:"targetUserId"`
	Room    domain.RoomID   `json:"roomId"`
	Payload json.RawMessage `json:"payload"`
}

func (s *wsSignaler) send(msgType string, to domain.UserID, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(signalOut{Type: msgType, Target: to, Room: s.room, Payload: raw})
}

func (s *wsSignaler) SendOffer(to domain.UserID, sdp webrtc.SessionDescription) error {
	return s.send(core.MsgSignalOffer, to, sdp)
}

func (s *wsSignaler) SendAnswer(to domain.UserID, sdp webrtc.SessionDescription) error {
	return s.send(core.MsgSignalAnswer, to, sdp)
}

func (s *wsSignaler) SendCandidate(to domain.UserID, cand webrtc.ICECandidateInit) error {
	return s.send(core.MsgSignalCandidate, to, cand)
}

func (s *wsSignaler) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}
