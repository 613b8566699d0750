// Package app owns the in-memory presence state: one session record per
// connected user, indexed by room, plus the per-room event scheduler and
// the signaling relay. Nothing here performs blocking I/O.
package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fluxsocial/voicerelay/internal/core"
	"github.com/fluxsocial/voicerelay/internal/domain"
)

// session is the single record kept per active user. Connection handle,
// room membership and voice flags live together so they cannot drift.
type session struct {
	user   domain.UserID
	conn   core.SignalConnection
	room   domain.RoomID // empty while not in a call
	state  domain.VoiceState
	joined time.Time
}

// MemberSnap is a point-in-time view of one room member, safe to use
// outside the table's lock.
type MemberSnap struct {
	User     domain.UserID
	Conn     core.SignalConnection
	State    domain.VoiceState
	JoinedAt time.Time
}

// Sessions is the session table. The internal mutex protects map
// integrity only; multi-step room transitions are serialized by the
// per-room Sched on top of it.
type Sessions struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]*session
	byRoom map[domain.RoomID]map[domain.UserID]*session
	rooms  map[domain.RoomID]*domain.Room
}

func NewSessions() *Sessions {
	return &Sessions{
		byUser: make(map[domain.UserID]*session),
		byRoom: make(map[domain.RoomID]map[domain.UserID]*session),
		rooms:  make(map[domain.RoomID]*domain.Room),
	}
}

// Join records membership for a registered user. The room record is
// retained so leave can tell whether the room was temporary.
func (t *Sessions) Join(room *domain.Room, user domain.UserID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.byUser[user]
	if !ok || s.conn == nil {
		return domain.ErrNotConnected
	}
	if s.room != "" {
		return domain.ErrAlreadyJoined
	}
	if len(t.byRoom[room.ID]) >= room.MaxUsers {
		return domain.ErrRoomFull
	}

	members := t.byRoom[room.ID]
	if members == nil {
		members = make(map[domain.UserID]*session)
		t.byRoom[room.ID] = members
		t.rooms[room.ID] = room
	}
	members[user] = s
	s.room = room.ID
	s.state = domain.VoiceState{}
	s.joined = time.Now()
	log.Info().Str("module", "app.sessions").Str("user", string(user)).Str("room", string(room.ID)).Msg("member joined")
	return nil
}

// Leave removes the user's membership. Not being a member is reported as
// success so duplicate leave/disconnect events stay harmless. The room
// record is returned so the caller can request deletion when a temporary
// room just emptied.
func (t *Sessions) Leave(user domain.UserID) (room *domain.Room, remaining int, wasMember bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.byUser[user]
	if !ok || s.room == "" {
		return nil, 0, false
	}
	roomID := s.room
	room = t.rooms[roomID]
	delete(t.byRoom[roomID], user)
	remaining = len(t.byRoom[roomID])
	if remaining == 0 {
		delete(t.byRoom, roomID)
		delete(t.rooms, roomID)
	}
	s.room = ""
	s.state = domain.VoiceState{}
	if s.conn == nil {
		// Connection already gone; nothing left to keep the record for.
		delete(t.byUser, user)
	}
	log.Info().Str("module", "app.sessions").Str("user", string(user)).Str("room", string(roomID)).Int("remaining", remaining).Msg("member left")
	return room, remaining, true
}

// MembersOf snapshots the distinct, currently-joined users of a room.
func (t *Sessions) MembersOf(roomID domain.RoomID) []MemberSnap {
	t.mu.RLock()
	defer t.mu.RUnlock()
	members := t.byRoom[roomID]
	out := make([]MemberSnap, 0, len(members))
	for _, s := range members {
		out = append(out, MemberSnap{User: s.user, Conn: s.conn, State: s.state, JoinedAt: s.joined})
	}
	return out
}

// RoomOf reports which room the user is currently joined to, if any.
func (t *Sessions) RoomOf(user domain.UserID) (domain.RoomID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.byUser[user]
	if !ok || s.room == "" {
		return "", false
	}
	return s.room, true
}

// RoomPresence is the live occupancy view exposed over the HTTP API.
type RoomPresence struct {
	Room    domain.RoomID     `json:"roomId"`
	Members []core.MemberInfo `json:"members"`
}

func (t *Sessions) Snapshot() []RoomPresence {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]RoomPresence, 0, len(t.byRoom))
	for roomID, members := range t.byRoom {
		rp := RoomPresence{Room: roomID, Members: make([]core.MemberInfo, 0, len(members))}
		for _, s := range members {
			rp.Members = append(rp.Members, core.MemberInfo{UserID: s.user, Muted: s.state.Muted, Deafened: s.state.Deafened})
		}
		out = append(out, rp)
	}
	return out
}
