package orch

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fluxsocial/voicerelay/internal/core"
	"github.com/fluxsocial/voicerelay/internal/domain"
	"github.com/fluxsocial/voicerelay/internal/metrics"
)

const directoryTimeout = 5 * time.Second

// Join admits the user to a room. The directory lookup runs on the caller's
// goroutine; only the in-memory transition runs inside the room's serialized
// section. A user already in a different room is moved: the old room is left
// first, atomically from the caller's point of view.
func (o *Orchestrator) Join(ctx context.Context, user domain.UserID, roomID domain.RoomID) error {
	room, err := o.Directory.Lookup(ctx, roomID)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("room", string(roomID)).Msg("room lookup failed")
		o.countRejection(metrics.ReasonNotFound)
		return domain.ErrRoomNotFound
	}

	if cur, ok := o.Sessions.RoomOf(user); ok {
		if cur == roomID {
			o.countRejection(metrics.ReasonAlreadyJoined)
			return domain.ErrAlreadyJoined
		}
		o.Sched.DoWait(cur, func() {
			o.removeMember(user, metrics.ReasonMoved)
		})
	}

	var joinErr error
	o.Sched.DoWait(roomID, func() {
		joinErr = o.Sessions.Join(room, user)
		if joinErr != nil {
			return
		}
		o.afterJoin(room, user)
	})

	switch {
	case joinErr == nil:
	case errors.Is(joinErr, domain.ErrRoomFull):
		o.countRejection(metrics.ReasonFull)
	case errors.Is(joinErr, domain.ErrAlreadyJoined):
		o.countRejection(metrics.ReasonAlreadyJoined)
	}
	return joinErr
}

// afterJoin runs inside the room's worker, right after the membership
// mutation: roster to the newcomer, peer-joined to everyone else.
func (o *Orchestrator) afterJoin(room *domain.Room, user domain.UserID) {
	members := o.Sessions.MembersOf(room.ID)

	roster := core.CurrentMembers{Type: core.MsgCurrentMembers, Room: room.ID, Members: make([]core.MemberInfo, 0, len(members))}
	var self core.SignalConnection
	for _, m := range members {
		roster.Members = append(roster.Members, core.MemberInfo{UserID: m.User, Muted: m.State.Muted, Deafened: m.State.Deafened})
		if m.User == user {
			self = m.Conn
		}
	}
	if self != nil {
		o.send(self, roster)
	}
	o.broadcast(room.ID, user, core.PeerJoined{Type: core.MsgPeerJoined, User: user, Room: room.ID})

	if o.Metrics != nil {
		o.Metrics.Joins.Inc()
		o.Metrics.RoomMembers.WithLabelValues(string(room.ID)).Set(float64(len(members)))
	}
}

// Leave handles an explicit leave request. Unknown membership is a soft
// no-op: duplicate leaves happen in disconnect races.
func (o *Orchestrator) Leave(user domain.UserID) {
	room, ok := o.Sessions.RoomOf(user)
	if !ok {
		log.Info().Str("module", "orch").Str("user", string(user)).Msg("leave without membership, ignored")
		return
	}
	o.Sched.DoWait(room, func() {
		o.removeMember(user, metrics.ReasonLeave)
	})
}

// removeMember is the single cleanup path explicit leave, move and
// disconnect all converge on. Runs inside the room's worker. Deleting an
// emptied temporary room happens on a separate goroutine, after the
// in-memory transition is complete.
func (o *Orchestrator) removeMember(user domain.UserID, reason string) {
	room, remaining, wasMember := o.Sessions.Leave(user)
	if !wasMember {
		return
	}
	o.broadcast(room.ID, user, core.PeerLeft{Type: core.MsgPeerLeft, User: user, Room: room.ID})

	if o.Metrics != nil {
		o.Metrics.Leaves.WithLabelValues(reason).Inc()
		if remaining == 0 {
			o.Metrics.RoomMembers.DeleteLabelValues(string(room.ID))
		} else {
			o.Metrics.RoomMembers.WithLabelValues(string(room.ID)).Set(float64(remaining))
		}
	}

	if remaining == 0 && room.IsTemporary {
		go o.deleteTemporary(room.ID)
	}
}

func (o *Orchestrator) deleteTemporary(roomID domain.RoomID) {
	ctx, cancel := context.WithTimeout(context.Background(), directoryTimeout)
	defer cancel()
	if err := o.Directory.Delete(ctx, roomID); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("room", string(roomID)).Msg("temporary room delete failed")
		return
	}
	log.Info().Str("module", "orch").Str("room", string(roomID)).Msg("temporary room deleted")
}
