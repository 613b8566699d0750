// Package orch ties the session table, the per-room scheduler, the relay
// and the room directory together. It is the only writer of room
// membership transitions; connection handlers hand every event to it.
package orch

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/fluxsocial/voicerelay/internal/app"
	"github.com/fluxsocial/voicerelay/internal/core"
	"github.com/fluxsocial/voicerelay/internal/domain"
	"github.com/fluxsocial/voicerelay/internal/metrics"
)

type Orchestrator struct {
	Sessions  *app.Sessions
	Sched     *app.Sched
	Relays    *app.Relay
	Directory core.RoomDirectory
	Metrics   *metrics.Metrics
}

func New(sessions *app.Sessions, dir core.RoomDirectory, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		Sessions:  sessions,
		Sched:     app.NewSched(),
		Relays:    &app.Relay{Sessions: sessions, Metrics: m},
		Directory: dir,
		Metrics:   m,
	}
}

// Connect binds a fresh connection to the user. A prior connection for the
// same user is superseded and closed; its membership, if any, carries over
// untouched so a rapid reconnect never duplicates the user in a room.
func (o *Orchestrator) Connect(user domain.UserID, conn core.SignalConnection) {
	if old := o.Sessions.Register(user, conn); old != nil {
		old.Close()
	}
}

// Disconnect is the transport-level close signal. It unwinds exactly the
// same cleanup as an explicit leave; a stale close (the connection was
// already superseded) is a no-op.
func (o *Orchestrator) Disconnect(user domain.UserID, connID domain.ConnID) {
	room, ok := o.Sessions.Unregister(user, connID)
	if !ok || room == "" {
		return
	}
	o.Sched.DoWait(room, func() {
		o.removeMember(user, metrics.ReasonDisconnect)
	})
}

// Signal relays one negotiation envelope between two peers.
func (o *Orchestrator) Signal(env core.Envelope) {
	o.Relays.Relay(env)
}

// send marshals and best-effort delivers one message to one connection.
func (o *Orchestrator) send(conn core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("marshal outbound")
		return
	}
	if err := conn.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "orch").Msg("outbound dropped")
		if o.Metrics != nil {
			o.Metrics.SendDrops.Inc()
		}
	}
}

// broadcast fans a message out to every member of a room except the
// originator. Best effort, no acknowledgment.
func (o *Orchestrator) broadcast(room domain.RoomID, from domain.UserID, v any) {
	for _, m := range o.Sessions.MembersOf(room) {
		if m.User == from || m.Conn == nil {
			continue
		}
		o.send(m.Conn, v)
	}
}
