package app

import (
	"github.com/rs/zerolog/log"

	"github.com/fluxsocial/voicerelay/internal/core"
	"github.com/fluxsocial/voicerelay/internal/domain"
)

// Connection-registry surface of the session table. At most one live
// connection is retained per user; a later connection silently supersedes
// an earlier one, which covers rapid reconnects without duplicating the
// user in any member set.

// Register binds a connection to the user and returns the superseded
// handle, if any, so the adapter can close it. An existing room
// membership survives the swap.
func (t *Sessions) Register(user domain.UserID, conn core.SignalConnection) core.SignalConnection {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.byUser[user]
	if !ok {
		t.byUser[user] = &session{user: user, conn: conn}
		log.Info().Str("module", "app.registry").Str("user", string(user)).Str("conn", string(conn.ID())).Msg("registered connection")
		return nil
	}
	old := s.conn
	s.conn = conn
	log.Info().Str("module", "app.registry").Str("user", string(user)).Str("conn", string(conn.ID())).Msg("superseded connection")
	return old
}

// Lookup returns the user's current connection handle.
func (t *Sessions) Lookup(user domain.UserID) (core.SignalConnection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.byUser[user]
	if !ok || s.conn == nil {
		return nil, false
	}
	return s.conn, true
}

// Unregister drops the mapping only while the stored handle still matches,
// so a stale close after a rapid reconnect cannot clobber the newer
// connection. When the user was in a room the membership is left for the
// orchestrator to unwind on that room's worker; the returned room id tells
// it where.
func (t *Sessions) Unregister(user domain.UserID, connID domain.ConnID) (domain.RoomID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.byUser[user]
	if !ok || s.conn == nil || s.conn.ID() != connID {
		return "", false
	}
	s.conn = nil
	if s.room == "" {
		delete(t.byUser, user)
		log.Info().Str("module", "app.registry").Str("user", string(user)).Msg("unregistered connection")
		return "", true
	}
	log.Info().Str("module", "app.registry").Str("user", string(user)).Str("room", string(s.room)).Msg("unregistered connection, membership pending cleanup")
	return s.room, true
}
