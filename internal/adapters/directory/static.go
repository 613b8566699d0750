// Package directory provides the room-lookup collaborator: the external
// CRUD layer that provisions voice rooms. The presence subsystem resolves
// capacity and quality through it and asks it to delete emptied temporary
// rooms.
package directory

import (
	"context"
	"sync"

	"github.com/fluxsocial/voicerelay/internal/domain"
)

// Static serves rooms from memory. Used for local development (seeded from
// config) and as the test double.
type Static struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*domain.Room
}

func NewStatic(rooms ...*domain.Room) *Static {
	s := &Static{rooms: make(map[domain.RoomID]*domain.Room, len(rooms))}
	for _, r := range rooms {
		s.rooms[r.ID] = r
	}
	return s
}

func (s *Static) Add(r *domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
}

func (s *Static) Lookup(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Static) Delete(_ context.Context, id domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
	return nil
}
