package core

import (
	"context"

	"github.com/fluxsocial/voicerelay/internal/domain"
)

// RoomDirectory is the external CRUD layer that provisions voice rooms.
// Lookup resolves capacity and quality tier before a join is admitted;
// Delete is requested when the last member leaves a temporary room.
// Both may block on I/O and must never be called inside a room's
// serialized critical section.
type RoomDirectory interface {
	Lookup(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	Delete(ctx context.Context, id domain.RoomID) error
}
