package storage

import (
	"context"
	"time"

	"github.com/mcoot/numduel/internal/model"
)

// Storage defines the interface for room persistence. Implementations must
// be safe for concurrent use; callers are responsible for serializing
// read-modify-write cycles on a single room (the registry's room lock).
//
// Rooms live only for the duration of a match; there is deliberately no
// durability guarantee across process restarts.
type Storage interface {
	// SaveRoom inserts or replaces a room
	SaveRoom(ctx context.Context, room *model.Room) error

	// GetRoom returns the room with the given id, or model.ErrRoomNotFound
	GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error)

	// DeleteRoom removes a room. Deleting an absent room is a no-op.
	DeleteRoom(ctx context.Context, id model.RoomID) error

	// RoomExists reports whether a room with the given id exists
	RoomExists(ctx context.Context, id model.RoomID) (bool, error)

	// FindRoomByConnection resolves the room a connection belongs to, or
	// model.ErrRoomNotFound. Used for disconnect events that carry no room id.
	FindRoomByConnection(ctx context.Context, conn model.ConnectionID) (model.RoomID, error)

	// ExpiredRoomIDs lists ids of rooms created before the cutoff
	ExpiredRoomIDs(ctx context.Context, olderThan time.Time) ([]model.RoomID, error)
}
