package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/storage"
)

// Storage is an in-memory implementation of the storage interface. Rooms
// are stored as clones so that a caller mutating a retrieved room never
// races a concurrent reader.
type Storage struct {
	mu    sync.RWMutex
	rooms map[model.RoomID]*model.Room
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		rooms: make(map[model.RoomID]*model.Room),
	}
}

var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = room.Clone()
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
	return nil
}

func (s *Storage) RoomExists(ctx context.Context, id model.RoomID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[id]
	return ok, nil
}

func (s *Storage) FindRoomByConnection(ctx context.Context, conn model.ConnectionID) (model.RoomID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, room := range s.rooms {
		if room.HasPlayer(conn) {
			return id, nil
		}
	}
	return "", model.ErrRoomNotFound
}

func (s *Storage) ExpiredRoomIDs(ctx context.Context, olderThan time.Time) ([]model.RoomID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []model.RoomID
	for id, room := range s.rooms {
		if room.CreatedAt.Before(olderThan) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
