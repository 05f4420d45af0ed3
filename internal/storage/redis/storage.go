package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface. It
// exists so multiple server processes can share a room registry; a single
// process is fine with the in-memory store.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{client: client, cfg: cfg}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{client: client, cfg: cfg}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}

	// Players are only ever added to a room, so the connection index never
	// needs diffing against the previous state; deletion cleans it up.
	pipe := s.client.Pipeline()
	pipe.Set(ctx, roomKey(room.ID), data, s.cfg.RoomTTL)
	pipe.ZAdd(ctx, roomsByCreatedKey(), redis.Z{
		Score:  float64(room.CreatedAt.Unix()),
		Member: string(room.ID),
	})
	for i := range room.Players {
		pipe.Set(ctx, connIndexKey(room.Players[i].ConnectionID), string(room.ID), s.cfg.RoomTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	data, err := s.client.Get(ctx, roomKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.RoomID) error {
	room, err := s.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			// Still clear the sweep index entry so a half-deleted room
			// cannot be swept forever.
			return s.client.ZRem(ctx, roomsByCreatedKey(), string(id)).Err()
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, roomKey(id))
	pipe.ZRem(ctx, roomsByCreatedKey(), string(id))
	for i := range room.Players {
		pipe.Del(ctx, connIndexKey(room.Players[i].ConnectionID))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) RoomExists(ctx context.Context, id model.RoomID) (bool, error) {
	n, err := s.client.Exists(ctx, roomKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Storage) FindRoomByConnection(ctx context.Context, conn model.ConnectionID) (model.RoomID, error) {
	roomID, err := s.client.Get(ctx, connIndexKey(conn)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrRoomNotFound
		}
		return "", err
	}
	return model.RoomID(roomID), nil
}

func (s *Storage) ExpiredRoomIDs(ctx context.Context, olderThan time.Time) ([]model.RoomID, error) {
	members, err := s.client.ZRangeByScore(ctx, roomsByCreatedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: formatScore(olderThan),
	}).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]model.RoomID, 0, len(members))
	for _, m := range members {
		ids = append(ids, model.RoomID(m))
	}
	return ids, nil
}

// formatScore renders a cutoff time as a ZRANGEBYSCORE bound, exclusive of
// the cutoff itself
func formatScore(t time.Time) string {
	return "(" + strconv.FormatInt(t.Unix(), 10)
}
