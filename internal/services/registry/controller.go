package registry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/numduel/internal/dependencies/clock"
	"github.com/mcoot/numduel/internal/dependencies/random"
	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/services/scoring"
	"github.com/mcoot/numduel/internal/storage"
)

const (
	// RoomIDLength is the length of generated room ids
	RoomIDLength = 6
	// RoomIDAlphabet is the characters used in room ids
	RoomIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// InstanceLength is the length of room instance tokens
	InstanceLength = 12
)

// Controller owns the room registry: creation, membership, lookup and
// expiry. It also owns per-room mutual exclusion; every read-modify-write
// of a room, here or in the game controller, runs under WithRoomLock.
type Controller struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger

	lockMu    sync.Mutex
	roomLocks map[model.RoomID]*sync.Mutex
}

// NewController creates a new registry Controller
func NewController(
	storage storage.Storage,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:   storage,
		clock:     clock,
		random:    random,
		logger:    logger,
		roomLocks: make(map[model.RoomID]*sync.Mutex),
	}
}

// WithRoomLock runs fn while holding the mutex for the given room id.
// Operations on different rooms proceed in parallel; operations on the same
// room are serialized, including a disconnect racing an in-flight guess.
func (c *Controller) WithRoomLock(id model.RoomID, fn func() error) error {
	mu := c.lockFor(id)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

func (c *Controller) lockFor(id model.RoomID) *sync.Mutex {
	c.lockMu.Lock()
	defer c.lockMu.Unlock()
	mu, ok := c.roomLocks[id]
	if !ok {
		mu = &sync.Mutex{}
		c.roomLocks[id] = mu
	}
	return mu
}

// releaseLock drops the lock entry for a deleted room. A goroutine already
// waiting on the old mutex will find the room gone when it looks it up.
func (c *Controller) releaseLock(id model.RoomID) {
	c.lockMu.Lock()
	defer c.lockMu.Unlock()
	delete(c.roomLocks, id)
}

// ReleaseLock drops the lock entry for a room the caller has already
// deleted under WithRoomLock. Call only after the room is gone from
// storage, and never while still holding the room lock.
func (c *Controller) ReleaseLock(id model.RoomID) {
	c.releaseLock(id)
}

// CreateRoom creates a room hosted by the given connection and returns it.
// The room id is generated fresh and checked for uniqueness.
func (c *Controller) CreateRoom(ctx context.Context, hostConn model.ConnectionID, hostName string, digitLength int) (*model.Room, error) {
	name := strings.TrimSpace(hostName)
	if name == "" {
		return nil, model.ErrInvalidName
	}
	if !scoring.ValidDigitLength(digitLength) {
		return nil, model.ErrInvalidDigitLength
	}

	now := c.clock.Now()

	// Generate a unique room id
	var id model.RoomID
	for {
		id = model.RoomID(c.random.String(RoomIDLength, RoomIDAlphabet))
		exists, err := c.storage.RoomExists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
	}

	room := &model.Room{
		ID:          id,
		Instance:    model.RoomInstance(c.random.String(InstanceLength, RoomIDAlphabet)),
		DigitLength: digitLength,
		Phase:       model.PhaseAwaitingPlayers,
		Players: []model.Player{
			{
				ConnectionID: hostConn,
				Name:         name,
				JoinedAt:     now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	var err error
	if lockErr := c.WithRoomLock(id, func() error {
		err = c.storage.SaveRoom(ctx, room)
		return err
	}); lockErr != nil {
		return nil, lockErr
	}
	if err != nil {
		return nil, err
	}

	c.logger.Info("room created",
		slog.String("room_id", string(id)),
		slog.String("host", name),
		slog.Int("digit_length", digitLength),
	)

	return room, nil
}

// JoinRoom adds a second player to a room and returns the updated room
func (c *Controller) JoinRoom(ctx context.Context, roomID model.RoomID, conn model.ConnectionID, playerName string) (*model.Room, error) {
	name := strings.TrimSpace(playerName)
	if name == "" {
		return nil, model.ErrInvalidName
	}

	var joined *model.Room
	err := c.WithRoomLock(roomID, func() error {
		room, err := c.storage.GetRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if room.Full() {
			return model.ErrRoomFull
		}
		if room.Started() {
			return model.ErrGameAlreadyStarted
		}
		if room.NameTaken(name) {
			return model.ErrNameTaken
		}

		now := c.clock.Now()
		room.Players = append(room.Players, model.Player{
			ConnectionID: conn,
			Name:         name,
			JoinedAt:     now,
		})
		if room.Full() {
			room.Phase = model.PhaseAwaitingSecrets
		}
		room.UpdatedAt = now

		if err := c.storage.SaveRoom(ctx, room); err != nil {
			return err
		}
		joined = room
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("player joined room",
		slog.String("room_id", string(roomID)),
		slog.String("player", name),
	)

	return joined, nil
}

// GetRoom retrieves a room by id
func (c *Controller) GetRoom(ctx context.Context, roomID model.RoomID) (*model.Room, error) {
	return c.storage.GetRoom(ctx, roomID)
}

// RemoveRoom deletes a room. Removing an absent room is a no-op.
func (c *Controller) RemoveRoom(ctx context.Context, roomID model.RoomID) error {
	err := c.WithRoomLock(roomID, func() error {
		return c.storage.DeleteRoom(ctx, roomID)
	})
	if err != nil {
		return err
	}
	c.releaseLock(roomID)
	return nil
}

// RemoveRoomInstance deletes a room only if it is still the same incarnation
// that the caller observed. A deferred cleanup timer uses this so it cannot
// destroy a newer room that reused the id.
func (c *Controller) RemoveRoomInstance(ctx context.Context, roomID model.RoomID, instance model.RoomInstance) error {
	removed := false
	err := c.WithRoomLock(roomID, func() error {
		room, err := c.storage.GetRoom(ctx, roomID)
		if err != nil {
			if errors.Is(err, model.ErrRoomNotFound) {
				return nil
			}
			return err
		}
		if room.Instance != instance {
			return nil
		}
		if err := c.storage.DeleteRoom(ctx, roomID); err != nil {
			return err
		}
		removed = true
		return nil
	})
	if err != nil {
		return err
	}
	if removed {
		c.releaseLock(roomID)
		c.logger.Info("room cleaned up", slog.String("room_id", string(roomID)))
	}
	return nil
}

// ScheduleRemoval arranges for RemoveRoomInstance to run after the delay.
// The timer does not hold the room lock while waiting.
func (c *Controller) ScheduleRemoval(roomID model.RoomID, instance model.RoomInstance, delay time.Duration) {
	time.AfterFunc(delay, func() {
		if err := c.RemoveRoomInstance(context.Background(), roomID, instance); err != nil {
			c.logger.Error("deferred room removal failed",
				slog.String("room_id", string(roomID)),
				slog.String("error", err.Error()),
			)
		}
	})
}

// FindRoomByConnection resolves the room a connection belongs to
func (c *Controller) FindRoomByConnection(ctx context.Context, conn model.ConnectionID) (model.RoomID, error) {
	return c.storage.FindRoomByConnection(ctx, conn)
}

// SweepExpired deletes every room created more than maxAge ago and returns
// the number removed. Age is measured from creation regardless of activity;
// this is a coarse safety net, not an idle timeout.
func (c *Controller) SweepExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := c.clock.Now().Add(-maxAge)
	ids, err := c.storage.ExpiredRoomIDs(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range ids {
		swept := false
		err := c.WithRoomLock(id, func() error {
			room, err := c.storage.GetRoom(ctx, id)
			if err != nil {
				if errors.Is(err, model.ErrRoomNotFound) {
					return nil
				}
				return err
			}
			// Re-check under the lock; the listing ran without it
			if !room.CreatedAt.Before(cutoff) {
				return nil
			}
			if err := c.storage.DeleteRoom(ctx, id); err != nil {
				return err
			}
			swept = true
			return nil
		})
		if err != nil {
			return removed, err
		}
		if swept {
			c.releaseLock(id)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Info("expired rooms swept", slog.Int("removed", removed))
	}
	return removed, nil
}
