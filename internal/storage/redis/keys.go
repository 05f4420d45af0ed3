package redis

import (
	"fmt"

	"github.com/mcoot/numduel/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "numduel"

// roomKey returns the Redis key for a Room
func roomKey(id model.RoomID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, id)
}

// connIndexKey returns the Redis key for the connection -> room_id index
func connIndexKey(conn model.ConnectionID) string {
	return fmt.Sprintf("%s:idx:conn:%s", keyPrefix, conn)
}

// roomsByCreatedKey returns the Redis key for the ZSET of room ids scored by
// creation time, used by the expiry sweep
func roomsByCreatedKey() string {
	return fmt.Sprintf("%s:idx:rooms_by_created", keyPrefix)
}
