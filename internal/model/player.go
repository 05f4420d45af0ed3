package model

import "time"

// ConnectionID identifies a live client connection. It is assigned by the
// transport when the connection is established and is the identity used to
// authorize actions against a room.
type ConnectionID string

// Player represents one side of a match
type Player struct {
	ConnectionID ConnectionID
	Name         string // trimmed; unique (case-insensitive) within the room
	Secret       string // empty until submitted; revealed only on game over
	Ready        bool   // true once Secret is set
	JoinedAt     time.Time
}
