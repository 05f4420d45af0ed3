package model

import (
	"strings"
	"time"
)

// RoomID is a human-shareable token for joining rooms
type RoomID string

// RoomInstance distinguishes incarnations of a room. Room ids are short and
// may in principle be reused after deletion; deferred cleanup is keyed on
// (RoomID, RoomInstance) so a stale timer can never delete a new room that
// happens to share the id.
type RoomInstance string

// RoomPhase represents the current phase of a room's lifecycle
type RoomPhase string

const (
	PhaseAwaitingPlayers RoomPhase = "awaiting_players" // one player, waiting for an opponent
	PhaseAwaitingSecrets RoomPhase = "awaiting_secrets" // both joined, not all secrets in
	PhaseInProgress      RoomPhase = "in_progress"      // guessing underway
	PhaseFinished        RoomPhase = "finished"         // won; held briefly for the result screen
)

// MaxPlayers is the number of players a room can hold
const MaxPlayers = 2

// Room is the per-match aggregate: two player slots, the digit length
// configuration, and the turn state machine.
type Room struct {
	ID          RoomID
	Instance    RoomInstance
	DigitLength int // fixed at creation; governs all secrets and guesses

	Players     []Player     // join order; 1..MaxPlayers
	Phase       RoomPhase
	CurrentTurn ConnectionID // whose guess is accepted; empty until in progress
	TurnCount   int          // guesses made so far

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Player returns the player owned by the given connection, or nil
func (r *Room) Player(conn ConnectionID) *Player {
	for i := range r.Players {
		if r.Players[i].ConnectionID == conn {
			return &r.Players[i]
		}
	}
	return nil
}

// Opponent returns the player not owned by the given connection, or nil.
// The caller must be a member of the room for the result to be meaningful.
func (r *Room) Opponent(conn ConnectionID) *Player {
	for i := range r.Players {
		if r.Players[i].ConnectionID != conn {
			return &r.Players[i]
		}
	}
	return nil
}

// HasPlayer reports whether the connection owns a slot in the room
func (r *Room) HasPlayer(conn ConnectionID) bool {
	return r.Player(conn) != nil
}

// NameTaken reports whether a player already holds the name, compared
// case-insensitively
func (r *Room) NameTaken(name string) bool {
	for i := range r.Players {
		if strings.EqualFold(r.Players[i].Name, name) {
			return true
		}
	}
	return false
}

// Full reports whether both player slots are occupied
func (r *Room) Full() bool {
	return len(r.Players) >= MaxPlayers
}

// AllReady reports whether the room is full and every player has a secret
func (r *Room) AllReady() bool {
	if !r.Full() {
		return false
	}
	for i := range r.Players {
		if !r.Players[i].Ready {
			return false
		}
	}
	return true
}

// Started reports whether guessing has begun (or concluded)
func (r *Room) Started() bool {
	return r.Phase == PhaseInProgress || r.Phase == PhaseFinished
}

// Clone returns a deep copy of the room. Storage hands out clones so that
// readers never observe a room mid-mutation.
func (r *Room) Clone() *Room {
	c := *r
	c.Players = make([]Player, len(r.Players))
	copy(c.Players, r.Players)
	return &c
}

// NormalizeRoomID canonicalizes user-supplied room ids: trimmed and
// upper-cased, so ids are case-insensitive on input.
func NormalizeRoomID(raw string) RoomID {
	return RoomID(strings.ToUpper(strings.TrimSpace(raw)))
}
