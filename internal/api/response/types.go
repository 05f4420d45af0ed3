package response

import (
	"time"

	"github.com/mcoot/numduel/internal/model"
)

// Player represents a room member in API responses. Secrets are never
// part of any response shape.
type Player struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		Name:  p.Name,
		Ready: p.Ready,
	}
}

// Room represents a room snapshot in API responses
type Room struct {
	ID          string    `json:"id"`
	Phase       string    `json:"phase"`
	DigitLength int       `json:"digit_length"`
	Players     []Player  `json:"players"`
	CurrentTurn string    `json:"current_turn,omitempty"`
	TurnCount   int       `json:"turn_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoomFromModel converts model.Room to a response Room. The current turn
// is reported by player name; connection ids stay internal.
func RoomFromModel(r *model.Room) Room {
	players := make([]Player, len(r.Players))
	for i := range r.Players {
		players[i] = PlayerFromModel(&r.Players[i])
	}

	var currentTurn string
	if p := r.Player(r.CurrentTurn); p != nil {
		currentTurn = p.Name
	}

	return Room{
		ID:          string(r.ID),
		Phase:       string(r.Phase),
		DigitLength: r.DigitLength,
		Players:     players,
		CurrentTurn: currentTurn,
		TurnCount:   r.TurnCount,
		CreatedAt:   r.CreatedAt,
	}
}
