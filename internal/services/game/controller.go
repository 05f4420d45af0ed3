package game

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mcoot/numduel/internal/dependencies/clock"
	"github.com/mcoot/numduel/internal/dependencies/random"
	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/services/registry"
	"github.com/mcoot/numduel/internal/services/scoring"
	"github.com/mcoot/numduel/internal/storage"
)

// DefaultFinishGrace is how long a finished room lingers after a win so
// late-arriving clients can still render the result.
const DefaultFinishGrace = 10 * time.Second

// Controller drives the per-room game state machine: secret collection,
// turn-by-turn guessing and exits. All mutations run under the registry's
// room lock. Operations return outcome structs describing exactly what the
// dispatcher should tell each connection, so the rules are testable without
// a live transport.
type Controller struct {
	storage     storage.Storage
	registry    *registry.Controller
	clock       clock.Clock
	random      random.Random
	logger      *slog.Logger
	finishGrace time.Duration
}

// NewController creates a new game Controller. A non-positive finishGrace
// falls back to DefaultFinishGrace.
func NewController(
	storage storage.Storage,
	registry *registry.Controller,
	clock clock.Clock,
	random random.Random,
	finishGrace time.Duration,
	logger *slog.Logger,
) *Controller {
	if finishGrace <= 0 {
		finishGrace = DefaultFinishGrace
	}
	return &Controller{
		storage:     storage,
		registry:    registry,
		clock:       clock,
		random:      random,
		logger:      logger,
		finishGrace: finishGrace,
	}
}

// SecretOutcome describes the result of an accepted secret submission
type SecretOutcome struct {
	Room *model.Room

	// Started is true when this submission was the second one and guessing
	// has begun
	Started bool
	// FirstPlayer is the name of the randomly chosen first guesser; set only
	// when Started
	FirstPlayer string
}

// SubmitSecret records a player's secret. When both players are ready the
// room moves to in-progress and a first guesser is chosen by fair coin flip.
func (c *Controller) SubmitSecret(ctx context.Context, roomID model.RoomID, conn model.ConnectionID, secret string) (*SecretOutcome, error) {
	var outcome *SecretOutcome
	err := c.registry.WithRoomLock(roomID, func() error {
		room, err := c.storage.GetRoom(ctx, roomID)
		if err != nil {
			return err
		}

		player := room.Player(conn)
		if player == nil {
			return model.ErrPlayerNotFound
		}
		if player.Ready {
			return model.ErrAlreadySubmitted
		}
		if !scoring.ValidCode(secret, room.DigitLength) {
			return model.ErrInvalidSecret
		}

		player.Secret = secret
		player.Ready = true
		room.UpdatedAt = c.clock.Now()

		outcome = &SecretOutcome{Room: room}

		if room.AllReady() {
			first := &room.Players[c.random.Intn(model.MaxPlayers)]
			room.Phase = model.PhaseInProgress
			room.CurrentTurn = first.ConnectionID

			outcome.Started = true
			outcome.FirstPlayer = first.Name
		}

		return c.storage.SaveRoom(ctx, room)
	})
	if err != nil {
		return nil, err
	}

	if outcome.Started {
		c.logger.Info("game started",
			slog.String("room_id", string(roomID)),
			slog.String("first_player", outcome.FirstPlayer),
		)
	}

	return outcome, nil
}

// GuessOutcome describes the result of an accepted guess
type GuessOutcome struct {
	Guess   string
	Correct int

	// GuesserConn/OpponentConn identify the two connections to notify
	GuesserConn  model.ConnectionID
	OpponentConn model.ConnectionID

	// NextTurn is the name of the player holding the turn after this guess
	NextTurn string

	// Won is true when every position matched; Winner names the guesser and
	// RevealedSecret is the loser's secret
	Won            bool
	Winner         string
	RevealedSecret string
}

// MakeGuess scores a guess against the opponent's secret and flips the turn.
// A full positional match finishes the game; the room then lingers for the
// finish grace period before deferred cleanup removes it.
func (c *Controller) MakeGuess(ctx context.Context, roomID model.RoomID, conn model.ConnectionID, guess string) (*GuessOutcome, error) {
	var outcome *GuessOutcome
	var instance model.RoomInstance
	err := c.registry.WithRoomLock(roomID, func() error {
		room, err := c.storage.GetRoom(ctx, roomID)
		if err != nil {
			return err
		}

		if room.Phase != model.PhaseInProgress {
			return model.ErrGameNotStarted
		}
		if room.CurrentTurn != conn {
			return model.ErrNotYourTurn
		}

		player := room.Player(conn)
		opponent := room.Opponent(conn)
		if player == nil || opponent == nil {
			return model.ErrPlayerNotFound
		}
		// Unreachable once in progress; kept as a guard
		if opponent.Secret == "" {
			return model.ErrOpponentSecretMissing
		}
		if !scoring.ValidCode(guess, room.DigitLength) {
			return model.ErrInvalidGuess
		}

		correct := scoring.CountPositionalMatches(guess, opponent.Secret)
		room.TurnCount++
		room.CurrentTurn = opponent.ConnectionID
		room.UpdatedAt = c.clock.Now()

		outcome = &GuessOutcome{
			Guess:        guess,
			Correct:      correct,
			GuesserConn:  player.ConnectionID,
			OpponentConn: opponent.ConnectionID,
			NextTurn:     opponent.Name,
		}

		if correct == room.DigitLength {
			room.Phase = model.PhaseFinished
			outcome.Won = true
			outcome.Winner = player.Name
			outcome.RevealedSecret = opponent.Secret
			instance = room.Instance
		}

		return c.storage.SaveRoom(ctx, room)
	})
	if err != nil {
		return nil, err
	}

	if outcome.Won {
		c.logger.Info("game won",
			slog.String("room_id", string(roomID)),
			slog.String("winner", outcome.Winner),
		)
		c.registry.ScheduleRemoval(roomID, instance, c.finishGrace)
	}

	return outcome, nil
}

// ExitOutcome describes the result of a player leaving a room
type ExitOutcome struct {
	RoomID model.RoomID

	// OpponentConn is the remaining player's connection, empty when the
	// leaver was alone
	OpponentConn model.ConnectionID
	// OpponentName is the remaining player's name (the winner by forfeit)
	OpponentName string
}

// PlayerExited handles a player leaving or disconnecting. When roomID is
// empty (a disconnect carries no payload) the room is resolved from the
// connection. The room is removed immediately; a confirmed-gone player makes
// the room useless, so there is no grace period. Returns
// model.ErrRoomNotFound when the connection has no room; callers on the
// best-effort paths treat that as a silent no-op.
func (c *Controller) PlayerExited(ctx context.Context, roomID model.RoomID, conn model.ConnectionID) (*ExitOutcome, error) {
	if roomID == "" {
		resolved, err := c.registry.FindRoomByConnection(ctx, conn)
		if err != nil {
			return nil, err
		}
		roomID = resolved
	}

	var outcome *ExitOutcome
	err := c.registry.WithRoomLock(roomID, func() error {
		room, err := c.storage.GetRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !room.HasPlayer(conn) {
			return model.ErrPlayerNotFound
		}

		outcome = &ExitOutcome{RoomID: roomID}
		if opponent := room.Opponent(conn); opponent != nil {
			outcome.OpponentConn = opponent.ConnectionID
			outcome.OpponentName = opponent.Name
		}

		return c.storage.DeleteRoom(ctx, roomID)
	})
	if err != nil {
		return nil, err
	}
	c.registry.ReleaseLock(roomID)

	c.logger.Info("player exited room",
		slog.String("room_id", string(roomID)),
		slog.Bool("opponent_present", outcome.OpponentConn != ""),
	)

	return outcome, nil
}

// IsNoOpExit reports whether an exit error means there was simply nothing to
// do: the room is already gone or the caller was not in it.
func IsNoOpExit(err error) bool {
	return errors.Is(err, model.ErrRoomNotFound) || errors.Is(err, model.ErrPlayerNotFound)
}
