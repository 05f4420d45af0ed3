package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/services/game"
	"github.com/mcoot/numduel/internal/services/registry"
)

// Sender delivers an encoded frame to one connection. Implemented by the
// Hub; abstracted so the dispatcher can be tested without sockets.
type Sender interface {
	Send(conn model.ConnectionID, message []byte)
}

// Dispatcher routes inbound events to registry and game operations and
// fans the resulting notifications out to the right connections. Failures
// are reported only to the originating connection.
type Dispatcher struct {
	registry *registry.Controller
	game     *game.Controller
	sender   Sender
	validate *validator.Validate
	logger   *slog.Logger
}

func NewDispatcher(
	registry *registry.Controller,
	game *game.Controller,
	sender Sender,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		game:     game,
		sender:   sender,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With(slog.String("component", "dispatcher")),
	}
}

// HandleMessage processes one inbound frame. A malformed frame, an unknown
// event, or a panic in a handler produces an error event for the sender and
// nothing else; the connection and every other room stay untouched.
func (d *Dispatcher) HandleMessage(ctx context.Context, conn model.ConnectionID, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic handling event",
				slog.String("connection_id", string(conn)),
				slog.Any("panic", r))
			d.sendEvent(conn, EventError, ErrorPayload{
				Code:    codeInternal,
				Message: "Something went wrong, please try again",
			})
		}
	}()

	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Event == "" {
		d.sendEvent(conn, EventError, ErrorPayload{
			Code:    codeInvalidRequest,
			Message: "Invalid data format",
		})
		return
	}

	var err error
	switch envelope.Event {
	case EventCreateRoom:
		err = d.handleCreateRoom(ctx, conn, envelope.Data)
	case EventJoinRoom:
		err = d.handleJoinRoom(ctx, conn, envelope.Data)
	case EventSubmitSecret:
		err = d.handleSubmitSecret(ctx, conn, envelope.Data)
	case EventMakeGuess:
		err = d.handleMakeGuess(ctx, conn, envelope.Data)
	case EventExitGame:
		err = d.handleExitGame(ctx, conn, envelope.Data)
	case EventLeaveRoom:
		err = d.handleLeaveRoom(ctx, conn, envelope.Data)
	default:
		d.sendEvent(conn, EventError, ErrorPayload{
			Code:    codeUnknownEvent,
			Message: fmt.Sprintf("Unknown event %q", envelope.Event),
		})
		return
	}
	if err != nil {
		d.sendError(conn, err)
	}
}

// HandleDisconnect treats a dropped connection as an implicit leave: the
// room (if any) is torn down and the opponent is told the peer is gone.
func (d *Dispatcher) HandleDisconnect(ctx context.Context, conn model.ConnectionID) {
	outcome, err := d.game.PlayerExited(ctx, "", conn)
	if err != nil {
		// Connections outside any room disconnect all the time
		if !game.IsNoOpExit(err) {
			d.logger.Error("disconnect cleanup failed",
				slog.String("connection_id", string(conn)),
				slog.String("error", err.Error()))
		}
		return
	}
	if outcome.OpponentConn != "" {
		d.sendEvent(outcome.OpponentConn, EventOpponentLeft, struct{}{})
	}
}

func (d *Dispatcher) handleCreateRoom(ctx context.Context, conn model.ConnectionID, data json.RawMessage) error {
	var payload CreateRoomPayload
	if err := d.decode(data, &payload); err != nil {
		return err
	}

	room, err := d.registry.CreateRoom(ctx, conn, payload.PlayerName, payload.DigitLength)
	if err != nil {
		return err
	}

	d.sendEvent(conn, EventRoomCreated, RoomCreatedPayload{RoomID: string(room.ID)})
	return nil
}

func (d *Dispatcher) handleJoinRoom(ctx context.Context, conn model.ConnectionID, data json.RawMessage) error {
	var payload JoinRoomPayload
	if err := d.decode(data, &payload); err != nil {
		return err
	}

	room, err := d.registry.JoinRoom(ctx, model.NormalizeRoomID(payload.RoomID), conn, payload.PlayerName)
	if err != nil {
		return err
	}

	joined := RoomJoinedPayload{
		RoomID:      string(room.ID),
		Players:     playerSummaries(room),
		DigitLength: room.DigitLength,
	}
	for _, p := range room.Players {
		d.sendEvent(p.ConnectionID, EventRoomJoined, joined)
	}
	return nil
}

func (d *Dispatcher) handleSubmitSecret(ctx context.Context, conn model.ConnectionID, data json.RawMessage) error {
	var payload SubmitSecretPayload
	if err := d.decode(data, &payload); err != nil {
		return err
	}

	outcome, err := d.game.SubmitSecret(ctx, model.NormalizeRoomID(payload.RoomID), conn, payload.Secret)
	if err != nil {
		return err
	}
	if !outcome.Started {
		return nil
	}

	start := StartGuessingPayload{
		DigitLength: outcome.Room.DigitLength,
		FirstPlayer: outcome.FirstPlayer,
	}
	for _, p := range outcome.Room.Players {
		d.sendEvent(p.ConnectionID, EventStartGuessing, start)
	}
	return nil
}

func (d *Dispatcher) handleMakeGuess(ctx context.Context, conn model.ConnectionID, data json.RawMessage) error {
	var payload MakeGuessPayload
	if err := d.decode(data, &payload); err != nil {
		return err
	}

	outcome, err := d.game.MakeGuess(ctx, model.NormalizeRoomID(payload.RoomID), conn, payload.Guess)
	if err != nil {
		return err
	}

	result := GuessResultPayload{
		Guess:    outcome.Guess,
		Correct:  outcome.Correct,
		NextTurn: outcome.NextTurn,
	}
	d.sendEvent(outcome.GuesserConn, EventGuessResult, result)
	d.sendEvent(outcome.OpponentConn, EventOpponentGuessed, result)

	if outcome.Won {
		over := GameOverPayload{Winner: outcome.Winner, Secret: outcome.RevealedSecret}
		d.sendEvent(outcome.GuesserConn, EventGameOver, over)
		d.sendEvent(outcome.OpponentConn, EventGameOver, over)
	}
	return nil
}

// handleExitGame ends the game for both players: the opponent is named
// winner by forfeit. Missing rooms are a silent no-op.
func (d *Dispatcher) handleExitGame(ctx context.Context, conn model.ConnectionID, data json.RawMessage) error {
	outcome, err := d.exit(ctx, conn, data)
	if err != nil {
		return err
	}
	if outcome != nil && outcome.OpponentConn != "" {
		d.sendEvent(outcome.OpponentConn, EventPlayerExited, PlayerExitedPayload{Winner: outcome.OpponentName})
	}
	return nil
}

// handleLeaveRoom has exit semantics but tells the opponent the peer left
// rather than declaring a forfeit.
func (d *Dispatcher) handleLeaveRoom(ctx context.Context, conn model.ConnectionID, data json.RawMessage) error {
	outcome, err := d.exit(ctx, conn, data)
	if err != nil {
		return err
	}
	if outcome != nil && outcome.OpponentConn != "" {
		d.sendEvent(outcome.OpponentConn, EventOpponentLeft, struct{}{})
	}
	return nil
}

// exit runs the shared best-effort teardown. A nil outcome with nil error
// means there was nothing to do.
func (d *Dispatcher) exit(ctx context.Context, conn model.ConnectionID, data json.RawMessage) (*game.ExitOutcome, error) {
	var payload ExitGamePayload
	if len(data) > 0 {
		// Exit is best-effort, so a malformed payload degrades to the
		// connection-lookup path instead of failing
		_ = json.Unmarshal(data, &payload)
	}

	outcome, err := d.game.PlayerExited(ctx, model.NormalizeRoomID(payload.RoomID), conn)
	if err != nil {
		if game.IsNoOpExit(err) {
			return nil, nil
		}
		return nil, err
	}
	return outcome, nil
}

// decode unmarshals and shape-checks an inbound payload. Anything wrong
// with it maps to a single validation failure.
func (d *Dispatcher) decode(data json.RawMessage, payload any) error {
	if len(data) == 0 {
		return errInvalidRequest
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return errInvalidRequest
	}
	if err := d.validate.Struct(payload); err != nil {
		return errInvalidRequest
	}
	return nil
}

func (d *Dispatcher) sendError(conn model.ConnectionID, err error) {
	payload, unexpected := errorPayload(err)
	if unexpected {
		d.logger.Error("internal error handling event",
			slog.String("connection_id", string(conn)),
			slog.String("error", err.Error()))
	}
	d.sendEvent(conn, EventError, payload)
}

func (d *Dispatcher) sendEvent(conn model.ConnectionID, event string, payload any) {
	raw, err := EncodeEvent(event, payload)
	if err != nil {
		d.logger.Error("failed to encode event",
			slog.String("event", event),
			slog.String("error", err.Error()))
		return
	}
	d.sender.Send(conn, raw)
}

func playerSummaries(room *model.Room) []PlayerSummary {
	summaries := make([]PlayerSummary, 0, len(room.Players))
	for _, p := range room.Players {
		summaries = append(summaries, PlayerSummary{Name: p.Name, Ready: p.Ready})
	}
	return summaries
}
