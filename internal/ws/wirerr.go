package ws

import (
	"errors"

	"github.com/mcoot/numduel/internal/model"
)

// Error codes carried in the error event payload. The message is what a
// client surfaces to the player; the code is stable for programmatic use.
const (
	codeInvalidRequest     = "INVALID_REQUEST"
	codeUnknownEvent       = "UNKNOWN_EVENT"
	codeInvalidName        = "INVALID_NAME"
	codeInvalidDigitLength = "INVALID_DIGIT_LENGTH"
	codeInvalidSecret      = "INVALID_SECRET"
	codeInvalidGuess       = "INVALID_GUESS"
	codeRoomNotFound       = "ROOM_NOT_FOUND"
	codeRoomFull           = "ROOM_FULL"
	codeGameStarted        = "GAME_ALREADY_STARTED"
	codeNameTaken          = "NAME_TAKEN"
	codePlayerNotFound     = "PLAYER_NOT_FOUND"
	codeAlreadySubmitted   = "ALREADY_SUBMITTED"
	codeGameNotStarted     = "GAME_NOT_STARTED"
	codeNotYourTurn        = "NOT_YOUR_TURN"
	codePlayerConfig       = "PLAYER_CONFIG_ERROR"
	codeInternal           = "INTERNAL_ERROR"
)

// errInvalidRequest marks payloads that failed to decode or validate
// before reaching any domain operation.
var errInvalidRequest = errors.New("invalid request payload")

var wireErrors = []struct {
	sentinel error
	code     string
	message  string
}{
	{errInvalidRequest, codeInvalidRequest, "Invalid data format"},
	{model.ErrInvalidName, codeInvalidName, "Player name is required"},
	{model.ErrInvalidDigitLength, codeInvalidDigitLength, "Digit length must be between 3 and 7"},
	{model.ErrInvalidSecret, codeInvalidSecret, "Secret must match the room's digit length"},
	{model.ErrInvalidGuess, codeInvalidGuess, "Guess must match the room's digit length"},
	{model.ErrRoomNotFound, codeRoomNotFound, "Room not found"},
	{model.ErrRoomFull, codeRoomFull, "Room is full"},
	{model.ErrGameAlreadyStarted, codeGameStarted, "Game already in progress"},
	{model.ErrNameTaken, codeNameTaken, "That name is already taken in this room"},
	{model.ErrPlayerNotFound, codePlayerNotFound, "Player not found in room"},
	{model.ErrAlreadySubmitted, codeAlreadySubmitted, "Secret already submitted"},
	{model.ErrGameNotStarted, codeGameNotStarted, "Game not started yet"},
	{model.ErrNotYourTurn, codeNotYourTurn, "It's not your turn!"},
	{model.ErrOpponentSecretMissing, codePlayerConfig, "Player configuration error"},
}

// errorPayload translates a domain error into the payload of an error
// event. Unrecognized errors collapse into a generic internal failure so
// nothing about server internals reaches the wire. The second return
// reports whether the error classifies as internal and should be logged
// with detail; every other kind is an expected, user-facing outcome.
func errorPayload(err error) (ErrorPayload, bool) {
	internal := model.Classify(err) == model.KindInternal && !errors.Is(err, errInvalidRequest)
	for _, we := range wireErrors {
		if errors.Is(err, we.sentinel) {
			return ErrorPayload{Code: we.code, Message: we.message}, internal
		}
	}
	return ErrorPayload{Code: codeInternal, Message: "Something went wrong, please try again"}, internal
}
