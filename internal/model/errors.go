package model

import "errors"

// Common errors used across the application
var (
	// Validation errors
	ErrInvalidName        = errors.New("player name is required")
	ErrInvalidDigitLength = errors.New("digit length must be between 3 and 7")
	ErrInvalidSecret      = errors.New("secret must match the room's digit length")
	ErrInvalidGuess       = errors.New("guess must match the room's digit length")

	// Registry errors
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrGameAlreadyStarted = errors.New("game already in progress")
	ErrNameTaken          = errors.New("player name already taken in this room")

	// Game errors
	ErrPlayerNotFound        = errors.New("player not found in room")
	ErrAlreadySubmitted      = errors.New("secret already submitted")
	ErrGameNotStarted        = errors.New("game not started yet")
	ErrNotYourTurn           = errors.New("it's not your turn")
	ErrOpponentSecretMissing = errors.New("opponent hasn't submitted a secret yet")
)

// ErrorKind classifies domain errors for reporting purposes. Everything but
// KindInternal is an expected, user-facing outcome and is never logged with
// detail server-side.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindStateConflict
)

// Classify maps a domain error to its kind. Unknown errors are internal.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrInvalidDigitLength),
		errors.Is(err, ErrInvalidSecret),
		errors.Is(err, ErrInvalidGuess):
		return KindValidation
	case errors.Is(err, ErrRoomNotFound),
		errors.Is(err, ErrPlayerNotFound):
		return KindNotFound
	case errors.Is(err, ErrRoomFull),
		errors.Is(err, ErrGameAlreadyStarted),
		errors.Is(err, ErrNameTaken),
		errors.Is(err, ErrAlreadySubmitted),
		errors.Is(err, ErrGameNotStarted),
		errors.Is(err, ErrNotYourTurn),
		errors.Is(err, ErrOpponentSecretMissing):
		return KindStateConflict
	default:
		return KindInternal
	}
}
