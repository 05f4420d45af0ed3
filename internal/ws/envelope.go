package ws

import "encoding/json"

// Inbound event names (client to server).
const (
	EventCreateRoom   = "createRoom"
	EventJoinRoom     = "joinRoom"
	EventSubmitSecret = "submitSecret"
	EventMakeGuess    = "makeGuess"
	EventExitGame     = "exitGame"
	EventLeaveRoom    = "leaveRoom"
)

// Outbound event names (server to client).
const (
	EventRoomCreated     = "roomCreated"
	EventRoomJoined      = "roomJoined"
	EventStartGuessing   = "startGuessing"
	EventGuessResult     = "guessResult"
	EventOpponentGuessed = "opponentGuessed"
	EventGameOver        = "gameOver"
	EventPlayerExited    = "playerExited"
	EventOpponentLeft    = "opponentLeft"
	EventError           = "error"
)

// Envelope is the framing shared by both directions: an event name and an
// event-specific payload. Payload decoding is deferred until the event name
// has been matched so unknown events can be rejected without a parse error.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeEvent frames an outbound payload for the wire.
func EncodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

type CreateRoomPayload struct {
	PlayerName  string `json:"playerName" validate:"required"`
	DigitLength int    `json:"digitLength"`
}

type JoinRoomPayload struct {
	RoomID     string `json:"roomId" validate:"required"`
	PlayerName string `json:"playerName" validate:"required"`
}

type SubmitSecretPayload struct {
	RoomID string `json:"roomId" validate:"required"`
	Secret string `json:"secret" validate:"required"`
}

type MakeGuessPayload struct {
	RoomID string `json:"roomId" validate:"required"`
	Guess  string `json:"guess" validate:"required"`
}

// ExitGamePayload covers both exitGame and leaveRoom. The room id is
// optional; when absent the room is resolved from the connection.
type ExitGamePayload struct {
	RoomID string `json:"roomId"`
}

type RoomCreatedPayload struct {
	RoomID string `json:"roomId"`
}

// PlayerSummary is the public view of a room member. Secrets never appear
// on the wire.
type PlayerSummary struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

type RoomJoinedPayload struct {
	RoomID      string          `json:"roomId"`
	Players     []PlayerSummary `json:"players"`
	DigitLength int             `json:"digitLength"`
}

type StartGuessingPayload struct {
	DigitLength int    `json:"digitLength"`
	FirstPlayer string `json:"firstPlayer"`
}

type GuessResultPayload struct {
	Guess    string `json:"guess"`
	Correct  int    `json:"correct"`
	NextTurn string `json:"nextTurn"`
}

type GameOverPayload struct {
	Winner string `json:"winner"`
	Secret string `json:"secret"`
}

type PlayerExitedPayload struct {
	Winner string `json:"winner"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
