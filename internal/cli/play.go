package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mcoot/numduel/internal/ws"
)

// promptKind tracks which input the server last rejected so an error
// event can re-prompt for the right thing.
type promptKind int

const (
	promptNone promptKind = iota
	promptSecret
	promptGuess
)

// session drives one interactive game over a websocket. Input and events
// are handled on a single loop: the game is turn-based, so the client is
// only ever waiting for one of the two.
type session struct {
	conn       *GameConn
	name       string
	roomID     string
	digits     int
	lastPrompt promptKind
	scanner    *bufio.Scanner
}

func newSession(conn *GameConn, name string) *session {
	return &session{
		conn:    conn,
		name:    name,
		scanner: bufio.NewScanner(os.Stdin),
	}
}

// run processes server events until the game ends or the connection drops
func (s *session) run() error {
	for {
		envelope, err := s.conn.ReadEvent()
		if err != nil {
			return err
		}

		done, err := s.handle(envelope)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (s *session) handle(envelope ws.Envelope) (bool, error) {
	switch envelope.Event {
	case ws.EventRoomCreated:
		var created ws.RoomCreatedPayload
		if err := json.Unmarshal(envelope.Data, &created); err != nil {
			return false, err
		}
		s.roomID = created.RoomID
		fmt.Printf("Room created: %s\n", s.roomID)
		fmt.Println("Share this code with your opponent. Waiting for them to join...")

	case ws.EventRoomJoined:
		var joined ws.RoomJoinedPayload
		if err := json.Unmarshal(envelope.Data, &joined); err != nil {
			return false, err
		}
		s.roomID = joined.RoomID
		s.digits = joined.DigitLength
		names := make([]string, len(joined.Players))
		for i, p := range joined.Players {
			names[i] = p.Name
		}
		fmt.Printf("Room %s: %s\n", s.roomID, strings.Join(names, " vs "))
		if len(joined.Players) == 2 {
			return false, s.submitSecret()
		}

	case ws.EventStartGuessing:
		var start ws.StartGuessingPayload
		if err := json.Unmarshal(envelope.Data, &start); err != nil {
			return false, err
		}
		s.digits = start.DigitLength
		fmt.Printf("Both secrets are in. %s guesses first!\n", start.FirstPlayer)
		if start.FirstPlayer == s.name {
			return false, s.makeGuess()
		}

	case ws.EventGuessResult:
		var result ws.GuessResultPayload
		if err := json.Unmarshal(envelope.Data, &result); err != nil {
			return false, err
		}
		fmt.Printf("Your guess %s matched %d digit(s). Waiting for %s...\n",
			result.Guess, result.Correct, result.NextTurn)

	case ws.EventOpponentGuessed:
		var result ws.GuessResultPayload
		if err := json.Unmarshal(envelope.Data, &result); err != nil {
			return false, err
		}
		fmt.Printf("Opponent guessed %s and matched %d digit(s).\n", result.Guess, result.Correct)
		if result.NextTurn == s.name {
			return false, s.makeGuess()
		}

	case ws.EventGameOver:
		var over ws.GameOverPayload
		if err := json.Unmarshal(envelope.Data, &over); err != nil {
			return false, err
		}
		if over.Winner == s.name {
			fmt.Printf("You win! The opponent's secret was %s.\n", over.Secret)
		} else {
			fmt.Printf("%s wins. Your secret %s was cracked.\n", over.Winner, over.Secret)
		}
		return true, nil

	case ws.EventPlayerExited:
		var exited ws.PlayerExitedPayload
		if err := json.Unmarshal(envelope.Data, &exited); err != nil {
			return false, err
		}
		fmt.Printf("Opponent forfeited. %s wins by default.\n", exited.Winner)
		return true, nil

	case ws.EventOpponentLeft:
		fmt.Println("Opponent left the room.")
		return true, nil

	case ws.EventError:
		var wireErr ws.ErrorPayload
		if err := json.Unmarshal(envelope.Data, &wireErr); err != nil {
			return false, err
		}
		fmt.Printf("Server: %s\n", wireErr.Message)
		// Re-prompt when our own input was the problem
		switch s.lastPrompt {
		case promptSecret:
			return false, s.submitSecret()
		case promptGuess:
			return false, s.makeGuess()
		default:
			return true, fmt.Errorf("%s", wireErr.Message)
		}

	default:
		// Ignore events this client version does not know
	}

	return false, nil
}

func (s *session) submitSecret() error {
	secret, err := s.readLine(fmt.Sprintf("Choose your %d-digit secret: ", s.digits))
	if err != nil {
		return err
	}
	s.lastPrompt = promptSecret
	return s.conn.Send(ws.EventSubmitSecret, ws.SubmitSecretPayload{
		RoomID: s.roomID,
		Secret: secret,
	})
}

func (s *session) makeGuess() error {
	guess, err := s.readLine(fmt.Sprintf("Your guess (%d digits): ", s.digits))
	if err != nil {
		return err
	}
	s.lastPrompt = promptGuess
	return s.conn.Send(ws.EventMakeGuess, ws.MakeGuessPayload{
		RoomID: s.roomID,
		Guess:  guess,
	})
}

func (s *session) readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("input closed")
	}
	return strings.TrimSpace(s.scanner.Text()), nil
}
