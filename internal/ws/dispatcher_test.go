package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/numduel/internal/dependencies/mocks"
	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/services/game"
	"github.com/mcoot/numduel/internal/services/registry"
	"github.com/mcoot/numduel/internal/storage/memory"
	"github.com/mcoot/numduel/internal/testutil"
)

// fakeSender records outbound frames per connection so tests can assert
// fanout without sockets.
type fakeSender struct {
	mu     sync.Mutex
	frames map[model.ConnectionID][]Envelope
}

func newFakeSender() *fakeSender {
	return &fakeSender{frames: make(map[model.ConnectionID][]Envelope)}
}

func (f *fakeSender) Send(conn model.ConnectionID, message []byte) {
	var envelope Envelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		panic("unparseable outbound frame: " + err.Error())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames[conn] = append(f.frames[conn], envelope)
}

func (f *fakeSender) events(conn model.ConnectionID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, e := range f.frames[conn] {
		names = append(names, e.Event)
	}
	return names
}

func (f *fakeSender) last(conn model.ConnectionID) (Envelope, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	frames := f.frames[conn]
	if len(frames) == 0 {
		return Envelope{}, false
	}
	return frames[len(frames)-1], true
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = make(map[model.ConnectionID][]Envelope)
}

type DispatcherSuite struct {
	suite.Suite
	registry   *registry.Controller
	game       *game.Controller
	random     *mocks.MockRandom
	sender     *fakeSender
	dispatcher *Dispatcher
	ctx        context.Context
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

const (
	connAlice = model.ConnectionID("conn-alice")
	connBob   = model.ConnectionID("conn-bob")
	connCarol = model.ConnectionID("conn-carol")
)

func (s *DispatcherSuite) SetupTest() {
	store := memory.New()
	clk := mocks.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	logger := testutil.NopLogger()
	s.registry = registry.NewController(store, clk, s.random, logger)
	s.game = game.NewController(store, s.registry, clk, s.random, 20*time.Millisecond, logger)
	s.sender = newFakeSender()
	s.dispatcher = NewDispatcher(s.registry, s.game, s.sender, logger)
	s.ctx = context.Background()
}

func (s *DispatcherSuite) dispatch(conn model.ConnectionID, event string, payload any) {
	raw, err := EncodeEvent(event, payload)
	s.Require().NoError(err)
	s.dispatcher.HandleMessage(s.ctx, conn, raw)
}

func (s *DispatcherSuite) lastPayload(conn model.ConnectionID, event string, out any) {
	envelope, ok := s.sender.last(conn)
	s.Require().True(ok, "no frames sent to %s", conn)
	s.Require().Equal(event, envelope.Event)
	s.Require().NoError(json.Unmarshal(envelope.Data, out))
}

func (s *DispatcherSuite) lastErrorCode(conn model.ConnectionID) string {
	var payload ErrorPayload
	s.lastPayload(conn, EventError, &payload)
	return payload.Code
}

// createRoom drives createRoom with a pinned room id
func (s *DispatcherSuite) createRoom() model.RoomID {
	s.random.QueueString("ROOM01", "INSTANCE0001")
	s.dispatch(connAlice, EventCreateRoom, CreateRoomPayload{PlayerName: "Alice", DigitLength: 4})

	var created RoomCreatedPayload
	s.lastPayload(connAlice, EventRoomCreated, &created)
	return model.RoomID(created.RoomID)
}

func (s *DispatcherSuite) fullRoom() model.RoomID {
	roomID := s.createRoom()
	s.dispatch(connBob, EventJoinRoom, JoinRoomPayload{RoomID: string(roomID), PlayerName: "Bob"})
	return roomID
}

// startedGame gets a game in progress with Alice holding the first turn.
// Secrets: Alice "1122", Bob "3344".
func (s *DispatcherSuite) startedGame() model.RoomID {
	roomID := s.fullRoom()
	s.dispatch(connAlice, EventSubmitSecret, SubmitSecretPayload{RoomID: string(roomID), Secret: "1122"})
	s.random.QueueIntn(0)
	s.dispatch(connBob, EventSubmitSecret, SubmitSecretPayload{RoomID: string(roomID), Secret: "3344"})
	s.sender.reset()
	return roomID
}

func (s *DispatcherSuite) TestCreateRoom() {
	roomID := s.createRoom()
	s.Equal(model.RoomID("ROOM01"), roomID)
	s.Empty(s.sender.events(connBob))
}

func (s *DispatcherSuite) TestCreateRoomEmptyName() {
	s.dispatch(connAlice, EventCreateRoom, CreateRoomPayload{PlayerName: "   ", DigitLength: 4})
	s.Equal("INVALID_NAME", s.lastErrorCode(connAlice))
}

func (s *DispatcherSuite) TestCreateRoomBadDigitLength() {
	for _, n := range []int{0, 2, 8} {
		s.dispatch(connAlice, EventCreateRoom, CreateRoomPayload{PlayerName: "Alice", DigitLength: n})
		s.Equal("INVALID_DIGIT_LENGTH", s.lastErrorCode(connAlice))
	}
}

func (s *DispatcherSuite) TestMalformedFrame() {
	s.dispatcher.HandleMessage(s.ctx, connAlice, []byte("{not json"))
	s.Equal("INVALID_REQUEST", s.lastErrorCode(connAlice))
}

func (s *DispatcherSuite) TestMissingPayloadField() {
	s.dispatch(connAlice, EventJoinRoom, map[string]string{"roomId": "ROOM01"})
	s.Equal("INVALID_REQUEST", s.lastErrorCode(connAlice))
}

func (s *DispatcherSuite) TestWrongPayloadFieldType() {
	s.dispatch(connAlice, EventCreateRoom, map[string]any{"playerName": 42, "digitLength": "four"})
	s.Equal("INVALID_REQUEST", s.lastErrorCode(connAlice))
}

func (s *DispatcherSuite) TestUnknownEvent() {
	s.dispatch(connAlice, "launchMissiles", struct{}{})
	s.Equal("UNKNOWN_EVENT", s.lastErrorCode(connAlice))
}

func (s *DispatcherSuite) TestJoinRoomNotifiesBoth() {
	roomID := s.createRoom()

	// Room ids are case-insensitive on input
	s.dispatch(connBob, EventJoinRoom, JoinRoomPayload{RoomID: "room01", PlayerName: "Bob"})

	for _, conn := range []model.ConnectionID{connAlice, connBob} {
		var joined RoomJoinedPayload
		s.lastPayload(conn, EventRoomJoined, &joined)
		s.Equal(string(roomID), joined.RoomID)
		s.Equal(4, joined.DigitLength)
		s.Require().Len(joined.Players, 2)
		s.Equal("Alice", joined.Players[0].Name)
		s.Equal("Bob", joined.Players[1].Name)
		s.False(joined.Players[0].Ready)
	}
}

func (s *DispatcherSuite) TestJoinUnknownRoom() {
	s.dispatch(connBob, EventJoinRoom, JoinRoomPayload{RoomID: "NOPE99", PlayerName: "Bob"})
	s.Equal("ROOM_NOT_FOUND", s.lastErrorCode(connBob))
}

func (s *DispatcherSuite) TestThirdJoinerRejected() {
	roomID := s.fullRoom()
	s.sender.reset()

	s.dispatch(connCarol, EventJoinRoom, JoinRoomPayload{RoomID: string(roomID), PlayerName: "Carol"})

	s.Equal("ROOM_FULL", s.lastErrorCode(connCarol))
	// The members saw nothing
	s.Empty(s.sender.events(connAlice))
	s.Empty(s.sender.events(connBob))
}

func (s *DispatcherSuite) TestDuplicateNameRejected() {
	roomID := s.createRoom()
	s.dispatch(connBob, EventJoinRoom, JoinRoomPayload{RoomID: string(roomID), PlayerName: "alice"})
	s.Equal("NAME_TAKEN", s.lastErrorCode(connBob))
}

func (s *DispatcherSuite) TestSecondSecretStartsGuessing() {
	roomID := s.fullRoom()

	s.dispatch(connAlice, EventSubmitSecret, SubmitSecretPayload{RoomID: string(roomID), Secret: "1122"})
	s.NotContains(s.sender.events(connAlice), EventStartGuessing)

	s.random.QueueIntn(1)
	s.dispatch(connBob, EventSubmitSecret, SubmitSecretPayload{RoomID: string(roomID), Secret: "3344"})

	for _, conn := range []model.ConnectionID{connAlice, connBob} {
		var start StartGuessingPayload
		s.lastPayload(conn, EventStartGuessing, &start)
		s.Equal(4, start.DigitLength)
		s.Equal("Bob", start.FirstPlayer)
	}
}

func (s *DispatcherSuite) TestSubmitSecretWrongLength() {
	roomID := s.fullRoom()
	s.dispatch(connAlice, EventSubmitSecret, SubmitSecretPayload{RoomID: string(roomID), Secret: "12345"})
	s.Equal("INVALID_SECRET", s.lastErrorCode(connAlice))
}

func (s *DispatcherSuite) TestGuessFansOutToBothSides() {
	roomID := s.startedGame()

	s.dispatch(connAlice, EventMakeGuess, MakeGuessPayload{RoomID: string(roomID), Guess: "1111"})

	var result GuessResultPayload
	s.lastPayload(connAlice, EventGuessResult, &result)
	s.Equal("1111", result.Guess)
	s.Zero(result.Correct)
	s.Equal("Bob", result.NextTurn)

	var observed GuessResultPayload
	s.lastPayload(connBob, EventOpponentGuessed, &observed)
	s.Equal(result, observed)
}

func (s *DispatcherSuite) TestGuessOutOfTurn() {
	roomID := s.startedGame()

	s.dispatch(connBob, EventMakeGuess, MakeGuessPayload{RoomID: string(roomID), Guess: "1122"})

	s.Equal("NOT_YOUR_TURN", s.lastErrorCode(connBob))
	s.Empty(s.sender.events(connAlice))
}

func (s *DispatcherSuite) TestGuessBeforeSecrets() {
	roomID := s.fullRoom()
	s.dispatch(connAlice, EventMakeGuess, MakeGuessPayload{RoomID: string(roomID), Guess: "1234"})
	s.Equal("GAME_NOT_STARTED", s.lastErrorCode(connAlice))
}

func (s *DispatcherSuite) TestWinningGuessEndsGame() {
	roomID := s.startedGame()

	s.dispatch(connAlice, EventMakeGuess, MakeGuessPayload{RoomID: string(roomID), Guess: "3344"})

	for _, conn := range []model.ConnectionID{connAlice, connBob} {
		var over GameOverPayload
		s.lastPayload(conn, EventGameOver, &over)
		s.Equal("Alice", over.Winner)
		s.Equal("3344", over.Secret)
	}

	// The guesser also got the full-match result before gameOver
	s.Contains(s.sender.events(connAlice), EventGuessResult)

	// The room disappears after the grace window
	s.Eventually(func() bool {
		_, err := s.registry.GetRoom(s.ctx, roomID)
		return err != nil
	}, time.Second, 5*time.Millisecond)
}

func (s *DispatcherSuite) TestExitGameForfeitsToOpponent() {
	roomID := s.startedGame()

	s.dispatch(connAlice, EventExitGame, ExitGamePayload{RoomID: string(roomID)})

	var exited PlayerExitedPayload
	s.lastPayload(connBob, EventPlayerExited, &exited)
	s.Equal("Bob", exited.Winner)

	// No echo to the exiting player, and the room is gone
	s.Empty(s.sender.events(connAlice))
	_, err := s.registry.GetRoom(s.ctx, roomID)
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *DispatcherSuite) TestExitGameUnknownRoomIsSilent() {
	s.dispatch(connAlice, EventExitGame, ExitGamePayload{RoomID: "NOPE99"})
	s.Empty(s.sender.events(connAlice))
}

func (s *DispatcherSuite) TestLeaveRoomNotifiesOpponentLeft() {
	roomID := s.fullRoom()
	s.sender.reset()

	s.dispatch(connBob, EventLeaveRoom, ExitGamePayload{RoomID: string(roomID)})

	events := s.sender.events(connAlice)
	s.Contains(events, EventOpponentLeft)
	s.Empty(s.sender.events(connBob))
}

func (s *DispatcherSuite) TestDisconnectCleansUpRoom() {
	roomID := s.startedGame()

	s.dispatcher.HandleDisconnect(s.ctx, connAlice)

	s.Contains(s.sender.events(connBob), EventOpponentLeft)

	_, err := s.registry.GetRoom(s.ctx, roomID)
	s.ErrorIs(err, model.ErrRoomNotFound)

	// Further events against the dead room fail cleanly
	s.dispatch(connBob, EventMakeGuess, MakeGuessPayload{RoomID: string(roomID), Guess: "1122"})
	s.Equal("ROOM_NOT_FOUND", s.lastErrorCode(connBob))
}

func (s *DispatcherSuite) TestDisconnectOutsideAnyRoom() {
	s.dispatcher.HandleDisconnect(s.ctx, connCarol)
	s.Empty(s.sender.events(connCarol))
}

func (s *DispatcherSuite) TestErrorsNeverBroadcast() {
	roomID := s.startedGame()

	s.dispatch(connBob, EventMakeGuess, MakeGuessPayload{RoomID: string(roomID), Guess: "bad"})

	s.Equal("NOT_YOUR_TURN", s.lastErrorCode(connBob))
	s.Empty(s.sender.events(connAlice))
}
