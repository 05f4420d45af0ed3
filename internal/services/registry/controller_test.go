package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/numduel/internal/dependencies/mocks"
	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/storage/memory"
	"github.com/mcoot/numduel/internal/testutil"
)

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.controller = NewController(s.storage, s.clock, s.random, testutil.NopLogger())
	s.ctx = context.Background()
}

// createRoom is a helper that creates a room with a pinned id and instance
func (s *ControllerSuite) createRoom(id, instance string, conn model.ConnectionID, name string) *model.Room {
	s.random.QueueString(id, instance)
	room, err := s.controller.CreateRoom(s.ctx, conn, name, 4)
	s.Require().NoError(err)
	return room
}

// CreateRoom tests

func (s *ControllerSuite) TestCreateRoomSucceeds() {
	s.random.QueueString("ROOM01", "INSTANCE0001")

	room, err := s.controller.CreateRoom(s.ctx, "conn-1", "Alice", 4)
	s.Require().NoError(err)

	s.Equal(model.RoomID("ROOM01"), room.ID)
	s.Equal(model.RoomInstance("INSTANCE0001"), room.Instance)
	s.Equal(4, room.DigitLength)
	s.Equal(model.PhaseAwaitingPlayers, room.Phase)
	s.Require().Len(room.Players, 1)
	s.Equal("Alice", room.Players[0].Name)
	s.Equal(model.ConnectionID("conn-1"), room.Players[0].ConnectionID)
	s.False(room.Players[0].Ready)
	s.Equal(s.clock.CurrentTime, room.CreatedAt)
}

func (s *ControllerSuite) TestCreateRoomTrimsName() {
	s.random.QueueString("ROOM01", "INSTANCE0001")

	room, err := s.controller.CreateRoom(s.ctx, "conn-1", "  Alice  ", 4)
	s.Require().NoError(err)
	s.Equal("Alice", room.Players[0].Name)
}

func (s *ControllerSuite) TestCreateRoomRejectsEmptyName() {
	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := s.controller.CreateRoom(s.ctx, "conn-1", name, 4)
		s.ErrorIs(err, model.ErrInvalidName)
	}
}

func (s *ControllerSuite) TestCreateRoomRejectsBadDigitLength() {
	for _, n := range []int{0, 1, 2, 8, -3} {
		_, err := s.controller.CreateRoom(s.ctx, "conn-1", "Alice", n)
		s.ErrorIs(err, model.ErrInvalidDigitLength, "digit length %d", n)
	}
}

func (s *ControllerSuite) TestCreateRoomRetriesOnIDCollision() {
	s.createRoom("ROOM01", "INSTANCE0001", "conn-1", "Alice")

	// Next creation draws the colliding id first, then a fresh one
	s.random.QueueString("ROOM01", "ROOM02", "INSTANCE0002")
	room, err := s.controller.CreateRoom(s.ctx, "conn-2", "Bob", 5)
	s.Require().NoError(err)
	s.Equal(model.RoomID("ROOM02"), room.ID)
}

// JoinRoom tests

func (s *ControllerSuite) TestJoinRoomSucceeds() {
	s.createRoom("ROOM01", "INSTANCE0001", "conn-1", "Alice")

	room, err := s.controller.JoinRoom(s.ctx, "ROOM01", "conn-2", "Bob")
	s.Require().NoError(err)

	s.Require().Len(room.Players, 2)
	s.Equal("Alice", room.Players[0].Name)
	s.Equal("Bob", room.Players[1].Name)
	s.Equal(model.PhaseAwaitingSecrets, room.Phase)
}

func (s *ControllerSuite) TestJoinRoomNotFound() {
	_, err := s.controller.JoinRoom(s.ctx, "NOPE99", "conn-2", "Bob")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ControllerSuite) TestJoinRoomFull() {
	s.createRoom("ROOM01", "INSTANCE0001", "conn-1", "Alice")
	_, err := s.controller.JoinRoom(s.ctx, "ROOM01", "conn-2", "Bob")
	s.Require().NoError(err)

	_, err = s.controller.JoinRoom(s.ctx, "ROOM01", "conn-3", "Carol")
	s.ErrorIs(err, model.ErrRoomFull)
}

func (s *ControllerSuite) TestJoinRoomGameAlreadyStarted() {
	s.createRoom("ROOM01", "INSTANCE0001", "conn-1", "Alice")

	// Force the room into progress directly
	room, err := s.storage.GetRoom(s.ctx, "ROOM01")
	s.Require().NoError(err)
	room.Phase = model.PhaseInProgress
	s.Require().NoError(s.storage.SaveRoom(s.ctx, room))

	_, err = s.controller.JoinRoom(s.ctx, "ROOM01", "conn-2", "Bob")
	s.ErrorIs(err, model.ErrGameAlreadyStarted)
}

func (s *ControllerSuite) TestJoinRoomNameTakenCaseInsensitive() {
	s.createRoom("ROOM01", "INSTANCE0001", "conn-1", "Alice")

	_, err := s.controller.JoinRoom(s.ctx, "ROOM01", "conn-2", "aLiCe")
	s.ErrorIs(err, model.ErrNameTaken)
}

func (s *ControllerSuite) TestJoinRoomRejectsEmptyName() {
	s.createRoom("ROOM01", "INSTANCE0001", "conn-1", "Alice")

	_, err := s.controller.JoinRoom(s.ctx, "ROOM01", "conn-2", "   ")
	s.ErrorIs(err, model.ErrInvalidName)
}

// Removal tests

func (s *ControllerSuite) TestRemoveRoomIsIdempotent() {
	s.createRoom("ROOM01", "INSTANCE0001", "conn-1", "Alice")

	s.Require().NoError(s.controller.RemoveRoom(s.ctx, "ROOM01"))
	s.Require().NoError(s.controller.RemoveRoom(s.ctx, "ROOM01"))

	_, err := s.controller.GetRoom(s.ctx, "ROOM01")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ControllerSuite) TestRemoveRoomInstanceMatches() {
	room := s.createRoom("ROOM01", "INSTANCE0001", "conn-1", "Alice")

	s.Require().NoError(s.controller.RemoveRoomInstance(s.ctx, room.ID, room.Instance))

	_, err := s.controller.GetRoom(s.ctx, "ROOM01")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ControllerSuite) TestRemoveRoomInstanceSkipsReincarnation() {
	old := s.createRoom("ROOM01", "INSTANCE0001", "conn-1", "Alice")
	s.Require().NoError(s.controller.RemoveRoom(s.ctx, "ROOM01"))

	// A new room reuses the same id with a different instance
	s.createRoom("ROOM01", "INSTANCE0002", "conn-2", "Bob")

	// The stale timer fires with the old instance; the new room survives
	s.Require().NoError(s.controller.RemoveRoomInstance(s.ctx, old.ID, old.Instance))

	room, err := s.controller.GetRoom(s.ctx, "ROOM01")
	s.Require().NoError(err)
	s.Equal(model.RoomInstance("INSTANCE0002"), room.Instance)
}

func (s *ControllerSuite) TestRemoveRoomInstanceMissingRoomIsNoOp() {
	s.Require().NoError(s.controller.RemoveRoomInstance(s.ctx, "NOPE99", "INSTANCE0001"))
}

// Lookup tests

func (s *ControllerSuite) TestFindRoomByConnection() {
	s.createRoom("ROOM01", "INSTANCE0001", "conn-1", "Alice")

	id, err := s.controller.FindRoomByConnection(s.ctx, "conn-1")
	s.Require().NoError(err)
	s.Equal(model.RoomID("ROOM01"), id)

	_, err = s.controller.FindRoomByConnection(s.ctx, "conn-unknown")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

// Sweep tests

func (s *ControllerSuite) TestSweepExpiredRemovesOnlyOldRooms() {
	s.createRoom("OLD001", "INSTANCE0001", "conn-1", "Alice")

	s.clock.Advance(2 * time.Hour)
	s.createRoom("NEW001", "INSTANCE0002", "conn-2", "Bob")

	removed, err := s.controller.SweepExpired(s.ctx, time.Hour)
	s.Require().NoError(err)
	s.Equal(1, removed)

	_, err = s.controller.GetRoom(s.ctx, "OLD001")
	s.ErrorIs(err, model.ErrRoomNotFound)

	_, err = s.controller.GetRoom(s.ctx, "NEW001")
	s.NoError(err)
}

func (s *ControllerSuite) TestSweepExpiredNothingToDo() {
	s.createRoom("ROOM01", "INSTANCE0001", "conn-1", "Alice")

	removed, err := s.controller.SweepExpired(s.ctx, time.Hour)
	s.Require().NoError(err)
	s.Zero(removed)
}
