package services

import (
	"testing"

	"github.com/b4nter/banter-backend/internal/models"
	"github.com/stretchr/testify/require"
)

func makeFriends(t *testing.T, s *testStack, a, b *models.User) {
	t.Helper()
	req, err := s.friends.SendRequest(a.ID, b.ID)
	require.NoError(t, err)
	require.NoError(t, s.friends.Accept(b.ID, req.ID))
}

func TestDMRequiresFriendship(t *testing.T) {
	s := newStack(t)
	a := newUser(t, s.db, "alice")
	b := newUser(t, s.db, "bob")

	_, err := s.dms.SendMessage(a.ID, b.ID, "hey")
	require.ErrorIs(t, err, ErrDMNotFriends)

	makeFriends(t, s, a, b)
	_, err = s.dms.SendMessage(a.ID, b.ID, "hey")
	require.NoError(t, err)
}

func TestDMRoomIsDeterministic(t *testing.T) {
	s := newStack(t)
	a := newUser(t, s.db, "alice")
	b := newUser(t, s.db, "bob")
	makeFriends(t, s, a, b)

	m1, err := s.dms.SendMessage(a.ID, b.ID, "from a")
	require.NoError(t, err)
	m2, err := s.dms.SendMessage(b.ID, a.ID, "from b")
	require.NoError(t, err)

	require.Equal(t, m1.RoomID, m2.RoomID)
	require.Equal(t, models.DMRoomID(a.ID, b.ID), m1.RoomID)
	require.Equal(t, models.DMRoomID(b.ID, a.ID), m1.RoomID)

	var rooms int64
	require.NoError(t, s.db.Model(&models.DMRoom{}).Count(&rooms).Error)
	require.EqualValues(t, 1, rooms)
}

func TestDMUnreadCounters(t *testing.T) {
	s := newStack(t)
	a := newUser(t, s.db, "alice")
	b := newUser(t, s.db, "bob")
	makeFriends(t, s, a, b)

	_, err := s.dms.SendMessage(a.ID, b.ID, "one")
	require.NoError(t, err)
	_, err = s.dms.SendMessage(a.ID, b.ID, "two")
	require.NoError(t, err)

	rooms, err := s.dms.ListRooms(b.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, 2, rooms[0].Unread)
	require.Equal(t, "alice", rooms[0].PeerUsername)
	require.Equal(t, "two", rooms[0].LastMessage)

	// Sender side is untouched.
	senderRooms, err := s.dms.ListRooms(a.ID)
	require.NoError(t, err)
	require.Equal(t, 0, senderRooms[0].Unread)

	require.NoError(t, s.dms.MarkRoomRead(b.ID, rooms[0].RoomID))
	rooms, err = s.dms.ListRooms(b.ID)
	require.NoError(t, err)
	require.Equal(t, 0, rooms[0].Unread)
}

func TestDMRoomAccessControl(t *testing.T) {
	s := newStack(t)
	a := newUser(t, s.db, "alice")
	b := newUser(t, s.db, "bob")
	outsider := newUser(t, s.db, "mallory")
	makeFriends(t, s, a, b)

	m, err := s.dms.SendMessage(a.ID, b.ID, "private")
	require.NoError(t, err)

	_, err = s.dms.ListMessages(outsider.ID, m.RoomID, 1, 10)
	require.ErrorIs(t, err, ErrNotParticipant)

	_, err = s.dms.ListMessages(a.ID, "nope", 1, 10)
	require.ErrorIs(t, err, ErrRoomNotFound)

	messages, err := s.dms.ListMessages(b.ID, m.RoomID, 1, 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
}

func TestDMBlockedPairCannotMessage(t *testing.T) {
	s := newStack(t)
	a := newUser(t, s.db, "alice")
	b := newUser(t, s.db, "bob")
	makeFriends(t, s, a, b)

	require.NoError(t, s.moderation.BlockUser(b.ID, a.ID))

	// The block cuts both directions.
	_, err := s.dms.SendMessage(a.ID, b.ID, "hello?")
	require.ErrorIs(t, err, ErrDMBlocked)
	_, err = s.dms.SendMessage(b.ID, a.ID, "no")
	require.ErrorIs(t, err, ErrDMBlocked)

	require.NoError(t, s.moderation.UnblockUser(b.ID, a.ID))
	_, err = s.dms.SendMessage(a.ID, b.ID, "hello again")
	require.NoError(t, err)
}

func TestDMMessagePaging(t *testing.T) {
	s := newStack(t)
	a := newUser(t, s.db, "alice")
	b := newUser(t, s.db, "bob")
	makeFriends(t, s, a, b)

	roomID := models.DMRoomID(a.ID, b.ID)
	for i := 0; i < 5; i++ {
		_, err := s.dms.SendMessage(a.ID, b.ID, "msg")
		require.NoError(t, err)
	}

	page, err := s.dms.ListMessages(a.ID, roomID, 1, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)

	page, err = s.dms.ListMessages(a.ID, roomID, 2, 3)
	require.NoError(t, err)
	require.Len(t, page, 2)
}
