package services

import (
	"testing"

	"github.com/b4nter/banter-backend/internal/models"
	"github.com/b4nter/banter-backend/internal/outbox"
	"github.com/stretchr/testify/require"
)

func TestFriendRequestLifecycle(t *testing.T) {
	s := newStack(t)
	a := newUser(t, s.db, "alice")
	b := newUser(t, s.db, "bob")

	req, err := s.friends.SendRequest(a.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, models.RequestPending, req.Status)
	s.drain(t)

	// Target's counters and inbox.
	target := reloadUser(t, s.db, b.ID)
	require.Equal(t, 1, target.UnreadFriendRequests)
	require.Equal(t, 1, target.UnreadNotifications)

	pending, err := s.friends.PendingRequests(b.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "alice", pending[0].Username)

	require.NoError(t, s.friends.Accept(b.ID, req.ID))
	s.drain(t)

	are, err := s.friends.AreFriends(a.ID, b.ID)
	require.NoError(t, err)
	require.True(t, are)

	target = reloadUser(t, s.db, b.ID)
	require.Equal(t, 0, target.UnreadFriendRequests)

	sender := reloadUser(t, s.db, a.ID)
	require.Equal(t, 1, sender.UnreadNotifications) // accept notice

	friends, err := s.friends.Friends(a.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	require.Equal(t, "bob", friends[0].Username)
}

func TestFriendRequestGuards(t *testing.T) {
	s := newStack(t)
	a := newUser(t, s.db, "alice")
	b := newUser(t, s.db, "bob")

	_, err := s.friends.SendRequest(a.ID, a.ID)
	require.ErrorIs(t, err, ErrSelfFriend)

	_, err = s.friends.SendRequest(a.ID, b.ID)
	require.NoError(t, err)
	_, err = s.friends.SendRequest(a.ID, b.ID)
	require.ErrorIs(t, err, ErrRequestExists)
}

func TestFriendDeclineAllowsRetry(t *testing.T) {
	s := newStack(t)
	a := newUser(t, s.db, "alice")
	b := newUser(t, s.db, "bob")

	req, err := s.friends.SendRequest(a.ID, b.ID)
	require.NoError(t, err)
	require.NoError(t, s.friends.Decline(b.ID, req.ID))

	are, err := s.friends.AreFriends(a.ID, b.ID)
	require.NoError(t, err)
	require.False(t, are)

	// The sender may ask again; the declined row revives in place.
	revived, err := s.friends.SendRequest(a.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, req.ID, revived.ID)
	require.Equal(t, models.RequestPending, revived.Status)

	require.NoError(t, s.friends.Accept(b.ID, revived.ID))
	are, err = s.friends.AreFriends(a.ID, b.ID)
	require.NoError(t, err)
	require.True(t, are)
}

func TestFriendMutualPendingAutoAccepts(t *testing.T) {
	s := newStack(t)
	a := newUser(t, s.db, "alice")
	b := newUser(t, s.db, "bob")

	_, err := s.friends.SendRequest(a.ID, b.ID)
	require.NoError(t, err)
	_, err = s.friends.SendRequest(b.ID, a.ID)
	require.NoError(t, err)

	are, err := s.friends.AreFriends(a.ID, b.ID)
	require.NoError(t, err)
	require.True(t, are)
}

func TestFriendResolutionOnlyByTarget(t *testing.T) {
	s := newStack(t)
	a := newUser(t, s.db, "alice")
	b := newUser(t, s.db, "bob")
	c := newUser(t, s.db, "carol")

	req, err := s.friends.SendRequest(a.ID, b.ID)
	require.NoError(t, err)

	require.ErrorIs(t, s.friends.Accept(c.ID, req.ID), ErrNotRequestTarget)
	require.ErrorIs(t, s.friends.Accept(a.ID, req.ID), ErrNotRequestTarget)
}

func TestUnfriendResetsRequests(t *testing.T) {
	s := newStack(t)
	a := newUser(t, s.db, "alice")
	b := newUser(t, s.db, "bob")

	req, err := s.friends.SendRequest(a.ID, b.ID)
	require.NoError(t, err)
	require.NoError(t, s.friends.Accept(b.ID, req.ID))

	require.NoError(t, s.friends.Unfriend(a.ID, b.ID))

	are, err := s.friends.AreFriends(a.ID, b.ID)
	require.NoError(t, err)
	require.False(t, are)

	// Either side can start over.
	_, err = s.friends.SendRequest(b.ID, a.ID)
	require.NoError(t, err)

	require.ErrorIs(t, s.friends.Unfriend(a.ID, b.ID), ErrNotFriends)
}

func TestFriendCounterBalancedWithoutDrain(t *testing.T) {
	s := newStack(t)
	a := newUser(t, s.db, "alice")
	b := newUser(t, s.db, "bob")

	// The increment commits with the request row itself, so resolving the
	// request before the outbox delivers anything must still balance out.
	req, err := s.friends.SendRequest(a.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, 1, reloadUser(t, s.db, b.ID).UnreadFriendRequests)

	require.NoError(t, s.friends.Accept(b.ID, req.ID))
	require.Equal(t, 0, reloadUser(t, s.db, b.ID).UnreadFriendRequests)

	d := outbox.NewDispatcher(s.db, s.points, s.badges, s.notify, 0)
	_, err = d.DrainOnce()
	require.NoError(t, err)
	require.Equal(t, 0, reloadUser(t, s.db, b.ID).UnreadFriendRequests)
}

func TestFriendCounterNeverGoesNegative(t *testing.T) {
	s := newStack(t)
	a := newUser(t, s.db, "alice")
	b := newUser(t, s.db, "bob")

	req, err := s.friends.SendRequest(a.ID, b.ID)
	require.NoError(t, err)
	require.NoError(t, s.friends.Decline(b.ID, req.ID))
	require.Equal(t, 0, reloadUser(t, s.db, b.ID).UnreadFriendRequests)

	// A stale extra decrement clamps instead of going below zero.
	require.NoError(t, decrementCounter(s.db, b.ID, "unread_friend_requests", 1))
	require.Equal(t, 0, reloadUser(t, s.db, b.ID).UnreadFriendRequests)
}
