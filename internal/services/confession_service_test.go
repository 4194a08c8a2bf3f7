package services

import (
	"strings"
	"testing"
	"time"

	"github.com/b4nter/banter-backend/internal/models"
	"github.com/b4nter/banter-backend/internal/outbox"
	"github.com/stretchr/testify/require"
)

func (s *testStack) drain(t *testing.T) {
	t.Helper()
	d := outbox.NewDispatcher(s.db, s.points, s.badges, s.notify, time.Hour)
	_, err := d.DrainOnce()
	require.NoError(t, err)
}

func createConfession(t *testing.T, s *testStack, u *models.User) *models.Confession {
	t.Helper()
	c, err := s.confessions.Create(u.ID, "a title", "this is a long enough confession", "", nil)
	require.NoError(t, err)
	return c
}

func TestConfessionCreateAwardsAuthor(t *testing.T) {
	s := newStack(t)
	u := newUser(t, s.db, "alice")

	createConfession(t, s, u)

	got := reloadUser(t, s.db, u.ID)
	require.Equal(t, 10, got.Points)
	require.Equal(t, 1, got.PostCount)

	badges, err := s.badges.BadgesOf(u.ID)
	require.NoError(t, err)
	require.True(t, badges[models.BadgeFirstPost])

	// Second post: points again, badge not.
	createConfession(t, s, u)
	got = reloadUser(t, s.db, u.ID)
	require.Equal(t, 20, got.Points)
	require.Equal(t, 2, got.PostCount)
}

func TestConfessionContentValidation(t *testing.T) {
	s := newStack(t)
	u := newUser(t, s.db, "bob")

	_, err := s.confessions.Create(u.ID, "", "short", "", nil)
	require.Error(t, err)

	_, err = s.confessions.Create(u.ID, "", strings.Repeat("x", maxContentLen+1), "", nil)
	require.Error(t, err)

	_, err = s.confessions.Create(u.ID, "", "long enough content here", "", []string{"a", "b", "c", "d", "e", "f"})
	require.Error(t, err)
}

func TestReactionToggleAndSwitch(t *testing.T) {
	s := newStack(t)
	author := newUser(t, s.db, "author")
	reader := newUser(t, s.db, "reader")
	c := createConfession(t, s, author)

	// Add.
	res, err := s.confessions.React(reader.ID, c.ID, models.ReactionLike)
	require.NoError(t, err)
	require.Equal(t, "added", res.Outcome)
	require.Equal(t, 1, res.Summary[models.ReactionLike])

	// Same type toggles off.
	res, err = s.confessions.React(reader.ID, c.ID, models.ReactionLike)
	require.NoError(t, err)
	require.Equal(t, "removed", res.Outcome)
	require.Equal(t, 0, res.Summary[models.ReactionLike])

	// Add again, then switch type.
	_, err = s.confessions.React(reader.ID, c.ID, models.ReactionLike)
	require.NoError(t, err)
	res, err = s.confessions.React(reader.ID, c.ID, models.ReactionLaugh)
	require.NoError(t, err)
	require.Equal(t, "switched", res.Outcome)
	require.Equal(t, 0, res.Summary[models.ReactionLike])
	require.Equal(t, 1, res.Summary[models.ReactionLaugh])

	// One row per (user, post) regardless of history.
	var rows int64
	require.NoError(t, s.db.Model(&models.Reaction{}).
		Where("confession_id = ?", c.ID).Count(&rows).Error)
	require.EqualValues(t, 1, rows)

	ok, err := s.confessions.VerifySummary(c.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestReactionPointsFlowToAuthor(t *testing.T) {
	s := newStack(t)
	author := newUser(t, s.db, "author")
	reader := newUser(t, s.db, "reader")
	c := createConfession(t, s, author)

	_, err := s.confessions.React(reader.ID, c.ID, models.ReactionLike)
	require.NoError(t, err)
	s.drain(t)

	got := reloadUser(t, s.db, author.ID)
	require.Equal(t, 15, got.Points) // 10 post + 5 like
	require.Equal(t, 1, got.ReactionsReceived)

	// Switching like to dislike moves the author by the full spread.
	_, err = s.confessions.React(reader.ID, c.ID, models.ReactionDislike)
	require.NoError(t, err)
	s.drain(t)

	got = reloadUser(t, s.db, author.ID)
	require.Equal(t, 5, got.Points) // 15 - 10
	require.Equal(t, 1, got.ReactionsReceived)

	// Removing the dislike gives the 5 back.
	_, err = s.confessions.React(reader.ID, c.ID, models.ReactionDislike)
	require.NoError(t, err)
	s.drain(t)

	got = reloadUser(t, s.db, author.ID)
	require.Equal(t, 10, got.Points)
	require.Equal(t, 0, got.ReactionsReceived)
}

func TestReactionSelfDoesNotNotifyOrScore(t *testing.T) {
	s := newStack(t)
	author := newUser(t, s.db, "author")
	c := createConfession(t, s, author)

	_, err := s.confessions.React(author.ID, c.ID, models.ReactionLike)
	require.NoError(t, err)
	s.drain(t)

	got := reloadUser(t, s.db, author.ID)
	require.Equal(t, 10, got.Points) // post bonus only
	require.Equal(t, 0, got.ReactionsReceived)
	require.Equal(t, 0, got.UnreadNotifications)
}

func TestReactionInvalidType(t *testing.T) {
	s := newStack(t)
	author := newUser(t, s.db, "author")
	reader := newUser(t, s.db, "reader")
	c := createConfession(t, s, author)

	_, err := s.confessions.React(reader.ID, c.ID, "banana")
	require.ErrorIs(t, err, ErrInvalidReaction)
}

func TestCommentAwardsAndNotifies(t *testing.T) {
	s := newStack(t)
	author := newUser(t, s.db, "author")
	commenter := newUser(t, s.db, "commenter")
	c := createConfession(t, s, author)

	comment, err := s.confessions.AddComment(commenter.ID, c.ID, nil, "nice confession")
	require.NoError(t, err)
	s.drain(t)

	got := reloadUser(t, s.db, commenter.ID)
	require.Equal(t, 3, got.Points)
	require.Equal(t, 1, got.CommentCount)

	postAuthor := reloadUser(t, s.db, author.ID)
	require.Equal(t, 1, postAuthor.UnreadNotifications)

	// Reply to the comment notifies the comment's author, not the post's.
	_, err = s.confessions.AddComment(author.ID, c.ID, &comment.ID, "thanks")
	require.NoError(t, err)
	s.drain(t)

	got = reloadUser(t, s.db, commenter.ID)
	require.Equal(t, 1, got.UnreadNotifications)
	postAuthor = reloadUser(t, s.db, author.ID)
	require.Equal(t, 1, postAuthor.UnreadNotifications)

	var confession models.Confession
	require.NoError(t, s.db.First(&confession, "id = ?", c.ID).Error)
	require.Equal(t, 2, confession.CommentCount)
}

func TestFastReplyBadge(t *testing.T) {
	s := newStack(t)
	author := newUser(t, s.db, "author")
	replier := newUser(t, s.db, "replier")
	c := createConfession(t, s, author)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.confessions.now = fixedClock(base)
	parent, err := s.confessions.AddComment(author.ID, c.ID, nil, "anyone around?")
	require.NoError(t, err)

	// Reply 30 seconds later: fast responder.
	s.confessions.now = fixedClock(base.Add(30 * time.Second))
	_, err = s.confessions.AddComment(replier.ID, c.ID, &parent.ID, "right here")
	require.NoError(t, err)

	badges, err := s.badges.BadgesOf(replier.ID)
	require.NoError(t, err)
	require.True(t, badges[models.BadgeFastResponder])

	// A slow reply earns nothing.
	slow := newUser(t, s.db, "slowpoke")
	s.confessions.now = fixedClock(base.Add(5 * time.Minute))
	_, err = s.confessions.AddComment(slow.ID, c.ID, &parent.ID, "late")
	require.NoError(t, err)

	badges, err = s.badges.BadgesOf(slow.ID)
	require.NoError(t, err)
	require.False(t, badges[models.BadgeFastResponder])
}

func TestEndToEndPointsMath(t *testing.T) {
	s := newStack(t)
	u := newUser(t, s.db, "heroine")
	reader := newUser(t, s.db, "reader")

	// Post: +10.
	c := createConfession(t, s, u)

	// A like from someone else: +5 after dispatch.
	_, err := s.confessions.React(reader.ID, c.ID, models.ReactionLike)
	require.NoError(t, err)

	// A comment by the user: +3.
	_, err = s.confessions.AddComment(u.ID, c.ID, nil, "following up on this")
	require.NoError(t, err)

	// Three-day chat streak: +10 once.
	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s.streaks.now = fixedClock(day.AddDate(0, 0, i))
		require.NoError(t, s.streaks.TouchChatStreak(u.ID))
	}

	s.drain(t)

	got := reloadUser(t, s.db, u.ID)
	require.Equal(t, 10+5+3+10, got.Points)
}

func TestAdminDeleteRemovesDependents(t *testing.T) {
	s := newStack(t)
	author := newUser(t, s.db, "author")
	reader := newUser(t, s.db, "reader")
	c := createConfession(t, s, author)

	_, err := s.confessions.React(reader.ID, c.ID, models.ReactionHeart)
	require.NoError(t, err)
	_, err = s.confessions.AddComment(reader.ID, c.ID, nil, "goodbye soon")
	require.NoError(t, err)

	require.NoError(t, s.confessions.AdminDelete(c.ID))

	_, err = s.confessions.Get(c.ID)
	require.ErrorIs(t, err, ErrConfessionNotFound)

	var reactions, comments int64
	require.NoError(t, s.db.Model(&models.Reaction{}).Where("confession_id = ?", c.ID).Count(&reactions).Error)
	require.NoError(t, s.db.Model(&models.Comment{}).Where("confession_id = ?", c.ID).Count(&comments).Error)
	require.Zero(t, reactions)
	require.Zero(t, comments)

	require.ErrorIs(t, s.confessions.AdminDelete(c.ID), ErrConfessionNotFound)
}

func TestSupernovaMilestoneFiresOnce(t *testing.T) {
	s := newStack(t)
	author := newUser(t, s.db, "author")
	c := createConfession(t, s, author)

	for i := 0; i < supernovaReactionCount; i++ {
		reader := newUser(t, s.db, "fan"+string(rune('a'+i%26))+string(rune('a'+i/26)))
		_, err := s.confessions.React(reader.ID, c.ID, models.ReactionHeart)
		require.NoError(t, err)
	}
	s.drain(t)

	var confession models.Confession
	require.NoError(t, s.db.First(&confession, "id = ?", c.ID).Error)
	require.True(t, confession.ReachedSupernova)
	require.NotNil(t, confession.FirstSupernovaAt)

	badges, err := s.badges.BadgesOf(author.ID)
	require.NoError(t, err)
	require.True(t, badges[models.BadgeSupernova])

	// More reactions do not re-fire the milestone.
	extra := newUser(t, s.db, "extra")
	_, err = s.confessions.React(extra.ID, c.ID, models.ReactionHeart)
	require.NoError(t, err)
	s.drain(t)

	var grants int64
	require.NoError(t, s.db.Model(&models.UserBadge{}).
		Where("user_id = ? AND badge_id = ?", author.ID, models.BadgeSupernova).
		Count(&grants).Error)
	require.EqualValues(t, 1, grants)
}

func TestFeedJoinsAuthorAtReadTime(t *testing.T) {
	s := newStack(t)
	u := newUser(t, s.db, "original")
	createConfession(t, s, u)

	views, total, err := s.confessions.Feed(1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "original", views[0].AuthorUsername)

	// A rename shows up immediately; nothing was snapshotted.
	require.NoError(t, s.db.Model(&models.User{}).Where("id = ?", u.ID).
		Update("username", "renamed").Error)

	views, _, err = s.confessions.Feed(1, 10)
	require.NoError(t, err)
	require.Equal(t, "renamed", views[0].AuthorUsername)
}
