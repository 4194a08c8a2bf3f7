package services

import (
	"testing"
	"time"

	"github.com/b4nter/banter-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestFilterContent(t *testing.T) {
	s := newStack(t)

	cases := []struct {
		text   string
		ok     bool
		reason string
	}{
		{"a perfectly normal confession", true, ""},
		{"", true, ""},
		{"this is such bullshit honestly", false, "inappropriate_language"},
		{"classmate is an ASSHOLE", false, "inappropriate_language"},
		{"check out https://example.com for more", false, "url_not_allowed"},
		{"visit www.sketchy.site now", false, "url_not_allowed"},
		{"email me at someone@example.com", false, "contact_info_not_allowed"},
		{"call 555-123-4567 tonight", false, "contact_info_not_allowed"},
		{"classy assignment", true, ""}, // word boundaries, not substrings
	}
	for _, tc := range cases {
		ok, reason := s.moderation.FilterContent(tc.text)
		require.Equal(t, tc.ok, ok, "text %q", tc.text)
		require.Equal(t, tc.reason, reason, "text %q", tc.text)
	}
}

func TestBanLifecycle(t *testing.T) {
	s := newStack(t)
	admin := newUser(t, s.db, "admin")
	target := newUser(t, s.db, "target")

	require.ErrorIs(t, s.moderation.Ban(admin.ID, admin.ID, "oops"), ErrSelfModeration)

	require.NoError(t, s.moderation.Ban(admin.ID, target.ID, "harassment"))
	_, err := s.moderation.RequireActive(target.ID)
	require.ErrorIs(t, err, ErrUserBanned)
	require.ErrorContains(t, err, "harassment")

	// The ban notification is delivered through the outbox.
	s.drain(t)
	items, err := s.notify.List(target.ID, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, models.NotifyBan, items[0].Type)

	require.NoError(t, s.moderation.Unban(admin.ID, target.ID))
	_, err = s.moderation.RequireActive(target.ID)
	require.NoError(t, err)
}

func TestTempBanExpiresLazily(t *testing.T) {
	s := newStack(t)
	admin := newUser(t, s.db, "admin")
	target := newUser(t, s.db, "target")

	start := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	s.moderation.now = fixedClock(start)

	require.NoError(t, s.moderation.TempBan(admin.ID, target.ID, start.Add(time.Hour), "cooling off"))
	_, err := s.moderation.RequireActive(target.ID)
	require.ErrorIs(t, err, ErrUserBanned)
	require.ErrorContains(t, err, "cooling off")

	// Past the expiry the account is active again and the row is tidied.
	s.moderation.now = fixedClock(start.Add(2 * time.Hour))
	u, err := s.moderation.RequireActive(target.ID)
	require.NoError(t, err)
	require.Nil(t, u.TempBanUntil)
	require.Empty(t, reloadUser(t, s.db, target.ID).TempBanReason)
}

func TestTempBanRejectedForPermanentlyBanned(t *testing.T) {
	s := newStack(t)
	admin := newUser(t, s.db, "admin")
	target := newUser(t, s.db, "target")

	require.NoError(t, s.moderation.Ban(admin.ID, target.ID, "gone"))

	until := time.Now().UTC().Add(time.Hour)
	require.ErrorIs(t, s.moderation.TempBan(admin.ID, target.ID, until, "redundant"), ErrPermanentBanned)
	require.ErrorIs(t, s.moderation.LiftTempBan(admin.ID, target.ID), ErrPermanentBanned)
}

func TestLiftTempBanEarly(t *testing.T) {
	s := newStack(t)
	admin := newUser(t, s.db, "admin")
	target := newUser(t, s.db, "target")

	until := time.Now().UTC().Add(24 * time.Hour)
	require.NoError(t, s.moderation.TempBan(admin.ID, target.ID, until, "cooling off"))
	require.NoError(t, s.moderation.LiftTempBan(admin.ID, target.ID))

	_, err := s.moderation.RequireActive(target.ID)
	require.NoError(t, err)
}

func TestReportLifecycle(t *testing.T) {
	s := newStack(t)
	reporter := newUser(t, s.db, "reporter")

	_, err := s.moderation.CreateReport(reporter.ID, "banana", "id", "bad")
	require.Error(t, err)
	_, err = s.moderation.CreateReport(reporter.ID, "confession", "id", "  ")
	require.Error(t, err)

	report, err := s.moderation.CreateReport(reporter.ID, "confession", "some-id", "hate speech")
	require.NoError(t, err)
	require.Equal(t, "pending", report.Status)

	pending, total, err := s.moderation.ListReports("pending", 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, pending, 1)

	require.Error(t, s.moderation.ActionReport(report.ID, "shredded", ""))
	require.NoError(t, s.moderation.ActionReport(report.ID, "actioned", "banned the author"))

	pending, total, err = s.moderation.ListReports("pending", 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 0, total)
	require.Empty(t, pending)
}

func TestBlockGuards(t *testing.T) {
	s := newStack(t)
	a := newUser(t, s.db, "alice")
	b := newUser(t, s.db, "bob")

	require.ErrorIs(t, s.moderation.BlockUser(a.ID, a.ID), ErrSelfBlock)
	require.NoError(t, s.moderation.BlockUser(a.ID, b.ID))
	require.ErrorIs(t, s.moderation.BlockUser(a.ID, b.ID), ErrAlreadyBlocked)

	ids, err := s.moderation.BlockedIDs(a.ID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{b.ID}, ids)

	require.NoError(t, s.moderation.UnblockUser(a.ID, b.ID))
	ids, err = s.moderation.BlockedIDs(a.ID)
	require.NoError(t, err)
	require.Empty(t, ids)
}
