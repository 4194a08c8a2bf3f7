package services

import (
	"testing"
	"time"

	"github.com/b4nter/banter-backend/internal/config"
	"github.com/b4nter/banter-backend/internal/dto"
	"github.com/b4nter/banter-backend/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testAuth(t *testing.T, db *gorm.DB) *AuthService {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 7 * 24 * time.Hour,
	}
	return NewAuthService(db, cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	db := testDB(t)
	auth := testAuth(t, db)

	resp, err := auth.Register(&dto.RegisterRequest{Username: "new_user", Password: "password123"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "new_user", resp.User.Username)

	resp, err = auth.Login(&dto.LoginRequest{Username: "NEW_USER", Password: "password123"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)

	_, err = auth.Login(&dto.LoginRequest{Username: "new_user", Password: "wrong-password"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(&dto.LoginRequest{Username: "nobody", Password: "password123"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterUsernameRules(t *testing.T) {
	db := testDB(t)
	auth := testAuth(t, db)

	for _, bad := range []string{"ab", "this_name_is_way_too_long", "Capitals", "spa ce", "dash-ed"} {
		_, err := auth.Register(&dto.RegisterRequest{Username: bad, Password: "password123"})
		require.ErrorIs(t, err, ErrInvalidUsername, "username %q", bad)
	}

	_, err := auth.Register(&dto.RegisterRequest{Username: "valid_name", Password: "short"})
	require.Error(t, err)
}

func TestRegisterConflictIsCaseInsensitive(t *testing.T) {
	db := testDB(t)
	auth := testAuth(t, db)

	_, err := auth.Register(&dto.RegisterRequest{Username: "taken", Password: "password123"})
	require.NoError(t, err)

	_, err = auth.Register(&dto.RegisterRequest{Username: "taken", Password: "password123"})
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLoginRejectsBannedAccounts(t *testing.T) {
	db := testDB(t)
	auth := testAuth(t, db)
	u := newUser(t, db, "troll")

	require.NoError(t, db.Model(u).Updates(map[string]interface{}{
		"permanent_ban":        true,
		"permanent_ban_reason": "spam",
	}).Error)

	_, err := auth.Login(&dto.LoginRequest{Username: "troll", Password: "password123"})
	require.ErrorContains(t, err, "spam")
}

func TestLoginClearsExpiredTempBan(t *testing.T) {
	db := testDB(t)
	auth := testAuth(t, db)
	u := newUser(t, db, "timeout")

	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Model(u).Updates(map[string]interface{}{
		"temp_ban_until":  past,
		"temp_ban_reason": "cool off",
	}).Error)

	_, err := auth.Login(&dto.LoginRequest{Username: "timeout", Password: "password123"})
	require.NoError(t, err)

	fresh := reloadUser(t, db, u.ID)
	require.Nil(t, fresh.TempBanUntil)
	require.Empty(t, fresh.TempBanReason)
	require.False(t, fresh.LastLogin.IsZero())
}

func TestLoginRejectsActiveTempBan(t *testing.T) {
	db := testDB(t)
	auth := testAuth(t, db)
	u := newUser(t, db, "timeout")

	future := time.Now().UTC().Add(time.Hour)
	require.NoError(t, db.Model(u).Updates(map[string]interface{}{
		"temp_ban_until":  future,
		"temp_ban_reason": "cool off",
	}).Error)

	_, err := auth.Login(&dto.LoginRequest{Username: "timeout", Password: "password123"})
	require.ErrorContains(t, err, "cool off")
}

func TestRefreshRotatesToken(t *testing.T) {
	db := testDB(t)
	auth := testAuth(t, db)

	resp, err := auth.Register(&dto.RegisterRequest{Username: "rotator", Password: "password123"})
	require.NoError(t, err)
	first := resp.RefreshToken

	resp2, err := auth.Refresh(&dto.RefreshRequest{RefreshToken: first})
	require.NoError(t, err)
	require.NotEqual(t, first, resp2.RefreshToken)

	// The presented token is revoked on rotation; reuse fails closed.
	_, err = auth.Refresh(&dto.RefreshRequest{RefreshToken: first})
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.Refresh(&dto.RefreshRequest{RefreshToken: resp2.RefreshToken})
	require.NoError(t, err)
}

func TestRefreshExpiredTokenIsRevoked(t *testing.T) {
	db := testDB(t)
	auth := testAuth(t, db)

	resp, err := auth.Register(&dto.RegisterRequest{Username: "expired", Password: "password123"})
	require.NoError(t, err)

	auth.now = fixedClock(time.Now().UTC().Add(8 * 24 * time.Hour))
	_, err = auth.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	require.ErrorIs(t, err, ErrInvalidToken)

	var stored models.RefreshToken
	require.NoError(t, db.First(&stored).Error)
	require.True(t, stored.Revoked)
}

func TestLogoutRevokesToken(t *testing.T) {
	db := testDB(t)
	auth := testAuth(t, db)

	resp, err := auth.Register(&dto.RegisterRequest{Username: "leaver", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, auth.Logout(&dto.LogoutRequest{RefreshToken: resp.RefreshToken}))
	_, err = auth.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestDeleteAccountKeepsContent(t *testing.T) {
	s := newStack(t)
	auth := testAuth(t, s.db)
	u := newUser(t, s.db, "ghost")

	conf := createConfession(t, s, u)

	require.ErrorIs(t, auth.DeleteAccount(u.ID, "wrong"), ErrInvalidCredentials)
	require.NoError(t, auth.DeleteAccount(u.ID, "password123"))

	require.ErrorIs(t, s.db.First(&models.User{}, "id = ?", u.ID).Error, gorm.ErrRecordNotFound)

	// Authored content survives and reads as "[deleted]".
	view, err := s.confessions.Get(conf.ID)
	require.NoError(t, err)
	require.Equal(t, "[deleted]", view.AuthorUsername)
}
