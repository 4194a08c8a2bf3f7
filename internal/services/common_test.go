package services

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/b4nter/banter-backend/internal/database"
	"github.com/b4nter/banter-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the shared-cache database alive for the
	// whole test and serializes concurrent access.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	u := models.User{
		ID:            uuid.New(),
		Username:      username,
		UsernameLower: username,
		Password:      string(hash),
	}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func reloadUser(t *testing.T, db *gorm.DB, id uuid.UUID) *models.User {
	t.Helper()

	var u models.User
	require.NoError(t, db.First(&u, "id = ?", id).Error)
	return &u
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// testStack wires the full service graph over one database.
type testStack struct {
	db          *gorm.DB
	points      *PointsService
	badges      *BadgeService
	notify      *NotificationService
	streaks     *StreakService
	moderation  *ModerationService
	confessions *ConfessionService
	friends     *FriendService
	dms         *DMService
}

func newStack(t *testing.T) *testStack {
	t.Helper()

	db := testDB(t)
	points := NewPointsService(db)
	notify := NewNotificationService(db)
	badges := NewBadgeService(db, points, notify)
	streaks := NewStreakService(db, points, badges)
	moderation := NewModerationService(db)
	confessions := NewConfessionService(db, points, badges, moderation)
	friends := NewFriendService(db, moderation)
	dms := NewDMService(db, friends, moderation)

	return &testStack{
		db:          db,
		points:      points,
		badges:      badges,
		notify:      notify,
		streaks:     streaks,
		moderation:  moderation,
		confessions: confessions,
		friends:     friends,
		dms:         dms,
	}
}
