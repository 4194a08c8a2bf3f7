package outbox_test

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/b4nter/banter-backend/internal/database"
	"github.com/b4nter/banter-backend/internal/models"
	"github.com/b4nter/banter-backend/internal/outbox"
	"github.com/b4nter/banter-backend/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:outbox%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func testDispatcher(t *testing.T, db *gorm.DB) *outbox.Dispatcher {
	t.Helper()
	points := services.NewPointsService(db)
	notify := services.NewNotificationService(db)
	badges := services.NewBadgeService(db, points, notify)
	return outbox.NewDispatcher(db, points, badges, notify, 0)
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := models.User{ID: uuid.New(), Username: username, UsernameLower: username, Password: "x"}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func TestDispatchAppliesExactlyOnce(t *testing.T) {
	db := testDB(t)
	d := testDispatcher(t, db)
	u := seedUser(t, db, "earner")

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return outbox.Enqueue(tx, outbox.KindAwardPoints, outbox.AwardPointsPayload{
			UserID: u.ID, Delta: 10, Reason: "daily_prompt",
		})
	}))

	n, err := d.DrainOnce()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// A second drain finds nothing: the event was marked done in the same
	// transaction that applied it.
	n, err = d.DrainOnce()
	require.NoError(t, err)
	require.Equal(t, 0, n)

	var fresh models.User
	require.NoError(t, db.First(&fresh, "id = ?", u.ID).Error)
	require.Equal(t, 10, fresh.Points)

	var ev models.OutboxEvent
	require.NoError(t, db.First(&ev).Error)
	require.Equal(t, models.OutboxDone, ev.Status)
	require.NotNil(t, ev.ProcessedAt)
}

func TestDispatchRollsBackOnFailure(t *testing.T) {
	db := testDB(t)
	d := testDispatcher(t, db)

	// Points for a user that does not exist: apply fails, so the done mark
	// must roll back with it and the event eventually lands in failed.
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return outbox.Enqueue(tx, outbox.KindAwardPoints, outbox.AwardPointsPayload{
			UserID: uuid.New(), Delta: 10, Reason: "ghost",
		})
	}))

	_, err := d.DrainOnce()
	require.NoError(t, err)

	var ev models.OutboxEvent
	require.NoError(t, db.First(&ev).Error)
	require.Equal(t, models.OutboxFailed, ev.Status)
	require.Equal(t, 5, ev.Attempts)
	require.NotEmpty(t, ev.LastError)

	var logs int64
	require.NoError(t, db.Model(&models.PointLog{}).Count(&logs).Error)
	require.EqualValues(t, 0, logs)
}

func TestDispatchUnknownKindFails(t *testing.T) {
	db := testDB(t)
	d := testDispatcher(t, db)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return outbox.Enqueue(tx, "launch_rocket", map[string]string{"target": "moon"})
	}))

	_, err := d.DrainOnce()
	require.NoError(t, err)

	var ev models.OutboxEvent
	require.NoError(t, db.First(&ev).Error)
	require.Equal(t, models.OutboxFailed, ev.Status)
}

func TestDispatchCounterWhitelist(t *testing.T) {
	db := testDB(t)
	d := testDispatcher(t, db)
	u := seedUser(t, db, "counted")

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		if err := outbox.Enqueue(tx, outbox.KindBumpCounter, outbox.BumpCounterPayload{
			UserID: u.ID, Column: "reactions_received", Delta: 3,
		}); err != nil {
			return err
		}
		return outbox.Enqueue(tx, outbox.KindBumpCounter, outbox.BumpCounterPayload{
			UserID: u.ID, Column: "points", Delta: 9999,
		})
	}))

	_, err := d.DrainOnce()
	require.NoError(t, err)

	var fresh models.User
	require.NoError(t, db.First(&fresh, "id = ?", u.ID).Error)
	require.Equal(t, 3, fresh.ReactionsReceived)
	// The non-whitelisted column is untouched.
	require.Equal(t, 0, fresh.Points)

	var failed int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("status = ?", models.OutboxFailed).Count(&failed).Error)
	require.EqualValues(t, 1, failed)
}

func TestDispatchNotify(t *testing.T) {
	db := testDB(t)
	d := testDispatcher(t, db)
	u := seedUser(t, db, "recipient")
	actor := seedUser(t, db, "actor")

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return outbox.Enqueue(tx, outbox.KindNotify, outbox.NotifyPayload{
			RecipientID: u.ID, ActorID: &actor.ID,
			Type: models.NotifyReaction, Link: "/c/1", Message: "reacted",
		})
	}))

	_, err := d.DrainOnce()
	require.NoError(t, err)

	var n models.Notification
	require.NoError(t, db.First(&n, "user_id = ?", u.ID).Error)
	require.Equal(t, models.NotifyReaction, n.Type)
	require.Equal(t, actor.ID, *n.ActorID)

	var fresh models.User
	require.NoError(t, db.First(&fresh, "id = ?", u.ID).Error)
	require.Equal(t, 1, fresh.UnreadNotifications)
}
