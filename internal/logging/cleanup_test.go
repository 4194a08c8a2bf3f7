package logging

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/b4nter/banter-backend/internal/database"
	"github.com/b4nter/banter-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:logging%d?mode=memory&cache=shared", dbSeq.Add(1))
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

func TestRetentionSweepsOldRows(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	userID := uuid.New()

	old := now.AddDate(0, 0, -90)
	require.NoError(t, db.Create(&models.SystemLog{ID: uuid.New(), Level: "INFO", Message: "ancient", Timestamp: old}).Error)
	require.NoError(t, db.Create(&models.SystemLog{ID: uuid.New(), Level: "INFO", Message: "recent", Timestamp: now}).Error)

	require.NoError(t, db.Create(&models.Notification{
		ID: uuid.New(), UserID: userID, Type: models.NotifyReaction, Read: true, CreatedAt: old,
	}).Error)
	require.NoError(t, db.Create(&models.Notification{
		ID: uuid.New(), UserID: userID, Type: models.NotifyReaction, Read: false, CreatedAt: old,
	}).Error)

	done := now.AddDate(0, 0, -30)
	require.NoError(t, db.Create(&models.OutboxEvent{
		ID: uuid.New(), Kind: "notify", Status: models.OutboxDone, CreatedAt: done,
	}).Error)
	require.NoError(t, db.Create(&models.OutboxEvent{
		ID: uuid.New(), Kind: "notify", Status: models.OutboxFailed, CreatedAt: done,
	}).Error)

	RunRetention(db)

	var logs []models.SystemLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	require.Equal(t, "recent", logs[0].Message)

	// Unread notifications survive any age; only old read ones go.
	var notifications int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&notifications).Error)
	require.EqualValues(t, 1, notifications)

	// Failed outbox events are kept for inspection.
	var events []models.OutboxEvent
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, models.OutboxFailed, events[0].Status)
}

func TestRetentionCapsChatHistory(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	userID := uuid.New()

	for i := 0; i < chatRetentionRows+20; i++ {
		require.NoError(t, db.Create(&models.ChatMessage{
			ID: uuid.New(), UserID: userID, Username: "chatter",
			Content: "msg", CreatedAt: base.Add(time.Duration(i) * time.Second),
		}).Error)
	}

	RunRetention(db)

	var count int64
	require.NoError(t, db.Model(&models.ChatMessage{}).Count(&count).Error)
	require.EqualValues(t, chatRetentionRows, count)

	// The survivors are the newest rows.
	var oldest models.ChatMessage
	require.NoError(t, db.Order("created_at ASC").First(&oldest).Error)
	require.Equal(t, base.Add(20*time.Second), oldest.CreatedAt.UTC())
}

func TestRetentionNoopOnSmallTables(t *testing.T) {
	db := testDB(t)
	userID := uuid.New()

	require.NoError(t, db.Create(&models.ChatMessage{
		ID: uuid.New(), UserID: userID, Username: "chatter", Content: "only one",
	}).Error)

	RunRetention(db)

	var count int64
	require.NoError(t, db.Model(&models.ChatMessage{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}
