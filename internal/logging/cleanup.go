package logging

import (
	"log/slog"
	"time"

	"github.com/b4nter/banter-backend/internal/models"
	"gorm.io/gorm"
)

// Retention policy. Notifications and chat messages would otherwise grow
// without bound; the caps here are the explicit decision.
const (
	logRetentionDays          = 30
	notificationRetentionDays = 60
	outboxRetentionDays       = 7
	chatRetentionRows         = 500
)

// StartCleanup runs a daily retention sweep: old system logs, old read
// notifications, processed outbox events, and chat history beyond the cap.
func StartCleanup(db *gorm.DB, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				RunRetention(db)
			case <-done:
				return
			}
		}
	}()
}

// RunRetention executes one sweep. Exposed so tests and the admin cleanup
// endpoint can trigger it synchronously.
func RunRetention(db *gorm.DB) {
	now := time.Now()

	sweep(db, "system_logs", db.Where("timestamp < ?", now.AddDate(0, 0, -logRetentionDays)).Delete(&models.SystemLog{}))
	sweep(db, "notifications", db.Where("read = ? AND created_at < ?", true, now.AddDate(0, 0, -notificationRetentionDays)).Delete(&models.Notification{}))
	sweep(db, "outbox_events", db.Where("status = ? AND created_at < ?", models.OutboxDone, now.AddDate(0, 0, -outboxRetentionDays)).Delete(&models.OutboxEvent{}))

	// Chat keeps only the newest rows; everything older than the cutoff
	// row goes.
	var cutoff models.ChatMessage
	err := db.Order("created_at DESC").Offset(chatRetentionRows - 1).Limit(1).First(&cutoff).Error
	if err == nil {
		sweep(db, "chat_messages", db.Where("created_at < ?", cutoff.CreatedAt).Delete(&models.ChatMessage{}))
	}
}

func sweep(db *gorm.DB, table string, result *gorm.DB) {
	if result.Error != nil {
		slog.Error("retention sweep failed", "table", table, "error", result.Error)
	} else if result.RowsAffected > 0 {
		slog.Info("retention sweep completed", "table", table, "deleted", result.RowsAffected)
	}
}
