package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a global-room message. History is ephemeral: clients are
// served the most recent ChatHistoryLimit messages and the cleanup worker
// trims everything beyond the retention cap.
type ChatMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Username  string    `gorm:"size:20;not null" json:"username"`
	Content   string    `gorm:"size:1000;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

const ChatHistoryLimit = 100

// DailyAward is the single-writer race slot for the "first message of the
// day" bonus. The day string is the primary key: whichever insert commits
// first wins, every concurrent loser gets a duplicate-key error. This is
// the compare-and-swap the award depends on; never write this row with an
// upsert.
type DailyAward struct {
	Day                string    `gorm:"size:10;primaryKey" json:"day"`
	FirstMessageUserID uuid.UUID `gorm:"type:uuid;not null" json:"first_message_user_id"`
	CreatedAt          time.Time `json:"created_at"`
}
