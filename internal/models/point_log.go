package models

import (
	"time"

	"github.com/google/uuid"
)

// PointLog is the append-only audit trail behind the points total on the
// user row. The total is authoritative; the log exists for debugging and
// the profile history view.
type PointLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_pointlog_user_date,priority:1" json:"user_id"`
	Delta     int       `gorm:"not null" json:"delta"`
	Reason    string    `gorm:"size:50;not null" json:"reason"`
	CreatedAt time.Time `gorm:"index:idx_pointlog_user_date,priority:2" json:"created_at"`
}
