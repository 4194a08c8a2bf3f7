package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification types.
const (
	NotifyReply         = "reply"
	NotifyReaction      = "reaction"
	NotifyDM            = "dm"
	NotifyTrending      = "trending"
	NotifyBadge         = "badge"
	NotifyFriendRequest = "friend_request"
	NotifyFriendAccept  = "friend_accept"
	NotifyBan           = "ban"
	NotifyUnban         = "unban"
)

// Notification is addressed to one recipient. ActorID is nil for system
// notifications (badge unlocks, ban transitions). Rows are only ever
// mutated to flip the read flag; retention is handled by the cleanup
// worker.
type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      string     `gorm:"size:30;not null" json:"type"`
	ActorID   *uuid.UUID `gorm:"type:uuid" json:"actor_id,omitempty"`
	Link      string     `gorm:"size:255" json:"link"`
	Message   string     `gorm:"size:500" json:"message"`
	Read      bool       `gorm:"default:false;index" json:"read"`
	CreatedAt time.Time  `json:"created_at"`
}
