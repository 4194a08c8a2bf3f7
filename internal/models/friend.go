package models

import (
	"time"

	"github.com/google/uuid"
)

// Friend request states.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestDeclined = "declined"
)

// FriendRequest tracks the directed pending edge. A declined row may be
// revived back to pending by a later request from the same sender.
type FriendRequest struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FromID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_friend_request_pair" json:"from_id"`
	ToID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_friend_request_pair" json:"to_id"`
	Status    string    `gorm:"size:10;not null;default:'pending'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Friendship is the symmetric edge, stored once with the smaller UUID
// string first so lookups never need to check both orders.
type Friendship struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserAID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_friendship_pair" json:"user_a_id"`
	UserBID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_friendship_pair" json:"user_b_id"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderPair returns the two ids in canonical (sorted) order.
func OrderPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() < b.String() {
		return a, b
	}
	return b, a
}
