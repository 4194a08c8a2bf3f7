// Package outbox makes cross-user side effects durable. A primary action
// (react, comment, friend request, ban) commits its intent rows in the
// same transaction as the primary write; the dispatcher applies each
// intent and marks it done in one transaction, so a crash between the
// primary write and its follow-ups loses nothing and replays nothing.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/b4nter/banter-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event kinds.
const (
	KindAwardPoints = "award_points"
	KindGrantBadge  = "grant_badge"
	KindNotify      = "notify"
	KindBumpCounter = "bump_counter"
)

type AwardPointsPayload struct {
	UserID uuid.UUID `json:"user_id"`
	Delta  int       `json:"delta"`
	Reason string    `json:"reason"`
}

type GrantBadgePayload struct {
	UserID  uuid.UUID `json:"user_id"`
	BadgeID string    `json:"badge_id"`
}

type NotifyPayload struct {
	RecipientID uuid.UUID  `json:"recipient_id"`
	ActorID     *uuid.UUID `json:"actor_id,omitempty"`
	Type        string     `json:"type"`
	Link        string     `json:"link"`
	Message     string     `json:"message"`
}

// BumpCounterPayload adjusts a whitelisted rollup column on a user row.
type BumpCounterPayload struct {
	UserID uuid.UUID `json:"user_id"`
	Column string    `json:"column"`
	Delta  int       `json:"delta"`
}

// Columns BumpCounter may touch.
var counterColumns = map[string]bool{
	"reactions_received": true,
}

// Enqueue writes an intent row using the caller's transaction handle, so
// the intent commits or rolls back together with the primary write.
func Enqueue(tx *gorm.DB, kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	ev := models.OutboxEvent{
		ID:        uuid.New(),
		Kind:      kind,
		Payload:   datatypes.JSON(raw),
		Status:    models.OutboxPending,
		CreatedAt: time.Now(),
	}
	return tx.Create(&ev).Error
}
