package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Outbox event states.
const (
	OutboxPending = "pending"
	OutboxDone    = "done"
	OutboxFailed  = "failed"
)

// OutboxEvent is a durable side-effect intent. The primary transaction
// writes the event; the dispatcher applies it and marks it done inside one
// transaction, so each side effect lands exactly once even if the process
// dies between the primary write and the follow-up.
type OutboxEvent struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Kind        string         `gorm:"size:30;not null" json:"kind"`
	Payload     datatypes.JSON `json:"payload"`
	Status      string         `gorm:"size:10;not null;default:'pending';index" json:"status"`
	Attempts    int            `gorm:"default:0" json:"attempts"`
	LastError   string         `gorm:"size:500" json:"last_error,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
}
