package outbox

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/b4nter/banter-backend/internal/metrics"
	"github.com/b4nter/banter-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxAttempts = 5

// PointsAwarder mirrors services.PointsService.
type PointsAwarder interface {
	AwardTx(tx *gorm.DB, userID uuid.UUID, delta int, reason string) error
}

// BadgeGranter mirrors services.BadgeService.
type BadgeGranter interface {
	EnsureAwardedTx(tx *gorm.DB, userID uuid.UUID, badgeID string) (bool, error)
}

// Notifier mirrors services.NotificationService.
type Notifier interface {
	CreateTx(tx *gorm.DB, recipientID uuid.UUID, actorID *uuid.UUID, ntype, link, message string) error
}

// Dispatcher drains pending events on an interval.
type Dispatcher struct {
	db       *gorm.DB
	points   PointsAwarder
	badges   BadgeGranter
	notifier Notifier
	interval time.Duration
	done     chan struct{}
}

func NewDispatcher(db *gorm.DB, points PointsAwarder, badges BadgeGranter, notifier Notifier, interval time.Duration) *Dispatcher {
	return &Dispatcher{
		db:       db,
		points:   points,
		badges:   badges,
		notifier: notifier,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	go func() {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := d.DrainOnce(); err != nil {
					slog.Error("outbox drain failed", "error", err)
				}
			case <-d.done:
				return
			}
		}
	}()
}

func (d *Dispatcher) Stop() {
	close(d.done)
}

// DrainOnce applies every currently-pending event and returns how many
// were processed. Each event is applied and marked done inside a single
// transaction: that pairing is what makes side effects exactly-once.
func (d *Dispatcher) DrainOnce() (int, error) {
	processed := 0
	for {
		var batch []models.OutboxEvent
		err := d.db.Where("status = ?", models.OutboxPending).
			Order("created_at ASC").
			Limit(50).
			Find(&batch).Error
		if err != nil {
			return processed, err
		}
		if len(batch) == 0 {
			return processed, nil
		}

		for i := range batch {
			d.dispatch(&batch[i])
			processed++
		}
	}
}

func (d *Dispatcher) dispatch(ev *models.OutboxEvent) {
	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := d.apply(tx, ev); err != nil {
			return err
		}
		now := time.Now()
		return tx.Model(ev).Updates(map[string]interface{}{
			"status":       models.OutboxDone,
			"processed_at": &now,
		}).Error
	})
	if err == nil {
		metrics.OutboxDispatched.WithLabelValues(ev.Kind).Inc()
		return
	}

	ev.Attempts++
	status := models.OutboxPending
	if ev.Attempts >= maxAttempts {
		status = models.OutboxFailed
		slog.Error("outbox event abandoned", "id", ev.ID, "kind", ev.Kind, "error", err)
	}
	updateErr := d.db.Model(ev).Updates(map[string]interface{}{
		"attempts":   ev.Attempts,
		"status":     status,
		"last_error": err.Error(),
	}).Error
	if updateErr != nil {
		slog.Error("outbox bookkeeping failed", "id", ev.ID, "error", updateErr)
	}
}

func (d *Dispatcher) apply(tx *gorm.DB, ev *models.OutboxEvent) error {
	switch ev.Kind {
	case KindAwardPoints:
		var p AwardPointsPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		return d.points.AwardTx(tx, p.UserID, p.Delta, p.Reason)

	case KindGrantBadge:
		var p GrantBadgePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		_, err := d.badges.EnsureAwardedTx(tx, p.UserID, p.BadgeID)
		return err

	case KindNotify:
		var p NotifyPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		return d.notifier.CreateTx(tx, p.RecipientID, p.ActorID, p.Type, p.Link, p.Message)

	case KindBumpCounter:
		var p BumpCounterPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		if !counterColumns[p.Column] {
			return fmt.Errorf("counter column %q not allowed", p.Column)
		}
		res := tx.Model(&models.User{}).Where("id = ?", p.UserID).
			UpdateColumn(p.Column, gorm.Expr(p.Column+" + ?", p.Delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %s not found", p.UserID)
		}
		return nil

	default:
		return fmt.Errorf("unknown outbox kind %q", ev.Kind)
	}
}
