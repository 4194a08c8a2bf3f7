package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/b4nter/banter-backend/internal/metrics"
	"github.com/b4nter/banter-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// PointsService is the single write path for point totals. Deltas are
// applied as SQL expressions so concurrent awards never lose updates.
// Awarding to a nonexistent user is a hard error: callers are responsible
// for ordering, and masking the bug by synthesizing a profile would only
// hide it.
type PointsService struct {
	db *gorm.DB
}

func NewPointsService(db *gorm.DB) *PointsService {
	return &PointsService{db: db}
}

// Award adds delta (positive or negative) to the user's total. Most
// callers treat an error as best-effort: logged, never surfaced to the
// primary action.
func (s *PointsService) Award(userID uuid.UUID, delta int, reason string) error {
	return s.AwardTx(s.db, userID, delta, reason)
}

// AwardTx is Award on an existing transaction handle.
func (s *PointsService) AwardTx(tx *gorm.DB, userID uuid.UUID, delta int, reason string) error {
	if delta == 0 {
		return nil
	}

	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("points", gorm.Expr("points + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("award points: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("award points to %s: %w", userID, ErrUserNotFound)
	}

	entry := models.PointLog{
		UserID:    userID,
		Delta:     delta,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("log points: %w", err)
	}

	metrics.PointsEvents.WithLabelValues(reason).Inc()
	slog.Debug("points awarded", "user_id", userID, "delta", delta, "reason", reason)
	return nil
}

// History returns the most recent ledger entries for a user.
func (s *PointsService) History(userID uuid.UUID, limit int) ([]models.PointLog, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	var entries []models.PointLog
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
