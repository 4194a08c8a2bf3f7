package chat

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/b4nter/banter-backend/internal/metrics"
	"github.com/b4nter/banter-backend/internal/models"
	"github.com/b4nter/banter-backend/internal/services"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrEmptyMessage = errors.New("message must not be empty")

const maxChatMessageLength = 1000

// Service runs the per-message pipeline for the global room: moderation,
// persistence, then the gamification hooks (daily volume, streak, first
// message of the day). Fan-out to connected clients happens after commit.
type Service struct {
	db         *gorm.DB
	hub        *Hub
	moderation *services.ModerationService
	streaks    *services.StreakService
	now        func() time.Time
}

func NewService(db *gorm.DB, hub *Hub, moderation *services.ModerationService, streaks *services.StreakService) *Service {
	return &Service{db: db, hub: hub, moderation: moderation, streaks: streaks, now: time.Now}
}

func (s *Service) Hub() *Hub { return s.hub }

// Send runs one message through the pipeline and broadcasts it.
func (s *Service) Send(userID uuid.UUID, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if len(content) > maxChatMessageLength {
		return nil, errors.New("message too long")
	}

	user, err := s.moderation.RequireActive(userID)
	if err != nil {
		return nil, err
	}
	if ok, reason := s.moderation.FilterContent(content); !ok {
		return nil, errors.New(s.moderation.RejectionMessage(reason))
	}

	message := models.ChatMessage{
		ID:        uuid.New(),
		UserID:    userID,
		Username:  user.Username,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.db.Create(&message).Error; err != nil {
		return nil, err
	}

	// Gamification hooks are independent of message delivery: a failure
	// here must not eat the message the user already sent.
	if err := s.streaks.BumpDailyMessages(userID); err != nil {
		slog.Error("daily message bump failed", "user_id", userID, "error", err)
	}
	if err := s.streaks.TouchChatStreak(userID); err != nil {
		slog.Error("chat streak update failed", "user_id", userID, "error", err)
	}
	if _, err := s.streaks.ClaimFirstMessage(userID); err != nil {
		slog.Error("first message claim failed", "user_id", userID, "error", err)
	}

	metrics.ChatMessages.Inc()
	s.hub.Broadcast(Event{Type: "message", Payload: messagePayload(&message)})
	return &message, nil
}

// History returns the most recent messages in chronological order.
func (s *Service) History() ([]MessagePayload, error) {
	var rows []models.ChatMessage
	if err := s.db.Order("created_at DESC").Limit(models.ChatHistoryLimit).Find(&rows).Error; err != nil {
		return nil, err
	}

	payloads := make([]MessagePayload, len(rows))
	for i := range rows {
		payloads[len(rows)-1-i] = messagePayload(&rows[i])
	}
	return payloads, nil
}
