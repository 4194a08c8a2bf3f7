package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"time"

	"github.com/b4nter/banter-backend/internal/config"
	"github.com/b4nter/banter-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"resty.dev/v3"
)

// fallbackPrompts rotate deterministically by day when the generation
// provider is unavailable or unconfigured.
var fallbackPrompts = []string{
	"What's the pettiest grudge you're still holding?",
	"Confess the weirdest thing you've done to avoid small talk.",
	"What's a compliment you've never recovered from?",
	"What rule do you break every single day?",
	"What's the most embarrassing thing in your search history this week?",
	"Tell us about a lie you told that spiraled out of control.",
	"What food opinion would get you exiled from your friend group?",
	"What's something you pretend to understand but absolutely don't?",
	"Describe your worst haircut era.",
	"What's the laziest thing you've ever done?",
	"What song do you secretly love but would never admit to?",
	"What's the strangest thing you believed as a kid?",
	"Confess your most irrational fear.",
	"What's a hill you'll die on that nobody agrees with?",
}

// PromptService produces one banter prompt per UTC day. The generated
// prompt is stored so every caller sees the same text; the insert is
// race-safe via upsert.
type PromptService struct {
	db     *gorm.DB
	cfg    *config.Config
	client *resty.Client
	now    func() time.Time
}

func NewPromptService(db *gorm.DB, cfg *config.Config) *PromptService {
	return &PromptService{
		db:     db,
		cfg:    cfg,
		client: resty.New().SetTimeout(cfg.PromptTimeout),
		now:    time.Now,
	}
}

func (s *PromptService) Close() error {
	return s.client.Close()
}

// Today returns the prompt for the current UTC day, generating and
// persisting it on first request.
func (s *PromptService) Today(ctx context.Context) (*models.Prompt, error) {
	day := s.now().UTC().Format("2006-01-02")

	var prompt models.Prompt
	err := s.db.First(&prompt, "day = ?", day).Error
	if err == nil {
		return &prompt, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	text, source := s.generate(ctx, day)
	prompt = models.Prompt{Day: day, Text: text, Source: source}

	// Concurrent first requests race to insert; whoever loses keeps the
	// winner's row.
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&prompt).Error; err != nil {
		return nil, err
	}
	if err := s.db.First(&prompt, "day = ?", day).Error; err != nil {
		return nil, err
	}
	return &prompt, nil
}

func (s *PromptService) generate(ctx context.Context, day string) (string, string) {
	if s.cfg.PromptAPIKey == "" {
		return fallbackFor(day), models.PromptSourceFallback
	}

	text, err := s.generateRemote(ctx)
	if err != nil {
		slog.Warn("prompt generation failed, using fallback", "error", err)
		return fallbackFor(day), models.PromptSourceFallback
	}
	return text, models.PromptSourceAI
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *PromptService) generateRemote(ctx context.Context) (string, error) {
	var out chatCompletionResponse

	res, err := s.client.R().
		WithContext(ctx).
		SetAuthToken(s.cfg.PromptAPIKey).
		SetBody(chatCompletionRequest{
			Model: s.cfg.PromptModel,
			Messages: []chatMessage{
				{Role: "system", Content: "You write one playful, slightly provocative daily confession prompt for a social banter app. Reply with the prompt only, no quotes."},
				{Role: "user", Content: "Write today's confession prompt."},
			},
		}).
		SetResult(&out).
		Post(s.cfg.PromptAPIURL)
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", fmt.Errorf("prompt provider returned %s", res.Status())
	}
	if len(out.Choices) == 0 {
		return "", errors.New("prompt provider returned no choices")
	}

	text := strings.TrimSpace(strings.Trim(out.Choices[0].Message.Content, `"`))
	if text == "" {
		return "", errors.New("prompt provider returned empty text")
	}
	return text, nil
}

func fallbackFor(day string) string {
	h := fnv.New32a()
	h.Write([]byte(day))
	return fallbackPrompts[int(h.Sum32())%len(fallbackPrompts)]
}
