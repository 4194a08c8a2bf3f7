package models

import "time"

const (
	PromptSourceAI       = "ai"
	PromptSourceFallback = "fallback"
)

// Prompt is the shared daily confession prompt, one row per UTC day,
// regenerated lazily when stale.
type Prompt struct {
	Day       string    `gorm:"size:10;primaryKey" json:"day"`
	Text      string    `gorm:"size:500;not null" json:"text"`
	Source    string    `gorm:"size:10;not null" json:"source"` // "ai" or "fallback"
	CreatedAt time.Time `json:"created_at"`
}
