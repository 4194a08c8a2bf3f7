package models

// CosmeticDef describes an avatar frame or flair in the static catalog.
// Items unlock by level rank or by holding a badge; an item with neither
// requirement is free.
type CosmeticDef struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	RequiredLevel int    `json:"required_level,omitempty"`
	RequiredBadge string `json:"required_badge,omitempty"`
}

var AvatarFrames = []CosmeticDef{
	{ID: "none", Name: "No Frame"},
	{ID: "wood", Name: "Wooden Frame", RequiredLevel: 2},
	{ID: "silver", Name: "Silver Frame", RequiredLevel: 3},
	{ID: "gold", Name: "Gold Frame", RequiredLevel: 4},
	{ID: "neon", Name: "Neon Frame", RequiredLevel: 5},
	{ID: "flame", Name: "Flame Frame", RequiredBadge: BadgeStreakLegend},
	{ID: "nova", Name: "Nova Frame", RequiredBadge: BadgeSupernova},
}

var AvatarFlairs = []CosmeticDef{
	{ID: "none", Name: "No Flair"},
	{ID: "sparkle", Name: "Sparkle", RequiredLevel: 2},
	{ID: "crown", Name: "Crown", RequiredLevel: 5},
	{ID: "bird", Name: "Early Bird", RequiredBadge: BadgeEarlyBird},
	{ID: "bolt", Name: "Lightning Bolt", RequiredBadge: BadgeFastResponder},
	{ID: "star", Name: "Shooting Star", RequiredBadge: BadgeTrending},
}

// Unlocked reports whether the user meets the item's requirement.
func (c CosmeticDef) Unlocked(levelRank int, badges map[string]bool) bool {
	if c.RequiredLevel > 0 && levelRank < c.RequiredLevel {
		return false
	}
	if c.RequiredBadge != "" && !badges[c.RequiredBadge] {
		return false
	}
	return true
}
