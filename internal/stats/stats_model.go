package stats

import "gorm.io/gorm"

// Rank is a named XP band, read-only reference data.
type Rank struct {
	gorm.Model
	Name  string `gorm:"uniqueIndex;not null" json:"name"`
	MinXP int    `gorm:"not null" json:"min_xp"`
	MaxXP int    `gorm:"not null" json:"max_xp"`
}

// UserStats is the per-profile running XP total. CurrentRankID is a
// cached hint that may be stale or absent; rank resolution falls back to
// the range scan when it doesn't resolve.
type UserStats struct {
	gorm.Model
	UserID        uint  `gorm:"uniqueIndex;not null" json:"user_id"`
	XP            int   `gorm:"default:0" json:"xp"`
	CurrentRankID *uint `json:"current_rank_id"`
}

// Progress describes where an XP total sits inside its rank band.
type Progress struct {
	MinXP   int `json:"min_xp"`
	MaxXP   int `json:"max_xp"`
	Percent int `json:"percent"`
}

type UpdateStatsRequest struct {
	Delta *int `json:"delta,omitempty"`
	XP    *int `json:"xp,omitempty"`
}

// LeaderboardEntry is one row of the XP leaderboard.
type LeaderboardEntry struct {
	Rank    int            `json:"rank"`
	XP      int            `json:"xp"`
	UserID  uint           `json:"user_id"`
	Profile *ProfileFields `json:"profile"`
}

// ProfileFields is the slice of profile columns joined into stats
// responses.
type ProfileFields struct {
	ID          uint   `json:"id"`
	FirstName   string `json:"first_name"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// DashboardSummary aggregates the counters shown on the landing view.
type DashboardSummary struct {
	Profile         map[string]interface{} `json:"profile"`
	Rank            map[string]interface{} `json:"rank"`
	XP              int                    `json:"xp"`
	PartiesCount    int64                  `json:"partiesCount"`
	FinishedJobs    int64                  `json:"finishedJobsCount"`
	OpenQuestsCount int64                  `json:"openQuestsCount"`
}
