package stats

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatsRepository defines data operations for XP totals and ranks.
type StatsRepository interface {
	GetStats(userID uint) (*UserStats, error)

	// AddXP applies a signed delta to a user's XP inside one
	// transaction, clamping the result at zero, creating the row when
	// absent. Returns the stats after the write.
	AddXP(userID uint, delta int) (*UserStats, error)

	// SetXP overwrites the total (clamped at zero) the same way.
	SetXP(userID uint, xp int) (*UserStats, error)

	GetRankByID(id uint) (*Rank, error)
	GetRankForXP(xp int) (*Rank, error)
	ListRanks() ([]Rank, error)

	Leaderboard(limit int) ([]LeaderboardEntry, error)

	CountParties() (int64, error)
	CountFinishedJobs(userID uint) (int64, error)
	CountOpenJobs() (int64, error)

	SeedRanks() error
}

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) GetStats(userID uint) (*UserStats, error) {
	var s UserStats
	if err := r.db.Where("user_id = ?", userID).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *statsRepository) upsertXP(userID uint, compute func(current int) int) (*UserStats, error) {
	var out UserStats
	err := r.db.Transaction(func(tx *gorm.DB) error {
		current := 0
		var existing UserStats
		if err := tx.Where("user_id = ?", userID).First(&existing).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		} else {
			current = existing.XP
		}

		newXP := compute(current)
		if newXP < 0 {
			newXP = 0
		}

		row := UserStats{UserID: userID, XP: newXP}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"xp", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}

		return tx.Where("user_id = ?", userID).First(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *statsRepository) AddXP(userID uint, delta int) (*UserStats, error) {
	return r.upsertXP(userID, func(current int) int { return current + delta })
}

func (r *statsRepository) SetXP(userID uint, xp int) (*UserStats, error) {
	return r.upsertXP(userID, func(int) int { return xp })
}

func (r *statsRepository) GetRankByID(id uint) (*Rank, error) {
	var rank Rank
	if err := r.db.First(&rank, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rank, nil
}

// GetRankForXP finds the band containing xp, inclusive at both ends.
func (r *statsRepository) GetRankForXP(xp int) (*Rank, error) {
	var rank Rank
	if err := r.db.Where("min_xp <= ? AND max_xp >= ?", xp, xp).Order("min_xp asc").First(&rank).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rank, nil
}

func (r *statsRepository) ListRanks() ([]Rank, error) {
	var ranks []Rank
	if err := r.db.Order("min_xp asc").Find(&ranks).Error; err != nil {
		return nil, err
	}
	return ranks, nil
}

func (r *statsRepository) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	type row struct {
		XP          int
		UserID      uint
		ProfileID   uint
		FirstName   string
		DisplayName string
		AvatarURL   string
	}
	var rows []row
	err := r.db.Table("user_stats").
		Select("user_stats.xp, user_stats.user_id, profiles.id as profile_id, profiles.first_name, profiles.display_name, profiles.avatar_url").
		Joins("JOIN profiles ON profiles.id = user_stats.user_id AND profiles.deleted_at IS NULL").
		Where("user_stats.deleted_at IS NULL").
		Order("user_stats.xp DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, rw := range rows {
		entries = append(entries, LeaderboardEntry{
			Rank:   i + 1,
			XP:     rw.XP,
			UserID: rw.UserID,
			Profile: &ProfileFields{
				ID:          rw.ProfileID,
				FirstName:   rw.FirstName,
				DisplayName: rw.DisplayName,
				AvatarURL:   rw.AvatarURL,
			},
		})
	}
	return entries, nil
}

func (r *statsRepository) CountParties() (int64, error) {
	var count int64
	err := r.db.Table("parties").Where("deleted_at IS NULL").Count(&count).Error
	return count, err
}

// CountFinishedJobs counts this user's applications in a terminal-ish
// status, mirroring the dashboard's definition of "finished".
func (r *statsRepository) CountFinishedJobs(userID uint) (int64, error) {
	var count int64
	err := r.db.Table("job_applications").
		Where("user_id = ? AND status IN ? AND deleted_at IS NULL", userID, []string{"completed", "finished", "accepted"}).
		Count(&count).Error
	return count, err
}

func (r *statsRepository) CountOpenJobs() (int64, error) {
	var count int64
	err := r.db.Table("jobs").Where("status = ? AND deleted_at IS NULL", "open").Count(&count).Error
	return count, err
}

// SeedRanks installs the default XP bands when the table is empty.
func (r *statsRepository) SeedRanks() error {
	var count int64
	if err := r.db.Model(&Rank{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	ranks := []Rank{
		{Name: "Beginner", MinXP: 0, MaxXP: 99},
		{Name: "Intermediate", MinXP: 100, MaxXP: 249},
		{Name: "Advanced", MinXP: 250, MaxXP: 499},
		{Name: "Expert", MinXP: 500, MaxXP: 1000000},
	}
	return r.db.Create(&ranks).Error
}
